package logreader

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"lsr_dashboard/internal/modules/config"
	"lsr_dashboard/internal/modules/logreader/service"
)

func NewReader(cfg *config.Config, log *zap.Logger) *service.Reader {
	return service.NewReader(service.Config{
		Target:         cfg.Log.SSHTarget,
		LogPath:        cfg.Log.Path,
		Timeout:        config.Seconds(cfg.Log.TimeoutSeconds),
		MaxStdoutBytes: cfg.Log.MaxStdoutBytes,
	}, service.SSHRunner{ConnectTimeout: config.Seconds(cfg.Bridge.ConnectTimeout)}, log.Named("logreader"))
}

func Module() fx.Option {
	return fx.Module("logreader",
		fx.Provide(NewReader),
	)
}
