package bridge

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"lsr_dashboard/internal/modules/bridge/service"
	"lsr_dashboard/internal/modules/config"
	healthsvc "lsr_dashboard/internal/modules/health/service"
)

func NewClient(cfg *config.Config, h *healthsvc.BridgeHealth, log *zap.Logger) *service.Client {
	return service.NewClient(service.Config{
		HTTPURL:        cfg.Bridge.HTTPURL,
		WSURL:          cfg.Bridge.WSURL,
		MaxBytes:       int64(cfg.Bridge.MaxBytes),
		ConnectTimeout: config.Seconds(cfg.Bridge.ConnectTimeout),
		ReadTimeout:    config.Seconds(cfg.Bridge.ReadTimeout),
	}, h, log.Named("bridge"))
}

func Module() fx.Option {
	return fx.Module("bridge",
		fx.Provide(NewClient),
	)
}
