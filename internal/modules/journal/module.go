package journal

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	bridgesvc "lsr_dashboard/internal/modules/bridge/service"
	"lsr_dashboard/internal/modules/journal/service"
	logsvc "lsr_dashboard/internal/modules/logreader/service"
)

func NewService(logs *logsvc.Reader, bridge *bridgesvc.Client, log *zap.Logger) *service.Service {
	return service.NewService(logs, bridge, log.Named("journal"))
}

func Module() fx.Option {
	return fx.Module("journal",
		fx.Provide(NewService),
	)
}
