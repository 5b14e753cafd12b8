package bootstrap

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	bootstrap "lsr_dashboard/internal/modules/bootstrap/service"
	bridgesvc "lsr_dashboard/internal/modules/bridge/service"
	"lsr_dashboard/internal/modules/config"
	healthsvc "lsr_dashboard/internal/modules/health/service"
)

func NewProber(cfg *config.Config, bridge *bridgesvc.Client, state *healthsvc.State, log *zap.Logger) *bootstrap.Prober {
	timeout := config.Seconds(cfg.Bridge.ConnectTimeout + cfg.Bridge.ReadTimeout)
	return bootstrap.NewProber(bridge, state, timeout, log.Named("bootstrap"))
}

func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(NewProber),
		fx.Invoke(func(lc fx.Lifecycle, p *bootstrap.Prober) {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					// не держим старт fx, мост может не отвечать
					go func() { _ = p.Probe(ctx) }()
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
