package relay

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	bridgesvc "lsr_dashboard/internal/modules/bridge/service"
	"lsr_dashboard/internal/modules/config"
	healthsvc "lsr_dashboard/internal/modules/health/service"
	"lsr_dashboard/internal/modules/relay/service"
)

func NewRelay(cfg *config.Config, bridge *bridgesvc.Client, state *healthsvc.State, log *zap.Logger) *service.Relay {
	dial := func(ctx context.Context, url string) (service.Conn, error) {
		conn, err := bridge.DialStream(ctx, url)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}

	return service.NewRelay(service.Config{
		BridgeURL:    cfg.Bridge.WSURL,
		SendTimeout:  config.Millis(cfg.Relay.SendTimeoutMs),
		IdleTimeout:  config.Millis(cfg.Relay.IdleTimeoutMs),
		PingInterval: config.Millis(cfg.Relay.PingIntervalMs),
	}, dial, state, log.Named("relay"))
}

func Module() fx.Option {
	return fx.Module("relay",
		fx.Provide(NewRelay),
	)
}
