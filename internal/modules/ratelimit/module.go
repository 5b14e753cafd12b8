package ratelimit

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"lsr_dashboard/internal/modules/config"
	"lsr_dashboard/internal/modules/ratelimit/service"
)

const sweepInterval = time.Minute

func NewLimiter(cfg *config.Config) *service.Limiter {
	return service.NewLimiter(service.Config{
		Window:      config.Seconds(cfg.RateLimit.WindowSeconds),
		MaxRequests: cfg.RateLimit.MaxRequests,
	})
}

// RunSweeper периодически чистит пустые корзины ушедших клиентов.
func RunSweeper(lc fx.Lifecycle, l *service.Limiter, log *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				t := time.NewTicker(sweepInterval)
				defer t.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-t.C:
						if n := l.Sweep(); n > 0 {
							log.Debug("rate limiter swept idle buckets", zap.Int("removed", n))
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

func Module() fx.Option {
	return fx.Module("ratelimit",
		fx.Provide(NewLimiter),
		fx.Invoke(RunSweeper),
	)
}
