package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"lsr_dashboard/internal/modules/api/service"
	bridgesvc "lsr_dashboard/internal/modules/bridge/service"
	cachesvc "lsr_dashboard/internal/modules/cache/service"
	"lsr_dashboard/internal/modules/config"
	healthsvc "lsr_dashboard/internal/modules/health/service"
	journalsvc "lsr_dashboard/internal/modules/journal/service"
	ratelimitsvc "lsr_dashboard/internal/modules/ratelimit/service"
	relaysvc "lsr_dashboard/internal/modules/relay/service"
)

type Params struct {
	fx.In

	Config  *config.Config
	Bridge  *bridgesvc.Client
	Journal *journalsvc.Service
	Relay   *relaysvc.Relay
	Health  *healthsvc.BridgeHealth
	Cache   *cachesvc.Store
	Limiter *ratelimitsvc.Limiter
	Log     *zap.Logger
}

func NewServer(p Params) *service.Server {
	gin.SetMode(gin.ReleaseMode)

	t := p.Config.Cache.TTLs
	cfg := service.Config{
		TTLs: service.TTLs{
			Status:    config.Seconds(t.Status),
			Account:   config.Seconds(t.Account),
			Orders:    config.Seconds(t.Orders),
			Quotes:    config.Seconds(t.Quotes),
			Positions: config.Seconds(t.Positions),
			Levels:    config.Seconds(t.Levels),
			Trades:    config.Seconds(t.Trades),
			Signals:   config.Seconds(t.Signals),
			Candles:   config.Seconds(t.Candles),
			Swings:    config.Seconds(t.Swings),
		},
		DefaultTTL: config.Seconds(p.Config.Cache.TTL),
		MaxCandles: p.Config.Candles.MaxCandles,
		StaticDir:  p.Config.Service.StaticDir,
	}

	return service.NewServer(cfg, service.Deps{
		Bridge:  p.Bridge,
		Journal: p.Journal,
		Relay:   p.Relay,
		Health:  p.Health,
		Cache:   p.Cache,
		Limiter: p.Limiter,
	}, p.Log.Named("api"))
}

// RunHTTP публичный порт. Базовый контекст отменяется на остановке, чтобы закрыть живые релеи.
func RunHTTP(lc fx.Lifecycle, cfg *config.Config, s *service.Server, log *zap.Logger) {
	addr := fmt.Sprintf("%s:%d", cfg.Service.Host, cfg.Service.PublicPort)
	base, cancel := context.WithCancel(context.Background())

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				cancel()
				return err
			}
			log.Info("public http listening", zap.String("addr", addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("public http stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("api",
		fx.Provide(NewServer),
		fx.Invoke(RunHTTP),
	)
}
