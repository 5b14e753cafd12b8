package cache

import (
	"go.uber.org/fx"

	"lsr_dashboard/internal/modules/cache/service"
	"lsr_dashboard/internal/modules/config"
)

func NewStore(cfg *config.Config) *service.Store {
	return service.NewStore(service.Config{
		StaleTTL: config.Seconds(cfg.Cache.StaleTTL),
		MaxItems: cfg.Cache.MaxItems,
	})
}

func Module() fx.Option {
	return fx.Module("cache",
		fx.Provide(NewStore),
	)
}
