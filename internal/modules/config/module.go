package config

import "go.uber.org/fx"

// Module регистрирует конфиг как fx-провайдер. Пустой path => CONFIG_FILE / дефолт.
func Module(path string) fx.Option {
	return fx.Module("config",
		fx.Provide(
			func() (*Config, error) {
				if path == "" {
					return NewConfig()
				}
				return Load(path)
			},
		),
	)
}
