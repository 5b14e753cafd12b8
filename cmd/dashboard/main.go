package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"lsr_dashboard/internal/modules/api"
	"lsr_dashboard/internal/modules/bootstrap"
	"lsr_dashboard/internal/modules/bridge"
	"lsr_dashboard/internal/modules/cache"
	"lsr_dashboard/internal/modules/config"
	"lsr_dashboard/internal/modules/health"
	"lsr_dashboard/internal/modules/journal"
	"lsr_dashboard/internal/modules/logreader"
	"lsr_dashboard/internal/modules/notify"
	"lsr_dashboard/internal/modules/ratelimit"
	"lsr_dashboard/internal/modules/relay"
	"lsr_dashboard/pkg/logger"
	"lsr_dashboard/pkg/tracing"
)

const serviceName = "lsr-dashboard"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if logger.FatalLogger != nil {
			logger.Fatal("dashboard: %v", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "dashboard",
		Short: "LSR live trading dashboard backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to yaml config (default $CONFIG_FILE or configs/values_local.yaml)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the public API and admin servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	})

	return root
}

func serve(configPath string) error {
	app := fx.New(
		config.Module(configPath),
		fx.Provide(newLogger),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Invoke(startTracing),

		health.Module(),
		cache.Module(),
		ratelimit.Module(),
		bridge.Module(),
		logreader.Module(),
		journal.Module(),
		relay.Module(),
		notify.Module(),
		bootstrap.Module(),
		api.Module(),
	)
	if err := app.Err(); err != nil {
		return err
	}

	app.Run()
	logger.Info("%s stopped", serviceName)
	return nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger.SetServiceName(serviceName)
	return logger.NewLogger(cfg.Service.LogLevel)
}

func startTracing(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) error {
	tracing.SetServiceName(serviceName)
	_, closer, err := tracing.InitTracer(tracing.Config{
		Enabled: cfg.Tracing.Enabled,
		Host:    cfg.Tracing.Host,
		Port:    cfg.Tracing.Port,
	})
	if err != nil {
		return err
	}
	if cfg.Tracing.Enabled {
		logger.Info("jaeger tracer installed, agent %s:%d", cfg.Tracing.Host, cfg.Tracing.Port)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closer()
			_ = log.Sync()
			return nil
		},
	})
	return nil
}
