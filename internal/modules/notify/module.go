package notify

import (
	"net/http"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"lsr_dashboard/internal/modules/config"
	healthsvc "lsr_dashboard/internal/modules/health/service"
	"lsr_dashboard/internal/modules/notify/service"
)

// NewNotifier Telegram, если заданы токен и чат; иначе алерты идут в лог.
func NewNotifier(cfg *config.Config, log *zap.Logger) service.Notifier {
	log = log.Named("notify")
	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
		return service.NewLog(log)
	}

	bot, err := tgbot.NewBotAPIWithClient(cfg.Telegram.Token, tgbot.APIEndpoint, &http.Client{Timeout: 10 * time.Second})
	if err != nil {
		log.Warn("telegram unavailable, alerts go to log", zap.Error(err))
		return service.NewLog(log)
	}
	return service.NewTelegram(bot, cfg.Telegram.ChatID)
}

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(
			NewNotifier,
			service.NewOutageWatcher,
		),
		fx.Invoke(func(h *healthsvc.BridgeHealth, w *service.OutageWatcher) {
			h.Subscribe(w.OnTransition)
		}),
	)
}
