package service

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type Notifier interface {
	Send(ctx context.Context, msg string) error
}

// botSender часть *tgbot.BotAPI, которой хватает для отправки.
type botSender interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
}

// Telegram шлёт сообщения в один чат.
type Telegram struct {
	bot    botSender
	chatID int64
}

func NewTelegram(bot botSender, chatID int64) *Telegram {
	return &Telegram{bot: bot, chatID: chatID}
}

func (t *Telegram) Send(ctx context.Context, msg string) error {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
		return fmt.Errorf("Telegram.Send: %w", err)
	}
	return nil
}

// Log запасной вариант, когда Telegram не настроен: пишет в zap.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log { return &Log{log: log} }

func (l *Log) Send(_ context.Context, msg string) error {
	l.log.Warn("alert", zap.String("msg", msg))
	return nil
}
