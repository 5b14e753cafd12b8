package service

import (
	"context"

	"go.uber.org/zap"

	"lsr_dashboard/internal/models"
)

// Шаблоны Select-String и глубина окна для каждого потребителя лога.
const (
	tradesPattern  = "Startup levels|PLACING LIMIT|Expected R:R|Trade logged|Canceling LIMIT|FILLED"
	tradesWindow   = 250
	signalsPattern = "SWEEP|PLACING|RECLAIM|FILLED|Cancel|expired|reject|Trade logged|PENDING|ORDER placed|ORDER|Startup"
	signalsWindow  = 40
	levelsPattern  = "LSR SCAN:"
	levelsWindow   = 50
)

type LogSource interface {
	Grep(ctx context.Context, pattern string, last int) (string, error)
}

type LiveState interface {
	Positions(ctx context.Context) ([]models.Position, error)
	Orders(ctx context.Context) ([]models.Order, error)
}

// Service читает лог трейдера и превращает его в сделки, сигналы и уровни.
type Service struct {
	logs LogSource
	live LiveState
	log  *zap.Logger
}

func NewService(logs LogSource, live LiveState, log *zap.Logger) *Service {
	return &Service{logs: logs, live: live, log: log}
}

// Trades никогда не возвращает ошибку: недоступный лог = пустой отчёт.
func (s *Service) Trades(ctx context.Context) models.TradeReport {
	text, err := s.logs.Grep(ctx, tradesPattern, tradesWindow)
	if err != nil {
		s.log.Warn("trades: log unavailable", zap.Error(err))
		return models.EmptyReport()
	}

	positions, err := s.live.Positions(ctx)
	if err != nil {
		positions = nil
	}
	var orders []models.Order
	if len(positions) > 0 {
		if orders, err = s.live.Orders(ctx); err != nil {
			orders = nil
		}
	}

	return ReconstructTrades(SplitLines(text), positions, orders, s.log)
}

// Signals пустая лента, если лог недоступен.
func (s *Service) Signals(ctx context.Context) []string {
	text, err := s.logs.Grep(ctx, signalsPattern, signalsWindow)
	if err != nil {
		s.log.Warn("signals: log unavailable", zap.Error(err))
		return []string{}
	}
	return ReduceSignals(SplitLines(text), SignalFeedSize)
}

func (s *Service) Levels(ctx context.Context) ([]models.Level, error) {
	text, err := s.logs.Grep(ctx, levelsPattern, levelsWindow)
	if err != nil {
		return nil, err
	}
	return ParseLevels(SplitLines(text), s.log), nil
}
