package service

import "lsr_dashboard/internal/models"

// Event одна распознанная строка лога трейдера. Закрытый набор вариантов ниже.
type Event interface {
	isEvent()
}

// SessionStart маркер перезапуска трейдера ("Startup levels").
type SessionStart struct{}

type OrderPlaced struct {
	Symbol string
	Side   models.Side
	Price  float64
}

// OrderDetail дополняет последний OrderPlaced.
type OrderDetail struct {
	ExpectedR float64
	Setup     string
	Session   string
	ClockTime string
}

type OrderExit struct {
	Symbol    string
	Ticks     float64
	PnL       float64
	RMultiple float64
}

func (e OrderExit) Result() models.TradeResult {
	if e.PnL > 0 {
		return models.Win
	}
	return models.Loss
}

type OrderCancel struct {
	Symbol string
}

func (SessionStart) isEvent() {}
func (OrderPlaced) isEvent()  {}
func (OrderDetail) isEvent()  {}
func (OrderExit) isEvent()    {}
func (OrderCancel) isEvent()  {}
