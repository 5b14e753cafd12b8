package models

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Direction позиции, которую открывает ордер этой стороны.
func (s Side) Direction() Direction {
	if s == Buy {
		return Long
	}
	return Short
}

type TradeStatus string

const (
	TradeOpen      TradeStatus = "open"
	TradeClosed    TradeStatus = "closed"
	TradeCancelled TradeStatus = "cancelled"
	TradePending   TradeStatus = "pending"
)

type TradeResult string

const (
	Win  TradeResult = "win"
	Loss TradeResult = "loss"
)

// Trade собирается на каждый запрос из лога и живых позиций, нигде не хранится.
type Trade struct {
	Symbol     string      `json:"symbol"`
	Side       Side        `json:"side,omitempty"`
	EntryPrice *float64    `json:"price,omitempty"`
	ExpectedR  *float64    `json:"rr,omitempty"`
	Setup      string      `json:"setup,omitempty"`
	Session    string      `json:"session,omitempty"`
	ClockTime  string      `json:"time,omitempty"`
	Status     TradeStatus `json:"status"`
	Direction  Direction   `json:"direction,omitempty"`
	PnL        *float64    `json:"pnl,omitempty"`
	Ticks      *float64    `json:"ticks,omitempty"`
	RealizedR  *float64    `json:"r_actual,omitempty"`
	Result     TradeResult `json:"result,omitempty"`
	SL         *float64    `json:"sl,omitempty"`
	TP         *float64    `json:"tp,omitempty"`
}

type Summary struct {
	Total   int     `json:"total"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	WinRate float64 `json:"winRate"`
	PnL     float64 `json:"pnl"`
}

type TradeReport struct {
	Trades  []Trade `json:"trades"`
	Summary Summary `json:"summary"`
}

// EmptyReport то, что отдаём, когда лог недоступен.
func EmptyReport() TradeReport {
	return TradeReport{Trades: []Trade{}}
}

// Level уровни прошлого дня из LSR SCAN, котировки подмешиваются позже.
type Level struct {
	Symbol string   `json:"symbol"`
	PDH    float64  `json:"pdh"`
	PDL    float64  `json:"pdl"`
	PDC    float64  `json:"pdc"`
	Last   *float64 `json:"last,omitempty"`
	Bid    *float64 `json:"bid,omitempty"`
	Ask    *float64 `json:"ask,omitempty"`
}
