package models

// Direction позиции так, как её отдаёт мост.
type Direction string

const (
	Long  Direction = "Long"
	Short Direction = "Short"
)

// Position снимок открытой позиции с моста (только чтение).
type Position struct {
	Symbol        string    `json:"symbol"`
	Direction     Direction `json:"direction"`
	Quantity      float64   `json:"quantity"`
	AvgPrice      float64   `json:"avgPrice"`
	UnrealizedPnl float64   `json:"unrealizedPnl"`
	SL            *float64  `json:"sl"`
	TP            *float64  `json:"tp"`
}

type OrderType string

const (
	StopMarket OrderType = "StopMarket"
	Limit      OrderType = "Limit"
)

const OrderWorking = "Working"

// Order снимок ордера с моста.
type Order struct {
	Symbol    string    `json:"symbol"`
	State     string    `json:"state"`
	OrderType OrderType `json:"orderType"`
	Price     *float64  `json:"price"`
}

// Candle строка свечей после нормализации.
type Candle struct {
	Time   any     `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// SeriesPoint одна точка индикатора на графике.
type SeriesPoint struct {
	Time  any     `json:"time"`
	Value float64 `json:"value"`
}
