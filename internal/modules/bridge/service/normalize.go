package service

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"lsr_dashboard/internal/models"
)

// NormalizeSymbol отрезает месяц контракта: "ES 03-26" -> "ES".
func NormalizeSymbol(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}

// NormalizeQuotes принимает map по символу, массив объектов с symbol
// или всё это под ключом "quotes". nil -> пустая map.
func NormalizeQuotes(raw any) map[string]map[string]any {
	out := make(map[string]map[string]any)

	switch v := raw.(type) {
	case map[string]any:
		if inner, ok := v["quotes"]; ok {
			return NormalizeQuotes(inner)
		}
		for sym, q := range v {
			if m, ok := q.(map[string]any); ok {
				out[NormalizeSymbol(sym)] = m
			}
		}
	case []any:
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			sym, _ := m["symbol"].(string)
			if sym = NormalizeSymbol(sym); sym == "" {
				continue
			}
			out[sym] = m
		}
	}

	return out
}

// NormalizeCandle поддерживает time/open/... и Time/Open/...
// Без time или с не конечным close строка отбрасывается.
func NormalizeCandle(row map[string]any) (models.Candle, bool) {
	t, ok := field(row, "time")
	if !ok || t == nil {
		return models.Candle{}, false
	}
	rawClose, ok := field(row, "close")
	if !ok {
		return models.Candle{}, false
	}
	closeP, ok := SafeFloat(rawClose)
	if !ok {
		return models.Candle{}, false
	}

	c := models.Candle{Time: t, Close: closeP}
	c.Open = optionalFloat(row, "open")
	c.High = optionalFloat(row, "high")
	c.Low = optionalFloat(row, "low")
	c.Volume = optionalFloat(row, "volume")
	return c, true
}

// SafeFloat число или числовая строка; NaN, ±Inf и мусор отвергаются.
func SafeFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// AttachProtection проставляет sl/tp из рабочих StopMarket/Limit ордеров по символу.
func AttachProtection(positions []models.Position, orders []models.Order) []models.Position {
	type levels struct{ sl, tp *float64 }
	bySymbol := make(map[string]*levels)

	for _, o := range orders {
		sym := NormalizeSymbol(o.Symbol)
		if sym == "" || o.State != models.OrderWorking {
			continue
		}
		slot, ok := bySymbol[sym]
		if !ok {
			slot = &levels{}
			bySymbol[sym] = slot
		}
		switch o.OrderType {
		case models.StopMarket:
			slot.sl = o.Price
		case models.Limit:
			slot.tp = o.Price
		}
	}

	out := make([]models.Position, 0, len(positions))
	for _, p := range positions {
		p.SL, p.TP = nil, nil
		if slot, ok := bySymbol[NormalizeSymbol(p.Symbol)]; ok {
			p.SL, p.TP = slot.sl, slot.tp
		}
		out = append(out, p)
	}
	return out
}

func field(row map[string]any, name string) (any, bool) {
	if v, ok := row[name]; ok {
		return v, true
	}
	v, ok := row[strings.ToUpper(name[:1])+name[1:]]
	return v, ok
}

func optionalFloat(row map[string]any, name string) float64 {
	v, ok := field(row, name)
	if !ok {
		return 0
	}
	f, _ := SafeFloat(v)
	return f
}
