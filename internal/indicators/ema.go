package indicators

import (
	"github.com/shopspring/decimal"

	"lsr_dashboard/internal/models"
)

// emaState первые period значений копит для SMA, дальше обычная EMA с k = 2/(p+1).
type emaState struct {
	period int
	alpha  float64
	value  float64
	sum    float64
	warmup int
}

func newEMA(period int) emaState {
	if period <= 1 {
		period = 1
	}
	return emaState{
		period: period,
		alpha:  2.0 / (float64(period) + 1),
	}
}

func (e *emaState) Update(price float64) {
	if e.warmup < e.period {
		e.sum += price
		e.warmup++
		if e.warmup == e.period {
			e.value = e.sum / float64(e.period)
		}
		return
	}
	e.value = price*e.alpha + e.value*(1-e.alpha)
}

func (e *emaState) Ready() bool    { return e.warmup >= e.period }
func (e *emaState) Value() float64 { return e.value }

// EMA значение для каждой свечи начиная с индекса period-1.
// Если данных меньше period, результат пустой.
func EMA(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period {
		return []float64{}
	}
	out := make([]float64, 0, len(closes)-period+1)
	st := newEMA(period)
	for _, c := range closes {
		st.Update(c)
		if st.Ready() {
			out = append(out, st.Value())
		}
	}
	return out
}

// EMASeries точки для графика, значение округлено до 4 знаков.
func EMASeries(candles []models.Candle, period int) []models.SeriesPoint {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	values := EMA(closes, period)
	out := make([]models.SeriesPoint, 0, len(values))
	offset := len(candles) - len(values)
	for i, v := range values {
		out = append(out, models.SeriesPoint{
			Time:  candles[offset+i].Time,
			Value: decimal.NewFromFloat(v).Round(4).InexactFloat64(),
		})
	}
	return out
}
