package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lsr_dashboard/internal/helper"
	"lsr_dashboard/internal/indicators"
	"lsr_dashboard/internal/models"
	bridgesvc "lsr_dashboard/internal/modules/bridge/service"
)

type candlesQuery struct {
	Symbol string `form:"symbol,default=ES" binding:"alphanum,min=1,max=8"`
	TF     string `form:"tf,default=5m" binding:"oneof=1m 5m 15m 1h"`
	Hours  int    `form:"hours,default=24" binding:"min=1,max=168"`
}

type candlesReply struct {
	Candles []models.Candle      `json:"candles"`
	EMA20   []models.SeriesPoint `json:"ema20"`
	EMA50   []models.SeriesPoint `json:"ema50"`
	EMA200  []models.SeriesPoint `json:"ema200"`
}

func emptyCandles() candlesReply {
	return candlesReply{
		Candles: []models.Candle{},
		EMA20:   []models.SeriesPoint{},
		EMA50:   []models.SeriesPoint{},
		EMA200:  []models.SeriesPoint{},
	}
}

func (s *Server) candles(c *gin.Context) {
	var q candlesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.respond(c, http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	symbol := helper.UpperSymbol(q.Symbol)
	tfSecs, _ := helper.TFSeconds(q.TF)
	key := fmt.Sprintf("candles:%s:%s:%d", symbol, q.TF, q.Hours)
	query := url.Values{
		"symbol": {symbol},
		"tf":     {strconv.Itoa(tfSecs)},
		"hours":  {strconv.Itoa(q.Hours)},
	}

	// пустой ответ без данных моста не кэшируем, иначе он перебьёт stale
	s.cached(c, key, s.cfg.TTLs.Candles, func(ctx context.Context) (any, bool) {
		var payload map[string]any
		if err := s.bridge.Fetch(ctx, "/candles", query, &payload); err != nil {
			return nil, false
		}
		raw, ok := payload["candles"]
		if !ok {
			return nil, false
		}
		return s.buildCandles(raw, key), true
	}, fallback{value: emptyCandles()})
}

func (s *Server) buildCandles(raw any, key string) candlesReply {
	rows, ok := raw.([]any)
	if !ok {
		s.log.Warn("unexpected candles payload", zap.String("key", key), zap.String("type", fmt.Sprintf("%T", raw)))
		return emptyCandles()
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, r := range rows {
		row, ok := r.(map[string]any)
		if !ok {
			continue
		}
		if candle, ok := bridgesvc.NormalizeCandle(row); ok {
			candles = append(candles, candle)
		}
	}
	if len(candles) > s.cfg.MaxCandles {
		candles = candles[len(candles)-s.cfg.MaxCandles:]
	}
	if len(candles) == 0 {
		return emptyCandles()
	}

	return candlesReply{
		Candles: candles,
		EMA20:   indicators.EMASeries(candles, 20),
		EMA50:   indicators.EMASeries(candles, 50),
		EMA200:  indicators.EMASeries(candles, 200),
	}
}
