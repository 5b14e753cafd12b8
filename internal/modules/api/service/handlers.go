package service

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lsr_dashboard/internal/helper"
	"lsr_dashboard/internal/models"
	bridgesvc "lsr_dashboard/internal/modules/bridge/service"
	healthsvc "lsr_dashboard/internal/modules/health/service"
)

type statusReply struct {
	Status string `json:"status"`
	Bridge bool   `json:"bridge"`
	Ts     string `json:"ts"`
}

func (s *Server) status(c *gin.Context) {
	if v, ok := s.cache.Get("status", s.cfg.TTLs.Status); ok {
		s.respond(c, http.StatusOK, v)
		return
	}

	reply := statusReply{Status: "running", Bridge: true}
	if _, err := s.bridge.Status(c.Request.Context()); err != nil {
		reply.Bridge = false
		reply.Status = string(healthsvc.Degraded)
		if s.health.Classify() == healthsvc.Offline {
			reply.Status = string(healthsvc.Offline)
		}
	}
	reply.Ts = s.now().UTC().Format(time.RFC3339Nano)

	s.respond(c, http.StatusOK, s.cache.Set("status", reply))
}

type healthReply struct {
	Status healthsvc.Status `json:"status"`
	Bridge struct {
		ConsecutiveFailures uint     `json:"consecutiveFailures"`
		LastSuccessTs       *float64 `json:"lastSuccessTs"`
		LastFailureTs       *float64 `json:"lastFailureTs"`
	} `json:"bridge"`
	Cache struct {
		Entries         int     `json:"entries"`
		MaxEntries      int     `json:"maxEntries"`
		TTLSeconds      float64 `json:"ttlSeconds"`
		StaleTTLSeconds float64 `json:"staleTtlSeconds"`
	} `json:"cache"`
	RateLimit struct {
		WindowSeconds float64 `json:"windowSeconds"`
		MaxRequests   int     `json:"maxRequests"`
	} `json:"rateLimit"`
}

// healthReport всегда считается заново, без кэша.
func (s *Server) healthReport(c *gin.Context) {
	snap := s.health.Snapshot()
	stats := s.cache.Stats()

	var r healthReply
	r.Status = snap.Status
	r.Bridge.ConsecutiveFailures = snap.ConsecutiveFailures
	r.Bridge.LastSuccessTs = snap.LastSuccessTs
	r.Bridge.LastFailureTs = snap.LastFailureTs
	r.Cache.Entries = stats.Entries
	r.Cache.MaxEntries = stats.MaxEntries
	r.Cache.TTLSeconds = s.cfg.DefaultTTL.Seconds()
	r.Cache.StaleTTLSeconds = stats.StaleTTLSeconds
	r.RateLimit.WindowSeconds = s.limiter.Window().Seconds()
	r.RateLimit.MaxRequests = s.limiter.MaxRequests()

	s.respond(c, http.StatusOK, r)
}

// passThrough ответ моста как есть, без разбора.
func (s *Server) passThrough(key, path string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.cached(c, key, ttl, func(ctx context.Context) (any, bool) {
			var v any
			if err := s.bridge.Fetch(ctx, path, nil, &v); err != nil {
				return nil, false
			}
			return v, truthy(v)
		}, fallback{value: gin.H{"error": "bridge unreachable"}, store: true})
	}
}

func (s *Server) quotes(c *gin.Context) {
	s.cached(c, "quotes", s.cfg.TTLs.Quotes, func(ctx context.Context) (any, bool) {
		q, err := s.bridge.Quotes(ctx)
		if err != nil || len(q) == 0 {
			return nil, false
		}
		return gin.H{"quotes": q}, true
	}, fallback{value: gin.H{"quotes": map[string]map[string]any{}}, store: true})
}

func (s *Server) positions(c *gin.Context) {
	s.cached(c, "positions", s.cfg.TTLs.Positions, func(ctx context.Context) (any, bool) {
		positions, err := s.bridge.Positions(ctx)
		if err != nil {
			return nil, false
		}
		var orders []models.Order
		if len(positions) > 0 {
			// без ордеров позиции всё равно показываем, просто без sl/tp
			if orders, err = s.bridge.Orders(ctx); err != nil {
				orders = nil
			}
		}
		return gin.H{"positions": bridgesvc.AttachProtection(positions, orders)}, true
	}, fallback{value: gin.H{"positions": []models.Position{}}, store: true})
}

func (s *Server) levels(c *gin.Context) {
	s.cached(c, "levels", s.cfg.TTLs.Levels, func(ctx context.Context) (any, bool) {
		levels, err := s.journal.Levels(ctx)
		if err != nil || levels == nil {
			return gin.H{"instruments": []models.Level{}}, true
		}

		quotes, err := s.bridge.Quotes(ctx)
		if err == nil {
			for i := range levels {
				q, ok := quotes[levels[i].Symbol]
				if !ok {
					continue
				}
				levels[i].Last = quoteField(q, "last")
				levels[i].Bid = quoteField(q, "bid")
				levels[i].Ask = quoteField(q, "ask")
			}
		}
		return gin.H{"instruments": levels}, true
	}, fallback{})
}

func quoteField(q map[string]any, name string) *float64 {
	f, ok := bridgesvc.SafeFloat(q[name])
	if !ok {
		return nil
	}
	return &f
}

func (s *Server) trades(c *gin.Context) {
	s.cached(c, "trades", s.cfg.TTLs.Trades, func(ctx context.Context) (any, bool) {
		return s.journal.Trades(ctx), true
	}, fallback{})
}

func (s *Server) signals(c *gin.Context) {
	s.cached(c, "signals", s.cfg.TTLs.Signals, func(ctx context.Context) (any, bool) {
		lines := s.journal.Signals(ctx)
		if lines == nil {
			lines = []string{}
		}
		return gin.H{"signals": lines}, true
	}, fallback{})
}

type swingQuery struct {
	Symbol string `form:"symbol" binding:"omitempty,alphanum,min=1,max=8"`
}

func (s *Server) swingPoints(c *gin.Context) {
	var q swingQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.respond(c, http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	symbol := helper.UpperSymbol(q.Symbol)
	var query url.Values
	if symbol != "" {
		query = url.Values{"symbol": {symbol}}
	}

	s.cached(c, "swings:"+symbol, s.cfg.TTLs.Swings, func(ctx context.Context) (any, bool) {
		var v any
		if err := s.bridge.Fetch(ctx, "/swing-points", query, &v); err != nil {
			return nil, false
		}
		return v, truthy(v)
	}, fallback{value: gin.H{"swingPoints": []any{}}, store: true})
}

func (s *Server) logStreamEnd(err error) {
	if err != nil {
		s.log.Warn("stream relay ended", zap.Error(err))
	}
}
