package service

import (
	"context"
	"net/url"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lsr_dashboard/internal/models"
	cachesvc "lsr_dashboard/internal/modules/cache/service"
	healthsvc "lsr_dashboard/internal/modules/health/service"
	ratelimitsvc "lsr_dashboard/internal/modules/ratelimit/service"
	relaysvc "lsr_dashboard/internal/modules/relay/service"
)

type Bridge interface {
	Fetch(ctx context.Context, path string, query url.Values, dst any) error
	Status(ctx context.Context) (any, error)
	Positions(ctx context.Context) ([]models.Position, error)
	Orders(ctx context.Context) ([]models.Order, error)
	Quotes(ctx context.Context) (map[string]map[string]any, error)
}

type Journal interface {
	Trades(ctx context.Context) models.TradeReport
	Signals(ctx context.Context) []string
	Levels(ctx context.Context) ([]models.Level, error)
}

type Streamer interface {
	Serve(ctx context.Context, client relaysvc.Conn) error
}

type Health interface {
	Classify() healthsvc.Status
	Snapshot() healthsvc.Snapshot
}

// TTLs свежесть каждого ресурса в кэше.
type TTLs struct {
	Status    time.Duration
	Account   time.Duration
	Orders    time.Duration
	Quotes    time.Duration
	Positions time.Duration
	Levels    time.Duration
	Trades    time.Duration
	Signals   time.Duration
	Candles   time.Duration
	Swings    time.Duration
}

type Config struct {
	TTLs       TTLs
	DefaultTTL time.Duration // только для /api/health
	MaxCandles int
	StaticDir  string
}

type Deps struct {
	Bridge  Bridge
	Journal Journal
	Relay   Streamer
	Health  Health
	Cache   *cachesvc.Store
	Limiter *ratelimitsvc.Limiter
}

// Server HTTP слой дашборда: тонкие хендлеры поверх кэша, моста и журнала.
type Server struct {
	cfg     Config
	bridge  Bridge
	journal Journal
	relay   Streamer
	health  Health
	cache   *cachesvc.Store
	limiter *ratelimitsvc.Limiter
	log     *zap.Logger

	router *gin.Engine
	now    func() time.Time
}

func NewServer(cfg Config, deps Deps, log *zap.Logger) *Server {
	if cfg.MaxCandles <= 0 {
		cfg.MaxCandles = 5000
	}

	s := &Server{
		cfg:     cfg,
		bridge:  deps.Bridge,
		journal: deps.Journal,
		relay:   deps.Relay,
		health:  deps.Health,
		cache:   deps.Cache,
		limiter: deps.Limiter,
		log:     log,
		now:     time.Now,
	}

	router := gin.New()
	router.Use(ginzap.Ginzap(log, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(log, true))
	router.Use(s.rateLimit())

	s.router = router
	s.registerRoutes()
	return s
}

// Router движок gin, нужен RunHTTP и тестам.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) registerRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/status", s.status)
		api.GET("/health", s.healthReport)
		api.GET("/account", s.passThrough("account", "/account", s.cfg.TTLs.Account))
		api.GET("/orders", s.passThrough("orders", "/orders", s.cfg.TTLs.Orders))
		api.GET("/quotes", s.quotes)
		api.GET("/positions", s.positions)
		api.GET("/levels", s.levels)
		api.GET("/trades", s.trades)
		api.GET("/signals", s.signals)
		api.GET("/candles", s.candles)
		api.GET("/swing-points", s.swingPoints)
		api.GET("/ws", s.stream)
	}

	s.router.NoRoute(s.static)
}
