package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lsr_dashboard/internal/models"
	cachesvc "lsr_dashboard/internal/modules/cache/service"
	healthsvc "lsr_dashboard/internal/modules/health/service"
	ratelimitsvc "lsr_dashboard/internal/modules/ratelimit/service"
	relaysvc "lsr_dashboard/internal/modules/relay/service"
)

var errDown = errors.New("bridge down")

type fakeBridge struct {
	mu        sync.Mutex
	bodies    map[string]string
	down      bool
	positions []models.Position
	orders    []models.Order
	quotes    map[string]map[string]any
	queries   map[string]url.Values
	calls     map[string]int
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{
		bodies:  map[string]string{},
		queries: map[string]url.Values{},
		calls:   map[string]int{},
	}
}

func (b *fakeBridge) setDown(v bool) {
	b.mu.Lock()
	b.down = v
	b.mu.Unlock()
}

func (b *fakeBridge) hit(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[path]++
	if b.down {
		return errDown
	}
	return nil
}

func (b *fakeBridge) Fetch(_ context.Context, path string, query url.Values, dst any) error {
	if err := b.hit(path); err != nil {
		return err
	}
	b.mu.Lock()
	body, ok := b.bodies[path]
	b.queries[path] = query
	b.mu.Unlock()
	if !ok {
		return errors.New("no route " + path)
	}
	return sonic.UnmarshalString(body, dst)
}

func (b *fakeBridge) Status(ctx context.Context) (any, error) {
	if err := b.hit("/status"); err != nil {
		return nil, err
	}
	return map[string]any{"connected": true}, nil
}

func (b *fakeBridge) Positions(context.Context) ([]models.Position, error) {
	if err := b.hit("/positions"); err != nil {
		return nil, err
	}
	return b.positions, nil
}

func (b *fakeBridge) Orders(context.Context) ([]models.Order, error) {
	if err := b.hit("/orders"); err != nil {
		return nil, err
	}
	return b.orders, nil
}

func (b *fakeBridge) Quotes(context.Context) (map[string]map[string]any, error) {
	if err := b.hit("/quotes"); err != nil {
		return nil, err
	}
	return b.quotes, nil
}

type fakeJournal struct {
	trades  atomic.Int32
	signals atomic.Int32
	levels  []models.Level
	lvlErr  error
}

func (j *fakeJournal) Trades(context.Context) models.TradeReport {
	j.trades.Add(1)
	return models.EmptyReport()
}

func (j *fakeJournal) Signals(context.Context) []string {
	j.signals.Add(1)
	return []string{"ES SWEEP PDL", "ES RECLAIM"}
}

func (j *fakeJournal) Levels(context.Context) ([]models.Level, error) {
	if j.lvlErr != nil {
		return nil, j.lvlErr
	}
	out := make([]models.Level, len(j.levels))
	copy(out, j.levels)
	return out, nil
}

type fakeHealth struct {
	status healthsvc.Status
}

func (h fakeHealth) Classify() healthsvc.Status { return h.status }
func (h fakeHealth) Snapshot() healthsvc.Snapshot {
	return healthsvc.Snapshot{Status: h.status, ConsecutiveFailures: 4}
}

type helloStreamer struct{}

func (helloStreamer) Serve(_ context.Context, client relaysvc.Conn) error {
	defer client.Close()
	return client.WriteMessage(websocket.TextMessage, []byte("hello"))
}

type fixture struct {
	srv     *Server
	bridge  *fakeBridge
	journal *fakeJournal
	store   *cachesvc.Store
	now     time.Time
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func newFixture(t *testing.T, maxRequests int, health Health) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		bridge:  newFakeBridge(),
		journal: &fakeJournal{},
		now:     time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	f.store = cachesvc.NewStore(cachesvc.Config{StaleTTL: 60 * time.Second, MaxItems: 256}).WithClock(clock)
	limiter := ratelimitsvc.NewLimiter(ratelimitsvc.Config{Window: time.Minute, MaxRequests: maxRequests}).WithClock(clock)
	if health == nil {
		health = fakeHealth{status: healthsvc.Healthy}
	}

	f.srv = NewServer(Config{
		TTLs: TTLs{
			Status: 2 * time.Second, Account: 5 * time.Second, Orders: 2 * time.Second,
			Quotes: time.Second, Positions: time.Second, Levels: 3 * time.Second,
			Trades: 2 * time.Second, Signals: 2 * time.Second, Candles: 2 * time.Second,
			Swings: 10 * time.Second,
		},
		DefaultTTL: 5 * time.Second,
		MaxCandles: 5000,
		StaticDir:  t.TempDir(),
	}, Deps{
		Bridge:  f.bridge,
		Journal: f.journal,
		Relay:   helloStreamer{},
		Health:  health,
		Cache:   f.store,
		Limiter: limiter,
	}, zap.NewNop())
	f.srv.now = clock
	return f
}

func (f *fixture) get(t *testing.T, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, 1, nil)

	w, _ := f.get(t, "/api/trades")
	assert.Equal(t, http.StatusOK, w.Code)

	w, body := f.get(t, "/api/trades")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "rate limit exceeded", body["error"])
	assert.EqualValues(t, 60, body["retryAfterSeconds"])

	// другой путь, своя корзина
	w, _ = f.get(t, "/api/signals")
	assert.Equal(t, http.StatusOK, w.Code)

	// статику не лимитируем
	for i := 0; i < 3; i++ {
		w, _ = f.get(t, "/")
		assert.NotEqual(t, http.StatusTooManyRequests, w.Code)
	}
}

func TestStreamNotLimited(t *testing.T) {
	f := newFixture(t, 1, nil)
	ts := httptest.NewServer(f.srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	for i := 0; i < 2; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, "hello", string(msg))
		_ = conn.Close()
	}
}

func TestPassThrough_FreshStaleFallback(t *testing.T) {
	f := newFixture(t, 100, nil)
	f.bridge.bodies["/account"] = `{"balance":1000}`

	_, body := f.get(t, "/api/account")
	assert.EqualValues(t, 1000, body["balance"])

	// в пределах ttl мост не трогаем
	f.advance(time.Second)
	_, _ = f.get(t, "/api/account")
	assert.Equal(t, 1, f.bridge.calls["/account"])

	f.bridge.setDown(true)
	f.advance(5 * time.Second)
	_, body = f.get(t, "/api/account")
	assert.EqualValues(t, 1000, body["balance"], "stale tier")

	f.advance(60 * time.Second)
	_, body = f.get(t, "/api/account")
	assert.Equal(t, "bridge unreachable", body["error"])
}

func TestPassThrough_EmptyUpstreamNotCached(t *testing.T) {
	f := newFixture(t, 100, nil)
	f.bridge.bodies["/orders"] = `{}`

	_, body := f.get(t, "/api/orders")
	assert.Equal(t, "bridge unreachable", body["error"])

	f.bridge.bodies["/orders"] = `{"orders":[]}`
	f.advance(3 * time.Second)
	_, body = f.get(t, "/api/orders")
	assert.Contains(t, body, "orders")
}

func TestQuotes(t *testing.T) {
	f := newFixture(t, 100, nil)

	_, body := f.get(t, "/api/quotes")
	assert.Equal(t, map[string]any{"quotes": map[string]any{}}, body)

	f.bridge.quotes = map[string]map[string]any{"ES": {"last": 5000.25}}
	f.advance(2 * time.Second)
	_, body = f.get(t, "/api/quotes")
	quotes := body["quotes"].(map[string]any)
	assert.Contains(t, quotes, "ES")
}

func TestPositions_AttachesProtection(t *testing.T) {
	f := newFixture(t, 100, nil)
	sl, tp, old := 4990.0, 5020.0, 4900.0
	f.bridge.positions = []models.Position{{Symbol: "ES 03-26", Direction: models.Long, Quantity: 1, AvgPrice: 5000}}
	f.bridge.orders = []models.Order{
		{Symbol: "ES 03-26", State: models.OrderWorking, OrderType: models.StopMarket, Price: &sl},
		{Symbol: "ES 03-26", State: models.OrderWorking, OrderType: models.Limit, Price: &tp},
		{Symbol: "ES 03-26", State: "Filled", OrderType: models.StopMarket, Price: &old},
	}

	_, body := f.get(t, "/api/positions")
	positions := body["positions"].([]any)
	require.Len(t, positions, 1)
	p := positions[0].(map[string]any)
	assert.EqualValues(t, 4990, p["sl"])
	assert.EqualValues(t, 5020, p["tp"])

	f.bridge.setDown(true)
	f.advance(2 * time.Second)
	_, body = f.get(t, "/api/positions")
	assert.Len(t, body["positions"], 1, "stale positions")
}

func TestPositions_EmptyDefault(t *testing.T) {
	f := newFixture(t, 100, nil)
	f.bridge.setDown(true)

	_, body := f.get(t, "/api/positions")
	assert.Equal(t, []any{}, body["positions"])
}

func TestStatus(t *testing.T) {
	cases := []struct {
		name   string
		down   bool
		health healthsvc.Status
		want   string
		bridge bool
	}{
		{name: "running", health: healthsvc.Healthy, want: "running", bridge: true},
		{name: "degraded", down: true, health: healthsvc.Degraded, want: "degraded"},
		{name: "offline", down: true, health: healthsvc.Offline, want: "offline"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, 100, fakeHealth{status: tc.health})
			f.bridge.setDown(tc.down)

			_, body := f.get(t, "/api/status")
			assert.Equal(t, tc.want, body["status"])
			assert.Equal(t, tc.bridge, body["bridge"])
			assert.Equal(t, "2026-03-02T14:30:00Z", body["ts"])
		})
	}
}

func TestHealthReport(t *testing.T) {
	f := newFixture(t, 1800, fakeHealth{status: healthsvc.Offline})

	_, body := f.get(t, "/api/health")
	assert.Equal(t, "offline", body["status"])
	assert.EqualValues(t, 4, body["bridge"].(map[string]any)["consecutiveFailures"])

	cache := body["cache"].(map[string]any)
	assert.EqualValues(t, 256, cache["maxEntries"])
	assert.EqualValues(t, 5, cache["ttlSeconds"])
	assert.EqualValues(t, 60, cache["staleTtlSeconds"])

	rl := body["rateLimit"].(map[string]any)
	assert.EqualValues(t, 60, rl["windowSeconds"])
	assert.EqualValues(t, 1800, rl["maxRequests"])
}

func TestLevels_EnrichedWithQuotes(t *testing.T) {
	f := newFixture(t, 100, nil)
	f.journal.levels = []models.Level{
		{Symbol: "ES", PDH: 5050, PDL: 4980, PDC: 5010},
		{Symbol: "NQ", PDH: 18000, PDL: 17800, PDC: 17900},
	}
	f.bridge.quotes = map[string]map[string]any{
		"ES": {"last": 5001.25, "bid": 5001.0, "ask": 5001.5},
	}

	_, body := f.get(t, "/api/levels")
	inst := body["instruments"].([]any)
	require.Len(t, inst, 2)

	es := inst[0].(map[string]any)
	assert.EqualValues(t, 5001.25, es["last"])
	assert.EqualValues(t, 5001.5, es["ask"])

	nq := inst[1].(map[string]any)
	assert.NotContains(t, nq, "last")
}

func TestLevels_LogUnavailable(t *testing.T) {
	f := newFixture(t, 100, nil)
	f.journal.lvlErr = errors.New("ssh timeout")

	_, body := f.get(t, "/api/levels")
	assert.Equal(t, []any{}, body["instruments"])
}

func TestTradesAndSignals_Cached(t *testing.T) {
	f := newFixture(t, 100, nil)

	for i := 0; i < 3; i++ {
		_, body := f.get(t, "/api/trades")
		assert.Equal(t, []any{}, body["trades"])
		_, body = f.get(t, "/api/signals")
		assert.Len(t, body["signals"], 2)
	}
	assert.EqualValues(t, 1, f.journal.trades.Load())
	assert.EqualValues(t, 1, f.journal.signals.Load())

	f.advance(3 * time.Second)
	_, _ = f.get(t, "/api/trades")
	assert.EqualValues(t, 2, f.journal.trades.Load())
}

func candleRows(n int) string {
	rows := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, map[string]any{"time": 1700000000 + i*300, "open": 100, "high": 101, "low": 99, "close": 100 + i})
	}
	// строка без close отбрасывается
	rows = append(rows, map[string]any{"time": 1})
	b, _ := json.Marshal(map[string]any{"candles": rows})
	return string(b)
}

func TestCandles(t *testing.T) {
	f := newFixture(t, 100, nil)
	f.bridge.bodies["/candles"] = candleRows(25)

	w, body := f.get(t, "/api/candles?symbol=nq")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["candles"], 25)
	assert.Len(t, body["ema20"], 6)
	assert.Equal(t, []any{}, body["ema50"])
	assert.Equal(t, []any{}, body["ema200"])

	q := f.bridge.queries["/candles"]
	assert.Equal(t, "NQ", q.Get("symbol"))
	assert.Equal(t, "300", q.Get("tf"))
	assert.Equal(t, "24", q.Get("hours"))
}

func TestCandles_Trimmed(t *testing.T) {
	f := newFixture(t, 100, nil)
	f.srv.cfg.MaxCandles = 10
	f.bridge.bodies["/candles"] = candleRows(30)

	_, body := f.get(t, "/api/candles?tf=1h&hours=2")
	candles := body["candles"].([]any)
	require.Len(t, candles, 10)
	assert.EqualValues(t, 1700000000+20*300, candles[0].(map[string]any)["time"])
	assert.Equal(t, "3600", f.bridge.queries["/candles"].Get("tf"))
}

func TestCandles_BridgeDownNotCached(t *testing.T) {
	f := newFixture(t, 100, nil)
	f.bridge.setDown(true)

	_, body := f.get(t, "/api/candles")
	assert.Equal(t, []any{}, body["candles"])
	assert.Equal(t, 0, f.store.Len())
}

func TestCandles_Validation(t *testing.T) {
	cases := []struct {
		name  string
		query url.Values
	}{
		{name: "symbol_not_alnum", query: url.Values{"symbol": {"ES!"}}},
		{name: "symbol_too_long", query: url.Values{"symbol": {"ABCDEFGHI"}}},
		{name: "tf_unknown", query: url.Values{"tf": {"4h"}}},
		{name: "hours_zero", query: url.Values{"hours": {"0"}}},
		{name: "hours_over_week", query: url.Values{"hours": {"169"}}},
		{name: "hours_not_int", query: url.Values{"hours": {"abc"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, 100, nil)
			w, body := f.get(t, "/api/candles?"+tc.query.Encode())
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.NotEmpty(t, body["detail"])
			assert.Zero(t, f.bridge.calls["/candles"])
		})
	}
}

func TestSwingPoints(t *testing.T) {
	f := newFixture(t, 100, nil)

	_, body := f.get(t, "/api/swing-points?symbol=es")
	assert.Equal(t, []any{}, body["swingPoints"])
	assert.Equal(t, "ES", f.bridge.queries["/swing-points"].Get("symbol"))

	f.bridge.bodies["/swing-points"] = `{"swingPoints":[{"price":5000}]}`
	_, body = f.get(t, "/api/swing-points")
	assert.Len(t, body["swingPoints"], 1)
	assert.Nil(t, f.bridge.queries["/swing-points"])

	w, _ := f.get(t, "/api/swing-points?symbol=a-b")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestStatic(t *testing.T) {
	f := newFixture(t, 100, nil)
	dir := f.srv.cfg.StaticDir

	w, _ := f.get(t, "/")
	assert.Equal(t, http.StatusNotFound, w.Code, "no index yet")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>spa</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))

	cases := []struct {
		name string
		path string
		code int
		body string
	}{
		{name: "root", path: "/", code: http.StatusOK, body: "spa"},
		{name: "asset", path: "/app.js", code: http.StatusOK, body: "console.log"},
		{name: "spa_route", path: "/trades/today", code: http.StatusOK, body: "spa"},
		{name: "traversal_stays_inside", path: "/../../etc/passwd", code: http.StatusOK, body: "spa"},
		{name: "api_miss", path: "/api/nope", code: http.StatusNotFound, body: "Not Found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.URL.Path = tc.path
			f.srv.Router().ServeHTTP(w, req)
			assert.Equal(t, tc.code, w.Code)
			assert.Contains(t, w.Body.String(), tc.body)
		})
	}
}
