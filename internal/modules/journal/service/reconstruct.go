package service

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lsr_dashboard/internal/models"
	bridgesvc "lsr_dashboard/internal/modules/bridge/service"
)

// PriceMatchTolerance насколько avgPrice позиции может отличаться от цены входа.
const PriceMatchTolerance = 2.0

type entry struct {
	placed OrderPlaced
	detail *OrderDetail
}

// session то, что извлекли из строк текущей сессии.
type session struct {
	entries   []entry
	exits     []OrderExit
	cancelled map[string]struct{}
}

func scan(lines []string, log *zap.Logger) session {
	s := session{cancelled: make(map[string]struct{})}
	current := -1 // индекс entry, ждущей строку деталей

	for _, line := range CurrentSession(lines) {
		ev, err := ParseLine(line)
		if err != nil {
			log.Warn("skipping malformed log line", zap.String("line", line), zap.Error(err))
			var me *MalformedError
			if errors.As(err, &me) && me.Kind == "detail" {
				current = -1
			}
			continue
		}

		switch e := ev.(type) {
		case nil, SessionStart:
		case OrderPlaced:
			s.entries = append(s.entries, entry{placed: e})
			current = len(s.entries) - 1
		case OrderDetail:
			if current < 0 {
				continue
			}
			d := e
			s.entries[current].detail = &d
			current = -1
		case OrderExit:
			s.exits = append(s.exits, e)
		case OrderCancel:
			s.cancelled[e.Symbol] = struct{}{}
		}
	}
	return s
}

// ReconstructTrades собирает сделки текущей сессии и сверяет их с живыми позициями.
// Для одного и того же окна и снимка результат всегда одинаковый.
func ReconstructTrades(lines []string, positions []models.Position, orders []models.Order, log *zap.Logger) models.TradeReport {
	if log == nil {
		log = zap.NewNop()
	}
	s := scan(lines, log)

	// последняя позиция по символу побеждает
	posBySymbol := make(map[string]models.Position, len(positions))
	for _, p := range bridgesvc.AttachProtection(positions, orders) {
		posBySymbol[bridgesvc.NormalizeSymbol(p.Symbol)] = p
	}

	exitsBySymbol := make(map[string][]OrderExit)
	symbolOrder := make([]string, 0)
	for _, x := range s.exits {
		if _, ok := exitsBySymbol[x.Symbol]; !ok {
			symbolOrder = append(symbolOrder, x.Symbol)
		}
		exitsBySymbol[x.Symbol] = append(exitsBySymbol[x.Symbol], x)
	}

	trades := make([]models.Trade, 0, len(s.entries)+len(s.exits))
	for _, e := range s.entries {
		t := entryTrade(e)
		sym := e.placed.Symbol

		if pos, ok := posBySymbol[sym]; ok && matchesPosition(e.placed, pos) {
			t.Status = models.TradeOpen
			t.PnL = ptr(pos.UnrealizedPnl)
			t.Direction = pos.Direction
			t.SL, t.TP = pos.SL, pos.TP
		} else if queue := exitsBySymbol[sym]; len(queue) > 0 {
			// FIFO по символу
			closeWith(&t, queue[0])
			exitsBySymbol[sym] = queue[1:]
		} else if _, ok := s.cancelled[sym]; ok {
			t.Status = models.TradeCancelled
		} else {
			t.Status = models.TradePending
		}

		trades = append(trades, t)
	}

	// выходы без входа в окне
	for _, sym := range symbolOrder {
		for _, x := range exitsBySymbol[sym] {
			t := models.Trade{Symbol: x.Symbol}
			closeWith(&t, x)
			trades = append(trades, t)
		}
	}

	return models.TradeReport{Trades: trades, Summary: Summarize(trades)}
}

func matchesPosition(p OrderPlaced, pos models.Position) bool {
	return pos.Direction == p.Side.Direction() &&
		math.Abs(pos.AvgPrice-p.Price) < PriceMatchTolerance
}

func entryTrade(e entry) models.Trade {
	t := models.Trade{
		Symbol:     e.placed.Symbol,
		Side:       e.placed.Side,
		EntryPrice: ptr(e.placed.Price),
	}
	if d := e.detail; d != nil {
		t.ExpectedR = ptr(d.ExpectedR)
		t.Setup = d.Setup
		t.Session = d.Session
		t.ClockTime = d.ClockTime
	}
	return t
}

func closeWith(t *models.Trade, x OrderExit) {
	t.Status = models.TradeClosed
	t.PnL = ptr(x.PnL)
	t.Ticks = ptr(x.Ticks)
	t.RealizedR = ptr(x.RMultiple)
	t.Result = x.Result()
}

// Summarize считает только закрытые сделки. winRate округляется до 0.1, половина к чётному.
func Summarize(trades []models.Trade) models.Summary {
	var (
		total, wins int
		pnl         = decimal.Zero
	)
	for _, t := range trades {
		if t.Status != models.TradeClosed {
			continue
		}
		total++
		if t.Result == models.Win {
			wins++
		}
		if t.PnL != nil {
			pnl = pnl.Add(decimal.NewFromFloat(*t.PnL))
		}
	}

	s := models.Summary{Total: total, Wins: wins, Losses: total - wins}
	if total > 0 {
		s.WinRate = decimal.NewFromInt(int64(wins)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(total))).
			RoundBank(1).
			InexactFloat64()
	}
	s.PnL = pnl.InexactFloat64()
	return s
}

func ptr(v float64) *float64 { return &v }
