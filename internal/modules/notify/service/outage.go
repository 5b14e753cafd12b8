package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	healthsvc "lsr_dashboard/internal/modules/health/service"
)

const sendTimeout = 10 * time.Second

// OutageWatcher сообщает, когда мост уходит в offline и когда возвращается.
type OutageWatcher struct {
	n   Notifier
	log *zap.Logger
	// async=false в тестах, чтобы не ждать горутину
	async bool

	// алерты уходят по одному и в порядке переходов
	mu       sync.Mutex
	pending  []string
	draining bool
}

func NewOutageWatcher(n Notifier, log *zap.Logger) *OutageWatcher {
	return &OutageWatcher{n: n, log: log, async: true}
}

// OnTransition подписывается на BridgeHealth. Вызывается на горячем пути запроса, поэтому не блокирует.
func (w *OutageWatcher) OnTransition(from, to healthsvc.Status, failures uint) {
	msg, ok := message(from, to, failures)
	if !ok {
		return
	}

	w.mu.Lock()
	w.pending = append(w.pending, msg)
	start := !w.draining
	w.draining = true
	w.mu.Unlock()

	if !start {
		return
	}
	if !w.async {
		w.drain()
		return
	}
	go w.drain()
}

func (w *OutageWatcher) drain() {
	for {
		w.mu.Lock()
		if len(w.pending) == 0 {
			w.draining = false
			w.mu.Unlock()
			return
		}
		msg := w.pending[0]
		w.pending = w.pending[1:]
		w.mu.Unlock()

		w.send(msg)
	}
}

func (w *OutageWatcher) send(msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := w.n.Send(ctx, msg); err != nil {
		w.log.Warn("alert delivery failed", zap.Error(err))
	}
}

func message(from, to healthsvc.Status, failures uint) (string, bool) {
	switch {
	case to == healthsvc.Offline:
		return fmt.Sprintf("🔴 Bridge offline: %d consecutive failed calls", failures), true
	case to == healthsvc.Healthy && from == healthsvc.Offline:
		return "🟢 Bridge recovered", true
	default:
		return "", false
	}
}
