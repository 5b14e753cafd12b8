package service

import (
	"sync"
	"time"
)

type Status string

const (
	Healthy  Status = "healthy"
	Degraded Status = "degraded"
	Offline  Status = "offline"
)

// OfflineAfter подряд идущих неудач, после которых мост считается offline.
const OfflineAfter = 3

// TransitionFunc вызывается при смене статуса, переходы приходят строго по порядку.
// Слушатель не должен блокироваться: он держит порядок для всех обращений к мосту.
type TransitionFunc func(from, to Status, failures uint)

// BridgeHealth счётчик подряд идущих неудач обращений к мосту.
type BridgeHealth struct {
	// dispatch упорядочивает обновление счётчика и рассылку переходов
	dispatch sync.Mutex

	mu                  sync.Mutex
	consecutiveFailures uint
	lastSuccess         time.Time
	lastFailure         time.Time

	listeners []TransitionFunc
	now       func() time.Time
}

type Snapshot struct {
	Status              Status   `json:"status"`
	ConsecutiveFailures uint     `json:"consecutiveFailures"`
	LastSuccessTs       *float64 `json:"lastSuccessTs"`
	LastFailureTs       *float64 `json:"lastFailureTs"`
}

func NewBridgeHealth() *BridgeHealth {
	return &BridgeHealth{now: time.Now}
}

func (h *BridgeHealth) WithClock(now func() time.Time) *BridgeHealth {
	h.now = now
	return h
}

// Subscribe регистрирует слушателя переходов статуса.
func (h *BridgeHealth) Subscribe(fn TransitionFunc) {
	h.mu.Lock()
	h.listeners = append(h.listeners, fn)
	h.mu.Unlock()
}

func (h *BridgeHealth) RecordOutcome(ok bool) {
	h.dispatch.Lock()
	defer h.dispatch.Unlock()

	h.mu.Lock()
	before := classify(h.consecutiveFailures)
	if ok {
		h.consecutiveFailures = 0
		h.lastSuccess = h.now()
	} else {
		h.consecutiveFailures++
		h.lastFailure = h.now()
	}
	failures := h.consecutiveFailures
	after := classify(failures)
	listeners := h.listeners
	h.mu.Unlock()

	if ok {
		bridgeOutcomes.WithLabelValues("success").Inc()
	} else {
		bridgeOutcomes.WithLabelValues("failure").Inc()
	}

	if before == after {
		return
	}
	for _, fn := range listeners {
		fn(before, after, failures)
	}
}

func (h *BridgeHealth) Classify() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return classify(h.consecutiveFailures)
}

func (h *BridgeHealth) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	return Snapshot{
		Status:              classify(h.consecutiveFailures),
		ConsecutiveFailures: h.consecutiveFailures,
		LastSuccessTs:       unixSeconds(h.lastSuccess),
		LastFailureTs:       unixSeconds(h.lastFailure),
	}
}

func classify(failures uint) Status {
	switch {
	case failures == 0:
		return Healthy
	case failures < OfflineAfter:
		return Degraded
	default:
		return Offline
	}
}

func unixSeconds(t time.Time) *float64 {
	if t.IsZero() {
		return nil
	}
	v := float64(t.UnixNano()) / float64(time.Second)
	return &v
}
