package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type StatusFetcher interface {
	Status(ctx context.Context) (any, error)
}

type Readiness interface {
	SetReady(v bool)
}

// Prober один раз опрашивает мост на старте и открывает /readyz.
// Исход пробы попадает в BridgeHealth через сам клиент.
type Prober struct {
	bridge  StatusFetcher
	ready   Readiness
	timeout time.Duration
	log     *zap.Logger
}

func NewProber(bridge StatusFetcher, ready Readiness, timeout time.Duration, log *zap.Logger) *Prober {
	return &Prober{bridge: bridge, ready: ready, timeout: timeout, log: log}
}

// Probe не ждёт моста дольше timeout; готовность выставляется при любом исходе,
// дальше эндпоинты сами отдают stale или пустые значения.
func (p *Prober) Probe(ctx context.Context) error {
	defer p.ready.SetReady(true)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	if _, err := p.bridge.Status(ctx); err != nil {
		p.log.Warn("bridge probe failed, starting degraded", zap.Error(err))
		return err
	}
	p.log.Info("bridge probe ok", zap.Duration("took", time.Since(start)))
	return nil
}
