package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var (
	errClientGone = errors.New("client stream closed")
	errBridgeGone = errors.New("bridge stream closed")
)

// Conn то, что релею нужно от websocket соединения. *websocket.Conn подходит.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

type DialFunc func(ctx context.Context, url string) (Conn, error)

// Tracker учёт активных релеев для /healthz.
type Tracker interface {
	RelayOpened()
	RelayClosed()
	TouchFrame(t time.Time)
}

type Config struct {
	BridgeURL    string
	SendTimeout  time.Duration // сколько ждём клиента на одно сообщение, потом дроп
	IdleTimeout  time.Duration // тишина от клиента, после которой пингуем мост
	PingInterval time.Duration // keepalive моста
	PongTimeout  time.Duration
	WriteTimeout time.Duration // потолок на одну запись в сокет
}

type frame struct {
	typ  int
	data []byte
}

type Relay struct {
	cfg     Config
	dial    DialFunc
	tracker Tracker
	log     *zap.Logger

	dropLog rate.Sometimes
	dropped atomic.Int64
}

func NewRelay(cfg Config, dial DialFunc, tracker Tracker, log *zap.Logger) *Relay {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 20 * time.Second
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return &Relay{
		cfg:     cfg,
		dial:    dial,
		tracker: tracker,
		log:     log,
		dropLog: rate.Sometimes{First: 1, Interval: 5 * time.Second},
	}
}

// Dropped сколько сообщений не дошло до медленных клиентов за всё время.
func (r *Relay) Dropped() int64 { return r.dropped.Load() }

// Serve гоняет кадры клиент <-> мост, пока одна из сторон не закроется.
// На любом выходе оба соединения закрыты.
func (r *Relay) Serve(ctx context.Context, client Conn) (err error) {
	log := r.log.With(zap.String("conn", uuid.NewString()))

	r.tracker.RelayOpened()
	relayActive.Inc()
	defer func() {
		r.tracker.RelayClosed()
		relayActive.Dec()
	}()

	var bridge Conn
	var once sync.Once
	closeAll := func() {
		once.Do(func() {
			deadline := time.Now().Add(time.Second)
			_ = client.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			_ = client.Close()
			if bridge != nil {
				_ = bridge.Close()
			}
		})
	}
	defer closeAll()

	bridge, err = r.dial(ctx, r.cfg.BridgeURL)
	if err != nil {
		log.Warn("relay: bridge dial failed", zap.Error(err))
		return fmt.Errorf("Relay.Serve: %w", err)
	}
	log.Info("relay started", zap.String("bridge", r.cfg.BridgeURL))

	g, gctx := errgroup.WithContext(ctx)
	// блокирующие чтения отпускаем закрытием сокетов
	stop := context.AfterFunc(gctx, closeAll)
	defer stop()

	inbound := make(chan frame)
	outbound := make(chan frame)

	g.Go(guard("client-read", func() error { return r.readClient(gctx, client, inbound) }))
	g.Go(guard("to-bridge", func() error { return r.toBridge(gctx, bridge, inbound) }))
	g.Go(guard("bridge-read", func() error { return r.readBridge(gctx, bridge, outbound, log) }))
	g.Go(guard("client-write", func() error { return r.writeClient(gctx, client, outbound) }))

	err = g.Wait()
	if ctx.Err() != nil {
		err = ctx.Err()
	}
	switch {
	case errors.Is(err, errClientGone), errors.Is(err, context.Canceled):
		log.Info("relay finished", zap.NamedError("reason", err))
		return nil
	default:
		log.Warn("relay stopped", zap.Error(err))
		return fmt.Errorf("Relay.Serve: %w", err)
	}
}

func (r *Relay) readClient(ctx context.Context, client Conn, inbound chan<- frame) error {
	for {
		typ, data, err := client.ReadMessage()
		if err != nil {
			return gone(ctx, errClientGone, err)
		}
		select {
		case inbound <- frame{typ: typ, data: data}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// toBridge шлёт клиентские кадры в мост; тишина клиента дольше IdleTimeout = ping моста.
func (r *Relay) toBridge(ctx context.Context, bridge Conn, inbound <-chan frame) error {
	idle := time.NewTimer(r.cfg.IdleTimeout)
	defer idle.Stop()
	keepalive := time.NewTicker(r.cfg.PingInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case f := <-inbound:
			_ = bridge.SetWriteDeadline(time.Now().Add(r.cfg.WriteTimeout))
			if err := bridge.WriteMessage(f.typ, f.data); err != nil {
				return gone(ctx, errBridgeGone, err)
			}
			idle.Reset(r.cfg.IdleTimeout)

		case <-idle.C:
			relayPings.WithLabelValues("client_idle").Inc()
			if err := r.ping(bridge); err != nil {
				return err
			}
			idle.Reset(r.cfg.IdleTimeout)

		case <-keepalive.C:
			relayPings.WithLabelValues("keepalive").Inc()
			if err := r.ping(bridge); err != nil {
				return err
			}
		}
	}
}

func (r *Relay) ping(bridge Conn) error {
	if err := bridge.WriteControl(websocket.PingMessage, nil, time.Now().Add(r.cfg.WriteTimeout)); err != nil {
		return errors.Wrap(errBridgeGone, err.Error())
	}
	return nil
}

// readBridge отдаёт кадр писателю клиента не дольше SendTimeout, иначе дроп.
func (r *Relay) readBridge(ctx context.Context, bridge Conn, outbound chan<- frame, log *zap.Logger) error {
	liveness := r.cfg.PingInterval + r.cfg.PongTimeout
	_ = bridge.SetReadDeadline(time.Now().Add(liveness))
	bridge.SetPongHandler(func(string) error {
		return bridge.SetReadDeadline(time.Now().Add(liveness))
	})

	for {
		typ, data, err := bridge.ReadMessage()
		if err != nil {
			return gone(ctx, errBridgeGone, err)
		}
		now := time.Now()
		_ = bridge.SetReadDeadline(now.Add(liveness))
		r.tracker.TouchFrame(now)

		timer := time.NewTimer(r.cfg.SendTimeout)
		select {
		case outbound <- frame{typ: typ, data: data}:
			relayFrames.WithLabelValues("delivered").Inc()
		case <-timer.C:
			r.dropped.Add(1)
			relayFrames.WithLabelValues("dropped").Inc()
			r.dropLog.Do(func() {
				log.Warn("dropping websocket message for slow client", zap.Int64("droppedTotal", r.dropped.Load()))
			})
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
		timer.Stop()
	}
}

func (r *Relay) writeClient(ctx context.Context, client Conn, outbound <-chan frame) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-outbound:
			_ = client.SetWriteDeadline(time.Now().Add(r.cfg.WriteTimeout))
			if err := client.WriteMessage(f.typ, f.data); err != nil {
				return gone(ctx, errClientGone, err)
			}
		}
	}
}

// gone: если сокет закрыли мы сами из-за отмены, причиной считается отмена, а не обрыв.
func gone(ctx context.Context, side, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return errors.Wrap(side, err.Error())
}

// guard превращает панику направления в ошибку, чтобы errgroup погасил остальных.
func guard(name string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = errors.Errorf("relay %s panic: %v", name, rec)
			}
		}()
		return fn()
	}
}
