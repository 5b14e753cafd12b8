package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"lsr_dashboard/internal/models"
	"lsr_dashboard/pkg/tracing"
)

// OutcomeRecorder получает итог каждого обращения к мосту.
type OutcomeRecorder interface {
	RecordOutcome(ok bool)
}

type Config struct {
	HTTPURL        string
	WSURL          string
	MaxBytes       int64
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// Client HTTP и WebSocket доступ к мосту NT8.
type Client struct {
	cfg    Config
	http   *resty.Client
	health OutcomeRecorder
	log    *zap.Logger
}

func NewClient(cfg Config, health OutcomeRecorder, log *zap.Logger) *Client {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 4 * 1024 * 1024
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
	}

	r := resty.New().
		SetBaseURL(cfg.HTTPURL).
		SetTransport(transport).
		SetTimeout(cfg.ConnectTimeout+cfg.ReadTimeout).
		SetHeader("Accept", "application/json").
		SetLogger(log.Sugar())

	return &Client{
		cfg:    cfg,
		http:   r,
		health: health,
		log:    log,
	}
}

// Fetch GET path, тело не больше MaxBytes, JSON в dst. Любая ошибка = неудача для health.
func (c *Client) Fetch(ctx context.Context, path string, query url.Values, dst any) (err error) {
	span, ctx := tracing.StartSpan(ctx, "bridge.get", map[string]any{"path": path})
	started := time.Now()
	defer func() {
		requestSeconds.WithLabelValues(path).Observe(time.Since(started).Seconds())
		c.health.RecordOutcome(err == nil)
		tracing.Finish(span, err)
		if err != nil {
			c.log.Warn("bridge fetch failed", zap.String("path", path), zap.Error(err))
			err = fmt.Errorf("Client.Fetch: %w", err)
		}
	}()

	body, err := c.get(ctx, path, query)
	if err != nil {
		return err
	}
	if err = sonic.Unmarshal(body, dst); err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	req := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}

	resp, err := req.Get(path)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", path)
	}
	raw := resp.RawBody()
	if raw == nil {
		return nil, errors.Errorf("GET %s: empty body", path)
	}
	defer func() {
		_ = raw.Close()
	}()

	if resp.StatusCode()/100 != 2 {
		return nil, errors.Wrapf(ErrBadStatus, "GET %s: http %d", path, resp.StatusCode())
	}
	if cl := resp.RawResponse.ContentLength; cl > c.cfg.MaxBytes {
		return nil, errors.Wrapf(ErrPayloadTooLarge, "GET %s: content-length %d", path, cl)
	}

	body, err := io.ReadAll(io.LimitReader(raw, c.cfg.MaxBytes+1))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	if int64(len(body)) > c.cfg.MaxBytes {
		return nil, errors.Wrapf(ErrPayloadTooLarge, "GET %s: body over %d bytes", path, c.cfg.MaxBytes)
	}
	return body, nil
}

// Status сырой ответ /status.
func (c *Client) Status(ctx context.Context) (any, error) {
	var v any
	if err := c.Fetch(ctx, "/status", nil, &v); err != nil {
		return nil, err
	}
	return v, nil
}

type positionsPayload struct {
	Positions []json.RawMessage `json:"positions"`
}

type ordersPayload struct {
	Orders []json.RawMessage `json:"orders"`
}

// Positions открытые позиции. Битые элементы пропускаются по одному.
func (c *Client) Positions(ctx context.Context) ([]models.Position, error) {
	var p positionsPayload
	if err := c.Fetch(ctx, "/positions", nil, &p); err != nil {
		return nil, err
	}
	return decodeEach[models.Position](p.Positions, "position", c.log), nil
}

func (c *Client) Orders(ctx context.Context) ([]models.Order, error) {
	var p ordersPayload
	if err := c.Fetch(ctx, "/orders", nil, &p); err != nil {
		return nil, err
	}
	return decodeEach[models.Order](p.Orders, "order", c.log), nil
}

// Quotes котировки, приведённые к map[SYM]quote.
func (c *Client) Quotes(ctx context.Context) (map[string]map[string]any, error) {
	var raw any
	if err := c.Fetch(ctx, "/quotes", nil, &raw); err != nil {
		return nil, err
	}
	return NormalizeQuotes(raw), nil
}

func decodeEach[T any](items []json.RawMessage, kind string, log *zap.Logger) []T {
	out := make([]T, 0, len(items))
	for i, item := range items {
		var v T
		if err := sonic.Unmarshal(item, &v); err != nil {
			log.Warn("skipping malformed bridge record",
				zap.String("kind", kind), zap.Int("index", i), zap.Error(err))
			continue
		}
		out = append(out, v)
	}
	return out
}
