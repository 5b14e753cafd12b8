package service

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// DialStream открывает дуплексный поток моста. Лимит кадра = MaxBytes.
func (c *Client) DialStream(ctx context.Context, url string) (*websocket.Conn, error) {
	if url == "" {
		url = c.cfg.WSURL
	}

	dialer := &websocket.Dialer{
		HandshakeTimeout: c.cfg.ConnectTimeout,
		ReadBufferSize:   32 * 1024,
		WriteBufferSize:  32 * 1024,
	}

	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		c.log.Warn("bridge stream dial failed", zap.String("url", url), zap.Error(err))
		return nil, fmt.Errorf("Client.DialStream: %w", err)
	}
	conn.SetReadLimit(c.cfg.MaxBytes)

	return conn, nil
}
