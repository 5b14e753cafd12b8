package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeStatus struct {
	err   error
	block bool
}

func (f fakeStatus) Status(ctx context.Context) (any, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return map[string]any{"connected": true}, f.err
}

type readyFlag struct{ v bool }

func (r *readyFlag) SetReady(v bool) { r.v = v }

func TestProber_Probe(t *testing.T) {
	cases := []struct {
		name    string
		bridge  fakeStatus
		wantErr bool
	}{
		{name: "bridge_up", bridge: fakeStatus{}},
		{name: "bridge_down", bridge: fakeStatus{err: errors.New("refused")}, wantErr: true},
		{name: "bridge_hangs", bridge: fakeStatus{block: true}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ready := &readyFlag{}
			p := NewProber(tc.bridge, ready, 20*time.Millisecond, zap.NewNop())

			err := p.Probe(context.Background())
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.True(t, ready.v)
		})
	}
}
