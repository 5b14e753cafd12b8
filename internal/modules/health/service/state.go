package service

import (
	"sync/atomic"
	"time"
)

// State готовность процесса и живость релея для admin эндпоинтов.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	activeRelays  atomic.Int64
	lastFrameUnix atomic.Int64 // unix seconds
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) RelayOpened()        { s.activeRelays.Add(1) }
func (s *State) RelayClosed()        { s.activeRelays.Add(-1) }
func (s *State) ActiveRelays() int64 { return s.activeRelays.Load() }

func (s *State) TouchFrame(t time.Time) { s.lastFrameUnix.Store(t.Unix()) }
func (s *State) LastFrame() time.Time {
	u := s.lastFrameUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
