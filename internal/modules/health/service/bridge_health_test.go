package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeHealth_Classify(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []bool
		want     Status
	}{
		{name: "no_calls", outcomes: nil, want: Healthy},
		{name: "one_failure", outcomes: []bool{false}, want: Degraded},
		{name: "two_failures", outcomes: []bool{false, false}, want: Degraded},
		{name: "three_failures", outcomes: []bool{false, false, false}, want: Offline},
		{name: "many_failures", outcomes: []bool{false, false, false, false, false}, want: Offline},
		{name: "success_resets", outcomes: []bool{false, false, false, true}, want: Healthy},
		{name: "failures_not_consecutive", outcomes: []bool{false, false, true, false, false}, want: Degraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewBridgeHealth()
			for _, ok := range tt.outcomes {
				h.RecordOutcome(ok)
			}
			assert.Equal(t, tt.want, h.Classify())
		})
	}
}

func TestBridgeHealth_Snapshot(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	h := NewBridgeHealth().WithClock(func() time.Time { return now })

	s := h.Snapshot()
	assert.Nil(t, s.LastSuccessTs)
	assert.Nil(t, s.LastFailureTs)

	h.RecordOutcome(true)
	now = now.Add(time.Second)
	h.RecordOutcome(false)

	s = h.Snapshot()
	assert.Equal(t, Degraded, s.Status)
	assert.Equal(t, uint(1), s.ConsecutiveFailures)
	require.NotNil(t, s.LastSuccessTs)
	require.NotNil(t, s.LastFailureTs)
	assert.Equal(t, 1_700_000_000.0, *s.LastSuccessTs)
	assert.Equal(t, 1_700_000_001.0, *s.LastFailureTs)
}

func TestBridgeHealth_Transitions(t *testing.T) {
	h := NewBridgeHealth()

	type change struct{ from, to Status }
	var got []change
	h.Subscribe(func(from, to Status, _ uint) {
		got = append(got, change{from, to})
	})

	for _, ok := range []bool{false, false, false, false, true, true} {
		h.RecordOutcome(ok)
	}

	assert.Equal(t, []change{
		{Healthy, Degraded},
		{Degraded, Offline},
		{Offline, Healthy},
	}, got)
}

func TestBridgeHealth_ConcurrentTransitionsStayOrdered(t *testing.T) {
	h := NewBridgeHealth()

	type change struct{ from, to Status }
	var got []change
	h.Subscribe(func(from, to Status, _ uint) {
		got = append(got, change{from, to})
	})

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(ok bool) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				h.RecordOutcome(ok)
			}
		}(i%3 == 0)
	}
	wg.Wait()

	// каждый переход начинается там, где закончился предыдущий
	prev := Healthy
	for i, c := range got {
		require.Equalf(t, prev, c.from, "transition %d", i)
		prev = c.to
	}
	assert.Equal(t, h.Classify(), prev)
}
