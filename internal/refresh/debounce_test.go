package refresh

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func waitForCalls(t *testing.T, calls *atomic.Int64, want int64) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if calls.Load() == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("expected %d calls, saw %d", want, calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestDebouncerCoalescesBursts(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := NewDebouncer(clock, 2*time.Second)
	var calls atomic.Int64

	d.Trigger("league", func() { calls.Add(1) })
	clock.BlockUntil(1)
	clock.Advance(time.Second)

	// A second tap inside the window restarts the wait.
	d.Trigger("league", func() { calls.Add(1) })
	clock.BlockUntil(1)
	clock.Advance(time.Second)
	assert.Equal(t, int64(0), calls.Load())

	clock.Advance(time.Second)
	waitForCalls(t, &calls, 1)
}

func TestDebouncerKeysAreIndependent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := NewDebouncer(clock, time.Second)
	var calls atomic.Int64

	d.Trigger("a", func() { calls.Add(1) })
	clock.BlockUntil(1)
	d.Trigger("b", func() { calls.Add(1) })
	clock.BlockUntil(2)

	clock.Advance(time.Second)
	waitForCalls(t, &calls, 2)
}

func TestDebouncerStopDropsPendingWork(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := NewDebouncer(clock, time.Second)
	var calls atomic.Int64

	d.Trigger("league", func() { calls.Add(1) })
	clock.BlockUntil(1)
	d.Stop()

	clock.Advance(2 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(0), calls.Load())

	// Triggers after Stop are ignored.
	d.Trigger("league", func() { calls.Add(1) })
	clock.Advance(2 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(0), calls.Load())
}
