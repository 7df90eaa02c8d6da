package refresh

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Debouncer coalesces bursts of triggers into one call per key. Each trigger
// restarts the key's quiet window and drops the previously scheduled call, so
// a user mashing the refresh button costs a single upstream fetch.
type Debouncer struct {
	clock  clockwork.Clock
	window time.Duration

	mu      sync.Mutex
	timers  map[string]clockwork.Timer
	stopped bool
}

func NewDebouncer(clock clockwork.Clock, window time.Duration) *Debouncer {
	return &Debouncer{
		clock:  clock,
		window: window,
		timers: make(map[string]clockwork.Timer),
	}
}

// Trigger schedules fn to run once key has been quiet for the full window.
func (d *Debouncer) Trigger(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if prev, ok := d.timers[key]; ok {
		prev.Stop()
	}

	var timer clockwork.Timer
	timer = d.clock.AfterFunc(d.window, func() {
		d.mu.Lock()
		// A newer trigger may have replaced this timer between firing
		// and acquiring the lock.
		if d.timers[key] == timer {
			delete(d.timers, key)
		}
		stopped := d.stopped
		d.mu.Unlock()

		if !stopped {
			fn()
		}
	})
	d.timers[key] = timer
}

// Stop cancels all pending calls. The debouncer ignores triggers afterwards.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for key, timer := range d.timers {
		timer.Stop()
		delete(d.timers, key)
	}
}
