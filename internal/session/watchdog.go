package session

import (
	"context"
	"sync"
	"time"
)

// DefaultWatchdogInterval is the poll period of the forced-logout check.
const DefaultWatchdogInterval = 30 * time.Second

// Watchdog runs check on a fixed interval between Start and Stop. It can be
// restarted after a Stop.
type Watchdog struct {
	interval time.Duration
	check    func(context.Context)

	mu     sync.Mutex
	cancel context.CancelFunc
	starts int
	stops  int
}

func NewWatchdog(interval time.Duration, check func(context.Context)) *Watchdog {
	if interval <= 0 {
		interval = DefaultWatchdogInterval
	}
	return &Watchdog{interval: interval, check: check}
}

// Start launches the loop. It reports false if the watchdog was already running.
func (w *Watchdog) Start() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.starts++
	go w.run(ctx)
	return true
}

// Stop cancels the loop. Stopping a stopped watchdog is a no-op and reports
// false. Stop does not wait for an in-flight check, so it may be called from
// within one.
func (w *Watchdog) Stop() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel == nil {
		return false
	}
	w.cancel()
	w.cancel = nil
	w.stops++
	return true
}

func (w *Watchdog) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

// Counts returns how many times the watchdog was started and stopped.
func (w *Watchdog) Counts() (starts, stops int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.starts, w.stops
}

func (w *Watchdog) run(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if ctx.Err() != nil {
				return
			}
			w.check(ctx)
		}
	}
}
