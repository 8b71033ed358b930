package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatchdogStartStopIdempotent(t *testing.T) {
	var ticks atomic.Int32
	w := NewWatchdog(2*time.Millisecond, func(context.Context) { ticks.Add(1) })

	require.True(t, w.Start())
	require.False(t, w.Start())
	require.Eventually(t, func() bool { return ticks.Load() > 0 }, time.Second, time.Millisecond)

	require.True(t, w.Stop())
	require.False(t, w.Stop())
	require.False(t, w.Running())

	starts, stops := w.Counts()
	require.Equal(t, 1, starts)
	require.Equal(t, 1, stops)

	// Let an in-flight tick drain before sampling.
	time.Sleep(5 * time.Millisecond)
	settled := ticks.Load()
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, settled, ticks.Load())
}

func TestWatchdogRestartsAfterStop(t *testing.T) {
	var ticks atomic.Int32
	w := NewWatchdog(2*time.Millisecond, func(context.Context) { ticks.Add(1) })
	require.True(t, w.Start())
	require.True(t, w.Stop())
	require.True(t, w.Start())
	t.Cleanup(func() { w.Stop() })
	require.Eventually(t, func() bool { return ticks.Load() > 0 }, time.Second, time.Millisecond)
}

func TestWatchdogStopFromWithinCheck(t *testing.T) {
	var w *Watchdog
	done := make(chan struct{})
	w = NewWatchdog(time.Millisecond, func(context.Context) {
		if w.Stop() {
			close(done)
		}
	})
	require.True(t, w.Start())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("check did not stop the watchdog")
	}
	require.False(t, w.Running())
}

func TestWatchdogDefaultInterval(t *testing.T) {
	w := NewWatchdog(0, func(context.Context) {})
	require.Equal(t, DefaultWatchdogInterval, w.interval)
	require.Equal(t, 30*time.Second, w.interval)
}
