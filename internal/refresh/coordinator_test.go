package refresh

import (
	"testing"
	"time"
)

// Intervals here are short real-time delays; each wait allows generous slack
// so the suite stays stable on loaded machines.

func expectIntent(t *testing.T, c *Coordinator, within time.Duration) {
	t.Helper()
	select {
	case <-c.Intents():
	case <-time.After(within):
		t.Fatal("no refresh intent arrived in time")
	}
}

func expectNoIntent(t *testing.T, c *Coordinator, during time.Duration) {
	t.Helper()
	select {
	case <-c.Intents():
		t.Fatal("unexpected refresh intent")
	case <-time.After(during):
	}
}

func TestTicksAtInterval(t *testing.T) {
	c := New(30 * time.Millisecond)
	c.Start()
	defer c.Stop()

	expectIntent(t, c, 500*time.Millisecond)
}

func TestNoOverlapWhileFetchInFlight(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.Start()
	defer c.Stop()

	expectIntent(t, c, 500*time.Millisecond)
	c.FetchStarted()

	// A fetch spanning several intervals must suppress every tick.
	expectNoIntent(t, c, 100*time.Millisecond)

	c.FetchDone()
	expectIntent(t, c, 500*time.Millisecond)
}

func TestIntervalMeasuredFromFetchEnd(t *testing.T) {
	c := New(60 * time.Millisecond)
	c.Start()
	defer c.Stop()

	c.FetchStarted()
	time.Sleep(80 * time.Millisecond)
	c.FetchDone()

	// The timer restarts at FetchDone, so nothing fires right away even
	// though more than one interval has passed since Start.
	expectNoIntent(t, c, 30*time.Millisecond)
	expectIntent(t, c, 500*time.Millisecond)
}

func TestPauseSuppressesTicksUntilResume(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.Start()
	defer c.Stop()

	c.Pause()
	expectNoIntent(t, c, 100*time.Millisecond)

	c.Resume()
	expectIntent(t, c, 500*time.Millisecond)
}

func TestManualRefreshResetsTimer(t *testing.T) {
	c := New(60 * time.Millisecond)
	c.Start()
	defer c.Stop()

	time.Sleep(40 * time.Millisecond)
	c.ManualRefresh()

	// The reset pushes the next tick a full interval out from now.
	expectNoIntent(t, c, 30*time.Millisecond)
	expectIntent(t, c, 500*time.Millisecond)
}

func TestStopIsIdempotentAndSilencesControls(t *testing.T) {
	c := New(10 * time.Millisecond)
	c.Start()
	c.Stop()
	c.Stop()

	// Control calls after Stop must not block.
	done := make(chan struct{})
	go func() {
		c.Pause()
		c.Resume()
		c.FetchStarted()
		c.FetchDone()
		c.ManualRefresh()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("control call blocked after Stop")
	}
}

func TestDefaultIntervalApplied(t *testing.T) {
	c := New(0)
	if c.Interval() != defaultInterval {
		t.Errorf("Interval() = %v, want %v", c.Interval(), defaultInterval)
	}
}
