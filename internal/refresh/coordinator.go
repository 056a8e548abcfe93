// Package refresh drives the auto-refresh loop of the monitor. The
// coordinator never fetches anything itself: it emits refresh intents on a
// channel, and the consumer reports fetch start and completion back. Each
// interval is measured from the end of the previous fetch, so a slow
// response can never cause overlapping refreshes.
package refresh

import (
	"sync"
	"time"
)

const defaultInterval = 30 * time.Second

type ctlMsg int

const (
	ctlPause ctlMsg = iota
	ctlResume
	ctlFetchStarted
	ctlFetchDone
	ctlManual
)

// Coordinator owns the refresh timer. Start launches the loop; Stop shuts
// it down permanently. All other methods are safe to call from any
// goroutine after Start.
type Coordinator struct {
	interval time.Duration
	intents  chan struct{}
	ctl      chan ctlMsg
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a coordinator ticking at the given interval. Non-positive
// intervals fall back to the default.
func New(interval time.Duration) *Coordinator {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Coordinator{
		interval: interval,
		intents:  make(chan struct{}),
		ctl:      make(chan ctlMsg),
		done:     make(chan struct{}),
	}
}

// Interval returns the configured tick interval.
func (c *Coordinator) Interval() time.Duration { return c.interval }

// Intents returns the channel on which refresh intents are delivered.
func (c *Coordinator) Intents() <-chan struct{} { return c.intents }

// Start launches the timer loop. It returns immediately.
func (c *Coordinator) Start() {
	go c.run()
}

// Pause suspends ticking until Resume.
func (c *Coordinator) Pause() { c.send(ctlPause) }

// Resume restarts ticking after a Pause; the next intent fires a full
// interval from now.
func (c *Coordinator) Resume() { c.send(ctlResume) }

// FetchStarted tells the coordinator a fetch is in flight; no intent fires
// until FetchDone.
func (c *Coordinator) FetchStarted() { c.send(ctlFetchStarted) }

// FetchDone tells the coordinator the in-flight fetch finished; the next
// interval starts counting now.
func (c *Coordinator) FetchDone() { c.send(ctlFetchDone) }

// ManualRefresh resets the interval timer after a user-triggered refresh.
func (c *Coordinator) ManualRefresh() { c.send(ctlManual) }

// Stop terminates the loop. Idempotent.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

func (c *Coordinator) send(m ctlMsg) {
	select {
	case c.ctl <- m:
	case <-c.done:
	}
}

func (c *Coordinator) run() {
	timer := time.NewTimer(c.interval)
	defer timer.Stop()
	var paused, inFlight bool

	for {
		select {
		case <-c.done:
			return

		case <-timer.C:
			if paused || inFlight {
				continue
			}
			select {
			case c.intents <- struct{}{}:
				// The timer stays disarmed until FetchDone reports the end
				// of the fetch this intent triggers.
			case <-c.done:
				return
			default:
				// No consumer ready; try again next interval.
				timer.Reset(c.interval)
			}

		case m := <-c.ctl:
			switch m {
			case ctlPause:
				paused = true
				stop(timer)
			case ctlResume:
				if paused {
					paused = false
					if !inFlight {
						timer.Reset(c.interval)
					}
				}
			case ctlFetchStarted:
				inFlight = true
				stop(timer)
			case ctlFetchDone:
				inFlight = false
				if !paused {
					timer.Reset(c.interval)
				}
			case ctlManual:
				if !paused && !inFlight {
					timer.Reset(c.interval)
				}
			}
		}
	}
}

func stop(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
