// Package timeutil abstracts the clocks that pace frame capture and display
// refresh so both can be stepped by hand in tests.
package timeutil

import (
	"sync"
	"time"
)

// Clock is the time source for cadence loops.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers periodic ticks on C until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// RealClock is the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) NewTicker(d time.Duration) Ticker { return wallTicker{time.NewTicker(d)} }

type wallTicker struct{ t *time.Ticker }

func (w wallTicker) C() <-chan time.Time { return w.t.C }
func (w wallTicker) Stop()               { w.t.Stop() }

// MockClock only moves when Advance is called. Its tickers keep the schedule
// they were created with: after an Advance that covers several periods a
// ticker has fired once and its next tick is the first scheduled time after
// the new now.
type MockClock struct {
	mu      sync.Mutex
	now     time.Time
	created int
	active  []*mockTicker
}

// NewMockClock returns a clock reading start.
func NewMockClock(start time.Time) *MockClock {
	return &MockClock{now: start}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *MockClock) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("timeutil: non-positive interval for NewTicker")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &mockTicker{clock: c, ch: make(chan time.Time, 1), period: d, due: c.now.Add(d)}
	c.created++
	c.active = append(c.active, t)
	return t
}

// Tickers reports how many tickers were ever created, so tests can wait for
// a loop under test to reach its ticker.
func (c *MockClock) Tickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created
}

// Advance moves the clock forward by d and fires the tickers that came due.
// An unread tick is dropped, as with time.Ticker.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	for _, t := range c.active {
		if c.now.Before(t.due) {
			continue
		}
		select {
		case t.ch <- c.now:
		default:
		}
		missed := c.now.Sub(t.due) / t.period
		t.due = t.due.Add((missed + 1) * t.period)
	}
}

type mockTicker struct {
	clock  *MockClock
	ch     chan time.Time
	period time.Duration
	due    time.Time
}

func (t *mockTicker) C() <-chan time.Time { return t.ch }

func (t *mockTicker) Stop() {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, a := range c.active {
		if a == t {
			c.active = append(c.active[:i], c.active[i+1:]...)
			return
		}
	}
}
