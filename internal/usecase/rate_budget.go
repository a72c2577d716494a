package usecase

import "time"

// RateBudget tracks request quota consumption for one platform within a
// rolling window. It lives for a single hedge run and is discarded after.
// When a spend would exceed the limit it sleeps until the window resets
// instead of dropping work. Not safe for concurrent use: hedge passes walk
// one platform sequentially.
type RateBudget struct {
	limit       float64
	window      time.Duration
	consumed    float64
	windowStart time.Time

	timeNow func() time.Time // For testing
	sleep   func(time.Duration)
}

func NewRateBudget(limit float64, window time.Duration) *RateBudget {
	return &RateBudget{
		limit:   limit,
		window:  window,
		timeNow: time.Now,
		sleep:   time.Sleep,
	}
}

// NewRateBudgetWithClock injects a fake clock and sleeper for tests.
func NewRateBudgetWithClock(limit float64, window time.Duration, now func() time.Time, sleep func(time.Duration)) *RateBudget {
	b := NewRateBudget(limit, window)
	b.timeNow = now
	b.sleep = sleep
	return b
}

// Spend consumes cost units, first waiting out the remainder of the window
// if the spend would exceed the limit.
func (b *RateBudget) Spend(cost float64) {
	now := b.timeNow()
	if b.windowStart.IsZero() || now.Sub(b.windowStart) >= b.window {
		b.windowStart = now
		b.consumed = 0
	}

	if b.consumed+cost > b.limit {
		remaining := b.window - now.Sub(b.windowStart)
		if remaining > 0 {
			b.sleep(remaining)
		}
		b.windowStart = b.timeNow()
		b.consumed = 0
	}

	b.consumed += cost
}

// Consumed reports the units spent in the current window.
func (b *RateBudget) Consumed() float64 {
	return b.consumed
}
