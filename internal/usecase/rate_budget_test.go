package usecase_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/crypto_portfolio_guard/internal/usecase"
)

// fakeClock drives a RateBudget deterministically; sleeping advances time.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestRateBudget_SpendWithinLimitNeverSleeps(t *testing.T) {
	clock := newFakeClock()
	budget := usecase.NewRateBudgetWithClock(50, 10*time.Second, clock.Now, clock.Sleep)

	for i := 0; i < 50; i++ {
		budget.Spend(1)
	}

	assert.Empty(t, clock.sleeps)
	assert.Equal(t, 50.0, budget.Consumed())
}

func TestRateBudget_ExceedingSpendWaitsOutWindow(t *testing.T) {
	clock := newFakeClock()
	budget := usecase.NewRateBudgetWithClock(4000, 30*time.Second, clock.Now, clock.Sleep)

	// 2000 spends of weight 2 exhaust the quota without waiting.
	for i := 0; i < 2000; i++ {
		budget.Spend(2)
	}
	require.Empty(t, clock.sleeps)
	require.Equal(t, 4000.0, budget.Consumed())

	// The next spend waits for the window to reset, then goes through.
	budget.Spend(2)
	require.Len(t, clock.sleeps, 1)
	assert.Equal(t, 30*time.Second, clock.sleeps[0])
	assert.Equal(t, 2.0, budget.Consumed())
}

func TestRateBudget_WaitsOnlyRemainderOfWindow(t *testing.T) {
	clock := newFakeClock()
	budget := usecase.NewRateBudgetWithClock(2, 10*time.Second, clock.Now, clock.Sleep)

	budget.Spend(2)
	clock.Advance(7 * time.Second)
	budget.Spend(2)

	require.Len(t, clock.sleeps, 1)
	assert.Equal(t, 3*time.Second, clock.sleeps[0])
}

func TestRateBudget_WindowResetsAfterElapsed(t *testing.T) {
	clock := newFakeClock()
	budget := usecase.NewRateBudgetWithClock(2, 10*time.Second, clock.Now, clock.Sleep)

	budget.Spend(2)
	clock.Advance(10 * time.Second)
	budget.Spend(2)

	assert.Empty(t, clock.sleeps)
	assert.Equal(t, 2.0, budget.Consumed())
}
