package services

import (
	"fmt"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/desertthunder/ytcat/internal/shared"
)

// Estimated cost of a list call in quota units.
const listCost = 1

// QuotaMeter estimates the remaining YouTube Data API quota for the current day.
//
// The API does not report remaining quota, so every call reserves its documented cost locally. The window resets at
// midnight Pacific time, when Google resets the real quota.
type QuotaMeter struct {
	mu        sync.Mutex
	budget    int
	reserve   int
	used      int
	exhausted bool
	resetAt   time.Time
	loc       *time.Location
	now       func() time.Time
}

// NewQuotaMeter creates a meter with a daily budget, refusing calls that would leave less than reserve units.
func NewQuotaMeter(budget, reserve int) *QuotaMeter {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		loc = time.FixedZone("PST", -8*60*60)
	}
	q := &QuotaMeter{budget: budget, reserve: reserve, loc: loc, now: time.Now}
	q.resetAt = q.nextReset(q.now())
	return q
}

func (q *QuotaMeter) nextReset(t time.Time) time.Time {
	local := t.In(q.loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, q.loc)
}

// roll starts a new window once the reset time has passed. Callers hold q.mu.
func (q *QuotaMeter) roll() {
	now := q.now()
	if now.Before(q.resetAt) {
		return
	}
	q.used = 0
	q.exhausted = false
	q.resetAt = q.nextReset(now)
}

// Reserve spends units, or fails with [shared.ErrQuotaExceeded] when the budget is gone.
func (q *QuotaMeter) Reserve(units int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.roll()
	remaining := q.budget - q.used
	if q.exhausted || remaining-units < q.reserve {
		return fmt.Errorf("%w: local estimate exhausted until %s", shared.ErrQuotaExceeded,
			q.resetAt.Format(time.RFC3339))
	}
	q.used += units
	return nil
}

// MarkExhausted records that the API itself reported the quota as spent.
func (q *QuotaMeter) MarkExhausted() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.roll()
	q.exhausted = true
}

// Remaining returns the estimated units left in the current window.
func (q *QuotaMeter) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.roll()
	if q.exhausted {
		return 0
	}
	return q.budget - q.used
}

// ResetsAt returns when the current window ends.
func (q *QuotaMeter) ResetsAt() time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.roll()
	return q.resetAt
}
