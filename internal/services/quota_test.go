package services

import (
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/ytcat/internal/shared"
)

func TestQuotaMeter(t *testing.T) {
	t.Run("spends down to the reserve", func(t *testing.T) {
		q := NewQuotaMeter(5, 2)

		for i := range 3 {
			if err := q.Reserve(1); err != nil {
				t.Fatalf("Reserve() #%d error = %v", i+1, err)
			}
		}
		if err := q.Reserve(1); !errors.Is(err, shared.ErrQuotaExceeded) {
			t.Errorf("expected ErrQuotaExceeded, got %v", err)
		}
		if q.Remaining() != 2 {
			t.Errorf("expected 2 remaining, got %d", q.Remaining())
		}
	})

	t.Run("exhausted by the API", func(t *testing.T) {
		q := NewQuotaMeter(100, 0)
		q.MarkExhausted()

		if q.Remaining() != 0 {
			t.Errorf("expected 0 remaining, got %d", q.Remaining())
		}
		if err := q.Reserve(1); !errors.Is(err, shared.ErrQuotaExceeded) {
			t.Errorf("expected ErrQuotaExceeded, got %v", err)
		}
	})

	t.Run("resets at Pacific midnight", func(t *testing.T) {
		q := NewQuotaMeter(1, 0)
		if err := q.Reserve(1); err != nil {
			t.Fatalf("Reserve() error = %v", err)
		}
		q.MarkExhausted()

		reset := q.ResetsAt()
		pacific, _ := time.LoadLocation("America/Los_Angeles")
		if local := reset.In(pacific); local.Hour() != 0 || local.Minute() != 0 {
			t.Errorf("expected a midnight reset, got %v", local)
		}
		if !reset.After(time.Now()) {
			t.Errorf("reset should be in the future, got %v", reset)
		}

		q.now = func() time.Time { return reset.Add(time.Second) }
		if q.Remaining() != 1 {
			t.Errorf("expected a fresh budget after reset, got %d", q.Remaining())
		}
		if err := q.Reserve(1); err != nil {
			t.Errorf("Reserve() after reset error = %v", err)
		}
		if !q.ResetsAt().After(reset) {
			t.Errorf("expected the next window to end after %v", reset)
		}
	})
}
