package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b := NewBreaker()
	const threshold = 5

	for i := 0; i < threshold-1; i++ {
		if err := b.Allow("op", threshold, time.Minute); err != nil {
			t.Fatalf("attempt %d: expected allow, got %v", i, err)
		}
		b.OnFailure("op", threshold)
	}
	if got := b.State("op"); got != StateClosed {
		t.Fatalf("expected closed after %d failures, got %v", threshold-1, got)
	}

	b.OnFailure("op", threshold)
	if got := b.State("op"); got != StateOpen {
		t.Fatalf("expected open at threshold, got %v", got)
	}
	if err := b.Allow("op", threshold, time.Minute); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker()
	const threshold = 3

	b.OnFailure("op", threshold)
	b.OnFailure("op", threshold)
	b.OnSuccess("op")
	b.OnFailure("op", threshold)
	b.OnFailure("op", threshold)

	if got := b.State("op"); got != StateClosed {
		t.Fatalf("expected closed, non-consecutive failures must not open, got %v", got)
	}
}

func TestBreaker_HalfOpenAfterTimeout(t *testing.T) {
	b := NewBreaker()
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return current }

	const threshold = 1
	timeout := 30 * time.Second

	b.OnFailure("op", threshold)
	if err := b.Allow("op", threshold, timeout); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected open before timeout, got %v", err)
	}

	current = current.Add(timeout + time.Second)
	if err := b.Allow("op", threshold, timeout); err != nil {
		t.Fatalf("expected trial call after timeout, got %v", err)
	}
	if got := b.State("op"); got != StateHalfOpen {
		t.Fatalf("expected half_open, got %v", got)
	}

	// Second caller while the trial is in flight is rejected.
	if err := b.Allow("op", threshold, timeout); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected concurrent trial rejection, got %v", err)
	}
}

func TestBreaker_TrialSuccessCloses(t *testing.T) {
	b := NewBreaker()
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return current }

	b.OnFailure("op", 1)
	current = current.Add(time.Minute)
	if err := b.Allow("op", 1, 30*time.Second); err != nil {
		t.Fatalf("expected trial, got %v", err)
	}
	b.OnSuccess("op")

	if got := b.State("op"); got != StateClosed {
		t.Fatalf("expected closed after trial success, got %v", got)
	}
	if err := b.Allow("op", 1, 30*time.Second); err != nil {
		t.Fatalf("expected allow after close, got %v", err)
	}
}

func TestBreaker_TrialFailureReopens(t *testing.T) {
	b := NewBreaker()
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return current }

	b.OnFailure("op", 1)
	current = current.Add(time.Minute)
	if err := b.Allow("op", 1, 30*time.Second); err != nil {
		t.Fatalf("expected trial, got %v", err)
	}
	b.OnFailure("op", 1)

	if got := b.State("op"); got != StateOpen {
		t.Fatalf("expected reopen after trial failure, got %v", got)
	}
	// Reopen restarts the timeout from the trial failure.
	if err := b.Allow("op", 1, 30*time.Second); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected open, got %v", err)
	}
}

func TestBreaker_ResetClosesCircuit(t *testing.T) {
	b := NewBreaker()
	b.OnFailure("op", 1)
	if got := b.State("op"); got != StateOpen {
		t.Fatalf("expected open, got %v", got)
	}
	b.Reset("op")
	if got := b.State("op"); got != StateClosed {
		t.Fatalf("expected closed after reset, got %v", got)
	}
}

func TestBreaker_CircuitsAreIndependent(t *testing.T) {
	b := NewBreaker()
	b.OnFailure("flaky", 1)
	if got := b.State("flaky"); got != StateOpen {
		t.Fatalf("expected flaky open, got %v", got)
	}
	if err := b.Allow("healthy", 1, time.Minute); err != nil {
		t.Fatalf("expected healthy circuit unaffected, got %v", err)
	}
}
