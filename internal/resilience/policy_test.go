package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lumenlearn/insight-backend/internal/pkg/httpx"
	"github.com/lumenlearn/insight-backend/internal/platform/apierr"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, ClassPermanent},
		{"canceled", context.Canceled, ClassPermanent},
		{"deadline", context.DeadlineExceeded, ClassTransient},
		{"validation", apierr.Validation("bad field"), ClassPermanent},
		{"not found", apierr.NotFound("nope"), ClassPermanent},
		{"dependency 502", apierr.Dependency(errors.New("upstream")), ClassTransient},
		{"http 429", &httpx.StatusError{StatusCode: 429}, ClassTransient},
		{"http 503", &httpx.StatusError{StatusCode: 503}, ClassTransient},
		{"http 400", &httpx.StatusError{StatusCode: 400}, ClassPermanent},
		{"wrapped http 500", fmt.Errorf("call upstream: %w", &httpx.StatusError{StatusCode: 500}), ClassTransient},
		{"rate limit text", errors.New("openai: rate limit exceeded"), ClassTransient},
		{"deadlock text", errors.New("pq: deadlock detected"), ClassTransient},
		{"unknown", errors.New("something odd happened"), ClassPermanent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Fatalf("Classify(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestDelayFor_ExponentialWithCap(t *testing.T) {
	p := Policy{
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          300 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
	err := errors.New("timeout")

	// Attempt 0 bases at 100ms, attempt 1 at 200ms, attempt 2 caps at
	// 300ms. Jitter is +/-30%.
	bases := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond}
	for attempt, base := range bases {
		got := delayFor(p, attempt, err)
		low := time.Duration(float64(base) * 0.7)
		high := time.Duration(float64(base) * 1.3)
		if got < low || got > high {
			t.Fatalf("attempt %d: delay %v outside [%v, %v]", attempt, got, low, high)
		}
	}
}

func TestDelayFor_RetryAfterOverridesBackoff(t *testing.T) {
	p := Policy{
		InitialDelay:      time.Millisecond,
		MaxDelay:          time.Millisecond,
		BackoffMultiplier: 2.0,
	}
	err := fmt.Errorf("call: %w", &httpx.StatusError{StatusCode: 429, RetryAfter: 7 * time.Second})
	if got := delayFor(p, 0, err); got != 7*time.Second {
		t.Fatalf("expected Retry-After 7s to win, got %v", got)
	}
}
