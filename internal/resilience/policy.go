package resilience

import (
	"context"
	"errors"
	"math"
	"net"
	"strings"
	"time"

	"github.com/lumenlearn/insight-backend/internal/pkg/httpx"
	"github.com/lumenlearn/insight-backend/internal/platform/apierr"
)

// Policy bounds one guarded operation: retry budget, backoff shape,
// circuit breaker sizing and the per-attempt timeout.
type Policy struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	BreakerThreshold  int
	BreakerTimeout    time.Duration
	OperationTimeout  time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:       3,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
		BreakerThreshold:  5,
		BreakerTimeout:    30 * time.Second,
		OperationTimeout:  15 * time.Second,
	}
}

type Class int

const (
	ClassPermanent Class = iota
	ClassTransient
)

var transientMarkers = []string{
	"rate limit",
	"too many requests",
	"timeout",
	"timed out",
	"connection reset",
	"connection refused",
	"broken pipe",
	"deadlock",
	"lock wait",
	"could not obtain lock",
	"temporarily unavailable",
}

// Classify decides whether an error is worth retrying. Recognized
// dependency hiccups are transient; domain errors (validation, not-found,
// conflict, auth) and anything unrecognized are permanent, so an unknown
// failure is surfaced after a single attempt instead of hammering the
// dependency.
func Classify(err error) Class {
	if err == nil {
		return ClassPermanent
	}
	if errors.Is(err, context.Canceled) {
		return ClassPermanent
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		if ae.Status == 408 || ae.Status == 429 || ae.Status >= 500 {
			return ClassTransient
		}
		return ClassPermanent
	}
	var sc httpx.HTTPStatusCoder
	if errors.As(err, &sc) {
		if httpx.IsRetryableHTTPStatus(sc.HTTPStatusCode()) {
			return ClassTransient
		}
		return ClassPermanent
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTransient
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return ClassTransient
		}
	}
	return ClassPermanent
}

// delayFor computes the backoff before attempt n (0-based), jittered
// ±30%. An explicit Retry-After on the error overrides the curve.
func delayFor(p Policy, attempt int, err error) time.Duration {
	var se *httpx.StatusError
	if errors.As(err, &se) && se.RetryAfter > 0 {
		return se.RetryAfter
	}
	d := float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(attempt))
	if max := float64(p.MaxDelay); d > max {
		d = max
	}
	return httpx.Jitter(time.Duration(d))
}
