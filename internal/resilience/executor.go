package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/lumenlearn/insight-backend/internal/platform/apierr"
	"github.com/lumenlearn/insight-backend/internal/platform/logger"
)

// Executor runs operations under a retry budget and a per-name circuit
// breaker. Every flaky external call in the pipeline goes through here.
type Executor struct {
	log     *logger.Logger
	breaker *Breaker
}

func NewExecutor(log *logger.Logger) *Executor {
	return &Executor{
		log:     log.With("service", "ResilienceExecutor"),
		breaker: NewBreaker(),
	}
}

// Execute invokes fn under the policy. Each attempt carries its own
// OperationTimeout deadline; only transient failures are retried, and
// an open circuit fails fast without invoking fn.
func (e *Executor) Execute(ctx context.Context, name string, p Policy, fn func(context.Context) error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.breaker.Allow(name, p.BreakerThreshold, p.BreakerTimeout); err != nil {
			return apierr.Unavailable(fmt.Errorf("%s: %w", name, err))
		}

		err := e.runOnce(ctx, p, fn)
		if err == nil {
			e.breaker.OnSuccess(name)
			return nil
		}
		e.breaker.OnFailure(name, p.BreakerThreshold)
		lastErr = err

		if Classify(err) == ClassPermanent {
			return err
		}
		if attempt == p.MaxAttempts-1 {
			break
		}

		sleepFor := delayFor(p, attempt, err)
		e.log.Warn("operation retrying",
			"operation", name,
			"attempt", attempt+1,
			"max_attempts", p.MaxAttempts,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepFor):
		}
	}
	return apierr.Dependency(fmt.Errorf("%s: retry budget exhausted: %w", name, lastErr))
}

func (e *Executor) runOnce(ctx context.Context, p Policy, fn func(context.Context) error) error {
	if p.OperationTimeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.OperationTimeout)
	defer cancel()
	return fn(attemptCtx)
}

// CircuitState reports the breaker state for one operation name.
func (e *Executor) CircuitState(name string) State { return e.breaker.State(name) }

// ResetCircuit manually closes one circuit.
func (e *Executor) ResetCircuit(name string) { e.breaker.Reset(name) }

// ResetAllCircuits manually closes every circuit.
func (e *Executor) ResetAllCircuits() { e.breaker.ResetAll() }
