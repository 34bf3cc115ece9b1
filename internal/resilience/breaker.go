package resilience

import (
	"errors"
	"sync"
	"time"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// ErrCircuitOpen is returned without invoking the operation while the
// named circuit is open or a half-open trial is already in flight.
var ErrCircuitOpen = errors.New("circuit open")

type circuit struct {
	state         State
	consecFails   int
	openedAt      time.Time
	trialInFlight bool
}

// Breaker is the keyed circuit state machine: operation name →
// {state, failure count, openedAt}. All transitions happen under one
// mutex; the guarded call itself runs outside of it.
type Breaker struct {
	mu       sync.Mutex
	circuits map[string]*circuit

	now func() time.Time
}

func NewBreaker() *Breaker {
	return &Breaker{
		circuits: make(map[string]*circuit),
		now:      time.Now,
	}
}

func (b *Breaker) get(name string) *circuit {
	c, ok := b.circuits[name]
	if !ok {
		c = &circuit{state: StateClosed}
		b.circuits[name] = c
	}
	return c
}

// Allow reports whether a call to the named operation may proceed.
// An open circuit whose timeout has elapsed moves to half-open and
// admits exactly one trial call.
func (b *Breaker) Allow(name string, threshold int, timeout time.Duration) error {
	if threshold <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.get(name)
	switch c.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(c.openedAt) < timeout {
			return ErrCircuitOpen
		}
		c.state = StateHalfOpen
		c.trialInFlight = true
		return nil
	default: // half-open
		if c.trialInFlight {
			return ErrCircuitOpen
		}
		c.trialInFlight = true
		return nil
	}
}

// OnSuccess records a successful call. A half-open trial success closes
// the circuit; in closed state the consecutive-failure count resets.
func (b *Breaker) OnSuccess(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.get(name)
	c.state = StateClosed
	c.consecFails = 0
	c.trialInFlight = false
}

// OnFailure records a failed call. The circuit opens at exactly
// threshold consecutive failures; a half-open trial failure reopens it.
func (b *Breaker) OnFailure(name string, threshold int) {
	if threshold <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.get(name)
	switch c.state {
	case StateHalfOpen:
		c.state = StateOpen
		c.openedAt = b.now()
		c.trialInFlight = false
	default:
		c.consecFails++
		if c.consecFails >= threshold {
			c.state = StateOpen
			c.openedAt = b.now()
		}
	}
}

func (b *Breaker) State(name string) State {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.circuits[name]
	if !ok {
		return StateClosed
	}
	return c.state
}

// Reset forces the named circuit back to closed.
func (b *Breaker) Reset(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.circuits, name)
}

// ResetAll forces every circuit back to closed.
func (b *Breaker) ResetAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.circuits = make(map[string]*circuit)
}
