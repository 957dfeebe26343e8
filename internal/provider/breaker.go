package provider

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen names the breaker-open condition (open, or half-open with
// no probe slots left). Nothing in this package returns it: Allow reports
// the condition as false, and Client.FetchPlanList then returns an empty
// PlanListXML.
var ErrCircuitOpen = errors.New("circuit breaker: open")

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

// Breaker is a sliding-window circuit breaker matching §4.6's resilience
// policy: a window of the last N call outcomes, a failure-rate threshold to
// trip, a minimum call count before the rate is evaluated, a wait window
// before probing again, and a bounded number of half-open probe calls.
//
// No third-party circuit breaker crosses the example pack, and the sliding
// window/half-open-probe-count shape here is specific enough that grafting
// a generic breaker library on top would not save meaningfully on code —
// see DESIGN.md.
type Breaker struct {
	mu sync.Mutex

	windowSize     int
	failureRate    float64
	minCalls       int
	waitWindow     time.Duration
	halfOpenProbes int

	outcomes    []bool // true = success
	state       breakerState
	openedAt    time.Time
	probesInUse int
}

// NewBreaker builds a Breaker with the given parameters.
func NewBreaker(windowSize int, failureRate float64, minCalls int, waitWindow time.Duration, halfOpenProbes int) *Breaker {
	return &Breaker{
		windowSize:     windowSize,
		failureRate:    failureRate,
		minCalls:       minCalls,
		waitWindow:     waitWindow,
		halfOpenProbes: halfOpenProbes,
		state:          stateClosed,
	}
}

// Allow reports whether a call may proceed, transitioning open->half-open
// once the wait window has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateClosed:
		return true
	case stateOpen:
		if time.Since(b.openedAt) < b.waitWindow {
			return false
		}
		b.state = stateHalfOpen
		b.probesInUse = 0
		fallthrough
	case stateHalfOpen:
		if b.probesInUse >= b.halfOpenProbes {
			return false
		}
		b.probesInUse++
		return true
	}
	return false
}

// RecordSuccess registers a successful call. In half-open, a success closes
// the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateHalfOpen {
		b.reset()
		return
	}
	b.record(true)
}

// RecordFailure registers a failed call. In half-open, a single failure
// re-opens the breaker; in closed, the sliding window is re-evaluated.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateHalfOpen {
		b.trip()
		return
	}

	b.record(false)
	if len(b.outcomes) >= b.minCalls && b.currentFailureRate() >= b.failureRate {
		b.trip()
	}
}

func (b *Breaker) record(success bool) {
	b.outcomes = append(b.outcomes, success)
	if len(b.outcomes) > b.windowSize {
		b.outcomes = b.outcomes[len(b.outcomes)-b.windowSize:]
	}
}

func (b *Breaker) currentFailureRate() float64 {
	if len(b.outcomes) == 0 {
		return 0
	}
	failures := 0
	for _, ok := range b.outcomes {
		if !ok {
			failures++
		}
	}
	return float64(failures) / float64(len(b.outcomes))
}

func (b *Breaker) trip() {
	b.state = stateOpen
	b.openedAt = time.Now()
	b.outcomes = nil
}

func (b *Breaker) reset() {
	b.state = stateClosed
	b.outcomes = nil
	b.probesInUse = 0
}
