// Package testutil holds helpers shared by package tests.
package testutil

import (
	"sync"
	"time"
)

// StepClock is a deterministic wall clock for tests.
//
// The first call to Now returns the start time; every later call returns the
// previous value plus step. A zero step gives a frozen clock. Store it as a
// store.WithClock source to get stable created_at values.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	calls int64
}

// NewStepClock creates a clock starting at start and advancing by step.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{start: start, step: step}
}

// Now returns the next timestamp.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.at(c.calls)
	c.calls++
	return t
}

// Last returns the timestamp most recently handed out, or the start time if
// Now was never called.
func (c *StepClock) Last() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == 0 {
		return c.start
	}
	return c.at(c.calls - 1)
}

// Reset rewinds the clock so the next Now returns the start time again.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}

func (c *StepClock) at(n int64) time.Time {
	return c.start.Add(time.Duration(n) * c.step)
}
