// Copyright 2026 The Zbed Authors
// SPDX-License-Identifier: MPL-2.0

// Package clock abstracts time for testability. Production code
// injects Real(); tests inject Fake() and advance it explicitly, which
// makes timer-driven behaviour like the service's idle shutdown fully
// deterministic.
package clock

import "time"

// Clock is the subset of the time package zbed uses. Anything that
// reads the current time or waits on a timer takes a Clock instead of
// calling the time package directly.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives once duration d has
	// elapsed. If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a Ticker delivering ticks every d. Panics if
	// d <= 0.
	NewTicker(d time.Duration) *Ticker

	// Sleep pauses the calling goroutine for at least d.
	Sleep(d time.Duration)
}

// Ticker wraps a periodic timer. Read ticks from C; call Stop when
// done. C has capacity 1, matching time.Ticker: ticks are dropped, not
// queued, when the consumer falls behind.
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop turns off the ticker. No more ticks are sent on C after Stop
// returns. Stop does not close C.
func (t *Ticker) Stop() { t.stopFunc() }
