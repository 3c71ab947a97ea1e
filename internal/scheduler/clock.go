// Package scheduler implements the snapshot and alert scheduling services.
// Each ride window gets its own collection task: a goroutine that waits for
// the window, records weather snapshots at the configured interval, and
// finishes with a final snapshot at the window end. Alert tasks fire a
// pre-route advisory before the window and a feedback reminder after it.
package scheduler

import "time"

// Clock abstracts time for the schedulers so tests can drive waits
// deterministically.
type Clock interface {
	Now() time.Time
	// After returns a channel that receives once d has elapsed. A
	// non-positive d must yield immediately.
	After(d time.Duration) <-chan time.Time
}

// realClock is the production Clock backed by the time package.
type realClock struct{}

// NewClock returns the real wall clock.
func NewClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) After(d time.Duration) <-chan time.Time {
	if d <= 0 {
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}
	return time.After(d)
}
