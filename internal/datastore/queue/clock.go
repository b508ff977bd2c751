// Package queue implements the pull-based claim/finish protocol shared
// by W1/W2/W3: batch claim under FOR UPDATE SKIP LOCKED, per-item
// outside-the-claim-transaction processing, and timeout-based recovery
// of abandoned PROCESSING rows.
package queue

import "time"

// Clock abstracts time so the main loop and sweeper are testable
// without real sleeps.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
	After(d time.Duration) <-chan time.Time
}

// RealClock is the default Clock backed by the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time                  { return time.Now() }
func (RealClock) Sleep(d time.Duration)            { time.Sleep(d) }
func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
