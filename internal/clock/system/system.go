// Package system provides the wall clock used for run timing and output
// directory names.
package system

import "time"

// Clock implements crawler.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}

// Local returns the current time in the local zone. Output directory stamps
// follow the operator's wall clock.
func (Clock) Local() time.Time {
	return time.Now()
}
