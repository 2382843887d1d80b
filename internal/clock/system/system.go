// Package system provides the wall clock used to stamp scrapes.
package system

import "time"

// Clock returns UTC times truncated to the millisecond, the resolution contest ids and
// persisted timestamps carry.
type Clock struct{}

// New creates a new Clock.
func New() Clock {
	return Clock{}
}

// Now returns the current time.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
