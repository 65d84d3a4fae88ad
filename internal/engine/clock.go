package engine

import "time"

// Clock abstracts time.Now() to allow deterministic testing.
// Every date computation takes the reference time from a Clock instead of reading the wall clock.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
// Location pins "today" to the bot's reference timezone; nil means the process local zone.
type RealClock struct {
	Location *time.Location
}

// Now returns the current time in the configured location.
func (c RealClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}
