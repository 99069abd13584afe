// Package clock provides the reference time used by hour rules and day-keyed
// click counters. All deployments share one fixed timezone so that an "hour"
// rule means the same thing everywhere.
package clock

import (
	"fmt"
	"time"
)

// ReferenceZone is the fixed reference timezone (EST, UTC-5, no DST).
var ReferenceZone = time.FixedZone("EST", -5*60*60)

// Clock supplies the current reference time.
type Clock interface {
	Now() time.Time
}

// Real reads the system clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Fixed always returns the same instant. Useful in tests.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time { return f.T }

// Hour returns the two-digit 24h hour of t in the reference timezone.
func Hour(t time.Time) string {
	return fmt.Sprintf("%02d", t.In(ReferenceZone).Hour())
}

// DayKey returns the calendar day of t in the reference timezone, formatted
// for use inside counter keys (underscores, never dashes).
func DayKey(t time.Time) string {
	return t.In(ReferenceZone).Format("2006_01_02")
}
