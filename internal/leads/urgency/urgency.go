// Package urgency classifies next-action dates relative to a reference instant.
package urgency

import (
	"fmt"
	"time"
)

// Urgency is the calendar relation of a next-action date to now.
type Urgency string

const (
	Overdue  Urgency = "overdue"
	Today    Urgency = "today"
	Upcoming Urgency = "upcoming"
)

// dayDiff returns the number of calendar days from now's date to date's date,
// both taken in now's location.
func dayDiff(date, now time.Time) int {
	loc := now.Location()
	d := date.In(loc)
	y1, m1, d1 := now.Date()
	y2, m2, d2 := d.Date()
	from := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	to := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// Classify returns Overdue when date falls on a calendar day before now,
// Today on the same day, Upcoming otherwise.
func Classify(date, now time.Time) Urgency {
	switch diff := dayDiff(date, now); {
	case diff < 0:
		return Overdue
	case diff == 0:
		return Today
	default:
		return Upcoming
	}
}

// FormatRelative renders date relative to now for display.
func FormatRelative(date, now time.Time) string {
	diff := dayDiff(date, now)
	switch {
	case diff == 0:
		return "Today"
	case diff == 1:
		return "Tomorrow"
	case diff == -1:
		return "Yesterday"
	case diff < -1:
		return fmt.Sprintf("%d days overdue", -diff)
	case diff <= 7:
		return fmt.Sprintf("In %d days", diff)
	default:
		return date.In(now.Location()).Format("Jan 2, 2006")
	}
}

// Classifier binds the classification functions to a clock.
type Classifier struct {
	now func() time.Time
}

// NewClassifier returns a Classifier reading the current time from now.
// A nil now uses time.Now.
func NewClassifier(now func() time.Time) Classifier {
	if now == nil {
		now = time.Now
	}
	return Classifier{now: now}
}

// Classify classifies date against the classifier's clock.
func (c Classifier) Classify(date time.Time) Urgency {
	return Classify(date, c.now())
}

// FormatRelative formats date against the classifier's clock.
func (c Classifier) FormatRelative(date time.Time) string {
	return FormatRelative(date, c.now())
}

// Now returns the classifier's current time.
func (c Classifier) Now() time.Time {
	return c.now()
}
