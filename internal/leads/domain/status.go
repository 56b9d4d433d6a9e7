// Package domain provides core business rules for the leads bounded context.
package domain

import "strings"

// Status is the workflow status of a lead as stored.
type Status string

// Canonical statuses written by this service.
const (
	StatusNew        Status = "new"
	StatusContacted  Status = "contacted"
	StatusInProgress Status = "in-progress"
	StatusClosed     Status = "closed"
	StatusDropped    Status = "dropped"
)

// Legacy statuses still present in older rows. They are read, never written.
const (
	StatusQualified  Status = "qualified"
	StatusInterested Status = "interested"
	StatusFollowUp   Status = "follow-up"
	StatusWon        Status = "won"
	StatusLost       Status = "lost"
)

// closedStatuses partition the dashboard: these rows are never overdue, today or upcoming.
var closedStatuses = map[Status]bool{
	StatusClosed:  true,
	StatusDropped: true,
}

// inactiveStatuses are excluded from a member's active lead count.
var inactiveStatuses = map[Status]bool{
	StatusWon:     true,
	StatusLost:    true,
	StatusClosed:  true,
	StatusDropped: true,
}

var displayStatuses = map[Status]string{
	StatusNew:        "new",
	StatusContacted:  "in-progress",
	StatusQualified:  "in-progress",
	StatusInProgress: "in-progress",
	StatusInterested: "in-progress",
	StatusFollowUp:   "in-progress",
	StatusClosed:     "closed",
	StatusWon:        "won",
	StatusDropped:    "dropped",
	StatusLost:       "lost",
}

// Normalize lower-cases and trims a status read from storage or input.
func (s Status) Normalize() Status {
	return Status(strings.ToLower(strings.TrimSpace(string(s))))
}

// IsClosed reports whether the status belongs to the closed dashboard bucket.
func (s Status) IsClosed() bool {
	return closedStatuses[s.Normalize()]
}

// IsInactive reports whether the status no longer counts as active work.
func (s Status) IsInactive() bool {
	return inactiveStatuses[s.Normalize()]
}

// IsCanonical reports whether the status may be written.
func (s Status) IsCanonical() bool {
	switch s.Normalize() {
	case StatusNew, StatusContacted, StatusInProgress, StatusClosed, StatusDropped:
		return true
	}
	return false
}

// DisplayStatusOf maps a stored status to the label used in member summaries.
// Unknown values fall through lower-cased.
func DisplayStatusOf(s Status) string {
	normalized := s.Normalize()
	if display, ok := displayStatuses[normalized]; ok {
		return display
	}
	return string(normalized)
}
