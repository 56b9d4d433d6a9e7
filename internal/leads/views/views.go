// Package views derives dashboard buckets and per-member summaries from the
// cached lead set. Everything here is recomputed from scratch on each call.
package views

import (
	"sort"
	"strings"
	"time"

	"leadtracker_backend/internal/leads/domain"
	"leadtracker_backend/internal/leads/urgency"
)

// Buckets partitions a lead set for the dashboard.
type Buckets struct {
	Overdue  []domain.Lead `json:"overdue"`
	Today    []domain.Lead `json:"today"`
	Upcoming []domain.Lead `json:"upcoming"`
	Closed   []domain.Lead `json:"closed"`
	Counts   Counts        `json:"counts"`
}

// Counts holds the size of every bucket.
type Counts struct {
	Overdue  int `json:"overdue"`
	Today    int `json:"today"`
	Upcoming int `json:"upcoming"`
	Closed   int `json:"closed"`
	Total    int `json:"total"`
}

// Member is a team member as listed in the identity store.
type Member struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// TeamMember is a member with lead counts derived from the current lead set.
type TeamMember struct {
	Member
	Total         int            `json:"total"`
	Active        int            `json:"active"`
	StatusSummary map[string]int `json:"statusSummary"`
}

// Filter keeps rows matching search (see domain.Lead.Matches) whose source
// equals source. An empty source or "all" matches every source.
func Filter(rows []domain.Lead, search, source string) []domain.Lead {
	source = strings.ToLower(strings.TrimSpace(source))
	out := make([]domain.Lead, 0, len(rows))
	for _, row := range rows {
		if source != "" && source != domain.SourceAll && string(row.Source) != source {
			continue
		}
		if !row.Matches(search) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// Bucket partitions rows. Closed and dropped rows go to Closed; every other
// row lands in exactly one of Overdue, Today or Upcoming by its next-action
// date. Overdue and Upcoming are ordered soonest first; Today and Closed keep
// input order.
func Bucket(rows []domain.Lead, now time.Time) Buckets {
	b := Buckets{
		Overdue:  []domain.Lead{},
		Today:    []domain.Lead{},
		Upcoming: []domain.Lead{},
		Closed:   []domain.Lead{},
	}
	for _, row := range rows {
		if row.Status.IsClosed() {
			b.Closed = append(b.Closed, row)
			continue
		}
		switch urgency.Classify(row.NextActionDate, now) {
		case urgency.Overdue:
			b.Overdue = append(b.Overdue, row)
		case urgency.Today:
			b.Today = append(b.Today, row)
		default:
			b.Upcoming = append(b.Upcoming, row)
		}
	}

	byNextAction := func(list []domain.Lead) func(i, j int) bool {
		return func(i, j int) bool { return list[i].NextActionDate.Before(list[j].NextActionDate) }
	}
	sort.SliceStable(b.Overdue, byNextAction(b.Overdue))
	sort.SliceStable(b.Upcoming, byNextAction(b.Upcoming))

	b.Counts = Counts{
		Overdue:  len(b.Overdue),
		Today:    len(b.Today),
		Upcoming: len(b.Upcoming),
		Closed:   len(b.Closed),
		Total:    len(rows),
	}
	return b
}

// CountsByMember summarises rows per member. A lead belongs to its assignee,
// or to its creator when unassigned. Active excludes won, lost, closed and
// dropped leads.
func CountsByMember(rows []domain.Lead, members []Member) []TeamMember {
	out := make([]TeamMember, len(members))
	index := make(map[string]int, len(members))
	for i, m := range members {
		out[i] = TeamMember{Member: m, StatusSummary: map[string]int{}}
		index[m.ID] = i
	}

	for _, row := range rows {
		owner := row.CreatedBy
		if row.AssignedTo != nil && *row.AssignedTo != "" {
			owner = *row.AssignedTo
		}
		i, ok := index[owner]
		if !ok {
			continue
		}
		out[i].Total++
		if !row.Status.IsInactive() {
			out[i].Active++
		}
		out[i].StatusSummary[domain.DisplayStatusOf(row.Status)]++
	}
	return out
}
