package transport

import (
	"time"

	"leadtracker_backend/internal/identity"
	"leadtracker_backend/internal/leads/domain"
	"leadtracker_backend/internal/leads/urgency"
	"leadtracker_backend/internal/leads/views"
)

// ListLeadsQuery filters the lead list, the dashboard and the export.
type ListLeadsQuery struct {
	Search  string `form:"search" validate:"max=200"`
	Source  string `form:"source" validate:"omitempty,oneof=all linkedin email referral website whatsapp other"`
	Refresh bool   `form:"refresh"`
}

type AddNoteRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

// LeadResponse is a lead with its next-action date described relative to now.
type LeadResponse struct {
	domain.Lead
	DisplayStatus string          `json:"displayStatus"`
	Urgency       urgency.Urgency `json:"urgency"`
	DueLabel      string          `json:"dueLabel"`
}

type ListLeadsResponse struct {
	Items     []LeadResponse `json:"items"`
	Total     int            `json:"total"`
	Loading   bool           `json:"loading"`
	FetchedAt *time.Time     `json:"fetchedAt,omitempty"`
	SyncError string         `json:"syncError,omitempty"`
}

type DashboardResponse struct {
	Overdue   []LeadResponse `json:"overdue"`
	Today     []LeadResponse `json:"today"`
	Upcoming  []LeadResponse `json:"upcoming"`
	Closed    []LeadResponse `json:"closed"`
	Counts    views.Counts   `json:"counts"`
	Loading   bool           `json:"loading"`
	SyncError string         `json:"syncError,omitempty"`
}

type TeamResponse struct {
	Members []views.TeamMember `json:"members"`
}

type MeResponse struct {
	identity.Snapshot
	IsAdmin bool `json:"isAdmin"`
}

// ToLeadResponse decorates lead using classifier.
func ToLeadResponse(lead domain.Lead, classifier urgency.Classifier) LeadResponse {
	return LeadResponse{
		Lead:          lead,
		DisplayStatus: domain.DisplayStatusOf(lead.Status),
		Urgency:       classifier.Classify(lead.NextActionDate),
		DueLabel:      classifier.FormatRelative(lead.NextActionDate),
	}
}

func ToLeadResponses(leads []domain.Lead, classifier urgency.Classifier) []LeadResponse {
	out := make([]LeadResponse, 0, len(leads))
	for _, lead := range leads {
		out = append(out, ToLeadResponse(lead, classifier))
	}
	return out
}

func ToDashboardResponse(b views.Buckets, classifier urgency.Classifier, loading bool) DashboardResponse {
	return DashboardResponse{
		Overdue:  ToLeadResponses(b.Overdue, classifier),
		Today:    ToLeadResponses(b.Today, classifier),
		Upcoming: ToLeadResponses(b.Upcoming, classifier),
		Closed:   ToLeadResponses(b.Closed, classifier),
		Counts:   b.Counts,
		Loading:  loading,
	}
}
