package domain

import (
	"strings"
	"time"
)

// Source is where a lead came from.
type Source string

const (
	SourceLinkedIn Source = "linkedin"
	SourceEmail    Source = "email"
	SourceReferral Source = "referral"
	SourceWebsite  Source = "website"
	SourceWhatsApp Source = "whatsapp"
	SourceOther    Source = "other"
)

// SourceAll is the filter sentinel that matches every source.
const SourceAll = "all"

// Priority is the optional urgency a user assigns to a lead.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Note is an append-only remark on a lead.
type Note struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Lead is a sales contact tracked through the pipeline.
type Lead struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Company        *string   `json:"company,omitempty"`
	Source         Source    `json:"source"`
	Contact        string    `json:"contact"`
	ProfileURL     string    `json:"profileUrl"`
	Context        *string   `json:"context,omitempty"`
	Tags           []string  `json:"tags"`
	EstimatedValue *string   `json:"estimatedValue,omitempty"`
	Status         Status    `json:"status"`
	Priority       *Priority `json:"priority,omitempty"`
	NextAction     string    `json:"nextAction"`
	NextActionDate time.Time `json:"nextActionDate"`
	CreatedBy      string    `json:"createdBy"`
	AssignedTo     *string   `json:"assignedTo,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	Notes          []Note    `json:"notes"`
}

// NewLead carries the fields of a lead to be created. Validation tags are
// checked before any remote call.
type NewLead struct {
	Name           string     `json:"name" validate:"required,max=200"`
	Company        *string    `json:"company,omitempty" validate:"omitempty,max=200"`
	Source         Source     `json:"source" validate:"required,oneof=linkedin email referral website whatsapp other"`
	Contact        string     `json:"contact" validate:"required,contact"`
	ProfileURL     string     `json:"profileUrl" validate:"required,linkedinurl"`
	Context        *string    `json:"context,omitempty" validate:"omitempty,max=4000"`
	Tags           []string   `json:"tags,omitempty" validate:"omitempty,max=20,dive,max=50"`
	EstimatedValue *string    `json:"estimatedValue,omitempty" validate:"omitempty,max=100"`
	Status         Status     `json:"status,omitempty" validate:"omitempty,oneof=new contacted in-progress closed dropped"`
	Priority       *Priority  `json:"priority,omitempty" validate:"omitempty,oneof=high medium low"`
	NextAction     string     `json:"nextAction" validate:"required,max=500"`
	NextActionDate *time.Time `json:"nextActionDate" validate:"required"`
	AssignedTo     *string    `json:"assignedTo,omitempty" validate:"omitempty,uuid"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Name           *string    `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Company        *string    `json:"company,omitempty" validate:"omitempty,max=200"`
	Source         *Source    `json:"source,omitempty" validate:"omitempty,oneof=linkedin email referral website whatsapp other"`
	Contact        *string    `json:"contact,omitempty" validate:"omitempty,contact"`
	ProfileURL     *string    `json:"profileUrl,omitempty" validate:"omitempty,linkedinurl"`
	Context        *string    `json:"context,omitempty" validate:"omitempty,max=4000"`
	Tags           []string   `json:"tags,omitempty" validate:"omitempty,max=20,dive,max=50"`
	EstimatedValue *string    `json:"estimatedValue,omitempty" validate:"omitempty,max=100"`
	Status         *Status    `json:"status,omitempty" validate:"omitempty,oneof=new contacted in-progress closed dropped"`
	Priority       *Priority  `json:"priority,omitempty" validate:"omitempty,oneof=high medium low"`
	NextAction     *string    `json:"nextAction,omitempty" validate:"omitempty,min=1,max=500"`
	NextActionDate *time.Time `json:"nextActionDate,omitempty"`
	AssignedTo     *string    `json:"assignedTo,omitempty" validate:"omitempty,uuid"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Company == nil && p.Source == nil && p.Contact == nil &&
		p.ProfileURL == nil && p.Context == nil && p.Tags == nil && p.EstimatedValue == nil &&
		p.Status == nil && p.Priority == nil && p.NextAction == nil && p.NextActionDate == nil &&
		p.AssignedTo == nil
}

// Apply merges the patch into lead and bumps UpdatedAt to now, never below CreatedAt.
func (p Patch) Apply(lead *Lead, now time.Time) {
	if p.Name != nil {
		lead.Name = *p.Name
	}
	if p.Company != nil {
		lead.Company = p.Company
	}
	if p.Source != nil {
		lead.Source = *p.Source
	}
	if p.Contact != nil {
		lead.Contact = *p.Contact
	}
	if p.ProfileURL != nil {
		lead.ProfileURL = *p.ProfileURL
	}
	if p.Context != nil {
		lead.Context = p.Context
	}
	if p.Tags != nil {
		lead.Tags = append([]string(nil), p.Tags...)
	}
	if p.EstimatedValue != nil {
		lead.EstimatedValue = p.EstimatedValue
	}
	if p.Status != nil {
		lead.Status = *p.Status
	}
	if p.Priority != nil {
		lead.Priority = p.Priority
	}
	if p.NextAction != nil {
		lead.NextAction = *p.NextAction
	}
	if p.NextActionDate != nil {
		lead.NextActionDate = *p.NextActionDate
	}
	if p.AssignedTo != nil {
		lead.AssignedTo = p.AssignedTo
	}

	lead.UpdatedAt = now
	if lead.UpdatedAt.Before(lead.CreatedAt) {
		lead.UpdatedAt = lead.CreatedAt
	}
}

// Requester is the caller on whose behalf leads are read or mutated.
type Requester struct {
	UserID string
	Admin  bool
}

// CanModify reports whether requester may mutate or delete lead: administrators
// always, otherwise only the creator or the assignee.
func (r Requester) CanModify(lead Lead) bool {
	if r.Admin {
		return true
	}
	if r.UserID == "" {
		return false
	}
	if lead.CreatedBy == r.UserID {
		return true
	}
	return lead.AssignedTo != nil && *lead.AssignedTo == r.UserID
}

// Matches reports whether lead matches the case-insensitive search text on
// name, contact, profile URL or any tag. Empty search matches everything.
func (l Lead) Matches(search string) bool {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(l.Name), needle) ||
		strings.Contains(strings.ToLower(l.Contact), needle) ||
		strings.Contains(strings.ToLower(l.ProfileURL), needle) {
		return true
	}
	for _, tag := range l.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the lead.
func (l Lead) Clone() Lead {
	out := l
	out.Tags = append([]string(nil), l.Tags...)
	out.Notes = append([]Note(nil), l.Notes...)
	return out
}
