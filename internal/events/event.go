// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"leadtracker_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Auth Domain Events
// =============================================================================

// AuthChange enumerates the auth provider's state change kinds.
type AuthChange string

const (
	SignedIn       AuthChange = "SIGNED_IN"
	SignedOut      AuthChange = "SIGNED_OUT"
	TokenRefreshed AuthChange = "TOKEN_REFRESHED"
)

// AuthStateChanged is published by the auth provider on sign-in, sign-out
// and token refresh.
type AuthStateChanged struct {
	BaseEvent
	Change AuthChange `json:"change"`
	UserID string     `json:"userId"`
	Email  string     `json:"email"`
}

func (e AuthStateChanged) EventName() string { return "auth.state_changed" }

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadNextActionDue is published by the reminder worker when a lead's
// next action date has arrived.
type LeadNextActionDue struct {
	BaseEvent
	LeadID     string `json:"leadId"`
	LeadName   string `json:"leadName"`
	NextAction string `json:"nextAction"`
	Recipient  string `json:"recipient"`
}

func (e LeadNextActionDue) EventName() string { return "leads.next_action_due" }
