package scheduler

import (
	"context"
	"errors"
	"time"

	"leadtracker_backend/internal/email"
	"leadtracker_backend/internal/events"
	"leadtracker_backend/internal/leads/domain"
	"leadtracker_backend/internal/leads/repository"
	"leadtracker_backend/internal/leads/urgency"
	"leadtracker_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// LeadReader loads the current state of a lead.
type LeadReader interface {
	GetByID(ctx context.Context, id string) (domain.Lead, error)
}

// ProfileReader loads the profile a reminder is addressed to.
type ProfileReader interface {
	GetProfile(ctx context.Context, userID string) (repository.Profile, error)
}

// ReminderHandler delivers next-action reminders.
type ReminderHandler struct {
	leads    LeadReader
	profiles ProfileReader
	sender   email.Sender
	bus      events.Bus
	log      *logger.Logger
	now      func() time.Time
}

func NewReminderHandler(leads LeadReader, profiles ProfileReader, sender email.Sender, bus events.Bus, log *logger.Logger, now func() time.Time) *ReminderHandler {
	if now == nil {
		now = time.Now
	}
	return &ReminderHandler{leads: leads, profiles: profiles, sender: sender, bus: bus, log: log, now: now}
}

// ProcessTask handles a TaskNextActionReminder task. Reminders for deleted or
// closed leads, or leads whose next action moved since scheduling, are
// dropped without error.
func (h *ReminderHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseNextActionReminderPayload(task)
	if err != nil {
		return err
	}

	lead, err := h.leads.GetByID(ctx, payload.LeadID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if lead.Status.IsClosed() || !lead.NextActionDate.Equal(payload.NextActionDate) {
		h.log.Info("stale reminder skipped", "lead_id", lead.ID)
		return nil
	}

	recipientID := lead.CreatedBy
	if lead.AssignedTo != nil && *lead.AssignedTo != "" {
		recipientID = *lead.AssignedTo
	}
	profile, err := h.profiles.GetProfile(ctx, recipientID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		h.log.Warn("reminder recipient has no profile", "lead_id", lead.ID, "user_id", recipientID)
		return nil
	}
	if err != nil {
		return err
	}

	reminder := email.Reminder{
		RecipientName: profile.FullName,
		LeadName:      lead.Name,
		Contact:       lead.Contact,
		NextAction:    lead.NextAction,
		DueLabel:      urgency.FormatRelative(lead.NextActionDate, h.now()),
	}
	if lead.Company != nil {
		reminder.Company = *lead.Company
	}

	if err := h.sender.SendNextActionReminder(ctx, profile.Email, reminder); err != nil {
		return err
	}
	h.log.Info("next action reminder sent", "lead_id", lead.ID, "recipient", profile.Email)

	if h.bus != nil {
		h.bus.Publish(ctx, events.LeadNextActionDue{
			BaseEvent:  events.NewBaseEvent(),
			LeadID:     lead.ID,
			LeadName:   lead.Name,
			NextAction: lead.NextAction,
			Recipient:  profile.Email,
		})
	}
	return nil
}
