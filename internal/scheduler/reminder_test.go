package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadtracker_backend/internal/email"
	"leadtracker_backend/internal/leads/domain"
	"leadtracker_backend/internal/leads/repository"
	"leadtracker_backend/platform/logger"
)

var reminderNow = time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

type stubLeads map[string]domain.Lead

func (s stubLeads) GetByID(_ context.Context, id string) (domain.Lead, error) {
	lead, ok := s[id]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

type stubProfiles map[string]repository.Profile

func (s stubProfiles) GetProfile(_ context.Context, userID string) (repository.Profile, error) {
	p, ok := s[userID]
	if !ok {
		return repository.Profile{}, repository.ErrProfileNotFound
	}
	return p, nil
}

type sentMail struct {
	to       string
	reminder email.Reminder
}

type recordingSender struct {
	sent []sentMail
	err  error
}

func (r *recordingSender) SendNextActionReminder(_ context.Context, to string, reminder email.Reminder) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, sentMail{to: to, reminder: reminder})
	return nil
}

func newHandler(leads stubLeads, sender *recordingSender) *ReminderHandler {
	profiles := stubProfiles{
		"creator":  {ID: "creator", Email: "creator@example.com", FullName: "Creator"},
		"assignee": {ID: "assignee", Email: "assignee@example.com", FullName: "Assignee"},
	}
	return NewReminderHandler(leads, profiles, sender, nil, logger.Discard(), func() time.Time { return reminderNow })
}

func TestReminderMailsAssignee(t *testing.T) {
	assignee := "assignee"
	leads := stubLeads{"l1": {ID: "l1", Name: "Acme", Status: domain.StatusNew, CreatedBy: "creator", AssignedTo: &assignee, NextAction: "Call back", NextActionDate: reminderNow}}
	sender := &recordingSender{}

	task, err := NewNextActionReminderTask(NextActionReminderPayload{LeadID: "l1", NextActionDate: reminderNow})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := newHandler(leads, sender).ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}

	if len(sender.sent) != 1 || sender.sent[0].to != "assignee@example.com" {
		t.Fatalf("expected one mail to the assignee, got %+v", sender.sent)
	}
	if got := sender.sent[0].reminder.DueLabel; got != "Today" {
		t.Fatalf("expected Today label, got %q", got)
	}
}

func TestReminderSkipsStaleLeads(t *testing.T) {
	moved := reminderNow.AddDate(0, 0, 3)
	tests := []struct {
		name string
		lead *domain.Lead
	}{
		{name: "deleted"},
		{name: "closed", lead: &domain.Lead{ID: "l1", Status: domain.StatusClosed, CreatedBy: "creator", NextActionDate: reminderNow}},
		{name: "dropped", lead: &domain.Lead{ID: "l1", Status: domain.StatusDropped, CreatedBy: "creator", NextActionDate: reminderNow}},
		{name: "rescheduled", lead: &domain.Lead{ID: "l1", Status: domain.StatusNew, CreatedBy: "creator", NextActionDate: moved}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leads := stubLeads{}
			if tt.lead != nil {
				leads["l1"] = *tt.lead
			}
			sender := &recordingSender{}

			task, _ := NewNextActionReminderTask(NextActionReminderPayload{LeadID: "l1", NextActionDate: reminderNow})
			if err := newHandler(leads, sender).ProcessTask(context.Background(), task); err != nil {
				t.Fatalf("ProcessTask: %v", err)
			}
			if len(sender.sent) != 0 {
				t.Fatalf("expected no mail, got %+v", sender.sent)
			}
		})
	}
}

func TestReminderSendFailureIsRetried(t *testing.T) {
	leads := stubLeads{"l1": {ID: "l1", Status: domain.StatusNew, CreatedBy: "creator", NextActionDate: reminderNow}}
	sender := &recordingSender{err: errors.New("smtp down")}

	task, _ := NewNextActionReminderTask(NextActionReminderPayload{LeadID: "l1", NextActionDate: reminderNow})
	if err := newHandler(leads, sender).ProcessTask(context.Background(), task); err == nil {
		t.Fatal("expected error so the task is retried")
	}
}

func TestReminderTaskIDIsStablePerDate(t *testing.T) {
	a := reminderTaskID(NextActionReminderPayload{LeadID: "l1", NextActionDate: reminderNow})
	b := reminderTaskID(NextActionReminderPayload{LeadID: "l1", NextActionDate: reminderNow.In(time.FixedZone("CET", 3600))})
	c := reminderTaskID(NextActionReminderPayload{LeadID: "l1", NextActionDate: reminderNow.Add(time.Hour)})
	if a != b {
		t.Fatalf("expected same id across zones, got %q and %q", a, b)
	}
	if a == c {
		t.Fatal("expected different id for a different date")
	}
}
