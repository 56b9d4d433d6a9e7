package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskNextActionReminder = "leads.next_action_reminder"

type NextActionReminderPayload struct {
	LeadID         string    `json:"leadId"`
	NextActionDate time.Time `json:"nextActionDate"`
}

func NewNextActionReminderTask(payload NextActionReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNextActionReminder, data), nil
}

func ParseNextActionReminderPayload(task *asynq.Task) (NextActionReminderPayload, error) {
	var payload NextActionReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NextActionReminderPayload{}, err
	}
	return payload, nil
}

// reminderTaskID deduplicates reminders for the same lead and date.
func reminderTaskID(payload NextActionReminderPayload) string {
	return TaskNextActionReminder + ":" + payload.LeadID + ":" + payload.NextActionDate.UTC().Format(time.RFC3339)
}
