package email

import (
	"strings"
	"testing"
)

func TestRenderReminderTemplate(t *testing.T) {
	html, err := renderEmailTemplate("next_action_reminder.html", newReminderEmailData(Reminder{
		RecipientName: "Sam",
		LeadName:      "Acme <Corp>",
		Company:       "Acme",
		NextAction:    "Send proposal",
		DueLabel:      "Today",
	}))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "Send proposal") || !strings.Contains(html, "Hi Sam") {
		t.Fatalf("expected reminder content, got %s", html)
	}
	if strings.Contains(html, "<Corp>") {
		t.Fatal("expected lead name to be escaped")
	}
}

func TestReminderTextSkipsEmptyFields(t *testing.T) {
	text := reminderText(Reminder{LeadName: "Acme", DueLabel: "Today", NextAction: "Call"})
	if strings.Contains(text, "Company") || strings.Contains(text, "Contact") {
		t.Fatalf("unexpected optional lines in %q", text)
	}
	if !strings.HasPrefix(text, "Next action for Acme (Today): Call") {
		t.Fatalf("unexpected text %q", text)
	}
}
