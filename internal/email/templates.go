package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
}

type reminderEmailData struct {
	baseEmailData
	RecipientName string
	LeadName      string
	Company       string
	Contact       string
	NextAction    string
	DueLabel      string
}

func newReminderEmailData(r Reminder) reminderEmailData {
	return reminderEmailData{
		baseEmailData: baseEmailData{
			Title:      "Next action due",
			Heading:    "Next action due",
			Subheading: r.DueLabel,
		},
		RecipientName: r.RecipientName,
		LeadName:      r.LeadName,
		Company:       r.Company,
		Contact:       r.Contact,
		NextAction:    r.NextAction,
		DueLabel:      r.DueLabel,
	}
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func reminderText(r Reminder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Next action for %s (%s): %s\n", r.LeadName, r.DueLabel, r.NextAction)
	if r.Company != "" {
		fmt.Fprintf(&b, "Company: %s\n", r.Company)
	}
	if r.Contact != "" {
		fmt.Fprintf(&b, "Contact: %s\n", r.Contact)
	}
	return b.String()
}
