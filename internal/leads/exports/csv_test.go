package exports

import (
	"bytes"
	"testing"

	"leadtracker_backend/internal/leads/domain"
)

func TestWriteCSVSubstitutesMissingValues(t *testing.T) {
	company := "Acme, Inc."
	high := domain.PriorityHigh
	leads := []domain.Lead{
		{Name: "Jane", Company: &company, Source: domain.SourceLinkedIn, Status: domain.StatusNew, Priority: &high, NextAction: "Intro call"},
		{Name: "Ravi", Status: domain.StatusClosed},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, leads); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	want := "Name,Company,Source,Status,Priority,Next Action\n" +
		"Jane,\"Acme, Inc.\",linkedin,new,high,Intro call\n" +
		"Ravi,N/A,Direct,closed,Other,N/A\n"
	if buf.String() != want {
		t.Fatalf("unexpected csv\n got %q\nwant %q", buf.String(), want)
	}
}

func TestWriteCSVHeaderOnlyForEmptySet(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if buf.String() != "Name,Company,Source,Status,Priority,Next Action\n" {
		t.Fatalf("unexpected csv %q", buf.String())
	}
}

func TestRowNeutralisesFormulaCells(t *testing.T) {
	company := "@SUM(A1:A9)"
	tests := []struct {
		name  string
		lead  domain.Lead
		index int
		want  string
	}{
		{name: "equals", lead: domain.Lead{Name: "=HYPERLINK(\"http://x\")"}, index: 0, want: "'=HYPERLINK(\"http://x\")"},
		{name: "plus", lead: domain.Lead{Name: "+1 555 0100"}, index: 0, want: "'+1 555 0100"},
		{name: "minus", lead: domain.Lead{Name: "Ann", NextAction: "-2+3"}, index: 5, want: "'-2+3"},
		{name: "at", lead: domain.Lead{Name: "Ann", Company: &company}, index: 1, want: "'@SUM(A1:A9)"},
		{name: "tab", lead: domain.Lead{Name: "\tcmd"}, index: 0, want: "'\tcmd"},
		{name: "plain", lead: domain.Lead{Name: "Jane-Doe"}, index: 0, want: "Jane-Doe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Row(tt.lead)[tt.index]; got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
