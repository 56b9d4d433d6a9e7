// Package exports writes the current lead set as CSV.
package exports

import (
	"encoding/csv"
	"io"
	"strings"

	"leadtracker_backend/internal/leads/domain"
)

const (
	missingValue    = "N/A"
	missingSource   = "Direct"
	missingPriority = "Other"
)

// Filename is the attachment name used for downloads.
const Filename = "leads.csv"

func csvHeaders() []string {
	return []string{"Name", "Company", "Source", "Status", "Priority", "Next Action"}
}

// Row renders one lead as CSV fields. Free-text cells that a spreadsheet
// would evaluate as a formula are prefixed with a quote.
func Row(lead domain.Lead) []string {
	return []string{
		cell(lead.Name),
		cell(orDefault(deref(lead.Company), missingValue)),
		orDefault(string(lead.Source), missingSource),
		string(lead.Status),
		orDefault(priority(lead.Priority), missingPriority),
		cell(orDefault(lead.NextAction, missingValue)),
	}
}

func cell(value string) string {
	if value != "" && strings.ContainsRune("=+-@\t\r", rune(value[0])) {
		return "'" + value
	}
	return value
}

// WriteCSV writes the header and one row per lead to w.
func WriteCSV(w io.Writer, leads []domain.Lead) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeaders()); err != nil {
		return err
	}
	for _, lead := range leads {
		if err := writer.Write(Row(lead)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func priority(p *domain.Priority) string {
	if p == nil {
		return ""
	}
	return string(*p)
}
