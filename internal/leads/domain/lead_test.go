package domain

import (
	"testing"
	"time"
)

func TestDisplayStatusOf(t *testing.T) {
	cases := map[Status]string{
		"new":         "new",
		"contacted":   "in-progress",
		"Qualified":   "in-progress",
		"in-progress": "in-progress",
		"Interested":  "in-progress",
		"Follow-up":   "in-progress",
		"closed":      "closed",
		"Won":         "won",
		"lost":        "lost",
		"dropped":     "dropped",
		"Parked":      "parked",
	}
	for in, want := range cases {
		if got := DisplayStatusOf(in); got != want {
			t.Errorf("DisplayStatusOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClosedAndInactiveSets(t *testing.T) {
	if !StatusClosed.IsClosed() || !StatusDropped.IsClosed() {
		t.Fatal("closed and dropped must be closed")
	}
	if StatusWon.IsClosed() || StatusLost.IsClosed() {
		t.Fatal("won and lost are not part of the closed bucket set")
	}
	for _, s := range []Status{StatusWon, StatusLost, StatusClosed, "Dropped"} {
		if !s.IsInactive() {
			t.Errorf("expected %q to be inactive", s)
		}
	}
	if StatusNew.IsInactive() || StatusInProgress.IsInactive() {
		t.Fatal("open statuses must be active")
	}
}

func TestPatchApplyBumpsUpdatedAt(t *testing.T) {
	created := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	lead := Lead{ID: "l1", Name: "Old", CreatedAt: created, UpdatedAt: created}
	name := "New"
	status := StatusContacted

	Patch{Name: &name, Status: &status}.Apply(&lead, created.Add(time.Hour))

	if lead.Name != "New" || lead.Status != StatusContacted {
		t.Fatalf("patch not applied: %+v", lead)
	}
	if !lead.UpdatedAt.Equal(created.Add(time.Hour)) {
		t.Fatalf("expected updatedAt bump, got %s", lead.UpdatedAt)
	}

	Patch{Name: &name}.Apply(&lead, created.Add(-time.Hour))
	if lead.UpdatedAt.Before(lead.CreatedAt) {
		t.Fatal("updatedAt must never precede createdAt")
	}
}

func TestRequesterCanModify(t *testing.T) {
	assignee := "u3"
	lead := Lead{ID: "l1", CreatedBy: "u1", AssignedTo: &assignee}

	cases := []struct {
		name string
		req  Requester
		want bool
	}{
		{"creator", Requester{UserID: "u1"}, true},
		{"assignee", Requester{UserID: "u3"}, true},
		{"stranger", Requester{UserID: "u2"}, false},
		{"admin", Requester{UserID: "u2", Admin: true}, true},
		{"anonymous", Requester{}, false},
	}
	for _, tc := range cases {
		if got := tc.req.CanModify(lead); got != tc.want {
			t.Errorf("%s: CanModify = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestLeadMatches(t *testing.T) {
	lead := Lead{Name: "Jane Doe", Contact: "jane@acme.io", ProfileURL: "https://linkedin.com/in/jdoe", Tags: []string{"FinTech"}}
	for _, search := range []string{"", "JANE", "acme", "in/jdoe", "fintech"} {
		if !lead.Matches(search) {
			t.Errorf("expected %q to match", search)
		}
	}
	if lead.Matches("zebra") {
		t.Fatal("unexpected match")
	}
}

func TestCloneIsDeep(t *testing.T) {
	lead := Lead{Tags: []string{"a"}, Notes: []Note{{ID: "n1"}}}
	clone := lead.Clone()
	clone.Tags[0] = "b"
	clone.Notes[0].ID = "n2"
	if lead.Tags[0] != "a" || lead.Notes[0].ID != "n1" {
		t.Fatal("clone shares backing arrays")
	}
}
