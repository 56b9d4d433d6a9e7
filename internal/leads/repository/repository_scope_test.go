package repository

import (
	"strings"
	"testing"
	"time"

	"leadtracker_backend/internal/leads/domain"

	"github.com/google/uuid"
)

func TestMemberListQueryIsScopedToCreatorOrAssignee(t *testing.T) {
	memberID := uuid.New()
	query, args, err := buildListQuery(ListQuery{MemberID: memberID.String()})
	if err != nil {
		t.Fatalf("build query: %v", err)
	}

	lower := strings.ToLower(query)
	for _, fragment := range []string{
		"from leads",
		"where (created_by = $1 or assigned_to = $1)",
		"order by created_at desc",
	} {
		if !strings.Contains(lower, fragment) {
			t.Fatalf("expected scoped query fragment %q in %q", fragment, query)
		}
	}
	if len(args) != 1 || args[0] != memberID {
		t.Fatalf("expected member id as the only argument, got %v", args)
	}
}

func TestUnscopedListQueryHasNoPredicate(t *testing.T) {
	query, args, err := buildListQuery(ListQuery{})
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	lower := strings.ToLower(query)
	if strings.Contains(lower, "where") {
		t.Fatalf("unscoped query should not filter rows: %q", query)
	}
	if !strings.Contains(lower, "order by created_at desc") {
		t.Fatalf("unscoped query must still order newest first: %q", query)
	}
	if len(args) != 0 {
		t.Fatalf("expected no arguments, got %v", args)
	}
}

func TestListQueryRejectsMalformedMemberID(t *testing.T) {
	if _, _, err := buildListQuery(ListQuery{MemberID: "not-a-uuid"}); err == nil {
		t.Fatal("expected malformed member id to be rejected")
	}
}

func TestBuildUpdateNumbersArgumentsAfterID(t *testing.T) {
	name := "Jane"
	status := domain.Status("Contacted")
	date := time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC)

	set, args, err := buildUpdate(domain.Patch{Name: &name, Status: &status, NextActionDate: &date})
	if err != nil {
		t.Fatalf("build update: %v", err)
	}

	want := "name = $2, status = $3, next_action_date = $4, updated_at = GREATEST(now(), created_at)"
	if set != want {
		t.Fatalf("unexpected set clause\n got %q\nwant %q", set, want)
	}
	if len(args) != 3 || args[1] != "contacted" {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestBuildUpdateClearsAssignee(t *testing.T) {
	empty := ""
	set, args, err := buildUpdate(domain.Patch{AssignedTo: &empty})
	if err != nil {
		t.Fatalf("build update: %v", err)
	}
	if !strings.HasPrefix(set, "assigned_to = $2") {
		t.Fatalf("unexpected set clause %q", set)
	}
	if got, ok := args[0].(*uuid.UUID); !ok || got != nil {
		t.Fatalf("expected nil assignee, got %#v", args[0])
	}
}
