package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestGetKindThroughWrapping(t *testing.T) {
	base := Forbidden("Unauthorized")
	wrapped := fmt.Errorf("remove lead: %w", base)

	if GetKind(wrapped) != KindForbidden {
		t.Fatalf("expected KindForbidden, got %v", GetKind(wrapped))
	}
	if !Is(wrapped, KindForbidden) {
		t.Fatal("expected Is to match KindForbidden")
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatal("expected KindUnknown for untyped error")
	}
}

func TestErrorMessageIncludesOpAndCause(t *testing.T) {
	err := Remote("fetch leads", errors.New("connection refused")).WithOp("syncer.Fetch")
	if got := err.Error(); got != "syncer.Fetch: fetch leads: connection refused" {
		t.Fatalf("unexpected message %q", got)
	}
	if !errors.Is(err, err.Err) {
		t.Fatal("expected Unwrap to expose cause")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:     http.StatusNotFound,
		KindValidation:   http.StatusBadRequest,
		KindConflict:     http.StatusConflict,
		KindForbidden:    http.StatusForbidden,
		KindUnauthorized: http.StatusUnauthorized,
		KindRemote:       http.StatusBadGateway,
		KindInternal:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := New(kind, "x").HTTPStatus(); got != want {
			t.Errorf("kind %d: expected %d, got %d", kind, want, got)
		}
	}
}
