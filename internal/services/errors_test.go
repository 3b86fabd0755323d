package services_test

import (
	"errors"
	"strings"
	"testing"

	"tvcore/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrMiddlewareComm, "routes", "frontend count", "query failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrMiddlewareComm) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"routes", "frontend count", "query failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrInvalidOperation) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "operation failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestKindMapping(t *testing.T) {
	cases := map[string]error{
		"none":              nil,
		"hardware_absent":   services.Wrap(services.ErrHardwareAbsent, "tuning", "tune", "", nil),
		"middleware_comm":   services.Wrap(services.ErrMiddlewareComm, "routes", "discover", "", nil),
		"not_found":         services.Wrap(services.ErrNotFound, "catalog", "lookup", "", nil),
		"timed_out":         services.Wrap(services.ErrTimedOut, "readiness", "await", "", nil),
		"not_ready":         services.ErrNotReady,
		"invalid_operation": errors.New("plain"),
	}
	for want, err := range cases {
		if got := services.Kind(err); got != want {
			t.Fatalf("Kind(%v) = %q, want %q", err, got, want)
		}
	}
}
