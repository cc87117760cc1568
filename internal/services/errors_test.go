package services_test

import (
	"errors"
	"strings"
	"testing"

	"geomigrate/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "location", "lookup", "request failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"location", "lookup", "request failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "staging", "page", "", errors.New("io"))
	if !services.IsTransient(err) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestClassificationHelpers(t *testing.T) {
	notFound := services.Wrap(services.ErrNotFound, "location", "lookup", "asset gone", nil)
	if !services.IsNotFound(notFound) {
		t.Fatalf("expected not-found classification for %v", notFound)
	}
	if services.IsTransient(notFound) {
		t.Fatalf("not-found error should not classify as transient: %v", notFound)
	}
	if services.IsNotFound(errors.New("plain")) {
		t.Fatal("plain error should not classify as not-found")
	}
}
