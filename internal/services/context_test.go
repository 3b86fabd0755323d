package services_test

import (
	"context"
	"testing"

	"tvcore/internal/services"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithChannelID(ctx, 42)
	ctx = services.WithTechnology(ctx, "terrestrial")
	ctx = services.WithRequestID(ctx, "req-1")

	if id, ok := services.ChannelIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected channel id: %d %v", id, ok)
	}
	if tech, ok := services.TechnologyFromContext(ctx); !ok || tech != "terrestrial" {
		t.Fatalf("unexpected technology: %q %v", tech, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-1" {
		t.Fatalf("unexpected request id: %q %v", rid, ok)
	}
}

func TestEmptyValuesAreIgnored(t *testing.T) {
	ctx := services.WithTechnology(context.Background(), "")
	if _, ok := services.TechnologyFromContext(ctx); ok {
		t.Fatal("expected empty technology to be ignored")
	}
	ctx = services.WithRequestID(ctx, "")
	if _, ok := services.RequestIDFromContext(ctx); ok {
		t.Fatal("expected empty request id to be ignored")
	}
}

func TestEnsureRequestID(t *testing.T) {
	ctx := services.EnsureRequestID(context.Background())
	first, ok := services.RequestIDFromContext(ctx)
	if !ok || first == "" {
		t.Fatal("expected generated request id")
	}
	ctx = services.EnsureRequestID(ctx)
	second, _ := services.RequestIDFromContext(ctx)
	if first != second {
		t.Fatalf("expected existing id to be kept, got %q then %q", first, second)
	}
}
