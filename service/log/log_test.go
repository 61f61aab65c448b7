package log

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWith(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx := WithLogger(context.Background(), zap.New(core))
	ctx = With(ctx, "item", "S2A_001")

	Logger(ctx).Info("uploading")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if v := entries[0].ContextMap()["item"]; v != "S2A_001" {
		t.Errorf("expected item field, got %v", v)
	}
}

func TestDefaultLogger(t *testing.T) {
	if Logger(context.Background()) == nil {
		t.Error("default logger must not be nil")
	}
}
