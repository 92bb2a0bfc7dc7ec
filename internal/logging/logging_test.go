package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithAccountAddsField(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Replace(zap.New(core))
	defer Replace(nil)

	ctx := WithAccount(context.Background(), "alice@cloud.example.com")
	WithContext(ctx).Info("refreshed")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["account"] != "alice@cloud.example.com" {
		t.Errorf("expected account field, got %v", fields)
	}
}

func TestLBeforeInitIsNop(t *testing.T) {
	Replace(nil)
	// Must not panic and must not require Init.
	L().Info("ignored")
	S().Infof("ignored %d", 1)
}

func TestSetLevel(t *testing.T) {
	SetLevel("debug")
	if globalLevel.Level() != zapcore.DebugLevel {
		t.Errorf("expected debug level, got %v", globalLevel.Level())
	}
	SetLevel("not-a-level")
	if globalLevel.Level() != zapcore.DebugLevel {
		t.Errorf("invalid level should be ignored, got %v", globalLevel.Level())
	}
	SetLevel("info")
}
