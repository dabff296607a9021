package observability

import (
	"context"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger, err := NewLogger("debug", format)
		if err != nil {
			t.Fatalf("NewLogger(%s) failed: %v", format, err)
		}
		if !logger.Core().Enabled(zapcore.DebugLevel) {
			t.Errorf("%s: expected debug level to be enabled", format)
		}
	}

	if _, err := NewLogger("loud", "json"); err == nil {
		t.Error("Expected error for unknown level")
	}
	if _, err := NewLogger("info", "xml"); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestSetupTracing_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), "")
	if err != nil {
		t.Fatalf("SetupTracing failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}

	_, span := Tracer().Start(context.Background(), "noop")
	defer span.End()
	if span.SpanContext().IsValid() {
		t.Error("Expected a no-op span when tracing is disabled")
	}
}
