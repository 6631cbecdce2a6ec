package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{Level: slog.LevelDebug, Component: component, Output: buf})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogger_Component(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, ComponentHTTP)

	logger.WithComponent(ComponentWorker).Info("hello", FieldBudgetID, "b1")

	out := buf.String()
	if !strings.Contains(out, "component=worker") || !strings.Contains(out, "budget_id=b1") {
		t.Errorf("log line = %q", out)
	}
	if logger.Component() != ComponentHTTP {
		t.Errorf("WithComponent changed the parent logger")
	}
}

func TestFromContext(t *testing.T) {
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Errorf("fallback component = %q", got.Component())
	}

	var buf bytes.Buffer
	logger := newBufferLogger(&buf, ComponentApp)
	if got := FromContext(WithLogger(context.Background(), logger)); got != logger {
		t.Errorf("FromContext() did not return the stored logger")
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf, ComponentApp))
	ctx := context.Background()

	sl.LogHTTPEnd(ctx, httptest.NewRequest("GET", "/budgets/x?w=10", nil), 503, 12, "10.0.0.1")
	sl.LogBudgetSaved(ctx, "b1", 3, 2, 1)
	sl.LogError(ctx, "render failed", errors.New("boom"), ComponentRender, OpRender, nil)

	out := buf.String()
	for _, want := range []string{
		"level=ERROR", "status_code=503", "path=/budgets/x", "client_ip=10.0.0.1",
		"msg=\"Budget saved\"", "version=3", "component=storage",
		"error=boom", "operation=render", "component=render",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
