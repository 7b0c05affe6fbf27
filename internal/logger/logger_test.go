package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/Strob0t/CogniChat/internal/config"
)

func TestNew(t *testing.T) {
	cfg := config.Logging{Level: "debug", Service: "test-svc"}
	if l := New(cfg); l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"unknown", "INFO"},
		{"", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input).String()
			if got != tt.want {
				t.Errorf("parseLevel(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()

	// Empty context returns empty string
	if got := RequestID(ctx); got != "" {
		t.Errorf("expected empty request ID, got %q", got)
	}

	ctx = WithRequestID(ctx, "req-123")
	if got := RequestID(ctx); got != "req-123" {
		t.Errorf("expected req-123, got %q", got)
	}
	if got := UserID(ctx); got != "" {
		t.Errorf("request ID must not leak into user ID, got %q", got)
	}
}

func TestContextHandlerAddsIDs(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(config.Logging{Level: "info", Service: "svc"}, &buf)

	ctx := WithUserID(WithRequestID(context.Background(), "req-1"), "user-9")
	l.InfoContext(ctx, "turn complete", "intent", "recall")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if rec["service"] != "svc" {
		t.Errorf("service = %v, want svc", rec["service"])
	}
	if rec["request_id"] != "req-1" {
		t.Errorf("request_id = %v, want req-1", rec["request_id"])
	}
	if rec["user_id"] != "user-9" {
		t.Errorf("user_id = %v, want user-9", rec["user_id"])
	}
	if rec["intent"] != "recall" {
		t.Errorf("intent = %v, want recall", rec["intent"])
	}
}

func TestContextHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(config.Logging{Level: "warn", Service: "svc"}, &buf)
	l.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info record should be filtered at warn level, got %q", buf.String())
	}
}
