package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestWithLogger_FromContext(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := WithLogger(context.Background(), l)
	if FromContext(ctx) != l {
		t.Fatal("FromContext should return the stored logger")
	}

	FromContext(ctx).Info("test message")
	if buf.Len() == 0 {
		t.Error("Logger from context should produce output")
	}
}

func TestFromContext_Default(t *testing.T) {
	if FromContext(context.Background()) != slog.Default() {
		t.Error("FromContext should fall back to slog.Default()")
	}
}

func TestConnID(t *testing.T) {
	ctx := context.Background()
	if got := ConnIDFromContext(ctx); got != "" {
		t.Errorf("ConnIDFromContext(empty) = %q", got)
	}

	ctx = WithConnID(ctx, "01HZY")
	if got := ConnIDFromContext(ctx); got != "01HZY" {
		t.Errorf("ConnIDFromContext() = %q, want 01HZY", got)
	}
}

func TestL_AddsConnID(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := WithConnID(WithLogger(context.Background(), l), "conn-1")
	L(ctx).Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}
	if entry["conn_id"] != "conn-1" {
		t.Errorf("conn_id = %v, want conn-1", entry["conn_id"])
	}
}
