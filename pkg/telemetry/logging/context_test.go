package logging

import (
	"context"
	"testing"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-123")
	ctx = WithCaller(ctx, "team-a")
	ctx = WithProvider(ctx, "anthropic")
	ctx = WithModel(ctx, "claude-3")
	ctx = WithFingerprint(ctx, "abc123")
	ctx = WithAttempt(ctx, 3)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"request id", GetRequestID(ctx), "req-123"},
		{"caller", GetCaller(ctx), "team-a"},
		{"provider", GetProvider(ctx), "anthropic"},
		{"model", GetModel(ctx), "claude-3"},
		{"fingerprint", GetFingerprint(ctx), "abc123"},
		{"attempt", GetAttempt(ctx), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestContextKeys_Empty(t *testing.T) {
	ctx := context.Background()
	if GetRequestID(ctx) != "" || GetCaller(ctx) != "" || GetProvider(ctx) != "" ||
		GetModel(ctx) != "" || GetFingerprint(ctx) != "" || GetAttempt(ctx) != 0 {
		t.Error("expected zero values from empty context")
	}
	if fields := extractContextFields(ctx); len(fields) != 0 {
		t.Errorf("extractContextFields() = %v, want none", fields)
	}
}

func TestExtractContextFields_Order(t *testing.T) {
	ctx := WithModel(WithRequestID(context.Background(), "req-1"), "gpt-4")

	fields := extractContextFields(ctx)
	want := []any{"request_id", "req-1", "model", "gpt-4"}
	if len(fields) != len(want) {
		t.Fatalf("fields = %v, want %v", fields, want)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("fields[%d] = %v, want %v", i, fields[i], want[i])
		}
	}
}

func TestContextOverwrite(t *testing.T) {
	ctx := WithAttempt(context.Background(), 1)
	ctx = WithAttempt(ctx, 2)
	if got := GetAttempt(ctx); got != 2 {
		t.Errorf("GetAttempt() = %d, want 2", got)
	}
}
