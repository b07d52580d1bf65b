package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"llm-dev-ops/connector-hub/pkg/cache"
	"llm-dev-ops/connector-hub/pkg/cache/cachetest"
	"llm-dev-ops/connector-hub/pkg/providers"
)

func newTestBackend(t *testing.T) (*Backend, *miniredis.Miniredis) {
	t.Helper()
	m := miniredis.RunT(t)
	b, err := New(context.Background(), Config{Addr: m.Addr()})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b, m
}

func TestBackend_Contract(t *testing.T) {
	b, m := newTestBackend(t)
	cachetest.Run(t, b, m.FastForward)
}

func TestNew_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := New(ctx, Config{Addr: "127.0.0.1:1"}); err == nil {
		t.Error("expected connection error")
	}
}

func TestBackend_KeysArePrefixed(t *testing.T) {
	b, m := newTestBackend(t)
	ctx := context.Background()

	_ = b.Set(ctx, "fp", cache.NewResponseEntry("fp", &providers.CompletionResponse{}, time.Minute), time.Minute)
	if !m.Exists(DefaultPrefix + "fp") {
		t.Errorf("expected key %q, got keys %v", DefaultPrefix+"fp", m.Keys())
	}
	if ttl := m.TTL(DefaultPrefix + "fp"); ttl != time.Minute {
		t.Errorf("expected redis TTL of 1m, got %v", ttl)
	}
}

func TestBackend_ServerFailure(t *testing.T) {
	b, m := newTestBackend(t)
	m.Close()

	if _, err := b.Get(context.Background(), "fp"); err == nil {
		t.Error("expected error when the server is gone")
	}
}
