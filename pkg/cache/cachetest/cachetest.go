// Package cachetest holds the conformance suite every cache backend runs.
package cachetest

import (
	"context"
	"testing"
	"time"

	"llm-dev-ops/connector-hub/pkg/cache"
	"llm-dev-ops/connector-hub/pkg/providers"
)

// Expirer moves a backend's clock forward. Backends whose expiry is driven
// by wall time pass nil and the suite sleeps instead.
type Expirer func(d time.Duration)

// Run exercises the Backend contract against b.
func Run(t *testing.T, b cache.Backend, expire Expirer) {
	t.Helper()
	if expire == nil {
		expire = time.Sleep
	}
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		e, err := b.Get(ctx, "absent")
		if err != nil || e != nil {
			t.Fatalf("expected absent entry, got %v, %v", e, err)
		}
	})

	t.Run("set and get response", func(t *testing.T) {
		resp := &providers.CompletionResponse{ID: "r1", Content: "hello", FinishReason: "stop"}
		if err := b.Set(ctx, "fp-resp", cache.NewResponseEntry("fp-resp", resp, time.Minute), time.Minute); err != nil {
			t.Fatalf("Set() failed: %v", err)
		}

		e, err := b.Get(ctx, "fp-resp")
		if err != nil || e == nil {
			t.Fatalf("expected hit, got %v, %v", e, err)
		}
		if e.Kind != cache.KindResponse || e.Response.Content != "hello" || e.Response.ID != "r1" {
			t.Errorf("unexpected entry: %+v", e)
		}
		if e.Hits != 1 {
			t.Errorf("expected hit count 1, got %d", e.Hits)
		}

		e, _ = b.Get(ctx, "fp-resp")
		if e.Hits != 2 {
			t.Errorf("expected hit count 2, got %d", e.Hits)
		}
	})

	t.Run("stream entry keeps chunk order", func(t *testing.T) {
		chunks := []*providers.StreamChunk{{Delta: "A"}, {Delta: "B"}, {Delta: "C", FinishReason: "stop"}}
		if err := b.Set(ctx, "fp-stream", cache.NewStreamEntry("fp-stream", chunks, time.Minute), time.Minute); err != nil {
			t.Fatalf("Set() failed: %v", err)
		}
		e, err := b.Get(ctx, "fp-stream")
		if err != nil || e == nil {
			t.Fatalf("expected hit, got %v, %v", e, err)
		}
		if len(e.Chunks) != 3 || e.Chunks[0].Delta != "A" || e.Chunks[2].Delta != "C" {
			t.Errorf("unexpected chunks: %+v", e.Chunks)
		}
	})

	t.Run("returned entries are copies", func(t *testing.T) {
		resp := &providers.CompletionResponse{Content: "kept", ToolCalls: []providers.ToolCall{{ID: "call_1"}}}
		chunks := []*providers.StreamChunk{{Delta: "kept", Usage: &providers.TokenUsage{TotalTokens: 3}}}
		_ = b.Set(ctx, "fp-copy-resp", cache.NewResponseEntry("fp-copy-resp", resp, time.Minute), time.Minute)
		_ = b.Set(ctx, "fp-copy-stream", cache.NewStreamEntry("fp-copy-stream", chunks, time.Minute), time.Minute)

		// Edits to the inputs after Set must not reach the backend.
		resp.Content = "edited"
		chunks[0].Delta = "edited"

		e, _ := b.Get(ctx, "fp-copy-resp")
		if e == nil || e.Response.Content != "kept" {
			t.Fatalf("expected stored response unchanged, got %+v", e)
		}
		e.Response.Content = "edited"
		e.Response.ToolCalls[0].ID = "edited"

		s, _ := b.Get(ctx, "fp-copy-stream")
		if s == nil || s.Chunks[0].Delta != "kept" {
			t.Fatalf("expected stored chunks unchanged, got %+v", s)
		}
		s.Chunks[0].Delta = "edited"
		s.Chunks[0].Usage.TotalTokens = 99

		e, _ = b.Get(ctx, "fp-copy-resp")
		if e.Response.Content != "kept" || e.Response.ToolCalls[0].ID != "call_1" {
			t.Errorf("edits to a returned response reached the backend: %+v", e.Response)
		}
		s, _ = b.Get(ctx, "fp-copy-stream")
		if s.Chunks[0].Delta != "kept" || s.Chunks[0].Usage.TotalTokens != 3 {
			t.Errorf("edits to returned chunks reached the backend: %+v", s.Chunks[0])
		}
	})

	t.Run("replace resets entry", func(t *testing.T) {
		first := cache.NewResponseEntry("fp-replace", &providers.CompletionResponse{Content: "old"}, time.Minute)
		second := cache.NewResponseEntry("fp-replace", &providers.CompletionResponse{Content: "new"}, time.Minute)
		_ = b.Set(ctx, "fp-replace", first, time.Minute)
		_, _ = b.Get(ctx, "fp-replace")
		_ = b.Set(ctx, "fp-replace", second, time.Minute)

		e, _ := b.Get(ctx, "fp-replace")
		if e == nil || e.Response.Content != "new" {
			t.Fatalf("expected replaced entry, got %+v", e)
		}
		if e.Hits != 1 {
			t.Errorf("expected hit count reset, got %d", e.Hits)
		}
	})

	t.Run("invalidate", func(t *testing.T) {
		_ = b.Set(ctx, "fp-inv", cache.NewResponseEntry("fp-inv", &providers.CompletionResponse{}, time.Minute), time.Minute)
		if err := b.Invalidate(ctx, "fp-inv"); err != nil {
			t.Fatalf("Invalidate() failed: %v", err)
		}
		if e, _ := b.Get(ctx, "fp-inv"); e != nil {
			t.Error("expected entry removed")
		}
		if err := b.Invalidate(ctx, "fp-inv"); err != nil {
			t.Errorf("invalidating an absent entry must succeed, got %v", err)
		}
	})

	t.Run("expiry", func(t *testing.T) {
		ttl := 50 * time.Millisecond
		_ = b.Set(ctx, "fp-ttl", cache.NewResponseEntry("fp-ttl", &providers.CompletionResponse{}, ttl), ttl)
		expire(2 * ttl)

		if _, err := b.Sweep(ctx); err != nil {
			t.Fatalf("Sweep() failed: %v", err)
		}
		if e, _ := b.Get(ctx, "fp-ttl"); e != nil {
			t.Error("expected expired entry to be gone")
		}
	})
}
