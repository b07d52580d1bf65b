package mock

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"llm-dev-ops/connector-hub/pkg/providers"
)

func TestComplete_DefaultReply(t *testing.T) {
	p := New("m", WithReply("hello"))

	resp, err := p.Complete(context.Background(), &providers.CompletionRequest{Model: "mock-small"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "hello" || resp.Provider != "m" || resp.Model != "mock-small" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if p.CompleteCalls() != 1 {
		t.Errorf("CompleteCalls() = %d, want 1", p.CompleteCalls())
	}
}

func TestComplete_ScriptedResultsLastRepeats(t *testing.T) {
	boom := errors.New("boom")
	p := New("m", WithResults(
		Result{Err: boom},
		Result{Response: &providers.CompletionResponse{Content: "ok"}},
	))

	ctx := context.Background()
	if _, err := p.Complete(ctx, &providers.CompletionRequest{}); !errors.Is(err, boom) {
		t.Fatalf("first call error = %v, want boom", err)
	}
	for i := 0; i < 3; i++ {
		resp, err := p.Complete(ctx, &providers.CompletionRequest{})
		if err != nil || resp.Content != "ok" {
			t.Fatalf("call %d = %+v, %v", i+2, resp, err)
		}
	}
}

func TestComplete_LatencyTimeout(t *testing.T) {
	p := New("m", WithLatency(time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Complete(ctx, &providers.CompletionRequest{})
	var te *providers.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("Expected TimeoutError, got %v", err)
	}
}

func TestStreamComplete_Chunks(t *testing.T) {
	p := New("m", WithStream(0, "a", "b", "c"))

	r, err := p.StreamComplete(context.Background(), &providers.CompletionRequest{Model: "mock-large"})
	if err != nil {
		t.Fatalf("StreamComplete() error = %v", err)
	}

	var got string
	for {
		c, err := r.Read(context.Background())
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if c.Model != "mock-large" {
			t.Errorf("chunk model = %q", c.Model)
		}
		got += c.Delta
	}
	r.Close()

	if got != "abc" {
		t.Errorf("content = %q, want abc", got)
	}
	if p.Produced() != 3 || p.Releases() != 1 {
		t.Errorf("Produced=%d Releases=%d, want 3 and 1", p.Produced(), p.Releases())
	}
}

func TestStreamComplete_ErrorAfterN(t *testing.T) {
	boom := errors.New("connection reset")
	p := New("m", WithStream(0, "a", "b", "c"), WithStreamError(2, boom))

	r, _ := p.StreamComplete(context.Background(), &providers.CompletionRequest{})
	for i := 0; i < 2; i++ {
		if _, err := r.Read(context.Background()); err != nil {
			t.Fatalf("Read(%d) error = %v", i, err)
		}
	}
	if _, err := r.Read(context.Background()); !errors.Is(err, boom) {
		t.Errorf("third Read() error = %v, want boom", err)
	}
}

func TestStreamComplete_OpenErrors(t *testing.T) {
	boom := errors.New("503")
	p := New("m", WithStreamOpenErrors(boom))

	if _, err := p.StreamComplete(context.Background(), &providers.CompletionRequest{}); !errors.Is(err, boom) {
		t.Fatalf("first open error = %v, want boom", err)
	}
	if _, err := p.StreamComplete(context.Background(), &providers.CompletionRequest{}); err != nil {
		t.Fatalf("second open error = %v", err)
	}
	if p.StreamCalls() != 2 {
		t.Errorf("StreamCalls() = %d, want 2", p.StreamCalls())
	}
}

func TestStreamComplete_TransportCancelAborts(t *testing.T) {
	gate := make(chan struct{})
	p := New("m", WithStream(0, "a", "b"), WithStreamGate(gate))

	ctx, cancel := context.WithCancel(context.Background())
	r, _ := p.StreamComplete(ctx, &providers.CompletionRequest{})
	cancel()

	if _, err := r.Read(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("Read() error = %v, want Canceled", err)
	}
	if p.Aborts() != 1 || p.Produced() != 0 {
		t.Errorf("Aborts=%d Produced=%d, want 1 and 0", p.Aborts(), p.Produced())
	}
}

func TestHealthCheckAndModels(t *testing.T) {
	down := errors.New("down")
	p := New("m", WithModels("x"), WithHealth(func(context.Context) error { return down }))

	st := p.HealthCheck(context.Background())
	if st.Healthy || !errors.Is(st.Err, down) {
		t.Errorf("HealthCheck() = %+v", st)
	}
	models, _ := p.ListModels(context.Background())
	if len(models) != 1 || models[0] != "x" {
		t.Errorf("ListModels() = %v", models)
	}
	if p.GetType() != "mock" || p.GetName() != "m" {
		t.Errorf("identity = %s/%s", p.GetType(), p.GetName())
	}
	p.Close()
	if !p.Closed() {
		t.Error("Expected Closed() after Close")
	}
}
