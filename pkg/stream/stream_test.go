package stream

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"llm-dev-ops/connector-hub/pkg/providers"
	"llm-dev-ops/connector-hub/pkg/providers/mock"
)

func openMock(t *testing.T, m *Multiplexer, p *mock.Provider, opts ...Options) *Stream {
	t.Helper()
	s, err := m.Open(context.Background(), func(ctx context.Context) (providers.StreamReader, error) {
		return p.StreamComplete(ctx, &providers.CompletionRequest{Model: "mock-small"})
	}, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	return s
}

func drain(t *testing.T, s *Stream) []*providers.StreamChunk {
	t.Helper()
	var out []*providers.StreamChunk
	for {
		chunk, err := s.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Next() failed: %v", err)
		}
		out = append(out, chunk)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNew_DefaultDepth(t *testing.T) {
	if d := New(0).Depth(); d != DefaultBufferDepth {
		t.Errorf("expected default depth %d, got %d", DefaultBufferDepth, d)
	}
	if d := New(3).Depth(); d != 3 {
		t.Errorf("expected depth 3, got %d", d)
	}
}

func TestStream_PreservesOrder(t *testing.T) {
	p := mock.New("mock", mock.WithStream(5*time.Millisecond, "A", "B", "C"))
	s := openMock(t, New(0), p)
	defer s.Close()

	chunks := drain(t, s)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, want := range []string{"A", "B", "C"} {
		if chunks[i].Delta != want {
			t.Errorf("chunk %d: expected %q, got %q", i, want, chunks[i].Delta)
		}
	}
	if chunks[2].FinishReason != providers.FinishReasonStop {
		t.Errorf("expected final finish reason stop, got %q", chunks[2].FinishReason)
	}

	// Further reads keep reporting the end.
	if _, err := s.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after end, got %v", err)
	}
}

func TestStream_BackpressureSuspendsProducer(t *testing.T) {
	p := mock.New("mock", mock.WithStream(0, "A", "B", "C"))
	s := openMock(t, New(1), p)
	defer s.Close()

	// One chunk fills the buffer, a second is held by the blocked producer.
	waitFor(t, func() bool { return p.Produced() == 2 })
	time.Sleep(50 * time.Millisecond)
	if got := p.Produced(); got != 2 {
		t.Fatalf("expected producer to suspend at 2 chunks, got %d", got)
	}

	chunks := drain(t, s)
	if len(chunks) != 3 {
		t.Fatalf("expected no dropped chunks, got %d", len(chunks))
	}
	if p.Produced() != 3 {
		t.Errorf("expected 3 produced, got %d", p.Produced())
	}
}

func TestStream_CancelAfterSecondChunk(t *testing.T) {
	gate := make(chan struct{}, 2)
	gate <- struct{}{}
	gate <- struct{}{}
	p := mock.New("mock", mock.WithStream(0, "A", "B", "C"), mock.WithStreamGate(gate))

	var releases atomic.Int32
	s := openMock(t, New(0), p)
	s.OnRelease(func(o Outcome) {
		releases.Add(1)
		if o.Status != StatusCancelled {
			t.Errorf("expected cancelled outcome, got %v", o.Status)
		}
	})

	for _, want := range []string{"A", "B"} {
		chunk, err := s.Next(context.Background())
		if err != nil {
			t.Fatalf("Next() failed: %v", err)
		}
		if chunk.Delta != want {
			t.Fatalf("expected %q, got %q", want, chunk.Delta)
		}
	}

	start := time.Now()
	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("abort took %v", elapsed)
	}

	if p.Aborts() != 1 {
		t.Errorf("expected adapter abort, got %d", p.Aborts())
	}
	if p.Releases() != 1 {
		t.Errorf("expected exactly one adapter release, got %d", p.Releases())
	}
	if p.Produced() != 2 {
		t.Errorf("expected chunk C never produced, got %d chunks", p.Produced())
	}
	if _, err := s.Next(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after Close, got %v", err)
	}

	s.Close()
	if releases.Load() != 1 || p.Releases() != 1 {
		t.Errorf("expected release exactly once, hooks=%d adapter=%d", releases.Load(), p.Releases())
	}
}

func TestStream_CallerContextCancels(t *testing.T) {
	p := mock.New("mock", mock.WithStream(time.Hour, "A", "B"))
	ctx, cancel := context.WithCancel(context.Background())

	s, err := New(0).Open(ctx, func(ctx context.Context) (providers.StreamReader, error) {
		return p.StreamComplete(ctx, &providers.CompletionRequest{})
	})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	cancel()
	<-s.Done()

	if _, err := s.Next(context.Background()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if p.Releases() != 1 {
		t.Errorf("expected one release, got %d", p.Releases())
	}
}

func TestStream_MidStreamErrorYieldsTerminalChunk(t *testing.T) {
	cause := errors.New("connection reset")
	p := mock.New("mock", mock.WithStream(0, "A", "B", "C"), mock.WithStreamError(2, cause))
	s := openMock(t, New(0), p, Options{Provider: "mock", Record: true})
	defer s.Close()

	chunks := drain(t, s)
	if len(chunks) != 3 {
		t.Fatalf("expected 2 chunks and a terminal chunk, got %d", len(chunks))
	}

	last := chunks[2]
	if last.FinishReason != providers.FinishReasonError {
		t.Fatalf("expected finish reason error, got %q", last.FinishReason)
	}
	var sie *providers.StreamInterruptedError
	if !errors.As(last.Err, &sie) {
		t.Fatalf("expected StreamInterruptedError, got %T", last.Err)
	}
	if sie.ChunksDelivered != 2 || !errors.Is(sie, cause) {
		t.Errorf("unexpected interruption: %+v", sie)
	}

	outcome, released := s.Outcome()
	if !released {
		t.Fatal("expected stream released")
	}
	if outcome.Status != StatusInterrupted || outcome.Cacheable() {
		t.Errorf("interrupted stream must not be cacheable: %+v", outcome)
	}
	if p.StreamCalls() != 1 {
		t.Errorf("expected no retry, got %d stream calls", p.StreamCalls())
	}
}

func TestStream_TruncatedStreamIsInterrupted(t *testing.T) {
	p := mock.New("mock", mock.WithStream(0, "A"), mock.WithStreamError(1, io.ErrUnexpectedEOF))
	s := openMock(t, New(0), p)
	defer s.Close()

	chunks := drain(t, s)
	if got := chunks[len(chunks)-1].FinishReason; got != providers.FinishReasonError {
		t.Errorf("expected terminal error chunk, got %q", got)
	}
}

func TestStream_OpenErrorReturned(t *testing.T) {
	openErr := &providers.ProviderError{Provider: "mock", StatusCode: 503, Retryable: true}
	p := mock.New("mock", mock.WithStreamOpenErrors(openErr))

	_, err := New(0).Open(context.Background(), func(ctx context.Context) (providers.StreamReader, error) {
		return p.StreamComplete(ctx, &providers.CompletionRequest{})
	})
	if !errors.Is(err, openErr) {
		t.Errorf("expected open error, got %v", err)
	}
}

func TestStream_RecordAndReplay(t *testing.T) {
	p := mock.New("mock", mock.WithStream(0, "A", "B"))
	m := New(0)
	s := openMock(t, m, p, Options{Record: true})
	drain(t, s)
	s.Close()

	outcome, _ := s.Outcome()
	if !outcome.Cacheable() {
		t.Fatalf("expected completed stream to be cacheable: %+v", outcome)
	}
	if outcome.Produced != 2 || len(outcome.Chunks) != 2 {
		t.Fatalf("expected 2 recorded chunks, got %+v", outcome)
	}

	replay := m.Replay(context.Background(), outcome.Chunks)
	defer replay.Close()
	chunks := drain(t, replay)
	if len(chunks) != 2 || chunks[0].Delta != "A" || chunks[1].Delta != "B" {
		t.Errorf("unexpected replay: %+v", chunks)
	}
}

func TestStream_OnReleaseAfterRelease(t *testing.T) {
	p := mock.New("mock", mock.WithStream(0, "A"))
	s := openMock(t, New(0), p)
	drain(t, s)
	s.Close()

	called := false
	s.OnRelease(func(o Outcome) { called = o.Status == StatusCompleted })
	if !called {
		t.Error("expected late hook to run immediately with the final outcome")
	}
}

func TestCollect(t *testing.T) {
	chunks := []*providers.StreamChunk{
		{ID: "r1", Model: "m", Role: providers.RoleAssistant, Delta: "Hel"},
		{Delta: "lo", ToolCalls: []providers.ToolCall{{Index: 0, ID: "call_1", Function: providers.FunctionCall{Name: "lookup", Arguments: `{"q":`}}}},
		{ToolCalls: []providers.ToolCall{{Index: 0, Function: providers.FunctionCall{Arguments: `"x"}`}}}},
		{FinishReason: providers.FinishReasonToolCalls, Usage: &providers.TokenUsage{TotalTokens: 7}},
	}

	resp, err := Collect(context.Background(), New(0).Replay(context.Background(), chunks))
	if err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}
	if resp.Content != "Hello" || resp.ID != "r1" || resp.Model != "m" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.FinishReason != providers.FinishReasonToolCalls || resp.Usage.TotalTokens != 7 {
		t.Errorf("unexpected finish or usage: %+v", resp)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Function.Arguments != `{"q":"x"}` {
		t.Errorf("unexpected tool calls: %+v", resp.ToolCalls)
	}
}

func TestCollect_TerminalError(t *testing.T) {
	p := mock.New("mock", mock.WithStream(0, "A", "B"), mock.WithStreamError(1, errors.New("boom")))
	_, err := Collect(context.Background(), openMock(t, New(0), p))
	if !errors.Is(err, providers.ErrStreamInterrupted) {
		t.Errorf("expected ErrStreamInterrupted, got %v", err)
	}
}

func TestStream_OpenTimeoutBoundsOpenOnly(t *testing.T) {
	slow := mock.New("mock", mock.WithLatency(time.Second))
	_, err := New(0).Open(context.Background(), func(ctx context.Context) (providers.StreamReader, error) {
		return slow.StreamComplete(ctx, &providers.CompletionRequest{})
	}, Options{Provider: "mock", OpenTimeout: 20 * time.Millisecond})

	var te *providers.TimeoutError
	if !errors.As(err, &te) || te.Provider != "mock" {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if !providers.IsRetryable(err) {
		t.Error("open timeout must be retryable")
	}

	// Reading past the open timeout is fine.
	p := mock.New("mock", mock.WithStream(30*time.Millisecond, "A", "B"))
	s := openMock(t, New(0), p, Options{OpenTimeout: 20 * time.Millisecond})
	defer s.Close()
	if chunks := drain(t, s); len(chunks) != 2 {
		t.Errorf("expected 2 chunks, got %d", len(chunks))
	}
}
