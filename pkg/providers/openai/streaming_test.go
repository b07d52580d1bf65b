package openai

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"llm-dev-ops/connector-hub/internal/upstream"
	"llm-dev-ops/connector-hub/pkg/providers"
)

func readAll(t *testing.T, r providers.StreamReader) ([]*providers.StreamChunk, error) {
	t.Helper()
	var chunks []*providers.StreamChunk
	for {
		chunk, err := r.Read(context.Background())
		if err == io.EOF {
			return chunks, nil
		}
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, chunk)
	}
}

func TestStreamDecoder_Order(t *testing.T) {
	body := strings.Join(upstream.OpenAIStream("A", "B", "C"), "\n\n") + "\n\n"

	chunks, err := readAll(t, NewStreamDecoder("openai", strings.NewReader(body)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, want := range []string{"A", "B", "C"} {
		if chunks[i].Delta != want {
			t.Errorf("chunk %d: expected %q, got %q", i, want, chunks[i].Delta)
		}
	}
}

func TestStreamDecoder_SkipsCommentsAndUsageOnlyChunk(t *testing.T) {
	body := ": keep-alive\n\n" +
		upstream.OpenAIStreamEvent("hi", "stop") + "\n\n" +
		`data: {"id":"x","model":"gpt-4","choices":[],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}` + "\n\n" +
		upstream.OpenAIDone + "\n\n"

	chunks, err := readAll(t, NewStreamDecoder("openai", strings.NewReader(body)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[1].Usage == nil || chunks[1].Usage.TotalTokens != 3 {
		t.Errorf("expected usage on final chunk, got %+v", chunks[1].Usage)
	}
}

func TestStreamDecoder_TruncatedStream(t *testing.T) {
	body := upstream.OpenAIStreamEvent("partial", "") + "\n\n"

	chunks, err := readAll(t, NewStreamDecoder("openai", strings.NewReader(body)))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected unexpected EOF, got %v", err)
	}
	if len(chunks) != 1 {
		t.Errorf("expected the partial chunk to be delivered, got %d", len(chunks))
	}
}

func TestStreamDecoder_MalformedChunk(t *testing.T) {
	body := "data: {not json}\n\n"

	_, err := readAll(t, NewStreamDecoder("openai", strings.NewReader(body)))
	var perr *providers.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %T: %v", err, err)
	}
}

func TestStreamReader_CloseIsIdempotent(t *testing.T) {
	r := newStreamReader("openai", io.NopCloser(strings.NewReader("")))
	if err := r.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := r.Read(context.Background()); err != io.EOF {
		t.Errorf("expected EOF after close, got %v", err)
	}
}
