package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"llm-dev-ops/connector-hub/pkg/providers"
)

// maxLineSize bounds a single SSE line.
const maxLineSize = 1 << 20

// streamReader reads Server-Sent Events (SSE) from OpenAI's streaming API.
type streamReader struct {
	name      string
	body      io.ReadCloser
	scanner   *bufio.Scanner
	finished  bool
	done      bool
	closeOnce sync.Once
	closeErr  error
}

// newStreamReader wraps an SSE response body.
func newStreamReader(name string, body io.ReadCloser) *streamReader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &streamReader{
		name:    name,
		body:    body,
		scanner: scanner,
	}
}

// NewStreamDecoder exposes the SSE decoder over an arbitrary reader.
func NewStreamDecoder(name string, r io.Reader) providers.StreamReader {
	return newStreamReader(name, io.NopCloser(r))
}

// Read reads the next chunk from the stream.
// Returns nil, io.EOF when the stream ends normally.
// A body that ends before [DONE] or a finish reason is an unexpected EOF.
func (s *streamReader) Read(ctx context.Context) (*providers.StreamChunk, error) {
	if s.done {
		return nil, io.EOF
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, err
			}
			if !s.finished {
				return nil, io.ErrUnexpectedEOF
			}
			s.done = true
			return nil, io.EOF
		}

		line := s.scanner.Text()
		if line == "" || !strings.HasPrefix(line, "data:") {
			// Skip comments, event names and blank separators.
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			s.done = true
			return nil, io.EOF
		}

		var openaiChunk OpenAIStreamResponse
		if err := json.Unmarshal([]byte(data), &openaiChunk); err != nil {
			return nil, &providers.ParseError{
				Provider:    s.name,
				Message:     "failed to parse stream chunk",
				RawResponse: data,
				Cause:       err,
			}
		}

		chunk, err := transformStreamChunk(&openaiChunk)
		if err != nil {
			return nil, &providers.ParseError{
				Provider: s.name,
				Message:  fmt.Sprintf("invalid stream chunk: %v", err),
				Cause:    err,
			}
		}
		if chunk.FinishReason != "" {
			s.finished = true
		}

		return chunk, nil
	}
}

// Close closes the stream and releases resources.
func (s *streamReader) Close() error {
	s.closeOnce.Do(func() {
		s.done = true
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}
