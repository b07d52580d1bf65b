package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"

	"llm-dev-ops/connector-hub/pkg/providers"
)

const maxLineSize = 1 << 20

// streamReader reads Server-Sent Events (SSE) from Anthropic's streaming API.
type streamReader struct {
	name      string
	body      io.ReadCloser
	scanner   *bufio.Scanner
	state     *streamState
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
		state:   &streamState{},
	}
}

// NewStreamDecoder exposes the SSE decoder over an arbitrary reader.
func NewStreamDecoder(name string, r io.Reader) providers.StreamReader {
	return newStreamReader(name, io.NopCloser(r))
}

// Read reads the next chunk from the stream.
// Returns nil, io.EOF after message_stop.
// A body that ends before message_stop is an unexpected EOF.
func (s *streamReader) Read(ctx context.Context) (*providers.StreamChunk, error) {
	if s.done {
		return nil, io.EOF
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		event, err := s.readEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if s.state.stopped {
					s.done = true
					return nil, io.EOF
				}
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}

		chunk, err := transformStreamChunk(event, s.state)
		if err != nil {
			var perr *providers.ProviderError
			if errors.As(err, &perr) {
				perr.Provider = s.name
				return nil, perr
			}
			return nil, &providers.ParseError{Provider: s.name, Message: err.Error(), Cause: err}
		}

		if s.state.stopped {
			s.done = true
			return nil, io.EOF
		}
		if chunk == nil {
			continue
		}
		return chunk, nil
	}
}

// readEvent reads one complete SSE event.
func (s *streamReader) readEvent() (*AnthropicStreamEvent, error) {
	var eventType string
	var dataLines []string

	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" {
			if eventType != "" || len(dataLines) > 0 {
				break
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
		// id, retry and comment lines are ignored.
	}

	if err := s.scanner.Err(); err != nil {
		return nil, err
	}

	if eventType == "" && len(dataLines) == 0 {
		return nil, io.EOF
	}

	var event AnthropicStreamEvent
	if data := strings.Join(dataLines, "\n"); data != "" {
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			return nil, &providers.ParseError{
				Provider:    s.name,
				Message:     "failed to parse stream event",
				RawResponse: data,
				Cause:       err,
			}
		}
	}

	if event.Type == "" {
		event.Type = eventType
	}

	return &event, nil
}

// Close closes the stream and releases resources.
func (s *streamReader) Close() error {
	s.closeOnce.Do(func() {
		s.done = true
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}
