// Package upstream provides a fake LLM provider HTTP server for adapter tests.
package upstream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockServer simulates provider API responses including errors and streaming.
type MockServer struct {
	server    *httptest.Server
	responses map[string][]MockResponse
	requests  []RecordedRequest
	mu        sync.Mutex

	// streamClosed is signalled when a streaming handler observes the client going away.
	streamClosed chan struct{}
}

// MockResponse defines a mock response configuration.
type MockResponse struct {
	StatusCode int
	Body       interface{}
	Delay      time.Duration
	Headers    map[string]string

	// StreamEvents are written verbatim, each followed by a blank line.
	StreamEvents []string

	// StreamDelay is the pause between stream events.
	StreamDelay time.Duration

	// Truncate ends the stream without its terminator, as a dropped connection would.
	Truncate bool
}

// RecordedRequest is a request observed by the server.
type RecordedRequest struct {
	Path    string
	Header  http.Header
	Body    []byte
	Started time.Time
}

// NewMockServer creates a new mock server.
func NewMockServer() *MockServer {
	ms := &MockServer{
		responses:    make(map[string][]MockResponse),
		streamClosed: make(chan struct{}, 16),
	}
	ms.server = httptest.NewServer(http.HandlerFunc(ms.handler))
	return ms
}

// URL returns the mock server's base URL.
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// Close closes the mock server.
func (ms *MockServer) Close() {
	ms.server.Close()
}

// SetResponse sets the response for every request to path.
func (ms *MockServer) SetResponse(path string, response MockResponse) {
	ms.SetSequence(path, response)
}

// SetSequence queues responses for path. The last one repeats once the
// queue is drained.
func (ms *MockServer) SetSequence(path string, responses ...MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.responses[path] = responses
}

// GetRequestCount returns the number of requests received.
func (ms *MockServer) GetRequestCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.requests)
}

// Requests returns a copy of the recorded requests.
func (ms *MockServer) Requests() []RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]RecordedRequest(nil), ms.requests...)
}

// StreamClosed is signalled each time a stream handler sees its client disconnect.
func (ms *MockServer) StreamClosed() <-chan struct{} {
	return ms.streamClosed
}

func (ms *MockServer) next(path string) (MockResponse, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	queue, ok := ms.responses[path]
	if !ok || len(queue) == 0 {
		return MockResponse{}, false
	}
	resp := queue[0]
	if len(queue) > 1 {
		ms.responses[path] = queue[1:]
	}
	return resp, true
}

func (ms *MockServer) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	ms.mu.Lock()
	ms.requests = append(ms.requests, RecordedRequest{
		Path:    r.URL.Path,
		Header:  r.Header.Clone(),
		Body:    body,
		Started: time.Now(),
	})
	ms.mu.Unlock()

	response, ok := ms.next(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if response.Delay > 0 {
		select {
		case <-time.After(response.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}

	if len(response.StreamEvents) > 0 {
		ms.handleStream(w, r, response)
		return
	}

	status := response.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if response.Body != nil {
		switch v := response.Body.(type) {
		case string:
			_, _ = w.Write([]byte(v))
		case []byte:
			_, _ = w.Write(v)
		default:
			_ = json.NewEncoder(w).Encode(response.Body)
		}
	}
}

// handleStream writes Server-Sent Events.
func (ms *MockServer) handleStream(w http.ResponseWriter, r *http.Request, response MockResponse) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)

	delay := response.StreamDelay
	if delay == 0 {
		delay = 5 * time.Millisecond
	}

	for _, event := range response.StreamEvents {
		if _, err := fmt.Fprintf(w, "%s\n\n", event); err != nil {
			ms.signalClosed()
			return
		}
		flusher.Flush()
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			ms.signalClosed()
			return
		}
	}

	if response.Truncate {
		// Hijack to drop the connection without a clean chunked terminator.
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, err := hj.Hijack(); err == nil {
				conn.Close()
			}
		}
	}
}

func (ms *MockServer) signalClosed() {
	select {
	case ms.streamClosed <- struct{}{}:
	default:
	}
}
