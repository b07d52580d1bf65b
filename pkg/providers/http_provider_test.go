package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPProvider_NoRetry(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "internal server error"}`))
	}))
	defer server.Close()

	provider := NewHTTPProvider(ProviderConfig{Name: "test-provider", BaseURL: server.URL})
	defer provider.Close()

	_, err := provider.DoRequest(context.Background(), http.MethodPost, server.URL+"/test", []byte(`{}`), nil)

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %T: %v", err, err)
	}
	if !perr.Retryable {
		t.Error("expected 500 to be classified retryable")
	}
	if n := atomic.LoadInt32(&attempts); n != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", n)
	}
}

func TestHTTPProvider_StatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusForbidden, false},
		{http.StatusNotFound, false},
		{http.StatusRequestTimeout, true},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			provider := NewHTTPProvider(ProviderConfig{Name: "p"})
			defer provider.Close()

			_, err := provider.DoRequest(context.Background(), http.MethodGet, server.URL, nil, nil)
			if IsRetryable(err) != tt.retryable {
				t.Errorf("status %d: expected retryable=%v, got %v (%v)", tt.status, tt.retryable, IsRetryable(err), err)
			}
		})
	}
}

func TestHTTPProvider_TransportFailureIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	provider := NewHTTPProvider(ProviderConfig{Name: "p"})
	defer provider.Close()

	_, err := provider.DoRequest(context.Background(), http.MethodGet, url, nil, nil)
	if !IsRetryable(err) {
		t.Fatalf("expected connection refused to be retryable, got %v", err)
	}
}

func TestHTTPProvider_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	provider := NewHTTPProvider(ProviderConfig{Name: "p", Timeout: 50 * time.Millisecond})
	defer provider.Close()

	ctx, cancel := provider.AttemptContext(context.Background(), nil)
	defer cancel()

	_, err := provider.DoRequest(ctx, http.MethodGet, server.URL, nil, nil)
	var terr *TimeoutError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TimeoutError, got %T: %v", err, err)
	}
}

func TestHTTPProvider_CallerCancelIsNotRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	provider := NewHTTPProvider(ProviderConfig{Name: "p"})
	defer provider.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := provider.DoRequest(ctx, http.MethodGet, server.URL, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if IsRetryable(err) {
		t.Error("caller cancellation must not be retryable")
	}
}

func TestHTTPProvider_AttemptContext(t *testing.T) {
	provider := NewHTTPProvider(ProviderConfig{Name: "p", Timeout: time.Minute})

	ctx, cancel := provider.AttemptContext(context.Background(), &CompletionRequest{Timeout: time.Second})
	defer cancel()
	dl, ok := ctx.Deadline()
	if !ok || time.Until(dl) > time.Second {
		t.Errorf("expected request timeout to win, got deadline in %v", time.Until(dl))
	}

	parent, pcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pcancel()
	ctx2, cancel2 := provider.AttemptContext(parent, &CompletionRequest{Timeout: time.Second})
	defer cancel2()
	dl2, _ := ctx2.Deadline()
	pdl, _ := parent.Deadline()
	if !dl2.Equal(pdl) {
		t.Error("expected an existing deadline to be kept")
	}
}

func TestHTTPProvider_ParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	provider := NewHTTPProvider(ProviderConfig{Name: "p"})
	defer provider.Close()

	var out map[string]interface{}
	_, err := provider.DoJSONRequest(context.Background(), http.MethodGet, server.URL, nil, &out, nil)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %T: %v", err, err)
	}
	if perr.RawResponse != "not json" {
		t.Errorf("expected raw response to be kept, got %q", perr.RawResponse)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("7"); got != 7*time.Second {
		t.Errorf("expected 7s, got %v", got)
	}
	if got := parseRetryAfter(""); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
	future := time.Now().Add(10 * time.Second).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(future); got <= 0 || got > 11*time.Second {
		t.Errorf("expected ~10s from HTTP date, got %v", got)
	}
}
