package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"llm-dev-ops/connector-hub/pkg/providers"
)

// Kind identifies the payload of an Entry.
type Kind string

const (
	// KindResponse holds a complete response.
	KindResponse Kind = "response"

	// KindStream holds a materialized chunk sequence for replay.
	KindStream Kind = "stream"
)

// Entry is an immutable cached payload.
type Entry struct {
	// Fingerprint is the request digest the entry answers
	Fingerprint string `json:"fingerprint"`

	// Kind selects Response or Chunks
	Kind Kind `json:"kind"`

	// Response is set for KindResponse
	Response *providers.CompletionResponse `json:"response,omitempty"`

	// Chunks is set for KindStream
	Chunks []*providers.StreamChunk `json:"chunks,omitempty"`

	// CreatedAt is when the entry was written
	CreatedAt time.Time `json:"created_at"`

	// TTL is the entry lifetime
	TTL time.Duration `json:"ttl"`

	// Hits counts reads served by this entry, including the current one.
	// It is maintained by the backend and not part of the payload.
	Hits int64 `json:"-"`
}

// NewResponseEntry creates an entry holding a copy of resp.
func NewResponseEntry(fp string, resp *providers.CompletionResponse, ttl time.Duration) *Entry {
	return &Entry{Fingerprint: fp, Kind: KindResponse, Response: resp.Clone(), CreatedAt: time.Now(), TTL: ttl}
}

// NewStreamEntry creates an entry holding a copy of a completed chunk
// sequence.
func NewStreamEntry(fp string, chunks []*providers.StreamChunk, ttl time.Duration) *Entry {
	return &Entry{Fingerprint: fp, Kind: KindStream, Chunks: cloneChunks(chunks), CreatedAt: time.Now(), TTL: ttl}
}

// Clone returns a deep copy of e. Callers that hand a payload out must
// clone it first; entries are never modified after creation.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.Response = e.Response.Clone()
	c.Chunks = cloneChunks(e.Chunks)
	return &c
}

func cloneChunks(chunks []*providers.StreamChunk) []*providers.StreamChunk {
	if chunks == nil {
		return nil
	}
	out := make([]*providers.StreamChunk, len(chunks))
	for i, c := range chunks {
		out[i] = c.Clone()
	}
	return out
}

// ExpiresAt returns when the entry stops being served.
func (e *Entry) ExpiresAt() time.Time {
	return e.CreatedAt.Add(e.TTL)
}

// Expired reports whether the entry has outlived its TTL at now.
func (e *Entry) Expired(now time.Time) bool {
	return e.TTL > 0 && !now.Before(e.ExpiresAt())
}

// Validate checks that the payload matches the kind.
func (e *Entry) Validate() error {
	switch e.Kind {
	case KindResponse:
		if e.Response == nil {
			return fmt.Errorf("response entry without response")
		}
	case KindStream:
		if len(e.Chunks) == 0 {
			return fmt.Errorf("stream entry without chunks")
		}
		for _, c := range e.Chunks {
			if c.FinishReason == providers.FinishReasonError {
				return fmt.Errorf("stream entry contains an error chunk")
			}
		}
	default:
		return fmt.Errorf("unknown entry kind %q", e.Kind)
	}
	return nil
}

// Marshal encodes the entry for persistent backends.
func Marshal(e *Entry) ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal decodes an entry written by Marshal.
func Unmarshal(data []byte) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return &e, nil
}
