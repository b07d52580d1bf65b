package stream

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"llm-dev-ops/connector-hub/pkg/providers"
)

// DefaultBufferDepth is the number of chunks buffered between producer and consumer.
const DefaultBufferDepth = 64

// ErrClosed is returned by Next after the consumer closed the stream.
var ErrClosed = errors.New("stream closed")

// Status describes how a stream ended.
type Status int

const (
	// StatusCompleted means the adapter reached a clean end of stream.
	StatusCompleted Status = iota

	// StatusInterrupted means a transport error ended the stream.
	StatusInterrupted

	// StatusCancelled means the consumer or its context stopped the stream.
	StatusCancelled
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusInterrupted:
		return "interrupted"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outcome is reported to release hooks once the producer has exited.
type Outcome struct {
	// Status is how the stream ended
	Status Status

	// Err is the interruption or cancellation cause, nil when completed
	Err error

	// Produced counts chunks read from the adapter
	Produced int

	// Chunks holds every produced chunk when recording was requested
	Chunks []*providers.StreamChunk

	// Duration is the time from Open to release
	Duration time.Duration
}

// Cacheable reports whether the stream was fully materialized without error.
func (o Outcome) Cacheable() bool {
	if o.Status != StatusCompleted || o.Err != nil || len(o.Chunks) == 0 {
		return false
	}
	for _, c := range o.Chunks {
		if c.FinishReason == providers.FinishReasonError {
			return false
		}
	}
	return true
}

// OpenFunc opens the adapter stream. ctx is the transport context: the
// adapter must abort its underlying call when it is cancelled.
type OpenFunc func(ctx context.Context) (providers.StreamReader, error)

// Options tune a single stream.
type Options struct {
	// Provider names the adapter in interruption errors
	Provider string

	// Record keeps produced chunks for the release Outcome
	Record bool

	// OpenTimeout bounds the open call only. Reading is bounded by the
	// caller's context.
	OpenTimeout time.Duration
}

// Multiplexer opens bounded streams. It holds no per-stream state and is safe
// for concurrent use.
type Multiplexer struct {
	depth int
}

// New creates a multiplexer with the given buffer depth.
// A depth below 1 selects DefaultBufferDepth.
func New(depth int) *Multiplexer {
	if depth < 1 {
		depth = DefaultBufferDepth
	}
	return &Multiplexer{depth: depth}
}

// Depth returns the buffer depth.
func (m *Multiplexer) Depth() int {
	return m.depth
}

// Open calls open with a transport context derived from ctx and starts the
// producer. An error from open is returned as is: nothing has streamed yet,
// so the caller may retry it.
func (m *Multiplexer) Open(ctx context.Context, open OpenFunc, opts ...Options) (*Stream, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	tctx, cancel := context.WithCancel(ctx)

	var timedOut atomic.Bool
	var timer *time.Timer
	if o.OpenTimeout > 0 {
		timer = time.AfterFunc(o.OpenTimeout, func() {
			timedOut.Store(true)
			cancel()
		})
	}

	reader, err := open(tctx)
	if timer != nil && !timer.Stop() && timedOut.Load() {
		if reader != nil {
			reader.Close()
		}
		cancel()
		return nil, &providers.TimeoutError{Provider: o.Provider, Timeout: o.OpenTimeout}
	}
	if err != nil {
		cancel()
		return nil, err
	}

	s := &Stream{
		ch:      make(chan *providers.StreamChunk, m.depth),
		done:    make(chan struct{}),
		cancel:  cancel,
		reader:  reader,
		opts:    o,
		started: time.Now(),
	}
	go s.produce(tctx)
	return s, nil
}

// Replay builds a completed stream from materialized chunks.
func (m *Multiplexer) Replay(ctx context.Context, chunks []*providers.StreamChunk, opts ...Options) *Stream {
	s, _ := m.Open(ctx, func(context.Context) (providers.StreamReader, error) {
		return &sliceReader{chunks: chunks}, nil
	}, opts...)
	return s
}

// Stream is a lazy, finite, non-restartable chunk sequence.
//
// Next is meant for a single consumer goroutine. Close may be called from any
// goroutine and any number of times.
type Stream struct {
	ch      chan *providers.StreamChunk
	done    chan struct{}
	cancel  context.CancelFunc
	reader  providers.StreamReader
	opts    Options
	started time.Time

	closed      atomic.Bool
	releaseOnce sync.Once
	closeErr    error

	mu       sync.Mutex
	hooks    []func(Outcome)
	released bool
	outcome  Outcome
	endErr   error
}

// Next returns the next chunk. It returns io.EOF after the last chunk,
// including after a terminal error chunk. After Close it returns ErrClosed.
func (s *Stream) Next(ctx context.Context) (*providers.StreamChunk, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	select {
	case chunk, ok := <-s.ch:
		if s.closed.Load() {
			return nil, ErrClosed
		}
		if !ok {
			s.mu.Lock()
			err := s.endErr
			s.mu.Unlock()
			if err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		return chunk, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close aborts the transport if it is still running, waits for the producer
// to exit and releases the adapter reader. It returns the reader's Close error.
func (s *Stream) Close() error {
	s.closed.Store(true)
	s.cancel()
	<-s.done
	return s.closeErr
}

// Done is closed once the stream has been released.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// OnRelease registers fn to run with the final Outcome. Hooks run in
// registration order on the producer goroutine. A hook registered after
// release runs immediately.
func (s *Stream) OnRelease(fn func(Outcome)) {
	s.mu.Lock()
	if !s.released {
		s.hooks = append(s.hooks, fn)
		s.mu.Unlock()
		return
	}
	outcome := s.outcome
	s.mu.Unlock()
	fn(outcome)
}

// Outcome returns the final outcome and whether the stream has been released.
func (s *Stream) Outcome() (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome, s.released
}

func (s *Stream) produce(ctx context.Context) {
	outcome := Outcome{Status: StatusCompleted}

	for {
		chunk, err := s.reader.Read(ctx)
		if err == nil {
			if chunk == nil {
				continue
			}
			outcome.Produced++
			if s.opts.Record {
				outcome.Chunks = append(outcome.Chunks, chunk.Clone())
			}
			if !s.send(ctx, chunk) {
				outcome.Status = StatusCancelled
				outcome.Err = s.cancelCause(ctx)
				break
			}
			continue
		}

		if errors.Is(err, io.EOF) && ctx.Err() == nil {
			break
		}
		if ctx.Err() != nil {
			outcome.Status = StatusCancelled
			outcome.Err = s.cancelCause(ctx)
			break
		}

		outcome.Status = StatusInterrupted
		outcome.Err = &providers.StreamInterruptedError{
			Provider:        s.opts.Provider,
			ChunksDelivered: outcome.Produced,
			Cause:           err,
		}
		s.send(ctx, &providers.StreamChunk{
			FinishReason: providers.FinishReasonError,
			Err:          outcome.Err,
		})
		break
	}

	if outcome.Status != StatusCompleted {
		outcome.Chunks = nil
	}
	s.release(outcome)
}

// send blocks until the consumer has room or the transport is cancelled.
func (s *Stream) send(ctx context.Context, chunk *providers.StreamChunk) bool {
	select {
	case s.ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Stream) cancelCause(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return ctx.Err()
}

func (s *Stream) release(outcome Outcome) {
	s.releaseOnce.Do(func() {
		s.closeErr = s.reader.Close()
		outcome.Duration = time.Since(s.started)

		s.mu.Lock()
		s.released = true
		s.outcome = outcome
		if outcome.Status == StatusCancelled {
			s.endErr = outcome.Err
		}
		hooks := s.hooks
		s.hooks = nil
		s.mu.Unlock()

		for _, fn := range hooks {
			fn(outcome)
		}

		close(s.ch)
		s.cancel()
		close(s.done)
	})
}

type sliceReader struct {
	chunks []*providers.StreamChunk
	pos    int
}

func (r *sliceReader) Read(ctx context.Context) (*providers.StreamChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.pos >= len(r.chunks) {
		return nil, io.EOF
	}
	c := r.chunks[r.pos].Clone()
	r.pos++
	return c, nil
}

func (r *sliceReader) Close() error { return nil }
