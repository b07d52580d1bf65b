package cache

import (
	"context"
	"sync"
)

// Group coordinates concurrent misses on the same fingerprint.
//
// Unlike a plain single-flight, a failed leader does not hand its error to
// the waiters: they wake up and compete for a new lease.
type Group struct {
	mu    sync.Mutex
	calls map[string]*flight
}

type flight struct {
	done  chan struct{}
	entry *Entry
}

// NewGroup creates an empty flight group.
func NewGroup() *Group {
	return &Group{calls: make(map[string]*flight)}
}

// Acquire either makes the caller the leader for fp, returning a Lease, or
// waits for the current leader and returns the entry it published. If the
// leader fails, Acquire tries again. It returns ctx.Err() if ctx ends while
// waiting.
func (g *Group) Acquire(ctx context.Context, fp string) (*Lease, *Entry, error) {
	for {
		g.mu.Lock()
		f, ok := g.calls[fp]
		if !ok {
			f = &flight{done: make(chan struct{})}
			g.calls[fp] = f
			g.mu.Unlock()
			return &Lease{g: g, fp: fp, f: f}, nil, nil
		}
		g.mu.Unlock()

		select {
		case <-f.done:
			if f.entry != nil {
				return nil, f.entry, nil
			}
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
}

// InFlight reports how many fingerprints currently have a leader.
func (g *Group) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// Lease is held by the leader of a fingerprint. Exactly one of Publish or
// Fail takes effect; later calls are no-ops.
type Lease struct {
	g    *Group
	fp   string
	f    *flight
	once sync.Once
}

// Publish hands e to all waiters and releases the fingerprint.
func (l *Lease) Publish(e *Entry) {
	l.resolve(e)
}

// Fail releases the fingerprint with a failure marker. Waiters retry on
// their own.
func (l *Lease) Fail() {
	l.resolve(nil)
}

func (l *Lease) resolve(e *Entry) {
	l.once.Do(func() {
		l.g.mu.Lock()
		if l.g.calls[l.fp] == l.f {
			delete(l.g.calls, l.fp)
		}
		l.g.mu.Unlock()

		l.f.entry = e
		close(l.f.done)
	})
}
