// Package bbolt is an embedded key/value cache backend on go.etcd.io/bbolt.
package bbolt

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"llm-dev-ops/connector-hub/pkg/cache"
)

var (
	entriesBucket = []byte("entries")
	metaBucket    = []byte("meta")
)

// Backend stores encoded entries in one bucket and per-entry expiry and hit
// counters in another.
type Backend struct {
	db *bolt.DB
}

type meta struct {
	expiresAt int64
	hits      int64
}

func (m meta) encode() []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[:8], uint64(m.expiresAt))
	binary.BigEndian.PutUint64(buf[8:], uint64(m.hits))
	return buf
}

func decodeMeta(b []byte) (meta, bool) {
	if len(b) != 16 {
		return meta{}, false
	}
	return meta{
		expiresAt: int64(binary.BigEndian.Uint64(b[:8])),
		hits:      int64(binary.BigEndian.Uint64(b[8:])),
	}, true
}

// New opens (or creates) the database file at path.
func New(path string) (*Backend, error) {
	if path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(entriesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}
	return &Backend{db: db}, nil
}

// Name returns "bbolt".
func (b *Backend) Name() string { return "bbolt" }

// Get loads the entry for fp and bumps its hit count in one transaction.
func (b *Backend) Get(ctx context.Context, fp string) (*cache.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var e *cache.Entry
	key := []byte(fp)
	err := b.db.Update(func(tx *bolt.Tx) error {
		entries, metas := tx.Bucket(entriesBucket), tx.Bucket(metaBucket)

		m, ok := decodeMeta(metas.Get(key))
		payload := entries.Get(key)
		if !ok || payload == nil {
			return nil
		}
		if time.Now().UnixNano() >= m.expiresAt {
			if err := entries.Delete(key); err != nil {
				return err
			}
			return metas.Delete(key)
		}

		decoded, err := cache.Unmarshal(payload)
		if err != nil {
			return err
		}
		m.hits++
		if err := metas.Put(key, m.encode()); err != nil {
			return err
		}
		decoded.Hits = m.hits
		e = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Set replaces the entry for fp and resets its hit count.
func (b *Backend) Set(ctx context.Context, fp string, e *cache.Entry, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := cache.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}

	key := []byte(fp)
	m := meta{expiresAt: e.CreatedAt.Add(ttl).UnixNano()}
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(entriesBucket).Put(key, payload); err != nil {
			return err
		}
		return tx.Bucket(metaBucket).Put(key, m.encode())
	})
}

// Invalidate removes fp.
func (b *Backend) Invalidate(ctx context.Context, fp string) error {
	key := []byte(fp)
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(entriesBucket).Delete(key); err != nil {
			return err
		}
		return tx.Bucket(metaBucket).Delete(key)
	})
}

// Sweep removes expired entries.
func (b *Backend) Sweep(ctx context.Context) (int, error) {
	now := time.Now().UnixNano()
	removed := 0
	err := b.db.Update(func(tx *bolt.Tx) error {
		entries, metas := tx.Bucket(entriesBucket), tx.Bucket(metaBucket)

		var expired [][]byte
		err := metas.ForEach(func(k, v []byte) error {
			m, ok := decodeMeta(v)
			if !ok || now >= m.expiresAt {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range expired {
			if err := entries.Delete(k); err != nil {
				return err
			}
			if err := metas.Delete(k); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	return removed, err
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}
