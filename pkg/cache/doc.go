// Package cache implements the response cache keyed by request fingerprint.
//
// A Store wraps a pluggable Backend (memory, sqlite, bbolt or redis) and adds
// hit/miss accounting and error classification. Backend failures surface as
// *providers.CacheError so callers can log them and fall back to a direct
// upstream call.
//
// # Entries
//
// An Entry holds either a complete response or the full chunk list of a
// stream that ended cleanly. Entries are never edited in place; a refresh
// writes a new entry over the old one.
//
// # Stampede protection
//
// Group serializes misses per fingerprint. The first caller receives a Lease
// and performs the upstream call; concurrent callers wait. Publishing the
// lease hands the entry to every waiter. Failing it wakes the waiters, who
// then race to acquire a fresh lease on their own, so at most one upstream
// call per fingerprint is in flight at any time.
package cache
