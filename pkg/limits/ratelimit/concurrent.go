package ratelimit

import (
	"sync/atomic"
)

// ConcurrentLimiter is a non-blocking counting semaphore for in-flight calls.
//
// A stream holds its slot until it is released, not until the call that
// opened it returns.
type ConcurrentLimiter struct {
	limit   int64
	current atomic.Int64
}

// NewConcurrentLimiter creates a limiter admitting at most limit holders.
//
// Example:
//
//	limiter := NewConcurrentLimiter(50)
//	if limiter.Acquire() {
//	    defer limiter.Release()
//	    // ...
//	}
func NewConcurrentLimiter(limit int) *ConcurrentLimiter {
	return &ConcurrentLimiter{limit: int64(limit)}
}

// Acquire takes a slot if one is free.
// If it returns true, the caller must call Release exactly once.
func (cl *ConcurrentLimiter) Acquire() bool {
	if cl.current.Add(1) > cl.limit {
		cl.current.Add(-1)
		return false
	}
	return true
}

// Release frees a slot. The count never drops below zero.
func (cl *ConcurrentLimiter) Release() {
	for {
		cur := cl.current.Load()
		if cur <= 0 {
			return
		}
		if cl.current.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// Current returns the number of held slots.
func (cl *ConcurrentLimiter) Current() int64 {
	return cl.current.Load()
}

// Limit returns the configured concurrency limit.
func (cl *ConcurrentLimiter) Limit() int64 {
	return cl.limit
}

// Remaining returns the number of free slots.
func (cl *ConcurrentLimiter) Remaining() int64 {
	return max(cl.limit-cl.current.Load(), 0)
}

// Reset drops every held slot.
func (cl *ConcurrentLimiter) Reset() {
	cl.current.Store(0)
}
