package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/wal-g/tracelog"
)

type PoolExhaustedError struct {
	error
}

func NewPoolExhaustedError(poolSize int, waited time.Duration) PoolExhaustedError {
	return PoolExhaustedError{
		errors.Errorf("all %v buffers checked out for %v", poolSize, waited)}
}

func (err PoolExhaustedError) Error() string {
	return fmt.Sprintf(tracelog.GetErrorFormatter(), err.error)
}

type ReadPastEndError struct {
	error
}

func NewReadPastEndError(requested int, remaining int) ReadPastEndError {
	return ReadPastEndError{
		errors.Errorf("read of %vB past end of read-once buffer with %vB remaining", requested, remaining)}
}

func (err ReadPastEndError) Error() string {
	return fmt.Sprintf(tracelog.GetErrorFormatter(), err.error)
}

type BufferTooLargeError struct {
	error
}

func NewBufferTooLargeError(requested int, bufferSize int) BufferTooLargeError {
	return BufferTooLargeError{
		errors.Errorf("checkout of %vB exceeds the %vB buffer size", requested, bufferSize)}
}

func (err BufferTooLargeError) Error() string {
	return fmt.Sprintf(tracelog.GetErrorFormatter(), err.error)
}

type CacheAbortedError struct {
	error
}

func NewCacheAbortedError(operation string) CacheAbortedError {
	return CacheAbortedError{errors.Errorf("%v failed because of early abort", operation)}
}

func (err CacheAbortedError) Error() string {
	return fmt.Sprintf(tracelog.GetErrorFormatter(), err.error)
}

// BufferCache is a bounded pool of reusable byte buffers backing reads of
// large command payloads. Checkout blocks while every buffer is in flight,
// which is the natural backpressure against a reader racing ahead of the
// consumers. Buffers hand out their contents exactly once: each handle
// tracks a read cursor and refuses to re-read drained bytes.
type BufferCache struct {
	mu         sync.Mutex
	returned   *sync.Cond
	free       [][]byte
	allocated  int
	poolSize   int
	bufferSize int
	// Zero means block indefinitely; otherwise a checkout that waits
	// longer fails with PoolExhaustedError.
	checkoutTimeout time.Duration
	aborted         bool
	checkedOut      int
}

func NewBufferCache(bufferSize int, poolSize int, checkoutTimeout time.Duration) *BufferCache {
	cache := &BufferCache{
		poolSize:        poolSize,
		bufferSize:      bufferSize,
		checkoutTimeout: checkoutTimeout,
	}
	cache.returned = sync.NewCond(&cache.mu)
	return cache
}

// BufferSize is the fixed capacity of each pooled buffer.
func (cache *BufferCache) BufferSize() int { return cache.bufferSize }

// CheckedOut reports the number of buffers currently in flight.
func (cache *BufferCache) CheckedOut() int {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return cache.checkedOut
}

// Checkout leases a buffer able to hold at least minSize bytes, blocking
// while the pool is fully checked out. Buffers are allocated lazily up to
// the pool cap.
func (cache *BufferCache) Checkout(minSize int) (*Buffer, error) {
	if minSize > cache.bufferSize {
		return nil, NewBufferTooLargeError(minSize, cache.bufferSize)
	}
	cache.mu.Lock()
	defer cache.mu.Unlock()

	var timer *time.Timer
	timedOut := false
	if cache.checkoutTimeout > 0 {
		timer = time.AfterFunc(cache.checkoutTimeout, func() {
			cache.mu.Lock()
			timedOut = true
			cache.mu.Unlock()
			cache.returned.Broadcast()
		})
		defer timer.Stop()
	}

	for len(cache.free) == 0 && cache.allocated == cache.poolSize && !cache.aborted && !timedOut {
		cache.returned.Wait()
	}
	if cache.aborted {
		return nil, NewCacheAbortedError("checkout")
	}
	if len(cache.free) == 0 && cache.allocated == cache.poolSize {
		return nil, NewPoolExhaustedError(cache.poolSize, cache.checkoutTimeout)
	}

	var data []byte
	if len(cache.free) > 0 {
		data = cache.free[len(cache.free)-1]
		cache.free = cache.free[:len(cache.free)-1]
	} else {
		data = make([]byte, cache.bufferSize)
		cache.allocated++
	}
	cache.checkedOut++
	return &Buffer{cache: cache, data: data}, nil
}

// Halt wakes every blocked checkout with an abort error.
func (cache *BufferCache) Halt() {
	cache.mu.Lock()
	cache.aborted = true
	cache.mu.Unlock()
	cache.returned.Broadcast()
}

func (cache *BufferCache) release(data []byte) {
	cache.mu.Lock()
	cache.free = append(cache.free, data)
	cache.checkedOut--
	cache.mu.Unlock()
	// Broadcast rather than signal: a waiter that timed out may swallow a
	// single wakeup without taking the buffer.
	cache.returned.Broadcast()
}

// Buffer is a leased read-once buffer. It is owned by exactly one goroutine
// at a time and is never mutated concurrently.
type Buffer struct {
	cache    *BufferCache
	data     []byte
	length   int
	cursor   int
	released bool
}

// Storage exposes the first n bytes of the pooled storage for direct filling
// and marks them as the buffer contents, resetting the read cursor. The
// slice is only valid until Release.
func (buffer *Buffer) Storage(n int) ([]byte, error) {
	if n > len(buffer.data) {
		return nil, NewBufferTooLargeError(n, len(buffer.data))
	}
	buffer.length = n
	buffer.cursor = 0
	return buffer.data[:n], nil
}

// Len reports the filled length of the buffer.
func (buffer *Buffer) Len() int { return buffer.length }

// Remaining reports how many filled bytes have not been consumed yet.
func (buffer *Buffer) Remaining() int { return buffer.length - buffer.cursor }

// Consume hands out the next n filled bytes exactly once. The returned slice
// aliases the pooled storage and is only valid until Release.
func (buffer *Buffer) Consume(n int) ([]byte, error) {
	if n > buffer.Remaining() {
		return nil, NewReadPastEndError(n, buffer.Remaining())
	}
	view := buffer.data[buffer.cursor : buffer.cursor+n]
	buffer.cursor += n
	return view, nil
}

// Release truncates the buffer and returns it to the pool. Stale contents
// never leak into the next lease because the filled length is reset and
// subsequent fills overwrite before exposing bytes.
func (buffer *Buffer) Release() error {
	if buffer.released {
		return errors.Errorf("double release of a read-once buffer")
	}
	buffer.released = true
	buffer.length = 0
	buffer.cursor = 0
	data := buffer.data
	buffer.data = nil
	buffer.cache.release(data)
	return nil
}
