// Process-wide reader/writer lock shared by every guarded File.
//
// The lock is created on first use and lives until the process exits.
// Holders receive a release function instead of calling Unlock directly;
// deferring it releases the hold on every return path, panics included.
package guardfile

import (
	"sync"
	"sync/atomic"
)

// LockMode selects shared (read) or exclusive (write) locking.
type LockMode int

const (
	LockNone LockMode = iota
	LockShared
	LockExclusive
)

func (m LockMode) String() string {
	switch m {
	case LockNone:
		return "none"
	case LockShared:
		return "shared"
	case LockExclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}

// DiskLock coordinates disk-affecting calls across goroutines. The counters
// are bookkeeping for Mode and Readers; mu alone decides who may proceed.
type DiskLock struct {
	mu        sync.RWMutex
	readers   atomic.Int64
	exclusive atomic.Bool
}

var globalDiskLock = sync.OnceValue(func() *DiskLock {
	return &DiskLock{}
})

// GlobalDiskLock returns the process-wide lock, creating it on first call.
func GlobalDiskLock() *DiskLock {
	return globalDiskLock()
}

// Shared blocks until a shared hold is granted and returns its release
// function. Any number of shared holds may coexist.
func (l *DiskLock) Shared() (release func()) {
	l.mu.RLock()
	l.readers.Add(1)
	return sync.OnceFunc(func() {
		l.readers.Add(-1)
		l.mu.RUnlock()
	})
}

// Exclusive blocks until no other hold exists and returns its release
// function.
func (l *DiskLock) Exclusive() (release func()) {
	l.mu.Lock()
	l.exclusive.Store(true)
	return sync.OnceFunc(func() {
		l.exclusive.Store(false)
		l.mu.Unlock()
	})
}

// Acquire takes the lock in the given mode. LockNone returns a no-op
// release without touching the lock.
func (l *DiskLock) Acquire(mode LockMode) (release func()) {
	switch mode {
	case LockShared:
		return l.Shared()
	case LockExclusive:
		return l.Exclusive()
	default:
		return func() {}
	}
}

// Mode reports the current hold. The answer may be stale by the time the
// caller looks at it.
func (l *DiskLock) Mode() LockMode {
	if l.exclusive.Load() {
		return LockExclusive
	}
	if l.readers.Load() > 0 {
		return LockShared
	}
	return LockNone
}

// Readers returns the number of shared holds currently granted.
func (l *DiskLock) Readers() int {
	return int(l.readers.Load())
}
