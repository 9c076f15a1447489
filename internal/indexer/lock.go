package indexer

import (
	"errors"
	"sync/atomic"
)

// ErrIndexingInProgress is returned when an index pass or clear is already running
var ErrIndexingInProgress = errors.New("indexing already in progress for this workspace")

// IndexLock is a non-blocking mutex guarding index builds of one controller.
// A second caller is rejected instead of queued.
type IndexLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire takes the lock if it is free and reports whether it did
func (l *IndexLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release frees the lock.
// Must only be called by the goroutine that successfully acquired the lock.
func (l *IndexLock) Release() {
	l.state.Store(0)
}

// Held reports whether a pass currently owns the lock
func (l *IndexLock) Held() bool {
	return l.state.Load() == 1
}

// acquire returns the release func, or ErrIndexingInProgress when busy
func (l *IndexLock) acquire() (func(), error) {
	if !l.TryAcquire() {
		return nil, ErrIndexingInProgress
	}
	return l.Release, nil
}
