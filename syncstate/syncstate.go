// Package syncstate holds the process-global coordination primitives that
// gate the router, the sync worker and the fetch worker: a set of named
// latching events, the writers counter, and the remote-operation mutex.
//
// A SyncState is created once by the mount driver and threaded by shared
// reference into the router, every view, and both background workers,
// rather than recreated per call.
package syncstate

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gitfsio/gitfs/internal/lock"
)

// Event is a latching boolean signal: once Set, it stays set until Clear is
// called. Waiters can poll it with a timeout instead of blocking forever,
// which is what lets every worker loop re-check ShuttingDown on a cadence.
type Event struct {
	mu    sync.Mutex
	ch    chan struct{}
	isSet bool
}

func NewEvent() *Event {
	return &Event{ch: make(chan struct{})}
}

// Set latches the event. Idempotent.
func (e *Event) Set() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.isSet {
		e.isSet = true
		close(e.ch)
	}
}

// Clear resets the event so a future Set can be waited on again.
func (e *Event) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.isSet {
		e.isSet = false
		e.ch = make(chan struct{})
	}
}

// IsSet reports the current state without blocking.
func (e *Event) IsSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isSet
}

// Wait blocks until the event is set or timeout elapses, returning whether
// it was observed set. A zero or negative timeout polls once.
func (e *Event) Wait(timeout time.Duration) bool {
	e.mu.Lock()
	ch := e.ch
	e.mu.Unlock()

	if timeout <= 0 {
		select {
		case <-ch:
			return true
		default:
			return false
		}
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-ch:
		return true
	case <-t.C:
		return false
	}
}

// SyncState bundles every coordination signal shared across the router,
// the views, and the background workers.
type SyncState struct {
	ShuttingDown    *Event
	Fetch           *Event
	Idle            *Event
	Syncing         *Event
	SyncDone        *Event
	FetchSuccessful *Event
	PushSuccessful  *Event

	// RemoteOperation serializes every network git call (fetch/push) so
	// at most one runs at a time across the sync and fetch workers.
	RemoteOperation lock.Mutex

	writers atomic.Int64
}

// New creates a SyncState with every event cleared and zero writers.
func New() *SyncState {
	return &SyncState{
		ShuttingDown:    NewEvent(),
		Fetch:           NewEvent(),
		Idle:            NewEvent(),
		Syncing:         NewEvent(),
		SyncDone:        NewEvent(),
		FetchSuccessful: NewEvent(),
		PushSuccessful:  NewEvent(),
	}
}

// IncWriters increments the writers counter. Called on open-for-write and create.
func (s *SyncState) IncWriters() int64 {
	return s.writers.Add(1)
}

// DecWriters decrements the writers counter. Called on release.
func (s *SyncState) DecWriters() int64 {
	return s.writers.Add(-1)
}

// Writers returns the current writers count.
func (s *SyncState) Writers() int64 {
	return s.writers.Load()
}

// WritersZero reports whether it is safe for the sync worker to commit,
// merge, or push: no file handle is mid-write.
func (s *SyncState) WritersZero() bool {
	return s.writers.Load() == 0
}
