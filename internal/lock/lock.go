// Package lock wraps the working-tree mutex used across gitfs.
//
// The working tree is shared mutable state: the sync worker rewrites HEAD,
// the index and refs while merging, and the current view mutates file
// content and the index on every write. Both sides take this lock so that
// a merge never runs concurrently with a write and vice versa. In debug
// builds (and in tests) go-deadlock's lock-order tracking catches the
// classic mistake of nesting router and repository locks in different
// orders from two goroutines.
package lock

import (
	"github.com/sasha-s/go-deadlock"
)

// RWMutex is a drop-in replacement for sync.RWMutex with deadlock detection.
type RWMutex = deadlock.RWMutex

// Mutex is a drop-in replacement for sync.Mutex with deadlock detection.
type Mutex = deadlock.Mutex
