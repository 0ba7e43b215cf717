package syncstate

import (
	"testing"
	"time"
)

func TestEvent_SetClearIsSet(t *testing.T) {
	e := NewEvent()
	if e.IsSet() {
		t.Fatalf("expected a fresh event to be unset")
	}

	e.Set()
	if !e.IsSet() {
		t.Errorf("expected event to be set after Set()")
	}
	e.Set() // idempotent
	if !e.IsSet() {
		t.Errorf("expected event to remain set after a second Set()")
	}

	e.Clear()
	if e.IsSet() {
		t.Errorf("expected event to be unset after Clear()")
	}
	e.Clear() // idempotent
	if e.IsSet() {
		t.Errorf("expected event to remain unset after a second Clear()")
	}
}

func TestEvent_Wait(t *testing.T) {
	e := NewEvent()

	if e.Wait(10 * time.Millisecond) {
		t.Fatalf("expected Wait() to time out on an unset event")
	}

	e.Set()
	if !e.Wait(10 * time.Millisecond) {
		t.Errorf("expected Wait() to observe an already-set event")
	}
	if !e.Wait(0) {
		t.Errorf("expected a zero-timeout Wait() to observe an already-set event")
	}
}

func TestEvent_Wait_unblocksOnConcurrentSet(t *testing.T) {
	e := NewEvent()
	done := make(chan bool, 1)
	go func() {
		done <- e.Wait(time.Second)
	}()

	time.Sleep(10 * time.Millisecond)
	e.Set()

	select {
	case ok := <-done:
		if !ok {
			t.Errorf("expected Wait() to observe the event once Set")
		}
	case <-time.After(time.Second):
		t.Fatalf("Wait() did not unblock after Set()")
	}
}

func TestEvent_ClearThenWaitAgain(t *testing.T) {
	e := NewEvent()
	e.Set()
	e.Clear()

	done := make(chan bool, 1)
	go func() {
		done <- e.Wait(time.Second)
	}()
	time.Sleep(10 * time.Millisecond)
	e.Set()

	select {
	case ok := <-done:
		if !ok {
			t.Errorf("expected Wait() to observe the re-armed event")
		}
	case <-time.After(time.Second):
		t.Fatalf("Wait() did not unblock after re-arming and Set()")
	}
}

func TestSyncState_New(t *testing.T) {
	s := New()
	for name, ev := range map[string]*Event{
		"ShuttingDown":    s.ShuttingDown,
		"Fetch":           s.Fetch,
		"Idle":            s.Idle,
		"Syncing":         s.Syncing,
		"SyncDone":        s.SyncDone,
		"FetchSuccessful": s.FetchSuccessful,
		"PushSuccessful":  s.PushSuccessful,
	} {
		if ev == nil {
			t.Fatalf("expected %s to be initialized", name)
		}
		if ev.IsSet() {
			t.Errorf("expected %s to start cleared", name)
		}
	}
	if !s.WritersZero() {
		t.Errorf("expected a fresh SyncState to report zero writers")
	}
}

func TestSyncState_Writers(t *testing.T) {
	s := New()

	if got := s.IncWriters(); got != 1 {
		t.Errorf("IncWriters() = %d, want 1", got)
	}
	if got := s.IncWriters(); got != 2 {
		t.Errorf("IncWriters() = %d, want 2", got)
	}
	if s.WritersZero() {
		t.Errorf("expected WritersZero() to be false with 2 active writers")
	}
	if got := s.Writers(); got != 2 {
		t.Errorf("Writers() = %d, want 2", got)
	}

	if got := s.DecWriters(); got != 1 {
		t.Errorf("DecWriters() = %d, want 1", got)
	}
	if got := s.DecWriters(); got != 0 {
		t.Errorf("DecWriters() = %d, want 0", got)
	}
	if !s.WritersZero() {
		t.Errorf("expected WritersZero() to be true once every writer released")
	}
}
