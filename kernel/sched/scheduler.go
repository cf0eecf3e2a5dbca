package sched

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/nielsdos/wask/kernel/tasking/schemeid"
)

// Scheduler tracks the live set of kernel threads so scheme IPC can
// look up a reply's target by ThreadId.
type Scheduler struct {
	mu      sync.Mutex
	threads map[ThreadId]*Thread
}

// NewScheduler creates an empty Scheduler. Production code uses the
// package-level default instance (Spawn, WithThread, WakeupAndYield);
// tests that need isolation from other tests' threads can create their
// own.
func NewScheduler() *Scheduler {
	return &Scheduler{threads: make(map[ThreadId]*Thread)}
}

// Spawn creates a new Thread, registers it with s, and runs fn on a new
// goroutine with that Thread, deregistering it once fn returns. Kernel
// threads map one-to-one onto goroutines.
func (s *Scheduler) Spawn(fn func(t *Thread)) ThreadId {
	t := &Thread{
		id:        newThreadID(),
		blockedOn: uint64(schemeid.Sentinel()),
		wake:      make(chan struct{}, 1),
	}

	s.mu.Lock()
	s.threads[t.id] = t
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.threads, t.id)
			s.mu.Unlock()
		}()
		fn(t)
	}()

	return t.id
}

// WithThread looks up id under the scheduler lock and, if found, invokes
// f with its Thread and returns f's result. Returns false when no live
// thread has that id.
func (s *Scheduler) WithThread(id ThreadId, f func(t *Thread) bool) bool {
	s.mu.Lock()
	t, ok := s.threads[id]
	s.mu.Unlock()
	if !ok {
		return false
	}
	return f(t)
}

// WakeupAndYield moves the target thread back onto the run queue and
// voluntarily yields so it can run if eligible. Must not be called with
// the scheduler lock held; the lookup below releases the lock before
// signalling.
func (s *Scheduler) WakeupAndYield(id ThreadId) {
	s.mu.Lock()
	t, ok := s.threads[id]
	s.mu.Unlock()
	if !ok {
		return
	}

	select {
	case t.wake <- struct{}{}:
	default:
	}
	runtime.Gosched()
}

// preemptDepth is bookkeeping, not real preemption control: Go exposes
// no API to disable preemption for the calling goroutine.
// PreemptDisable/PreemptEnable keep the shape of the non-preemptible
// sections visible to callers and tests without changing scheduling
// behavior.
var preemptDepth int32

// PreemptDisable marks entry into a non-preemptible section.
func PreemptDisable() {
	atomic.AddInt32(&preemptDepth, 1)
}

// PreemptEnable marks exit from a non-preemptible section.
func PreemptEnable() {
	atomic.AddInt32(&preemptDepth, -1)
}

// defaultScheduler is the package-level instance production code uses,
// the same singleton-behind-accessors shape as kernel/mem/vmm's
// allocator.
var defaultScheduler = NewScheduler()

// Spawn creates a thread on the default scheduler.
func Spawn(fn func(t *Thread)) ThreadId {
	return defaultScheduler.Spawn(fn)
}

// WithThread looks up a thread on the default scheduler.
func WithThread(id ThreadId, f func(t *Thread) bool) bool {
	return defaultScheduler.WithThread(id, f)
}

// WakeupAndYield wakes a thread registered on the default scheduler.
func WakeupAndYield(id ThreadId) {
	defaultScheduler.WakeupAndYield(id)
}
