// Package sched supplies the scheduler and thread-control-block pieces
// scheme IPC depends on: thread identity, the blocked-on field, the
// per-thread reply slot, and the block/wakeup discipline. Kernel threads
// are modeled as goroutines, and blocking/waking is cooperative state
// tracked on the Thread rather than a real run queue and context
// switch.
package sched

import (
	"sync/atomic"

	"github.com/nielsdos/wask/kernel/tasking/schemeid"
	"github.com/nielsdos/wask/kernel/wasi"
)

// ThreadId identifies a kernel thread.
type ThreadId uint64

var nextThreadID uint64

func newThreadID() ThreadId {
	return ThreadId(atomic.AddUint64(&nextThreadID, 1))
}

// ReplyPayloadTcb is the per-thread slot a scheme's reply is delivered
// into. status is the synchronization variable; value rides along: the
// server writes value before status, and the client reads status before
// value, so an observed status always comes with its matching value.
type ReplyPayloadTcb struct {
	status uint32
	value  uint64
}

// Store publishes a new reply. value must be written before status: the
// status store is the edge that makes the whole payload visible to a
// matching Load.
func (r *ReplyPayloadTcb) Store(status wasi.Errno, value uint64) {
	atomic.StoreUint64(&r.value, value)
	atomic.StoreUint32(&r.status, uint32(status))
}

// Load reads status before value, pairing with Store's write order.
func (r *ReplyPayloadTcb) Load() (wasi.Errno, uint64) {
	status := wasi.Errno(atomic.LoadUint32(&r.status))
	value := atomic.LoadUint64(&r.value)
	return status, value
}

// Thread is the subset of a thread control block scheme IPC depends on:
// identity, the scheme it is currently blocked on (if any), and its
// single pending-reply slot. The zero value is not usable; threads are
// created by Spawn.
type Thread struct {
	id        ThreadId
	blockedOn uint64 // schemeid.SchemeId, accessed atomically
	reply     ReplyPayloadTcb
	wake      chan struct{}
}

// ID returns the thread's identity.
func (t *Thread) ID() ThreadId {
	return t.id
}

// BlockedOn returns the scheme this thread is currently blocked on, or
// schemeid.Sentinel() if it is not blocked.
func (t *Thread) BlockedOn() schemeid.SchemeId {
	return schemeid.SchemeId(atomic.LoadUint64(&t.blockedOn))
}

// SetBlockedOn records which scheme this thread is blocked on.
func (t *Thread) SetBlockedOn(id schemeid.SchemeId) {
	atomic.StoreUint64(&t.blockedOn, uint64(id))
}

// Reply returns the thread's reply slot.
func (t *Thread) Reply() *ReplyPayloadTcb {
	return &t.reply
}

// ThreadBlockGuard marks a thread as about to block: arming it drains
// any stale wakeup, and Wait performs the actual suspension once the
// caller's non-preemptible section has ended. A wakeup arriving between
// the two simply completes Wait immediately.
type ThreadBlockGuard struct {
	t *Thread
}

// ArmBlockGuard arms a block guard for t. Call Wait after leaving the
// non-preemptible section.
func ArmBlockGuard(t *Thread) *ThreadBlockGuard {
	select {
	case <-t.wake:
	default:
	}
	return &ThreadBlockGuard{t: t}
}

// Wait blocks the calling goroutine until a matching reply (relayed
// through WakeupAndYield) wakes this thread.
func (g *ThreadBlockGuard) Wait() {
	<-g.t.wake
}
