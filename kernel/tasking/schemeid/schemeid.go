// Package schemeid defines SchemeId in its own small package: both
// kernel/sched (a thread's blocked-on field) and kernel/tasking/scheme
// (a scheme's own identity, and file descriptors' weak references) need
// the type without needing each other, so it lives independently to
// avoid an import cycle.
package schemeid

import "sync/atomic"

// SchemeId identifies a Scheme. The zero value is the sentinel meaning
// "not blocked on any scheme".
type SchemeId uint64

// Sentinel is the distinguished SchemeId meaning "not blocked on any
// scheme".
func Sentinel() SchemeId {
	return SchemeId(0)
}

var counter uint64

// New allocates a fresh, never-before-issued SchemeId.
func New() SchemeId {
	return SchemeId(atomic.AddUint64(&counter, 1))
}
