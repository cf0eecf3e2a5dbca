// Package pmm manages physical memory frame allocation: the fixed-size
// physical pages that back page-table entries and VMA mappings.
package pmm

import (
	"math"

	"github.com/nielsdos/wask/kernel/mem"
)

// Frame identifies a physical memory page by index (physical address
// shifted right by mem.PageShift).
type Frame uintptr

// InvalidFrame is returned by allocators that fail to reserve a frame.
const InvalidFrame = Frame(math.MaxUint64)

// Valid reports whether f is a real allocated frame.
func (f Frame) Valid() bool {
	return f != InvalidFrame
}

// Address returns the physical address this frame points to.
func (f Frame) Address() uintptr {
	return uintptr(f) << mem.PageShift
}
