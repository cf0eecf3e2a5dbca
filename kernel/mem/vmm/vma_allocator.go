package vmm

import (
	"github.com/nielsdos/wask/kernel/mem"
	"github.com/nielsdos/wask/kernel/mem/vmm/tree"
	ksync "github.com/nielsdos/wask/kernel/sync"
)

// VMAAllocator owns the free-interval set for one address space. All
// operations are serialized by the embedded spinlock; the package-level
// WithVMAAllocator accessor enforces that the lock is held for exactly
// the duration of the supplied closure.
type VMAAllocator struct {
	lock ksync.Spinlock
	tree *tree.IntervalTree[uintptr]
}

// NewVMAAllocator creates an allocator managing [base, base+size) as a
// single initial free interval.
func NewVMAAllocator(base VirtAddr, size mem.Size) *VMAAllocator {
	a := &VMAAllocator{tree: tree.New[uintptr]()}
	a.tree.ReturnInterval(uintptr(base), uintptr(size))
	return a
}

// allocRegion returns the start of a free interval of at least length
// bytes, splitting it if larger. Callers must already hold the
// allocator's lock; use WithVMAAllocator or go through CreateVma.
func (a *VMAAllocator) allocRegion(length mem.Size) (VirtAddr, bool) {
	start, ok := a.tree.FindLen(uintptr(length))
	return VirtAddr(start), ok
}

// insertRegion returns [addr, addr+length) to the free set, coalescing
// with abutting neighbors. Callers must already hold the allocator's
// lock.
func (a *VMAAllocator) insertRegion(addr VirtAddr, length mem.Size) {
	a.tree.ReturnInterval(uintptr(addr), uintptr(length))
}

// WithVMAAllocator acquires a's lock, invokes f, and releases the lock
// on every exit path of f including panic unwind. This is the only way
// the allocator's free set should be mutated outside this package;
// results are communicated by closure capture so no code path can hold
// the lock longer than the closure's body.
func WithVMAAllocator(a *VMAAllocator, f func(*VMAAllocator)) {
	a.lock.WithLock(func() {
		f(a)
	})
}
