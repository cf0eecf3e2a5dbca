// Package allocator implements physical frame allocators on top of the
// pmm.Frame abstraction.
//
// PoolAllocator manages a single contiguous physical pool whose base and
// size are supplied by the caller: a bump cursor tracks the next
// never-allocated frame, and a free list holds reclaimed frames so the
// VMA/page-table layer can return frames when a mapped region is
// released.
package allocator

import (
	"github.com/nielsdos/wask/kernel"
	"github.com/nielsdos/wask/kernel/mem"
	"github.com/nielsdos/wask/kernel/mem/pmm"
	ksync "github.com/nielsdos/wask/kernel/sync"
)

var errOutOfMemory = kernel.New("pmm_pool", "out of physical frames")

// PoolAllocator is a frame allocator backed by a single contiguous
// physical memory region. Frames are handed out by bumping a cursor over
// the pool; freed frames are pushed onto a free list and preferred over
// the cursor on the next allocation, so the most recently touched frame
// is reused first.
type PoolAllocator struct {
	lock ksync.Spinlock

	baseFrame  pmm.Frame
	frameCount uint64
	nextFrame  uint64
	free       []pmm.Frame
}

// NewPool creates a PoolAllocator managing size bytes of physical memory
// starting at physBase. size is rounded down to a whole number of pages.
func NewPool(physBase uintptr, size mem.Size) *PoolAllocator {
	return &PoolAllocator{
		baseFrame:  pmm.Frame(physBase >> mem.PageShift),
		frameCount: uint64(size) >> mem.PageShift,
	}
}

// AllocFrame reserves and returns the next available physical frame.
func (p *PoolAllocator) AllocFrame() (pmm.Frame, *kernel.Error) {
	var (
		frame pmm.Frame
		err   *kernel.Error
	)

	p.lock.WithLock(func() {
		if n := len(p.free); n > 0 {
			frame = p.free[n-1]
			p.free = p.free[:n-1]
			return
		}
		if p.nextFrame >= p.frameCount {
			frame, err = pmm.InvalidFrame, errOutOfMemory
			return
		}
		frame = p.baseFrame + pmm.Frame(p.nextFrame)
		p.nextFrame++
	})

	return frame, err
}

// FreeFrame returns frame to the pool so it can be reallocated.
func (p *PoolAllocator) FreeFrame(frame pmm.Frame) {
	p.lock.WithLock(func() {
		p.free = append(p.free, frame)
	})
}

// Capacity returns the total number of frames managed by the pool.
func (p *PoolAllocator) Capacity() uint64 {
	return p.frameCount
}
