package vmm

import (
	"github.com/nielsdos/wask/kernel"
	"github.com/nielsdos/wask/kernel/mem"
	"github.com/nielsdos/wask/kernel/mem/pmm"
	ksync "github.com/nielsdos/wask/kernel/sync"
)

// PageTableEntryFlag describes a flag applied to a mapped page.
type PageTableEntryFlag uintptr

// Mapping flags. The bit layout is internal to PageTableMapper; no
// hardware page-table format constrains it.
const (
	FlagPresent PageTableEntryFlag = 1 << iota
	FlagWritable
	FlagNoExecute
	FlagCopyOnWrite
)

// MemoryMapper commits and releases page mappings on behalf of the VMA
// region types. Vma, MappedVma and LazilyMappedVma are written against
// this interface so a real CR3-swapping mapper can be substituted
// without touching them.
type MemoryMapper interface {
	// MapRange installs size bytes of mapping starting at start with the
	// given flags, allocating physical frames as needed.
	MapRange(start VirtAddr, size mem.Size, flags PageTableEntryFlag) *kernel.Error
	// FreeAndUnmapRange removes any mapping covering [start, start+size)
	// and returns the backing frames. size == 0 is a no-op.
	FreeAndUnmapRange(start VirtAddr, size mem.Size)
	// Translate resolves va to a physical address, or reports ok=false if
	// va is not currently mapped.
	Translate(va VirtAddr) (phys uintptr, ok bool)
}

// FrameAllocator is the subset of pmm/allocator.PoolAllocator that
// PageTableMapper depends on.
type FrameAllocator interface {
	AllocFrame() (pmm.Frame, *kernel.Error)
	FreeFrame(pmm.Frame)
}

// pageTableEntry is one mapped page's bookkeeping record.
type pageTableEntry struct {
	frame pmm.Frame
	flags PageTableEntryFlag
}

// PageTableMapper is a single-level software page table satisfying the
// MemoryMapper contract against an in-process map rather than a real
// CR3-rooted walk. Frames are supplied by a FrameAllocator, normally
// kernel/mem/pmm/allocator.PoolAllocator.
type PageTableMapper struct {
	lock    ksync.Spinlock
	frames  FrameAllocator
	entries map[VirtAddr]pageTableEntry
}

// NewPageTableMapper creates a mapper that allocates physical frames from
// frames.
func NewPageTableMapper(frames FrameAllocator) *PageTableMapper {
	return &PageTableMapper{frames: frames, entries: make(map[VirtAddr]pageTableEntry)}
}

// MapRange implements MemoryMapper.
func (m *PageTableMapper) MapRange(start VirtAddr, size mem.Size, flags PageTableEntryFlag) *kernel.Error {
	pageCount := uintptr(size) >> mem.PageShift
	mappedPages := make([]VirtAddr, 0, pageCount)

	for i := uintptr(0); i < pageCount; i++ {
		page := start.Add(i << mem.PageShift)

		frame, err := m.frames.AllocFrame()
		if err != nil {
			m.unmapPages(mappedPages)
			return err
		}

		m.lock.WithLock(func() {
			m.entries[page] = pageTableEntry{frame: frame, flags: flags}
		})
		mappedPages = append(mappedPages, page)
	}

	return nil
}

// unmapPages rolls back a partially completed MapRange.
func (m *PageTableMapper) unmapPages(pages []VirtAddr) {
	for _, page := range pages {
		m.lock.WithLock(func() {
			if e, ok := m.entries[page]; ok {
				m.frames.FreeFrame(e.frame)
				delete(m.entries, page)
			}
		})
	}
}

// FreeAndUnmapRange implements MemoryMapper. Unmapping a page that was
// never mapped is silently tolerated, and size == 0 is a fast-path
// no-op.
func (m *PageTableMapper) FreeAndUnmapRange(start VirtAddr, size mem.Size) {
	if size == 0 {
		return
	}

	pageCount := uintptr(size) >> mem.PageShift
	for i := uintptr(0); i < pageCount; i++ {
		page := start.Add(i << mem.PageShift)
		m.lock.WithLock(func() {
			if e, ok := m.entries[page]; ok {
				m.frames.FreeFrame(e.frame)
				delete(m.entries, page)
			}
		})
	}
}

// Translate implements MemoryMapper.
func (m *PageTableMapper) Translate(va VirtAddr) (uintptr, bool) {
	pageOffset := uintptr(va) & (uintptr(mem.PageSize) - 1)
	page := VirtAddr(uintptr(va) &^ (uintptr(mem.PageSize) - 1))

	var (
		phys uintptr
		ok   bool
	)
	m.lock.WithLock(func() {
		if e, present := m.entries[page]; present {
			phys = e.frame.Address() + pageOffset
			ok = true
		}
	})
	return phys, ok
}
