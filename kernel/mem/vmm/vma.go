package vmm

import (
	"github.com/nielsdos/wask/kernel"
	"github.com/nielsdos/wask/kernel/mem"
)

// Vma is an exclusively-owned, page-aligned virtual address reservation.
// Cleanup is an explicit, idempotent Close in the io.Closer idiom.
//
// Every terminal operation (Map, MapLazily) consumes the Vma by copying
// its fields into the returned wrapper and marking the original
// consumed, so at most one value ever owns the reservation and only one
// Close call can ever return it to the allocator.
type Vma struct {
	allocator *VMAAllocator
	start     VirtAddr
	size      mem.Size
	consumed  bool
}

// CreateVma acquires size bytes from allocator and returns a
// reservation. size must be a positive multiple of the page size.
func CreateVma(allocator *VMAAllocator, size mem.Size) (*Vma, *kernel.Error) {
	var (
		start VirtAddr
		ok    bool
	)
	WithVMAAllocator(allocator, func(a *VMAAllocator) {
		start, ok = a.allocRegion(size)
	})
	if !ok {
		return nil, ErrNoMoreVMA
	}
	return &Vma{allocator: allocator, start: start, size: size}, nil
}

// Address returns the reservation's starting address.
func (v *Vma) Address() VirtAddr {
	return v.start
}

// Size returns the reservation's length in bytes.
func (v *Vma) Size() mem.Size {
	return v.size
}

// Close returns the reservation's interval to the allocator if it has
// not already been consumed by Map/MapLazily or a previous Close call.
func (v *Vma) Close() {
	if v.consumed || v.start.IsNull() {
		return
	}
	v.consumed = true
	WithVMAAllocator(v.allocator, func(a *VMAAllocator) {
		a.insertRegion(v.start, v.size)
	})
}

// Map converts v into an eagerly mapped region. off and mapSize must be
// page-size multiples with off+mapSize <= v.Size(), else
// ErrInvalidRange. On success v is consumed: its own Close becomes a
// no-op and the returned MappedVma owns the reservation.
func (v *Vma) Map(mapper MemoryMapper, off, mapSize mem.Size, flags PageTableEntryFlag) (*MappedVma, *kernel.Error) {
	if off+mapSize > v.size {
		return nil, ErrInvalidRange
	}

	if err := mapper.MapRange(v.start.Add(uintptr(off)), mapSize, flags); err != nil {
		return nil, err
	}

	inner := *v
	v.consumed = true
	return &MappedVma{vma: inner, mapper: mapper}, nil
}

// MapLazily converts v into a lazily mapped region with no pages mapped
// yet. v is consumed the same way Map consumes it.
func (v *Vma) MapLazily(mapper MemoryMapper, flags PageTableEntryFlag) *LazilyMappedVma {
	inner := *v
	v.consumed = true
	return &LazilyMappedVma{vma: inner, mapper: mapper, flags: flags}
}

// MappedVma is a Vma some sub-range of which has been committed in the
// page table.
type MappedVma struct {
	vma    Vma
	mapper MemoryMapper
}

// Address returns the reservation's starting address.
func (m *MappedVma) Address() VirtAddr {
	return m.vma.start
}

// Size returns the full reservation's length, regardless of how much of
// it was actually requested to be mapped.
func (m *MappedVma) Size() mem.Size {
	return m.vma.size
}

// Close unmaps the full reservation and returns its interval to the
// allocator. Idempotent.
func (m *MappedVma) Close() {
	if m.vma.consumed {
		return
	}
	m.mapper.FreeAndUnmapRange(m.vma.start, m.vma.size)
	m.vma.Close()
}

// LazilyMappedVma is a Vma whose pages are mapped on demand by a
// page-fault handler, one page at a time, using the recorded flags.
type LazilyMappedVma struct {
	vma        Vma
	mapper     MemoryMapper
	flags      PageTableEntryFlag
	mappedSize mem.Size
}

// Flags returns the mapping flags used for pages faulted in on demand.
func (l *LazilyMappedVma) Flags() PageTableEntryFlag {
	return l.flags
}

// Address returns the reservation's starting address.
func (l *LazilyMappedVma) Address() VirtAddr {
	return l.vma.start
}

// Size returns the number of bytes actually mapped so far, not the full
// reservation size.
func (l *LazilyMappedVma) Size() mem.Size {
	return l.mappedSize
}

// ReservedSize returns the full reservation size backing l.
func (l *LazilyMappedVma) ReservedSize() mem.Size {
	return l.vma.size
}

// Grow maps one additional page at the current end of the mapped range,
// as a page-fault handler does on demand. It returns ErrInvalidRange if
// growing would exceed the reservation.
func (l *LazilyMappedVma) Grow() *kernel.Error {
	if l.mappedSize+mem.PageSize > l.vma.size {
		return ErrInvalidRange
	}

	off := l.mappedSize
	if err := l.mapper.MapRange(l.vma.start.Add(uintptr(off)), mem.PageSize, l.flags); err != nil {
		return err
	}
	l.mappedSize += mem.PageSize
	return nil
}

// Close unmaps the currently-mapped part of the reservation and returns
// the full interval to the allocator. Only mappedSize bytes are handed
// to the mapper: pages past that point were never faulted in, and a
// zero mapped size fast-paths through FreeAndUnmapRange. Idempotent.
func (l *LazilyMappedVma) Close() {
	if l.vma.consumed {
		return
	}
	l.mapper.FreeAndUnmapRange(l.vma.start, l.mappedSize)
	l.vma.Close()
}
