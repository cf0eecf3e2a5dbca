package vmm

import (
	"testing"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/nielsdos/wask/kernel/mem"
	"github.com/nielsdos/wask/kernel/mem/pmm/allocator"
)

const testArenaSize = mem.Size(1 << 20) // 1 MiB virtual arena for tests

func newTestAllocator() *VMAAllocator {
	return NewVMAAllocator(VirtAddr(0x1000_0000), testArenaSize)
}

// newTestMapper backs the mapper's frame allocator with a real mmap'd
// anonymous region (same technique as kernel/mem/pmm/allocator's own
// tests) so Translate resolves to genuinely dereferenceable addresses
// instead of an arbitrary physical-looking number.
func newTestMapper(t *testing.T) *PageTableMapper {
	t.Helper()

	size := int(testArenaSize)
	region, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		t.Fatalf("mmap: %v", err)
	}
	t.Cleanup(func() { unix.Munmap(region) })

	base := uintptr(unsafe.Pointer(&region[0]))
	pool := allocator.NewPool(base, testArenaSize)
	return NewPageTableMapper(pool)
}

func TestAllocReleaseRoundTrip(t *testing.T) {
	a := newTestAllocator()

	vma, err := CreateVma(a, mem.PageSize)
	if err != nil {
		t.Fatalf("CreateVma: %v", err)
	}
	start := vma.Address()
	vma.Close()

	vma2, err := CreateVma(a, mem.PageSize)
	if err != nil {
		t.Fatalf("CreateVma after release: %v", err)
	}
	defer vma2.Close()

	if vma2.Address() != start {
		t.Fatalf("first-fit over a single free pool should return the same start, got %#x want %#x", vma2.Address(), start)
	}
}

func TestMapUnmapRoundTrip(t *testing.T) {
	a := newTestAllocator()
	m := newTestMapper(t)

	vma, err := CreateVma(a, 2*mem.PageSize)
	if err != nil {
		t.Fatalf("CreateVma: %v", err)
	}

	mapped, err := vma.Map(m, 0, mem.PageSize, FlagPresent|FlagWritable)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}

	phys, ok := m.Translate(mapped.Address())
	if !ok {
		t.Fatalf("expected mapped address to translate")
	}

	ptr := (*byte)(unsafe.Pointer(phys))
	*ptr = 42
	if got := *ptr; got != 42 {
		t.Fatalf("read back %d, want 42", got)
	}

	start := mapped.Address()
	mapped.Close()

	if _, ok := m.Translate(start); ok {
		t.Fatalf("expected translate to report unmapped after Close")
	}
}

func TestMapOutOfRange(t *testing.T) {
	a := newTestAllocator()
	m := newTestMapper(t)

	vma, err := CreateVma(a, mem.PageSize)
	if err != nil {
		t.Fatalf("CreateVma: %v", err)
	}
	defer vma.Close()

	if _, err := vma.Map(m, 0, 2*mem.PageSize, FlagPresent); err != ErrInvalidRange {
		t.Fatalf("Map with oversized range = %v, want ErrInvalidRange", err)
	}
}

func TestLazyMap(t *testing.T) {
	a := newTestAllocator()
	m := newTestMapper(t)

	vma, err := CreateVma(a, 2*mem.PageSize)
	if err != nil {
		t.Fatalf("CreateVma: %v", err)
	}

	lazy := vma.MapLazily(m, FlagPresent|FlagWritable)
	if got := lazy.Size(); got != 0 {
		t.Fatalf("freshly lazily mapped Vma should report size 0, got %d", got)
	}

	if err := lazy.Grow(); err != nil {
		t.Fatalf("Grow: %v", err)
	}
	if got := lazy.Size(); got != mem.PageSize {
		t.Fatalf("after one Grow, size should be one page, got %d", got)
	}
	if _, ok := m.Translate(lazy.Address()); !ok {
		t.Fatalf("expected the faulted-in page to be mapped")
	}

	lazy.Close()
}

// TestLazyMapGrowBeyondReservation ensures Grow refuses to exceed the
// original reservation.
func TestLazyMapGrowBeyondReservation(t *testing.T) {
	a := newTestAllocator()
	m := newTestMapper(t)

	vma, err := CreateVma(a, mem.PageSize)
	if err != nil {
		t.Fatalf("CreateVma: %v", err)
	}

	lazy := vma.MapLazily(m, FlagPresent)
	if err := lazy.Grow(); err != nil {
		t.Fatalf("first Grow: %v", err)
	}
	if err := lazy.Grow(); err != ErrInvalidRange {
		t.Fatalf("Grow beyond reservation = %v, want ErrInvalidRange", err)
	}
	lazy.Close()
}

// TestVmaDisjointness checks that two live regions carved from the same
// allocator never overlap.
func TestVmaDisjointness(t *testing.T) {
	a := newTestAllocator()

	first, err := CreateVma(a, mem.PageSize)
	if err != nil {
		t.Fatalf("CreateVma: %v", err)
	}
	defer first.Close()

	second, err := CreateVma(a, mem.PageSize)
	if err != nil {
		t.Fatalf("CreateVma: %v", err)
	}
	defer second.Close()

	if first.Address() == second.Address() {
		t.Fatalf("two live VMAs must not share a start address")
	}
	firstEnd := uintptr(first.Address()) + uintptr(first.Size())
	if firstEnd > uintptr(second.Address()) && uintptr(second.Address())+uintptr(second.Size()) > uintptr(first.Address()) {
		t.Fatalf("live VMAs overlap: [%#x,+%#x) and [%#x,+%#x)", first.Address(), first.Size(), second.Address(), second.Size())
	}
}
