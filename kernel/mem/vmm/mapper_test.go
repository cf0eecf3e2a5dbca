package vmm

import (
	"testing"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/nielsdos/wask/kernel"
	"github.com/nielsdos/wask/kernel/mem"
	"github.com/nielsdos/wask/kernel/mem/pmm"
)

// exhaustibleFrames lets tests force AllocFrame to fail after a fixed
// number of successful allocations, to exercise MapRange's rollback path.
type exhaustibleFrames struct {
	remaining int
	next      pmm.Frame
	freed     []pmm.Frame
}

var errExhausted = kernel.New("test", "out of frames")

func (f *exhaustibleFrames) AllocFrame() (pmm.Frame, *kernel.Error) {
	if f.remaining <= 0 {
		return pmm.InvalidFrame, errExhausted
	}
	f.remaining--
	f.next++
	return f.next, nil
}

func (f *exhaustibleFrames) FreeFrame(frame pmm.Frame) {
	f.freed = append(f.freed, frame)
}

func TestPageTableMapperTranslateUnmapped(t *testing.T) {
	m := NewPageTableMapper(&exhaustibleFrames{remaining: 4})
	if _, ok := m.Translate(VirtAddr(0x2000)); ok {
		t.Fatalf("expected an untouched address to be unmapped")
	}
}

func TestPageTableMapperMapRangeRollsBackOnFailure(t *testing.T) {
	frames := &exhaustibleFrames{remaining: 1}
	m := NewPageTableMapper(frames)

	err := m.MapRange(VirtAddr(0), 2*mem.PageSize, FlagPresent)
	if err == nil {
		t.Fatalf("expected MapRange to fail when the allocator runs out")
	}
	if len(frames.freed) != 1 {
		t.Fatalf("expected the one successfully mapped frame to be rolled back, got %d frees", len(frames.freed))
	}
	if _, ok := m.Translate(VirtAddr(0)); ok {
		t.Fatalf("page zero should be unmapped after rollback")
	}
}

func TestPageTableMapperFreeAndUnmapZeroSizeIsNoOp(t *testing.T) {
	frames := &exhaustibleFrames{remaining: 4}
	m := NewPageTableMapper(frames)
	m.FreeAndUnmapRange(VirtAddr(0), 0)
	if len(frames.freed) != 0 {
		t.Fatalf("zero-size unmap should not free any frames")
	}
}

func TestPageTableMapperTranslateOffset(t *testing.T) {
	size := int(mem.PageSize)
	region, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		t.Fatalf("mmap: %v", err)
	}
	t.Cleanup(func() { unix.Munmap(region) })

	base := uintptr(unsafe.Pointer(&region[0]))
	frames := &singleFramePool{frame: pmm.Frame(base >> mem.PageShift)}
	m := NewPageTableMapper(frames)

	if err := m.MapRange(VirtAddr(0x4000), mem.PageSize, FlagPresent|FlagWritable); err != nil {
		t.Fatalf("MapRange: %v", err)
	}

	phys, ok := m.Translate(VirtAddr(0x4000 + 16))
	if !ok {
		t.Fatalf("expected offset address within the mapped page to resolve")
	}
	if phys != base+16 {
		t.Fatalf("Translate offset = %#x, want %#x", phys, base+16)
	}
}

type singleFramePool struct {
	frame pmm.Frame
	freed bool
}

func (p *singleFramePool) AllocFrame() (pmm.Frame, *kernel.Error) {
	return p.frame, nil
}

func (p *singleFramePool) FreeFrame(pmm.Frame) {
	p.freed = true
}
