// Package kmain wires together every kernel subsystem into the single
// entry point a bootloader trampoline calls.
package kmain

import (
	"github.com/nielsdos/wask/kernel"
	"github.com/nielsdos/wask/kernel/idt"
	"github.com/nielsdos/wask/kernel/kfmt"
	"github.com/nielsdos/wask/kernel/mem"
	"github.com/nielsdos/wask/kernel/mem/pmm/allocator"
	"github.com/nielsdos/wask/kernel/mem/vmm"
)

var errKmainReturned = kernel.New("kmain", "Kmain returned")

// defaultPhysPoolSize bounds the physical frame pool carved out above
// kernelEnd. A real bootloader reports usable memory ranges via the
// multiboot memory map; until a map parser exists, Kmain hands the pool
// allocator a fixed-size region starting right after the kernel image.
const defaultPhysPoolSize = 64 * mem.Mb

// Kmain is the only Go symbol a bootloader trampoline calls. It is not
// expected to return; if it does, that is itself a fatal condition
// reported through kfmt.Panic.
//
// multibootInfoPtr carries the bootloader-reported info structure
// address. This core does not parse its memory map (see
// defaultPhysPoolSize), but the pointer is still accepted and threaded
// through so a future multiboot reader has a stable call site to attach
// to.
//
//go:noinline
func Kmain(multibootInfoPtr, kernelStart, kernelEnd uintptr) {
	_ = multibootInfoPtr

	idt.Init()

	pool := allocator.NewPool(kernelEnd, defaultPhysPoolSize)
	kfmt.Printf("pmm: pool ready, %d frames available\n", pool.Capacity())

	mapper := vmm.NewPageTableMapper(pool)
	_ = vmm.NewVMAAllocator(vmm.VirtAddr(kernelEnd), mem.Size(1)<<32)
	kfmt.Printf("vmm: allocator ready at %x\n", kernelEnd)
	_ = mapper

	kfmt.Panic(errKmainReturned)
}
