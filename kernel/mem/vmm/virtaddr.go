// Package vmm manages the per-address-space virtual memory area
// allocator and region types, plus the software page-table mapper the
// region types commit their pages through.
package vmm

import "github.com/nielsdos/wask/kernel/mem"

// VirtAddr is a 64-bit virtual address. The zero value is the null
// sentinel used to mark an empty region.
type VirtAddr uintptr

// NullAddr is the sentinel VirtAddr denoting "no address".
const NullAddr VirtAddr = 0

// IsNull reports whether a is the null sentinel.
func (a VirtAddr) IsNull() bool {
	return a == NullAddr
}

// Add returns a+off.
func (a VirtAddr) Add(off uintptr) VirtAddr {
	return a + VirtAddr(off)
}

// PageAligned reports whether a is a multiple of the system page size.
func (a VirtAddr) PageAligned() bool {
	return uintptr(a)%uintptr(mem.PageSize) == 0
}
