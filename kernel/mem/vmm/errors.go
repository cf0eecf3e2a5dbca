package vmm

import "github.com/nielsdos/wask/kernel"

// Errors returned by the VMA allocator and region types.
var (
	// ErrNoMoreVMA is returned when the allocator has no free interval
	// large enough to satisfy a request.
	ErrNoMoreVMA = kernel.New("vmm", "no more virtual memory areas")

	// ErrInvalidRange is returned by Vma.Map when the requested
	// [off, off+mapSize) sub-range does not fit inside the reservation.
	ErrInvalidRange = kernel.New("vmm", "mapping range falls outside the reservation")
)
