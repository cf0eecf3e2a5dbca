//go:build amd64

package mem

const (
	// PointerShift is log2(unsafe.Sizeof(uintptr)) for this architecture.
	PointerShift = 3

	// PageShift is log2(PageSize); used to convert between addresses and
	// page/frame numbers via shifts instead of division.
	PageShift = 12

	// PageSize is the system's page size in bytes.
	PageSize = Size(1 << PageShift)
)
