// Package file implements the client-facing FileHandle value and the
// FileDescriptor that resolves it back to a scheme.
package file

import "github.com/nielsdos/wask/kernel/tasking/schemeid"

// FileHandle identifies a scheme-opened resource from the client's
// perspective. Own designates the scheme's own control channel (the
// server-side endpoint); Inner is an opaque value chosen by the scheme
// owner.
type FileHandle struct {
	own   bool
	inner uint64
}

// OwnHandle is the distinguished handle meaning "the scheme control
// channel itself".
var OwnHandle = FileHandle{own: true}

// InnerHandle wraps an opaque scheme-assigned value.
func InnerHandle(v uint64) FileHandle {
	return FileHandle{inner: v}
}

// IsOwn reports whether h is the scheme's own control-channel handle.
func (h FileHandle) IsOwn() bool {
	return h.own
}

// Value returns the opaque inner value. Only meaningful when !h.IsOwn().
func (h FileHandle) Value() uint64 {
	return h.inner
}

// SchemeRef is the narrow view of kernel/tasking/scheme.Scheme that this
// package needs. file depends only on this interface, not the concrete
// scheme package, because scheme.Scheme needs FileHandle (for
// CommandData's Read variant) and a direct two-way type dependency would
// form an import cycle.
type SchemeRef interface {
	ID() schemeid.SchemeId
}

// resolveFn resolves a SchemeId back to its live Scheme, if one is still
// registered. Set by kernel/tasking/scheme's init via SetSchemeResolver.
var resolveFn func(schemeid.SchemeId) (SchemeRef, bool)

// SetSchemeResolver registers the function used to resolve a weak
// SchemeId reference back to a live Scheme.
func SetSchemeResolver(f func(schemeid.SchemeId) (SchemeRef, bool)) {
	resolveFn = f
}

// FileDescriptor is a server- or client-held handle to a scheme. The
// scheme's own server-side descriptor holds a strong reference (owned)
// so the scheme outlives every client; every other
// descriptor holds only the scheme's SchemeId and re-resolves it through
// the package-level registry on each use, so closing a client descriptor
// never extends the scheme's lifetime.
type FileDescriptor struct {
	owned    SchemeRef
	schemeID schemeid.SchemeId
	handle   FileHandle
}

// NewOwned creates the scheme's own control-channel descriptor, holding a
// strong reference to scheme for as long as the descriptor itself lives.
func NewOwned(scheme SchemeRef) *FileDescriptor {
	return &FileDescriptor{owned: scheme, schemeID: scheme.ID(), handle: OwnHandle}
}

// NewWeak creates a client descriptor that only weakly references the
// scheme identified by id.
func NewWeak(id schemeid.SchemeId, handle FileHandle) *FileDescriptor {
	return &FileDescriptor{schemeID: id, handle: handle}
}

// Handle returns the descriptor's FileHandle.
func (d *FileDescriptor) Handle() FileHandle {
	return d.handle
}

// Scheme resolves the descriptor's target scheme. ok is false if this is
// a weak descriptor and the scheme has since been closed.
func (d *FileDescriptor) Scheme() (ref SchemeRef, ok bool) {
	if d.owned != nil {
		return d.owned, true
	}
	if resolveFn == nil {
		return nil, false
	}
	return resolveFn(d.schemeID)
}
