package irq

import (
	"github.com/nielsdos/wask/kernel"
	"github.com/nielsdos/wask/kernel/kfmt"
)

var errUnhandledException = kernel.New("irq", "unhandled exception")

// defaultPanicHandler is the fallback invoked by Dispatch when no handler
// was registered for a vector. kernel/idt.Init registers a handler for
// every named vector, so after Init this fires for the reserved vectors
// routed through excUnknownEntry (which reports vector 0xFE) and for any
// Dispatch made before idt.Init (e.g. from a test exercising Dispatch
// directly).
func defaultPanicHandler(num ExceptionNum, errCode uint64, frame *Frame, regs *Regs) {
	kfmt.Printf("unhandled exception %d (error code %x)\n", uint8(num), errCode)
	regs.Print()
	frame.Print()
	kfmt.Panic(errUnhandledException)
}
