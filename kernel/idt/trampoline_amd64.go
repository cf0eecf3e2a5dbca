package idt

import (
	"unsafe"

	"github.com/nielsdos/wask/kernel/irq"
)

// addressOf returns the linear address backing p, for embedding in the
// IDTR or an IDT entry.
func addressOf(p unsafe.Pointer) uintptr {
	return uintptr(p)
}

// sharedIRQVector is the vecNum value irqEntry's stub pushes. It marks
// the call as coming from one of the 16 remapped IRQ lines, none of
// which dispatchFromTrampoline can tell apart: every IDT slot 32-47
// points at the identical entry address, so nothing on the stack
// distinguishes one line from another. excUnknownEntry pushes
// reservedExceptionVector instead, which falls through irq.Dispatch to
// its unregistered-vector fallback.
const (
	sharedIRQVector         = 0xFF
	reservedExceptionVector = 0xFE
	unknownIRQLine          = 0xFF
)

// Each excXxxEntry/irqEntry/excUnknownEntry function below is a raw ISR
// entry point: the CPU jumps here directly, so it has no Go stack frame
// of its own. The assembly body saves the register snapshot, builds the
// Frame/Regs pair from what the CPU and the stub itself pushed, and
// calls dispatchFromTrampoline before IRETQ. Bodies live in
// trampoline_amd64.s, following the cpu package's declare-in-Go /
// implement-in-assembly split.
func excCommonStub()
func excDivideByZeroEntry()
func excDebugEntry()
func excNMIEntry()
func excBreakpointEntry()
func excOverflowEntry()
func excBoundRangeEntry()
func excInvalidOpcodeEntry()
func excDeviceNotAvailEntry()
func excDoubleFaultEntry()
func excInvalidTSSEntry()
func excSegNotPresentEntry()
func excStackSegEntry()
func excGPFEntry()
func excPageFaultEntry()
func excFPEntry()
func excAlignmentEntry()
func excMachineCheckEntry()
func excSIMDFPEntry()
func excVirtualizationEntry()
func excUnknownEntry()
func irqEntry()

// dispatchFromTrampoline is the single Go-side landing pad every
// trampoline stub calls into. It reassembles the CPU-pushed frame and
// the saved register snapshot into irq.Frame/irq.Regs and hands off to
// irq.Dispatch or irq.DispatchIRQ.
//
//go:nosplit
func dispatchFromTrampoline(vecNum uint8, errCode uint64, framePtr, regsPtr uintptr) {
	frame := (*irq.Frame)(unsafe.Pointer(framePtr))
	regs := (*irq.Regs)(unsafe.Pointer(regsPtr))

	if vecNum == sharedIRQVector {
		irq.DispatchIRQ(unknownIRQLine, frame, regs)
		return
	}
	irq.Dispatch(irq.ExceptionNum(vecNum), errCode, frame, regs)
}

// addressOfFn returns the entry point address of one of the trampoline
// functions above, for embedding in an IDT entry.
func addressOfFn(fn func()) uintptr {
	return **(**uintptr)(unsafe.Pointer(&fn))
}

// unsafeBytesAt reinterprets n bytes of linear memory starting at addr
// as a byte slice, for the #UD/#GP diagnostic disassembler. There is no
// bounds check: by the time this runs, the CPU has already faulted on
// this address, so it is known mapped and executable.
func unsafeBytesAt(addr uint64, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), n)
}
