package idt

import (
	"github.com/nielsdos/wask/kernel"
	"github.com/nielsdos/wask/kernel/cpu"
	"github.com/nielsdos/wask/kernel/irq"
	"github.com/nielsdos/wask/kernel/kfmt"
)

var errUnhandledException = kernel.New("idt", "unhandled exception")

// namedExceptions pairs every vector that has an architectural name with
// the string used in its diagnostic dump. Vectors carrying a plain error
// code are listed in irq.HasErrorCode and print that code; the rest
// print only the frame and registers.
var namedExceptions = []struct {
	num  irq.ExceptionNum
	name string
}{
	{irq.DivideByZero, "divide by zero"},
	{irq.Debug, "debug"},
	{irq.NMI, "non-maskable interrupt"},
	{irq.Breakpoint, "breakpoint"},
	{irq.Overflow, "overflow"},
	{irq.BoundRangeExceeded, "bound range exceeded"},
	{irq.InvalidOpcode, "invalid opcode"},
	{irq.DeviceNotAvailable, "device not available"},
	{irq.DoubleFault, "double fault"},
	{irq.InvalidTSS, "invalid TSS"},
	{irq.SegmentNotPresent, "segment not present"},
	{irq.StackSegmentFault, "stack segment fault"},
	{irq.GPFException, "general protection fault"},
	{irq.FloatingPointException, "x87 floating point exception"},
	{irq.AlignmentCheck, "alignment check"},
	{irq.MachineCheck, "machine check"},
	{irq.SIMDFloatingPointException, "SIMD floating point exception"},
	{irq.Virtualization, "virtualization exception"},
}

// registerNamedHandlers installs the default panic-with-diagnostic
// behavior for every exception vector. #UD and #GP additionally
// disassemble the faulting instruction via x86asm.
func registerNamedHandlers() {
	for _, e := range namedExceptions {
		name := e.name
		if irq.HasErrorCode(e.num) {
			irq.HandleExceptionWithCode(e.num, func(errCode uint64, frame *irq.Frame, regs *irq.Regs) {
				panicWithDiagnostic(name, errCode, true, frame, regs)
			})
		} else {
			irq.HandleException(e.num, func(frame *irq.Frame, regs *irq.Regs) {
				panicWithDiagnostic(name, 0, false, frame, regs)
			})
		}
	}

	irq.HandleException(irq.InvalidOpcode, func(frame *irq.Frame, regs *irq.Regs) {
		disassembleFaultingInstruction(frame)
		panicWithDiagnostic("invalid opcode", 0, false, frame, regs)
	})
	irq.HandleExceptionWithCode(irq.GPFException, func(errCode uint64, frame *irq.Frame, regs *irq.Regs) {
		disassembleFaultingInstruction(frame)
		panicWithDiagnostic("general protection fault", errCode, true, frame, regs)
	})
}

func panicWithDiagnostic(name string, errCode uint64, hasCode bool, frame *irq.Frame, regs *irq.Regs) {
	kfmt.Printf("\nexception: %s\n", name)
	if hasCode {
		kfmt.Printf("error code: %x\n", errCode)
	}
	regs.Print()
	frame.Print()
	kfmt.Panic(errUnhandledException)
}

// pageFaultPanicHandler reports the faulting address via cpu.ReadCR2 and
// the access type encoded in the error code before panicking.
func pageFaultPanicHandler(errCode irq.PageFaultError, frame *irq.Frame, regs *irq.Regs) {
	kfmt.Printf("\nexception: page fault at %16x\n", cpu.ReadCR2())
	kfmt.Printf("present=%t write=%t user=%t reserved=%t fetch=%t\n",
		errCode.Has(irq.PageFaultPresent),
		errCode.Has(irq.PageFaultWrite),
		errCode.Has(irq.PageFaultUser),
		errCode.Has(irq.PageFaultReservedWrite),
		errCode.Has(irq.PageFaultInstructionFetch),
	)
	regs.Print()
	frame.Print()
	kfmt.Panic(errUnhandledException)
}

// irqLogHandler is the default handler bound to the shared IRQ trampoline.
// The trampoline cannot tell which of the 16 remapped lines fired (all 16
// IDT entries point at the same entry address), so irqLine is always
// reported as unknown; a real driver that needs to distinguish its line
// installs its own IRQHandler and reads the device instead.
func irqLogHandler(irqLine uint8, frame *irq.Frame, regs *irq.Regs) {
	kfmt.Printf("unhandled IRQ at %16x\n", frame.IP)
}
