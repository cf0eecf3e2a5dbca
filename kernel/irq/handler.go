package irq

// ExceptionNum identifies one of the 32 architectural x86_64 exception
// vectors.
type ExceptionNum uint8

// Architectural exception vectors. Vectors not listed here (9, 15, 21-31)
// have no dedicated name; kernel/idt wires them all to a shared "unknown
// exception" trampoline instead.
const (
	DivideByZero               = ExceptionNum(0)
	Debug                      = ExceptionNum(1)
	NMI                        = ExceptionNum(2)
	Breakpoint                 = ExceptionNum(3)
	Overflow                   = ExceptionNum(4)
	BoundRangeExceeded         = ExceptionNum(5)
	InvalidOpcode              = ExceptionNum(6)
	DeviceNotAvailable         = ExceptionNum(7)
	DoubleFault                = ExceptionNum(8)
	InvalidTSS                 = ExceptionNum(10)
	SegmentNotPresent          = ExceptionNum(11)
	StackSegmentFault          = ExceptionNum(12)
	GPFException               = ExceptionNum(13)
	PageFaultException         = ExceptionNum(14)
	FloatingPointException     = ExceptionNum(16)
	AlignmentCheck             = ExceptionNum(17)
	MachineCheck               = ExceptionNum(18)
	SIMDFloatingPointException = ExceptionNum(19)
	Virtualization             = ExceptionNum(20)
)

// errorCodeVectors lists the exception vectors (8, 10-13, 17) for which
// the CPU pushes an error code onto the stack before the frame. Vector 14
// also pushes a code but uses the PageFaultError bit layout instead of a
// bare uint64.
var errorCodeVectors = map[ExceptionNum]bool{
	DoubleFault:       true,
	InvalidTSS:        true,
	SegmentNotPresent: true,
	StackSegmentFault: true,
	GPFException:      true,
	AlignmentCheck:    true,
}

// HasErrorCode reports whether the CPU pushes a plain error code for this
// vector (not counting the page-fault vector, which has its own typed
// handler registration).
func HasErrorCode(n ExceptionNum) bool {
	return errorCodeVectors[n]
}

// PageFaultError is the bit layout of the error code the CPU pushes for a
// #PF (vector 14).
type PageFaultError uint64

const (
	// PageFaultPresent is set if the fault was caused by a page-protection
	// violation; clear if caused by a not-present page.
	PageFaultPresent PageFaultError = 1 << 0
	// PageFaultWrite is set if the access that caused the fault was a write.
	PageFaultWrite PageFaultError = 1 << 1
	// PageFaultUser is set if the fault occurred in user mode.
	PageFaultUser PageFaultError = 1 << 2
	// PageFaultReservedWrite is set if a reserved page-table bit was set.
	PageFaultReservedWrite PageFaultError = 1 << 3
	// PageFaultInstructionFetch is set if the fault occurred fetching an
	// instruction (requires NX support).
	PageFaultInstructionFetch PageFaultError = 1 << 4
)

// Has reports whether all bits in flags are set.
func (e PageFaultError) Has(flags PageFaultError) bool {
	return e&flags == flags
}

// ExceptionHandler handles an exception that pushes no error code.
type ExceptionHandler func(frame *Frame, regs *Regs)

// ExceptionHandlerWithCode handles an exception that pushes a plain
// uint64 error code (selector index, etc).
type ExceptionHandlerWithCode func(errCode uint64, frame *Frame, regs *Regs)

// PageFaultHandler handles the page-fault vector, whose error code is the
// PageFaultError bit layout rather than a bare uint64.
type PageFaultHandler func(errCode PageFaultError, frame *Frame, regs *Regs)

// IRQHandler handles one of the 16 remapped hardware IRQ vectors
// (32-47).
type IRQHandler func(irqLine uint8, frame *Frame, regs *Regs)

var (
	exceptionHandlers         = make(map[ExceptionNum]ExceptionHandler)
	exceptionHandlersWithCode = make(map[ExceptionNum]ExceptionHandlerWithCode)
	pageFaultHandlerFn        PageFaultHandler
	irqHandlerFn              IRQHandler
)

// HandleException registers a handler for an exception vector that does
// not carry an error code.
func HandleException(num ExceptionNum, handler ExceptionHandler) {
	exceptionHandlers[num] = handler
}

// HandleExceptionWithCode registers a handler for an exception vector
// that carries a plain error code.
func HandleExceptionWithCode(num ExceptionNum, handler ExceptionHandlerWithCode) {
	exceptionHandlersWithCode[num] = handler
}

// HandlePageFault registers the handler for vector 14.
func HandlePageFault(handler PageFaultHandler) {
	pageFaultHandlerFn = handler
}

// HandleIRQ registers the shared handler invoked for any of the 16 remapped
// hardware interrupt lines.
func HandleIRQ(handler IRQHandler) {
	irqHandlerFn = handler
}

// Dispatch routes a trapped vector to its registered handler, or to this
// package's diagnostic-and-panic defaultPanicHandler if none was
// registered. It is invoked by the assembly trampolines installed via
// kernel/idt.Init and is not normally called directly.
func Dispatch(num ExceptionNum, errCode uint64, frame *Frame, regs *Regs) {
	switch {
	case num == PageFaultException:
		if pageFaultHandlerFn != nil {
			pageFaultHandlerFn(PageFaultError(errCode), frame, regs)
			return
		}
	case HasErrorCode(num):
		if h, ok := exceptionHandlersWithCode[num]; ok {
			h(errCode, frame, regs)
			return
		}
	default:
		if h, ok := exceptionHandlers[num]; ok {
			h(frame, regs)
			return
		}
	}

	defaultPanicHandler(num, errCode, frame, regs)
}

// DispatchIRQ routes a remapped hardware interrupt (vectors 32-47) to the
// registered IRQHandler, if any.
func DispatchIRQ(irqLine uint8, frame *Frame, regs *Regs) {
	if irqHandlerFn != nil {
		irqHandlerFn(irqLine, frame, regs)
	}
}
