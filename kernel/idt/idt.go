// Package idt builds the interrupt descriptor table, remaps and masks the
// legacy 8259 PIC, and installs one ISR trampoline per architectural
// exception vector plus the shared IRQ trampoline. The trampoline entry
// points are declared in Go and implemented in assembly, like the
// primitives in kernel/cpu.
package idt

import (
	"encoding/binary"
	"unsafe"

	"github.com/nielsdos/wask/kernel/cpu"
	"github.com/nielsdos/wask/kernel/irq"
)

const (
	entryCount = 64
	entrySize  = 16

	// kernelCodeSelector is the GDT selector installed in every gate:
	// the ring-0 code segment.
	kernelCodeSelector = 0x08
)

// entryFlags packs the present bit and gate-type nibble of an IDT entry's
// type_attr byte.
type entryFlags uint8

const (
	flagPresent entryFlags = 1 << 7
	// flagInterruptGate clears IF on entry; used for every vector in this
	// core since none of them need to stay interruptible.
	flagInterruptGate entryFlags = 0b1110
	// flagTrapGate leaves IF untouched; unused by this core but named for
	// completeness of the gate-type nibble.
	flagTrapGate entryFlags = 0b1111
)

// entry is the 16-byte packed IDT gate descriptor. Go does not
// guarantee C-style packed struct layout, so entry is encoded
// into its on-the-wire bytes explicitly rather than relying on the
// compiler's field layout.
type entry struct {
	handler  uintptr
	present  bool
	istIndex uint8
}

func (e entry) encode(dst []byte) {
	if !e.present {
		for i := range dst[:entrySize] {
			dst[i] = 0
		}
		return
	}

	h := uint64(e.handler)
	flags := flagPresent | flagInterruptGate

	binary.LittleEndian.PutUint16(dst[0:2], uint16(h))
	binary.LittleEndian.PutUint16(dst[2:4], kernelCodeSelector)
	dst[4] = e.istIndex
	dst[5] = uint8(flags)
	binary.LittleEndian.PutUint16(dst[6:8], uint16(h>>16))
	binary.LittleEndian.PutUint32(dst[8:12], uint32(h>>32))
	binary.LittleEndian.PutUint32(dst[12:16], 0)
}

// table is the 64-entry IDT.
type table struct {
	entries [entryCount]entry
	raw     [entryCount * entrySize]byte
}

func (t *table) setHandler(n uint8, handler uintptr) {
	t.entries[n] = entry{handler: handler, present: true}
	t.entries[n].encode(t.raw[int(n)*entrySize:])
}

// limit is the IDTR limit field: table size minus one.
func (t *table) limit() uint16 {
	return uint16(entryCount*entrySize - 1)
}

// descriptor builds the packed 10-byte IDTR payload.
func (t *table) descriptor() [10]byte {
	var d [10]byte
	binary.LittleEndian.PutUint16(d[0:2], t.limit())
	binary.LittleEndian.PutUint64(d[2:10], uint64(addressOf(unsafe.Pointer(&t.raw))))
	return d
}

var idtInstance table

// exceptionVectorHandlers maps each named architectural exception to the
// trampoline entry point that services it. Vectors 9, 15, and 21-31 are
// intentionally absent here: they share excUnknownEntry, installed
// separately in Init.
var exceptionVectorHandlers = map[uint8]uintptr{
	0:  addressOfFn(excDivideByZeroEntry),
	1:  addressOfFn(excDebugEntry),
	2:  addressOfFn(excNMIEntry),
	3:  addressOfFn(excBreakpointEntry),
	4:  addressOfFn(excOverflowEntry),
	5:  addressOfFn(excBoundRangeEntry),
	6:  addressOfFn(excInvalidOpcodeEntry),
	7:  addressOfFn(excDeviceNotAvailEntry),
	8:  addressOfFn(excDoubleFaultEntry),
	10: addressOfFn(excInvalidTSSEntry),
	11: addressOfFn(excSegNotPresentEntry),
	12: addressOfFn(excStackSegEntry),
	13: addressOfFn(excGPFEntry),
	14: addressOfFn(excPageFaultEntry),
	16: addressOfFn(excFPEntry),
	17: addressOfFn(excAlignmentEntry),
	18: addressOfFn(excMachineCheckEntry),
	19: addressOfFn(excSIMDFPEntry),
	20: addressOfFn(excVirtualizationEntry),
}

// unknownVectors are the reserved/unassigned architectural vectors that
// all share the same exc_unknown trampoline.
var unknownVectors = []uint8{9, 15, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31}

// buildIDT populates the table: vectors 0-31 get one exception
// trampoline each (explicit or shared exc_unknown), 32-47 all share the
// IRQ trampoline, 48-63 stay absent.
func buildIDT(t *table) {
	for n, handler := range exceptionVectorHandlers {
		t.setHandler(n, handler)
	}
	for _, n := range unknownVectors {
		t.setHandler(n, addressOfFn(excUnknownEntry))
	}
	for n := 32; n < 48; n++ {
		t.setHandler(uint8(n), addressOfFn(irqEntry))
	}
}

var (
	lidtFn              = cpu.Lidt
	enableInterruptsFn  = cpu.EnableInterrupts
	registerIRQHandlers = registerExceptionHandlers
)

// Init builds the IDT, loads it via lidt, remaps and masks the legacy
// PIC, registers the default panic-with-diagnostic handler for every
// exception vector, and finally enables interrupts. Calling Init twice
// rebuilds the identical table and reprograms the PIC identically.
func Init() {
	buildIDT(&idtInstance)

	desc := idtInstance.descriptor()
	lidtFn(addressOf(unsafe.Pointer(&desc)))

	remapAndMaskPIC()

	registerIRQHandlers()

	enableInterruptsFn()
}

// registerExceptionHandlers wires every exception vector's Go-level
// handler to the default "panic with diagnostic" behavior. Tests may
// substitute registerIRQHandlers to avoid overwriting handlers they
// installed for their own assertions.
func registerExceptionHandlers() {
	registerNamedHandlers()
	irq.HandlePageFault(pageFaultPanicHandler)
	irq.HandleIRQ(irqLogHandler)
}
