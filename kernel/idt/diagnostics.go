package idt

import (
	"github.com/nielsdos/wask/kernel/irq"
	"github.com/nielsdos/wask/kernel/kfmt"
	"golang.org/x/arch/x86/x86asm"
)

// maxDisassembledBytes bounds how far past the faulting instruction
// pointer we read: enough for the longest legal x86_64 instruction
// (15 bytes) plus slack for a misaligned decode.
const maxDisassembledBytes = 16

// disassembleInstructionBytes lets tests substitute a fixed byte slice
// instead of reading live memory at frame.IP.
var disassembleInstructionBytes = defaultInstructionBytes

func defaultInstructionBytes(ip uint64) []byte {
	return unsafeBytesAt(ip, maxDisassembledBytes)
}

// disassembleFaultingInstruction decodes and prints the instruction at
// the faulting address for #UD and #GP diagnostics. A decode failure is
// reported rather than panicking again: the CPU already faulted once on
// this address, and the point of this is to help a developer read the
// dump, not to recover execution.
func disassembleFaultingInstruction(frame *irq.Frame) {
	code := disassembleInstructionBytes(frame.IP)
	inst, err := x86asm.Decode(code, 64)
	if err != nil {
		kfmt.Printf("faulting instruction: <could not decode: %s>\n", err.Error())
		return
	}
	kfmt.Printf("faulting instruction: %s\n", x86asm.GNUSyntax(inst, frame.IP, nil))
}
