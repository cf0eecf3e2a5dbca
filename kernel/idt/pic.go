package idt

import "github.com/nielsdos/wask/kernel/cpu"

// Legacy 8259 PIC command and data ports.
const (
	picMasterCommand = 0x20
	picMasterData    = 0x21
	picSlaveCommand  = 0xA0
	picSlaveData     = 0xA1
)

// Remapped IRQ base vectors: master covers 32-39, slave 40-47, so none of
// the 16 hardware lines collide with the CPU's own exception vectors
// 0-31.
const (
	picMasterOffset = 32
	picSlaveOffset  = 40
)

const (
	icw1Init     = 0x11
	icw3Cascade  = 0x04
	icw3SlaveID  = 0x02
	icw4Mode8086 = 0x01
	maskAll      = 0xFF
)

var outbFn = cpu.Outb

// remapAndMaskPIC reprograms both 8259 PICs to deliver IRQ0-15 on vectors
// 32-47 and then masks every line, leaving interrupts individually
// unmasked only once a driver asks for them. The ICW sequence: two init
// command words, the new vector base for each PIC, the master/slave
// cascade wiring, 8086 mode, then the mask write.
func remapAndMaskPIC() {
	outbFn(picMasterCommand, icw1Init)
	outbFn(picSlaveCommand, icw1Init)

	outbFn(picMasterData, picMasterOffset)
	outbFn(picSlaveData, picSlaveOffset)

	outbFn(picMasterData, icw3Cascade)
	outbFn(picSlaveData, icw3SlaveID)

	outbFn(picMasterData, icw4Mode8086)
	outbFn(picSlaveData, icw4Mode8086)

	outbFn(picMasterData, maskAll)
	outbFn(picSlaveData, maskAll)
}
