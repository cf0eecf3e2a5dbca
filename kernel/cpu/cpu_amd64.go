// Package cpu exposes the small set of x86_64 primitives the kernel core
// needs: port I/O for the PIC, interrupt enable/disable, CR2 readback for
// page faults, and IDTR loading. Each function is declared here and
// implemented in cpu_amd64.s so that no hardware-touching instruction
// ever appears inline in Go code.
package cpu

// EnableInterrupts executes "sti", unmasking the CPU's interrupt flag.
func EnableInterrupts()

// DisableInterrupts executes "cli", masking the CPU's interrupt flag.
func DisableInterrupts()

// Halt executes "hlt", stopping instruction execution until the next
// interrupt. Used as the terminal step of kfmt.Panic.
func Halt()

// ReadCR2 returns the value of the CR2 register, i.e. the faulting linear
// address recorded by the CPU for the most recent page fault.
func ReadCR2() uint64

// Outb writes a single byte to the given I/O port (e.g. the PIC's command
// and data ports at 0x20/0x21/0xA0/0xA1).
func Outb(port uint16, value uint8)

// Inb reads a single byte from the given I/O port.
func Inb(port uint16) uint8

// Lidt loads the IDTR with the 10-byte descriptor pointed to by descAddr
// (2-byte limit followed by an 8-byte base, packed, little-endian).
func Lidt(descAddr uintptr)
