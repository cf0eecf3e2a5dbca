package kfmt

import (
	"github.com/nielsdos/wask/kernel"
	"github.com/nielsdos/wask/kernel/cpu"
)

var (
	// cpuHaltFn is a seam for tests; mocked to avoid halting the test binary.
	cpuHaltFn = cpu.Halt

	// errRuntimePanic is built literally rather than via kernel.New:
	// Panic rewrites Message in place for string and error causes, and a
	// precomputed error string would go stale under that rewrite.
	errRuntimePanic = &kernel.Error{Module: "rt", Message: "unknown cause"}
)

// Panic prints the supplied error (if any) to the console and halts the CPU.
// Calls to Panic never return. Every hardware exception handler in
// kernel/idt and kernel/irq funnels its diagnostic dump through this
// function, so a panic is always the terminal state of an unhandled
// exception.
func Panic(e interface{}) {
	var err *kernel.Error

	switch t := e.(type) {
	case *kernel.Error:
		err = t
	case string:
		panicString(t)
		return
	case error:
		errRuntimePanic.Message = t.Error()
		err = errRuntimePanic
	}

	Printf("\n-----------------------------------\n")
	if err != nil {
		Printf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	Printf("*** kernel panic: system halted ***")
	Printf("\n-----------------------------------\n")

	cpuHaltFn()
}

func panicString(msg string) {
	errRuntimePanic.Message = msg
	Panic(errRuntimePanic)
}
