// Command wask is the bootloader-facing trampoline. On real hardware
// this binary is entered by an assembly rt0 stub that sets up a minimal
// stack and jumps to kmain.Kmain with the multiboot info pointer and
// the kernel image's physical bounds. This main wires the same call for
// hosted builds, using placeholder bounds in place of the
// linker-provided symbols.
package main

import (
	"os"

	"github.com/nielsdos/wask/kernel/kfmt"
	"github.com/nielsdos/wask/kernel/kmain"
)

// placeholderKernelStart/End stand in for the _kernel_start/_kernel_end
// linker symbols a real boot stub would supply.
const (
	placeholderKernelStart = 0x100000
	placeholderKernelEnd   = 0x200000
)

func main() {
	kfmt.SetOutputSink(os.Stdout)
	kmain.Kmain(0, placeholderKernelStart, placeholderKernelEnd)
}
