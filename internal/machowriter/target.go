package machowriter

import (
	"fmt"

	"github.com/dr2chase/split-dwarf/macho"

	"github.com/arc-language/macho-object-writer/artifact"
)

// cpuTypeSparc: CPU_TYPE_SPARC is not exported by
// github.com/dr2chase/split-dwarf/macho (that package only carries the
// CPU types its own DWARF-splitting tool needs to read back: 386,
// amd64, arm, arm64, ppc, ppc64). SPARC is a real architecture spec.md
// §6's mapping table still names, so it is declared locally rather than
// dropping support for it.
const cpuTypeSparc = 0x0000000e

// cpuType maps an artifact.Arch to its Mach-O cputype, per spec.md §6.
// ArchUnknown maps to 0 with no error. Any other unrecognized value is a
// caller bug and is fatal, per spec.md §7.
func cpuType(a artifact.Arch) macho.Cpu {
	switch a {
	case artifact.ArchX86_64:
		return macho.CpuAmd64
	case artifact.ArchI386, artifact.ArchI586, artifact.ArchI686:
		return macho.Cpu386
	case artifact.ArchAArch64:
		return macho.CpuArm64
	case artifact.ArchARM:
		return macho.CpuArm
	case artifact.ArchSPARC:
		return macho.Cpu(cpuTypeSparc)
	case artifact.ArchPowerPC:
		return macho.CpuPpc
	case artifact.ArchPowerPC64LE, artifact.ArchPowerPC64BE:
		return macho.CpuPpc64
	case artifact.ArchUnknown:
		return 0
	default:
		panicFatal(ErrUnknownArchitecture, fmt.Sprintf("%v", a))
		return 0 // unreachable
	}
}

// containerWidth returns 32 or 64, the Mach-O container width to emit.
func containerWidth(t artifact.Target) int {
	if t.PointerWidth == 32 {
		return 32
	}
	return 64
}
