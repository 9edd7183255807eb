package machowriter

import (
	"fmt"

	"github.com/arc-language/macho-object-writer/artifact"
)

// X86_64 relocation types, per spec.md §4.6. These mirror the constants
// Apple's <mach-o/x86_64/reloc.h> defines; none of the retrieved repos
// carry a relocatable (MH_OBJECT) x86_64 writer that already declares
// them, so they are declared locally.
const (
	x8664RelocUnsigned = 0
	x8664RelocSigned   = 1
	x8664RelocBranch   = 2
	x8664RelocGotLoad  = 3
)

// rAbs is the "generic relocation" code a Raw spec may request in place
// of an architecture-specific one, per spec.md §4.6.
const rAbs = 0

// relocationInfo is the pre-pack content of one Mach-O relocation_info
// entry. Field names mirror github.com/dr2chase/split-dwarf/macho's
// decoded Reloc struct (Pcrel, Extern's counterpart, Len) run in
// reverse: that package decodes a packed r_info into these fields, this
// one builds the packed form from them.
type relocationInfo struct {
	address    uint32
	symbolIdx  int
	pcRelative bool // !absolute
	length     int  // 0=1B 1=2B 2=4B 3=8B
	relocType  uint8
}

// pack encodes the Mach-O relocation_info r_info bitfield, per spec.md
// §4.6 (LSB-first: symbol[0:24], pcrel[24], length[25:27], extern[27],
// type[28:32], always external).
func (r relocationInfo) pack() uint32 {
	info := uint32(r.symbolIdx) & 0xFFFFFF
	if r.pcRelative {
		info |= 1 << 24
	}
	info |= uint32(r.length&0x3) << 25
	info |= 1 << 27 // r_extern always set
	info |= uint32(r.relocType&0xF) << 28
	return info
}

// lengthCode implements the default-length rule of spec.md §4.6.
func lengthCode(size int, absolute bool) int {
	switch size {
	case 0:
		if absolute {
			return 3
		}
		return 2
	case 4:
		return 2
	case 8:
		return 3
	default:
		panicFatal(ErrUnsupportedRelocSize, fmt.Sprintf("%d", size))
		return 0
	}
}

// relocLowerer lowers artifact.Link values into sectionBuilder relocation
// lists, per spec.md §4.6.
type relocLowerer struct {
	syms   *symtab
	seg    *segmentBuilder
	logger Logger
}

func newRelocLowerer(syms *symtab, seg *segmentBuilder, logger Logger) *relocLowerer {
	return &relocLowerer{syms: syms, seg: seg, logger: logger}
}

func (rl *relocLowerer) lower(links []artifact.Link) {
	for _, l := range links {
		switch l.Reloc.Kind {
		case artifact.RelocAuto:
			rl.lowerAuto(l)
		case artifact.RelocRaw:
			rl.lowerRaw(l)
		case artifact.RelocDebug:
			rl.lowerDebug(l)
		}
	}
}

func (rl *relocLowerer) lowerAuto(l artifact.Link) {
	from, to := l.From, l.To

	if from.Kind == artifact.EndpointSection && from.SectionKind == artifact.SectionDebug {
		panicFatal(ErrUnsupportedRelocSpec, "Auto relocation from a debug custom section; use Debug spec")
	}
	if to.Kind == artifact.EndpointSection && to.SectionKind == artifact.SectionDebug && from.Kind != artifact.EndpointSection {
		panicFatal(ErrUnsupportedRelocSpec, "Auto relocation to a debug custom section; use Debug spec")
	}
	if from.Kind == artifact.EndpointSection || to.Kind == artifact.EndpointSection {
		panicFatal(ErrUnsupportedRelocSpec, "relocations to/from custom (non-debug) sections are unsupported")
	}

	var absolute bool
	var relocType uint8

	switch {
	case from.Kind == artifact.EndpointData:
		absolute, relocType = true, x8664RelocUnsigned
	case from.Kind == artifact.EndpointFunction && (to.Kind == artifact.EndpointFunction || to.Kind == artifact.EndpointImportFunction):
		absolute, relocType = false, x8664RelocBranch
	case from.Kind == artifact.EndpointFunction && to.Kind == artifact.EndpointData:
		absolute, relocType = false, x8664RelocSigned
	case from.Kind == artifact.EndpointFunction && to.Kind == artifact.EndpointImportData:
		absolute, relocType = false, x8664RelocGotLoad
	case from.Kind == artifact.EndpointImportFunction || from.Kind == artifact.EndpointImportData:
		panicFatal(ErrUnsupportedRelocSpec, "an import cannot be a relocation source")
	default:
		panicFatal(ErrUnsupportedRelocSpec, "unhandled Auto relocation dispatch")
	}

	rl.place(l, absolute, relocType, 0)
}

func (rl *relocLowerer) lowerRaw(l artifact.Link) {
	spec := l.Reloc
	if spec.RawType > 255 || spec.RawAddend != 0 {
		panicFatal(ErrRawReloc, fmt.Sprintf("type=%d addend=%d", spec.RawType, spec.RawAddend))
	}

	var absolute bool
	var relocType uint8
	if spec.RawType == rAbs {
		absolute, relocType = true, rAbs
	} else {
		absolute, relocType = false, uint8(spec.RawType)
	}

	rl.place(l, absolute, relocType, 0)
}

func (rl *relocLowerer) place(l artifact.Link, absolute bool, relocType uint8, size int) {
	fromOff, fromOK := rl.syms.offset(l.From.Name)
	toIdx, toOK := rl.syms.index(l.To.Name)
	if !fromOK || !toOK {
		rl.logger.Logf("machowriter: dropping link %s -> %s: symbol not resolved", l.From.Name, l.To.Name)
		return
	}

	ri := relocationInfo{
		address:    uint32(fromOff + l.At),
		symbolIdx:  toIdx,
		pcRelative: !absolute,
		length:     lengthCode(size, absolute),
		relocType:  relocType,
	}

	var target *sectionBuilder
	if absolute {
		target = rl.seg.byName["__data"]
	} else {
		target = rl.seg.byName["__text"]
	}
	if target == nil {
		return
	}
	target.relocs = append(target.relocs, ri)
}

func (rl *relocLowerer) lowerDebug(l artifact.Link) {
	if l.To.Kind == artifact.EndpointSection {
		return
	}

	toIdx, ok := rl.syms.index(l.To.Name)
	if !ok {
		rl.logger.Logf("machowriter: dropping debug link %s -> %s: target symbol not found", l.From.Name, l.To.Name)
		return
	}

	ri := relocationInfo{
		address:    uint32(l.At),
		symbolIdx:  toIdx,
		pcRelative: false,
		length:     lengthCode(int(l.Reloc.DebugSize), true),
		relocType:  x8664RelocUnsigned,
	}

	section := rl.seg.byName[sectNameForCustom(debugSectionName(l.From.Name))]
	if section == nil {
		rl.logger.Logf("machowriter: dropping debug link %s -> %s: owning section not found", l.From.Name, l.To.Name)
		return
	}
	section.relocs = append(section.relocs, ri)
}

// debugSectionName allows lowerDebug to find From's own section whether
// From.Name was supplied as the artifact-level name (".debug_info") or
// already as the Mach-O section name ("__debug_info").
func debugSectionName(name string) string {
	return name
}
