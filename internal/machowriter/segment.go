package machowriter

import (
	"strings"

	"github.com/arc-language/macho-object-writer/artifact"
)

// Section flags/types. github.com/dr2chase/split-dwarf/macho declares
// only the SecFlags *type*, not its values (that reader never needs to
// interpret them), so the concrete bit values are declared here the same
// way xyproto-flapc's codegen_macho_writer.go inlines its own
// mach-o/loader.h constant block for the flags it writes.
const (
	sRegular         = 0x0
	sZerofill        = 0x1
	sCstringLiterals = 0x2
	sAttrPureInstrs  = 0x80000000
	sAttrSomeInstrs  = 0x00000400
	sAttrDebug       = 0x02000000
)

// sectionBuilder is the section builder entity of spec.md §3.
type sectionBuilder struct {
	sectname         string
	segname          string
	ordinal          int
	size             uint64
	addr             uint64
	fileOffset       uint64
	alignExp         int
	flags            uint32
	relocs           []relocationInfo
	relocOffsetField int // file offset of this section's relocation entries

	// hasFileContent is false for __bss: it never contributes to the file
	// image, and its size stays 0; its zero-init length counts only toward
	// the segment's VM size.
	hasFileContent bool
}

// segmentBuilder owns the insertion-ordered default+custom sections plus
// the per-definition alignment pad map, per spec.md §3.
type segmentBuilder struct {
	sections    []*sectionBuilder
	byName      map[string]*sectionBuilder
	alignPadMap map[string]int

	symbolOffset uint64 // offset of next symbol payload from the segment's start
	offset       uint64 // running file offset
	addr         uint64 // running VM address
}

func newSegmentBuilder() *segmentBuilder {
	return &segmentBuilder{
		byName:      make(map[string]*sectionBuilder),
		alignPadMap: make(map[string]int),
	}
}

func (sb *segmentBuilder) add(s *sectionBuilder) {
	s.ordinal = len(sb.sections) + 1
	sb.sections = append(sb.sections, s)
	sb.byName[s.sectname] = s
}

// buildSection implements the generic build-section procedure of
// spec.md §4.3, used for each of the four default sections.
func (sb *segmentBuilder) buildSection(syms *symtab, defs []artifact.Definition, sectname, segname string, minAlignExp int, flags uint32, hasFileContent bool) {
	section := &sectionBuilder{
		sectname:       sectname,
		segname:        segname,
		flags:          flags,
		alignExp:       minAlignExp,
		hasFileContent: hasFileContent,
	}
	sb.add(section)

	startOffset := sb.offset
	startAddr := sb.addr
	sectionRelOffset := uint64(0)
	var localSize uint64

	for i, d := range defs {
		syms.insertDefined(d.Name, definedSym{
			Section:      section.ordinal,
			AbsOffset:    sb.symbolOffset,
			SegRelOffset: sectionRelOffset,
			Global:       d.Global,
		})

		fileSize := uint64(d.Data.FileLen())
		sb.symbolOffset += fileSize
		sectionRelOffset += fileSize
		localSize += fileSize

		var nextAlignExp int
		if i+1 < len(defs) {
			peek := defs[i+1]
			peekAlign := peek.Align
			if peekAlign == 0 {
				peekAlign = 1
			}
			nextAlignExp = alignToExp(peekAlign)
			if minAlignExp > nextAlignExp {
				nextAlignExp = minAlignExp
			}
		} else {
			nextAlignExp = 0
		}

		if nextAlignExp > section.alignExp {
			section.alignExp = nextAlignExp
		}

		pad := padTo(int(sectionRelOffset), nextAlignExp)
		sb.alignPadMap[d.Name] = pad
		sb.symbolOffset += uint64(pad)
		sectionRelOffset += uint64(pad)
		localSize += uint64(pad)
	}

	section.size = localSize
	section.fileOffset = startOffset
	section.addr = startAddr

	sb.offset += localSize
	sb.addr += localSize
}

// segNameForKind maps a custom section's kind to its owning segment, per
// spec.md §4.4.
func segNameForKind(k artifact.SectionKind) string {
	switch k {
	case artifact.SectionDebug:
		return "__DWARF"
	case artifact.SectionText:
		return "__TEXT"
	default:
		return "__DATA"
	}
}

// sectNameForCustom applies the .debug -> __debug rewrite of spec.md §4.4.
func sectNameForCustom(name string) string {
	const dotDebug = ".debug"
	const dunderDebug = "__debug"
	if strings.HasPrefix(name, dotDebug) {
		return dunderDebug + strings.TrimPrefix(name, dotDebug)
	}
	return name
}

// buildCustomSection implements spec.md §4.4: one custom-section
// Definition becomes exactly one Mach-O section, with no inter-
// definition padding and its sub-symbols registered individually.
func (sb *segmentBuilder) buildCustomSection(syms *symtab, d artifact.Definition) {
	flags := uint32(0)
	if d.SectionKind == artifact.SectionDebug {
		flags = sAttrDebug
	}

	name := d.SectionName
	if name == "" {
		name = d.Name
	}

	section := &sectionBuilder{
		sectname:       sectNameForCustom(name),
		segname:        segNameForKind(d.SectionKind),
		flags:          flags,
		alignExp:       alignToExp(orOne(d.Align)),
		hasFileContent: true,
	}
	sb.add(section)

	size := uint64(d.Data.FileLen())
	section.size = size
	section.fileOffset = sb.offset
	section.addr = sb.addr

	startSymbolOffset := sb.symbolOffset
	for _, sub := range d.SubSymbols {
		syms.insertDefined(sub.Name, definedSym{
			Section:      section.ordinal,
			AbsOffset:    startSymbolOffset + uint64(sub.Offset),
			SegRelOffset: uint64(sub.Offset),
			Global:       true,
		})
	}

	sb.symbolOffset += size
	sb.offset += size
	sb.addr += size
}

func orOne(a int) int {
	if a == 0 {
		return 1
	}
	return a
}
