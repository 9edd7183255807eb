// Package machowriter implements the layout, symbol/relocation
// resolution, and serialization pipeline of the Mach-O object-file
// backend: partitioner, symbol/string table, segment/section builder,
// relocation lowerer, and file emitter.
package machowriter

import (
	"bytes"
	"encoding/binary"

	"github.com/dr2chase/split-dwarf/macho"

	"github.com/arc-language/macho-object-writer/artifact"
)

const sizeofRelocationInfo = 8

// padByte yields the sentinel padding byte for a section, per spec.md
// §4.7 step 4: 0xCC (x86 int3) for __text, 0xAA elsewhere.
func padByte(sectname string) byte {
	if sectname == "__text" {
		return 0xCC
	}
	return 0xAA
}

// layout is the fully-resolved, read-only state produced by the
// partition -> symtab -> segment -> relocation pipeline, ready to
// serialize.
type layout struct {
	target artifact.Target
	width  int
	order  binary.ByteOrder

	syms *symtab
	seg  *segmentBuilder

	bssSize int

	nsects             int
	headerSize         int
	segCmdSize         int
	secHdrSize         int
	symtabCmdSize      int
	segmentLoadCmdSize int
	sizeofLoadCommands int
	firstSectionOffset int

	symtableOffset int
	strtableOffset int
	relocOffset    int
}

func byteOrder(t artifact.Target) binary.ByteOrder {
	if t.Endian == artifact.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func structSizes(width int) (headerSize, segCmdSize, secHdrSize, nlistSize int) {
	if width == 32 {
		return 28, binary.Size(macho.Segment32{}), binary.Size(macho.Section32{}), binary.Size(macho.Nlist32{})
	}
	return 32, binary.Size(macho.Segment64{}), binary.Size(macho.Section64{}), binary.Size(macho.Nlist64{})
}

// buildLayout runs the full pipeline of spec.md §4 against art and
// returns the resolved layout, ready for serialize.
func buildLayout(art artifact.Artifact, logger Logger) *layout {
	target := art.Target()
	width := containerWidth(target)
	_, segCmdSize, secHdrSize, nlistSize := structSizes(width)

	p := partition(art.Definitions())
	nsects := 4 + len(p.custom)

	headerSize, _, _, _ := structSizes(width)
	symtabCmdSize := binary.Size(macho.SymtabCmd{})
	segmentLoadCmdSize := segCmdSize + nsects*secHdrSize
	sizeofLoadCommands := segmentLoadCmdSize + symtabCmdSize
	firstSectionOffset := headerSize + sizeofLoadCommands

	syms := newSymtab()
	seg := newSegmentBuilder()
	seg.offset = uint64(firstSectionOffset)
	// symbolOffset is a single counter shared across all four default
	// sections, starting at 0: it becomes each defined symbol's n_value,
	// which for a relocatable object is an address relative to the
	// segment's own start, not a file-wide byte position.
	seg.symbolOffset = 0
	seg.addr = 0

	seg.buildSection(syms, p.code, "__text", "__TEXT", 4, sAttrPureInstrs|sAttrSomeInstrs, true)
	seg.buildSection(syms, p.data, "__data", "__DATA", 3, sRegular, true)
	seg.buildSection(syms, p.cstring, "__cstring", "__TEXT", 0, sCstringLiterals, true)
	seg.buildSection(syms, p.bss, "__bss", "__DATA", 0, sZerofill, false)

	for _, d := range p.custom {
		seg.buildCustomSection(syms, d)
	}

	for _, imp := range art.Imports() {
		syms.insertUndefined(imp.Name)
	}

	if logger == nil {
		logger = DefaultLogger
	}
	newRelocLowerer(syms, seg, logger).lower(art.Links())

	symtableOffset := int(seg.offset)
	strtableOffset := symtableOffset + syms.len()*nlistSize
	relocOffset := strtableOffset + syms.sizeofStrtable()

	cursor := relocOffset
	for _, s := range seg.sections {
		if len(s.relocs) == 0 {
			continue
		}
		s.relocOffsetField = cursor
		cursor += len(s.relocs) * sizeofRelocationInfo
	}

	return &layout{
		target: target, width: width, order: byteOrder(target),
		syms: syms, seg: seg, bssSize: p.bssSize,
		nsects:             nsects,
		headerSize:         headerSize,
		segCmdSize:         segCmdSize,
		secHdrSize:         secHdrSize,
		symtabCmdSize:      symtabCmdSize,
		segmentLoadCmdSize: segmentLoadCmdSize,
		sizeofLoadCommands: sizeofLoadCommands,
		firstSectionOffset: firstSectionOffset,
		symtableOffset:     symtableOffset,
		strtableOffset:     strtableOffset,
		relocOffset:        relocOffset,
	}
}

// ToBytes serializes the resolved layout into a bit-exact Mach-O
// MH_OBJECT image, per spec.md §4.7's write order.
func ToBytes(art artifact.Artifact, logger Logger) []byte {
	l := buildLayout(art, logger)

	buf := new(bytes.Buffer)
	l.writeHeader(buf)
	l.writeSegmentAndSections(buf)
	l.writeSymtabCmd(buf)
	l.writePayloads(buf, art.Definitions())
	l.writeSymtab(buf)
	l.writeStrtab(buf)
	l.writeRelocs(buf)
	buf.WriteByte(0) // trailing NUL, per spec.md §4.7 step 8

	return buf.Bytes()
}

func setName(dst *[16]byte, s string) {
	n := len(s)
	if n > 16 {
		n = 16
	}
	copy(dst[:], s[:n])
}

func (l *layout) filesize() uint64 {
	return uint64(l.symtableOffset - l.firstSectionOffset)
}

func (l *layout) vmsize() uint64 {
	return l.filesize() + uint64(l.bssSize)
}

func (l *layout) writeHeader(buf *bytes.Buffer) {
	magic := macho.Magic64
	if l.width == 32 {
		magic = macho.Magic32
	}
	fh := macho.FileHeader{
		Magic:  magic,
		Cpu:    cpuType(l.target.Arch),
		SubCpu: 3,
		Type:   macho.TypeObj,
		Ncmd:   2,
		Cmdsz:  uint32(l.sizeofLoadCommands),
		Flags:  macho.FlagSubsectionsViaSymbols,
	}
	binary.Write(buf, l.order, fh)
	if l.width == 64 {
		binary.Write(buf, l.order, uint32(0)) // reserved, mach_header_64 only
	}
}

func (l *layout) writeSegmentAndSections(buf *bytes.Buffer) {
	if l.width == 32 {
		seg := macho.Segment32{
			LoadCmd:  macho.LoadCmdSegment,
			Len:      uint32(l.segmentLoadCmdSize),
			Addr:     0,
			Memsz:    uint32(l.vmsize()),
			Offset:   uint32(l.firstSectionOffset),
			Filesz:   uint32(l.filesize()),
			Maxprot:  7,
			Prot:     7,
			Nsect:    uint32(l.nsects),
			Flag:     0,
		}
		binary.Write(buf, l.order, seg)
	} else {
		seg := macho.Segment64{
			LoadCmd:  macho.LoadCmdSegment64,
			Len:      uint32(l.segmentLoadCmdSize),
			Addr:     0,
			Memsz:    l.vmsize(),
			Offset:   uint64(l.firstSectionOffset),
			Filesz:   l.filesize(),
			Maxprot:  7,
			Prot:     7,
			Nsect:    uint32(l.nsects),
			Flag:     0,
		}
		binary.Write(buf, l.order, seg)
	}

	for _, s := range l.seg.sections {
		l.writeSectionHeader(buf, s)
	}
}

func (l *layout) writeSectionHeader(buf *bytes.Buffer, s *sectionBuilder) {
	var sectname, segname [16]byte
	setName(&sectname, s.sectname)
	setName(&segname, s.segname)

	if l.width == 32 {
		sh := macho.Section32{
			Name:     sectname,
			Seg:      segname,
			Addr:     uint32(s.addr),
			Size:     uint32(s.size),
			Offset:   uint32(s.fileOffset),
			Align:    uint32(s.alignExp),
			Reloff:   uint32(s.relocOffsetField),
			Nreloc:   uint32(len(s.relocs)),
			Flags:    macho.SecFlags(s.flags),
			Reserve1: 0,
			Reserve2: 0,
		}
		binary.Write(buf, l.order, sh)
		return
	}

	sh := macho.Section64{
		Name:     sectname,
		Seg:      segname,
		Addr:     s.addr,
		Size:     s.size,
		Offset:   uint32(s.fileOffset),
		Align:    uint32(s.alignExp),
		Reloff:   uint32(s.relocOffsetField),
		Nreloc:   uint32(len(s.relocs)),
		Flags:    macho.SecFlags(s.flags),
		Reserve1: 0,
		Reserve2: 0,
		Reserve3: 0,
	}
	binary.Write(buf, l.order, sh)
}

// writeSymtabCmd writes the symtab load command little-endian regardless
// of target endianness, per spec.md §4.7's explicit footnote.
func (l *layout) writeSymtabCmd(buf *bytes.Buffer) {
	cmd := macho.SymtabCmd{
		LoadCmd: macho.LoadCmdSymtab,
		Len:     uint32(l.symtabCmdSize),
		Symoff:  uint32(l.symtableOffset),
		Nsyms:   uint32(l.syms.len()),
		Stroff:  uint32(l.strtableOffset),
		Strsize: uint32(l.syms.sizeofStrtable()),
	}
	binary.Write(buf, binary.LittleEndian, cmd)
}

// writePayloads writes section payload bytes in section order: code,
// data, cstrings, custom sections. __bss writes nothing.
func (l *layout) writePayloads(buf *bytes.Buffer, defs []artifact.Definition) {
	p := partition(defs)

	writeBucket := func(sectname string, bucket []artifact.Definition) {
		for _, d := range bucket {
			if !d.Data.ZeroInit {
				buf.Write(d.Data.Bytes)
			}
			pad := l.seg.alignPadMap[d.Name]
			for i := 0; i < pad; i++ {
				buf.WriteByte(padByte(sectname))
			}
		}
	}

	writeBucket("__text", p.code)
	writeBucket("__data", p.data)
	writeBucket("__cstring", p.cstring)
	// __bss: no payload bytes written, per spec.md §4.7 step 4.
	for _, d := range p.custom {
		buf.Write(d.Data.Bytes)
	}
}

func (l *layout) writeSymtab(buf *bytes.Buffer) {
	for _, rec := range l.syms.records {
		f := rec.emit()
		if l.width == 32 {
			binary.Write(buf, l.order, macho.Nlist32{
				Name:  f.Strx,
				Type:  f.Type,
				Sect:  f.Sect,
				Desc:  f.Desc,
				Value: uint32(f.Value),
			})
			continue
		}
		binary.Write(buf, l.order, macho.Nlist64{
			Name:  f.Strx,
			Type:  f.Type,
			Sect:  f.Sect,
			Desc:  f.Desc,
			Value: f.Value,
		})
	}
}

// writeStrtab writes the string table, per spec.md §4.7 step 6 and §6's
// underscore-prefix convention.
func (l *layout) writeStrtab(buf *bytes.Buffer) {
	buf.WriteByte(0)
	for _, rec := range l.syms.records {
		buf.WriteByte('_')
		buf.WriteString(rec.name)
		buf.WriteByte(0)
	}
}

// writeRelocs writes every section's relocation entries, little-endian,
// in section order, per spec.md §4.7 step 7.
func (l *layout) writeRelocs(buf *bytes.Buffer) {
	for _, s := range l.seg.sections {
		for _, r := range s.relocs {
			binary.Write(buf, binary.LittleEndian, int32(r.address))
			binary.Write(buf, binary.LittleEndian, r.pack())
		}
	}
}
