package machowriter

// symbolRecord is one entry in the symbol table, per spec.md §3.
type symbolRecord struct {
	name         string
	strOffset    int    // byte offset of this name in the string table
	section      int    // 1-based section ordinal; 0 = undefined
	global       bool
	isImport     bool
	absOffset    uint64 // offset of the defining byte from the segment's start (n_value)
	segRelOffset uint64 // section-relative offset
}

// symtab is the symbol table + string interner entity of spec.md §3/§4.2.
// Insertion is idempotent on name and ordinals never change once
// assigned, which relocation lowering depends on.
type symtab struct {
	records    []*symbolRecord
	byName     map[string]int // name -> index into records (symbol ordinal)
	strtabSize int
}

func newSymtab() *symtab {
	return &symtab{
		byName:     make(map[string]int),
		strtabSize: 1, // the reserved empty-string entry
	}
}

// definedSym describes a to-be-inserted defined symbol.
type definedSym struct {
	Section      int
	AbsOffset    uint64
	SegRelOffset uint64
	Global       bool
}

// insertDefined idempotently inserts a defined symbol. Re-inserting an
// already-known name is a no-op: ordinal, offsets and section stay as
// first recorded.
func (s *symtab) insertDefined(name string, d definedSym) {
	if _, ok := s.byName[name]; ok {
		return
	}
	rec := &symbolRecord{
		name:         name,
		strOffset:    s.strtabSize,
		section:      d.Section,
		global:       d.Global,
		absOffset:    d.AbsOffset,
		segRelOffset: d.SegRelOffset,
	}
	s.byName[name] = len(s.records)
	s.records = append(s.records, rec)
	s.strtabSize += len(name) + 2
}

// insertUndefined idempotently inserts an undefined (imported) symbol.
func (s *symtab) insertUndefined(name string) {
	if _, ok := s.byName[name]; ok {
		return
	}
	rec := &symbolRecord{
		name:      name,
		strOffset: s.strtabSize,
		global:    true,
		isImport:  true,
	}
	s.byName[name] = len(s.records)
	s.records = append(s.records, rec)
	s.strtabSize += len(name) + 2
}

// offset returns the section-relative offset of name, if known.
func (s *symtab) offset(name string) (uint64, bool) {
	i, ok := s.byName[name]
	if !ok {
		return 0, false
	}
	return s.records[i].segRelOffset, true
}

// index returns the symbol ordinal (0-based insertion order) of name.
func (s *symtab) index(name string) (int, bool) {
	i, ok := s.byName[name]
	return i, ok
}

func (s *symtab) len() int { return len(s.records) }

func (s *symtab) sizeofStrtable() int { return s.strtabSize }

// Symbol type bits, mirroring github.com/dr2chase/split-dwarf/macho's
// Nlist64.Type encoding (that package only decodes n_type; these masks
// are the standard nlist.h bits it implicitly relies on).
const (
	nUndf = 0x0
	nExt  = 0x1
	nSect = 0xe
)

// nlistFields is the width-independent content of one symbol table
// entry; writer.go threads these into macho.Nlist32/Nlist64.
type nlistFields struct {
	Strx  uint32
	Type  uint8
	Sect  uint8
	Desc  uint16
	Value uint64
}

const noSect = 0

// emit builds the Nlist fields for a symbol record, per spec.md §4.2.
func (r *symbolRecord) emit() nlistFields {
	f := nlistFields{Strx: uint32(r.strOffset)}

	if r.isImport {
		f.Type = nExt
		f.Sect = noSect
		f.Value = 0
		return f
	}

	t := uint8(nUndf)
	if r.global {
		t |= nExt
	}
	if r.section != 0 {
		t |= nSect
	}
	f.Type = t
	f.Sect = uint8(r.section)
	f.Value = r.absOffset
	return f
}
