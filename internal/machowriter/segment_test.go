package machowriter

import (
	"testing"

	"github.com/arc-language/macho-object-writer/artifact"
)

func TestAlignToExp(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, 0}, {1, 0}, {2, 1}, {4, 2}, {8, 3}, {16, 4},
	}
	for _, c := range cases {
		if got := alignToExp(c.in); got != c.want {
			t.Errorf("alignToExp(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestAlignToExp_NonPowerOfTwoPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non-power-of-two alignment")
		}
	}()
	alignToExp(3)
}

func TestPadTo(t *testing.T) {
	cases := []struct {
		rel, exp, want int
	}{
		{0, 3, 0},  // already aligned to 8
		{1, 3, 7},  // needs 7 bytes to reach 8
		{8, 3, 0},
		{5, 0, 0}, // exp 0 = 1-byte alignment, always satisfied
	}
	for _, c := range cases {
		if got := padTo(c.rel, c.exp); got != c.want {
			t.Errorf("padTo(%d,%d) = %d, want %d", c.rel, c.exp, got, c.want)
		}
	}
}

func TestBuildSection_LastDefinitionHasNoTrailingPadding(t *testing.T) {
	defs := []artifact.Definition{
		{Name: "a", Data: artifact.Payload{Bytes: []byte{1}}},
		{Name: "b", Data: artifact.Payload{Bytes: []byte{2, 3}}, Align: 8},
	}

	sb := newSegmentBuilder()
	syms := newSymtab()
	sb.buildSection(syms, defs, "__data", "__DATA", 0, sRegular, true)

	if pad := sb.alignPadMap["b"]; pad != 0 {
		t.Fatalf("last definition's pad = %d, want 0", pad)
	}
	// a is 1 byte and the next definition b requires 8-byte alignment,
	// so a must be padded up to offset 8.
	if pad := sb.alignPadMap["a"]; pad != 7 {
		t.Fatalf("a's pad = %d, want 7", pad)
	}
	if sb.sections[0].size != 10 {
		t.Fatalf("section size = %d, want 10 (1+7+2)", sb.sections[0].size)
	}
}

func TestBuildSection_SectionAlignIsMaxOfPerDefinitionRequirements(t *testing.T) {
	defs := []artifact.Definition{
		{Name: "a", Data: artifact.Payload{Bytes: []byte{1}}},
		{Name: "b", Data: artifact.Payload{Bytes: []byte{2}}, Align: 16},
	}

	sb := newSegmentBuilder()
	syms := newSymtab()
	sb.buildSection(syms, defs, "__data", "__DATA", 0, sRegular, true)

	if sb.sections[0].alignExp != 4 { // log2(16)
		t.Fatalf("section alignExp = %d, want 4", sb.sections[0].alignExp)
	}
}

func TestBuildSection_RegistersDefinedSymbolsWithOffsets(t *testing.T) {
	defs := []artifact.Definition{
		{Name: "a", Data: artifact.Payload{Bytes: []byte{1, 2, 3, 4}}, Global: true},
		{Name: "b", Data: artifact.Payload{Bytes: []byte{5, 6}}},
	}

	sb := newSegmentBuilder()
	sb.offset, sb.symbolOffset = 100, 100
	syms := newSymtab()
	sb.buildSection(syms, defs, "__text", "__TEXT", 0, sAttrPureInstrs, true)

	offA, _ := syms.offset("a")
	offB, _ := syms.offset("b")
	if offA != 0 {
		t.Errorf("a's section-relative offset = %d, want 0", offA)
	}
	if offB != 4 {
		t.Errorf("b's section-relative offset = %d, want 4", offB)
	}
}

func TestSectNameForCustom_RewritesDotDebugPrefix(t *testing.T) {
	cases := map[string]string{
		".debug_info": "__debug_info",
		".debug":      "__debug",
		"my_section":  "my_section",
	}
	for in, want := range cases {
		if got := sectNameForCustom(in); got != want {
			t.Errorf("sectNameForCustom(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildCustomSection_NoInterDefinitionPadding(t *testing.T) {
	d := artifact.Definition{
		Name:        ".debug_info",
		Decl:        artifact.DeclSection,
		SectionKind: artifact.SectionDebug,
		Data:        artifact.Payload{Bytes: []byte{1, 2, 3, 4, 5}},
		SubSymbols: []artifact.SubSymbol{
			{Name: "die_0", Offset: 0},
			{Name: "die_1", Offset: 3},
		},
	}

	sb := newSegmentBuilder()
	syms := newSymtab()
	sb.buildCustomSection(syms, d)

	sec := sb.sections[0]
	if sec.sectname != "__debug_info" {
		t.Fatalf("sectname = %q, want __debug_info", sec.sectname)
	}
	if sec.segname != "__DWARF" {
		t.Fatalf("segname = %q, want __DWARF", sec.segname)
	}
	if sec.size != 5 {
		t.Fatalf("size = %d, want 5", sec.size)
	}
	off0, _ := syms.offset("die_0")
	off1, _ := syms.offset("die_1")
	if off0 != 0 || off1 != 3 {
		t.Fatalf("sub-symbol offsets = (%d,%d), want (0,3)", off0, off1)
	}
}
