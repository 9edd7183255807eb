package machowriter

import (
	"testing"

	"github.com/arc-language/macho-object-writer/artifact"
)

func TestPartition_ClassifiesEachDecl(t *testing.T) {
	defs := []artifact.Definition{
		{Name: "fn", Decl: artifact.DeclFunction},
		{Name: "data", Decl: artifact.DeclData, Data: artifact.Payload{Bytes: []byte{1, 2, 3}}},
		{Name: "str", Decl: artifact.DeclData, DataKind: artifact.DataString, Data: artifact.Payload{Bytes: []byte("hi\x00")}},
		{Name: "zero", Decl: artifact.DeclData, Data: artifact.Payload{ZeroInit: true, ZeroLength: 16}},
		{Name: ".debug_info", Decl: artifact.DeclSection, SectionKind: artifact.SectionDebug},
	}

	p := partition(defs)

	if len(p.code) != 1 || p.code[0].Name != "fn" {
		t.Fatalf("code bucket = %+v, want [fn]", p.code)
	}
	if len(p.data) != 1 || p.data[0].Name != "data" {
		t.Fatalf("data bucket = %+v, want [data]", p.data)
	}
	if len(p.cstring) != 1 || p.cstring[0].Name != "str" {
		t.Fatalf("cstring bucket = %+v, want [str]", p.cstring)
	}
	if len(p.bss) != 1 || p.bss[0].Name != "zero" {
		t.Fatalf("bss bucket = %+v, want [zero]", p.bss)
	}
	if len(p.custom) != 1 || p.custom[0].Name != ".debug_info" {
		t.Fatalf("custom bucket = %+v, want [.debug_info]", p.custom)
	}
}

func TestPartition_BssSizeTracksLogicalLength(t *testing.T) {
	defs := []artifact.Definition{
		{Name: "a", Decl: artifact.DeclData, Data: artifact.Payload{ZeroInit: true, ZeroLength: 8}},
		{Name: "b", Decl: artifact.DeclData, Data: artifact.Payload{ZeroInit: true, ZeroLength: 16}},
	}

	p := partition(defs)

	if p.bssSize != 24 {
		t.Fatalf("bssSize = %d, want 24", p.bssSize)
	}
	for _, d := range p.bss {
		if d.Data.FileLen() != 0 {
			t.Fatalf("FileLen() of zero-init %q = %d, want 0", d.Name, d.Data.FileLen())
		}
	}
}

func TestPartition_PreservesOrderWithinBucket(t *testing.T) {
	defs := []artifact.Definition{
		{Name: "first", Decl: artifact.DeclFunction},
		{Name: "second", Decl: artifact.DeclFunction},
		{Name: "third", Decl: artifact.DeclFunction},
	}

	p := partition(defs)

	want := []string{"first", "second", "third"}
	for i, name := range want {
		if p.code[i].Name != name {
			t.Fatalf("code[%d] = %q, want %q", i, p.code[i].Name, name)
		}
	}
}
