// Command machowriter drives the Mach-O object-file backend against a
// handful of fixed example artifacts, writing one .o file per example.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/arc-language/macho-object-writer/artifact"
	codegen "github.com/arc-language/macho-object-writer"
)

func main() {
	examples := []struct {
		name string
		fn   func() artifact.Artifact
	}{
		{"hello_world", exampleHelloWorld},
		{"global_counter", exampleGlobalCounter},
	}

	for _, ex := range examples {
		fmt.Printf("=== Example: %s ===\n", ex.name)

		objData, err := codegen.ToBytes(context.Background(), ex.fn(), codegen.Options{})
		if err != nil {
			fmt.Printf("compilation failed: %v\n", err)
			continue
		}

		filename := ex.name + ".o"
		if err := os.WriteFile(filename, objData, 0644); err != nil {
			fmt.Printf("failed to write file: %v\n", err)
			continue
		}

		fmt.Printf("generated %s (%d bytes)\n", filename, len(objData))
	}
}

type fixedArtifact struct {
	target      artifact.Target
	definitions []artifact.Definition
	imports     []artifact.Import
	links       []artifact.Link
}

func (a fixedArtifact) Target() artifact.Target             { return a.target }
func (a fixedArtifact) Definitions() []artifact.Definition   { return a.definitions }
func (a fixedArtifact) Imports() []artifact.Import           { return a.imports }
func (a fixedArtifact) Links() []artifact.Link               { return a.links }

// exampleHelloWorld defines main and a local string constant, with one
// branch relocation from main to an imported printf.
func exampleHelloWorld() artifact.Artifact {
	msg := []byte("Hello, World!\n\x00")

	return fixedArtifact{
		target: artifact.Target{Arch: artifact.ArchX86_64, PointerWidth: 64},
		definitions: []artifact.Definition{
			{
				Name:   "main",
				Decl:   artifact.DeclFunction,
				Data:   artifact.Payload{Bytes: []byte{0x55, 0x48, 0x89, 0xe5, 0x5d, 0xc3}},
				Global: true,
			},
			{
				Name:     "hello_str",
				Decl:     artifact.DeclData,
				Data:     artifact.Payload{Bytes: msg},
				DataKind: artifact.DataString,
			},
		},
		imports: []artifact.Import{
			{Name: "printf", Kind: artifact.ImportFunction},
		},
		links: []artifact.Link{
			{
				From: artifact.LinkEndpoint{Name: "main", Kind: artifact.EndpointFunction},
				To:   artifact.LinkEndpoint{Name: "printf", Kind: artifact.EndpointImportFunction},
				At:   2,
				Reloc: artifact.RelocSpec{Kind: artifact.RelocAuto},
			},
		},
	}
}

// exampleGlobalCounter exercises a bss definition referenced from code.
func exampleGlobalCounter() artifact.Artifact {
	return fixedArtifact{
		target: artifact.Target{Arch: artifact.ArchX86_64, PointerWidth: 64},
		definitions: []artifact.Definition{
			{
				Name:   "increment",
				Decl:   artifact.DeclFunction,
				Data:   artifact.Payload{Bytes: []byte{0xff, 0x05, 0x00, 0x00, 0x00, 0x00, 0xc3}},
				Global: true,
			},
			{
				Name:   "counter",
				Decl:   artifact.DeclData,
				Data:   artifact.Payload{ZeroInit: true, ZeroLength: 8},
				Global: true,
				Align:  8,
			},
		},
		links: []artifact.Link{
			{
				From: artifact.LinkEndpoint{Name: "increment", Kind: artifact.EndpointFunction},
				To:   artifact.LinkEndpoint{Name: "counter", Kind: artifact.EndpointData},
				At:   2,
				Reloc: artifact.RelocSpec{Kind: artifact.RelocAuto},
			},
		},
	}
}
