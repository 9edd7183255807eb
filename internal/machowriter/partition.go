package machowriter

import "github.com/arc-language/macho-object-writer/artifact"

// partitioned is the output of the partitioner (spec.md §4.1): five
// ordered buckets plus the total bss byte count. Original relative
// order within each bucket is preserved.
type partitioned struct {
	code    []artifact.Definition
	data    []artifact.Definition
	bss     []artifact.Definition
	cstring []artifact.Definition
	custom  []artifact.Definition
	bssSize int
}

// partition classifies each definition into exactly one bucket, per the
// exhaustive rules in spec.md §4.1.
func partition(defs []artifact.Definition) partitioned {
	var p partitioned
	for _, d := range defs {
		switch d.Decl {
		case artifact.DeclFunction:
			p.code = append(p.code, d)
		case artifact.DeclData:
			switch {
			case d.Data.ZeroInit:
				p.bss = append(p.bss, d)
				p.bssSize += d.Data.Len()
			case d.DataKind == artifact.DataString:
				p.cstring = append(p.cstring, d)
			default:
				p.data = append(p.data, d)
			}
		case artifact.DeclSection:
			p.custom = append(p.custom, d)
		}
	}
	return p
}
