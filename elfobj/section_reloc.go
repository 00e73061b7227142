// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elfobj

import (
	"debug/elf"

	"github.com/aclements/go-elfcopy/elfclass"
)

// Relocation is one entry of a relocation table.
type Relocation struct {
	Offset uint64
	Type   uint32
	Addend int64 // zero and ignored for non-addend (REL) tables

	// Symbol is the symbol this relocation references, resolved
	// through the owning RelocBody's Symbols table. Non-owning.
	Symbol *Symbol
}

// RelocBody is the section variant for a non-allocated REL or RELA:
// an ordered list of Relocations, a reference to the symbol table
// they index into, and an optional reference to the section they
// apply to.
type RelocBody struct {
	Relocs []*Relocation

	// WithAddend is true for RELA, false for REL.
	WithAddend bool

	// Symbols is the symbol table sec.Link resolves to. Non-owning.
	Symbols *Section
	symtabBody *SymtabBody

	// AppliesTo is the section sec.Info resolves to, or nil if Info
	// is 0 (meaning this relocation section applies broadly rather
	// than to one specific section).
	AppliesTo *Section
}

func (b *RelocBody) initialize(sec *Section, tab *SectionTable) error {
	symSec, err := tab.SectionOfType(sec.Link, elf.SHT_SYMTAB, "relocation symbol table")
	if err != nil {
		return err
	}
	symtabBody, ok := symSec.Body.(*SymtabBody)
	if !ok {
		return malformedf("relocation section %s: link %d is not a symbol table", sec.Name, sec.Link)
	}
	b.Symbols = symSec
	b.symtabBody = symtabBody

	if sec.Info != 0 {
		target, err := tab.Section(sec.Info)
		if err != nil {
			return malformedf("relocation section %s: %v", sec.Name, err)
		}
		b.AppliesTo = target
	}
	return nil
}

func (b *RelocBody) finalize(sec *Section, layout elfclass.Layout) error {
	if b.WithAddend {
		sec.EntSize = uint64(layout.RelaSize())
	} else {
		sec.EntSize = uint64(layout.RelSize())
	}
	sec.Link = uint32(b.Symbols.Index)
	if b.AppliesTo != nil {
		sec.Info = uint32(b.AppliesTo.Index)
	} else {
		sec.Info = 0
	}
	return nil
}

func (b *RelocBody) writeSection(sec *Section, buf []byte, layout elfclass.Layout) {
	entSize := int(sec.EntSize)
	out := buf[sec.Offset:]
	for i, r := range b.Relocs {
		rec := out[i*entSize : (i+1)*entSize]
		symIdx := uint32(0)
		if r.Symbol != nil {
			symIdx = uint32(r.Symbol.Index)
		}
		if layout.Is64() {
			layout.PutUint64(rec[0:8], r.Offset)
			layout.PutUint64(rec[8:16], elf.R_INFO(symIdx, r.Type))
			if b.WithAddend {
				layout.PutUint64(rec[16:24], uint64(r.Addend))
			}
		} else {
			layout.PutUint32(rec[0:4], uint32(r.Offset))
			layout.PutUint32(rec[4:8], elf.R_INFO32(symIdx, r.Type))
			if b.WithAddend {
				layout.PutUint32(rec[8:12], uint32(r.Addend))
			}
		}
	}
}
