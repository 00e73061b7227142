// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elfobj

import (
	"debug/elf"
	"sort"

	"github.com/aclements/go-elfcopy/elfclass"
)

// ReservedShndx tags a Symbol that has no defining Section but still
// needs a legitimate st_shndx value on output: absolute, common, or
// (on EM_HEXAGON) one of the small-common variants.
type ReservedShndx uint8

const (
	// ReservedNone marks a Symbol whose DefiningSection is set; the
	// reserved tag does not apply.
	ReservedNone ReservedShndx = iota
	// ReservedUndef is SHN_UNDEF: no section, no special meaning.
	ReservedUndef
	ReservedAbs
	ReservedCommon
	ReservedHexagonSCommon
	ReservedHexagonSCommon2
	ReservedHexagonSCommon4
	ReservedHexagonSCommon8
)

// shndx returns the st_shndx value this tag encodes.
func (r ReservedShndx) shndx() (elf.SectionIndex, error) {
	switch r {
	case ReservedUndef:
		return elf.SHN_UNDEF, nil
	case ReservedAbs:
		return elf.SHN_ABS, nil
	case ReservedCommon:
		return elf.SHN_COMMON, nil
	case ReservedHexagonSCommon:
		return elfclass.SHN_HEXAGON_SCOMMON, nil
	case ReservedHexagonSCommon2:
		return elfclass.SHN_HEXAGON_SCOMMON_2, nil
	case ReservedHexagonSCommon4:
		return elfclass.SHN_HEXAGON_SCOMMON_4, nil
	case ReservedHexagonSCommon8:
		return elfclass.SHN_HEXAGON_SCOMMON_8, nil
	}
	return 0, malformedf("symbol with invalid reserved shndx tag %d", r)
}

// reservedFromShndx maps an on-disk reserved st_shndx value back to a
// ReservedShndx tag. The caller is responsible for having already
// validated shndx with elfclass.ValidReservedIndex.
func reservedFromShndx(shndx elf.SectionIndex) ReservedShndx {
	switch shndx {
	case elf.SHN_ABS:
		return ReservedAbs
	case elf.SHN_COMMON:
		return ReservedCommon
	case elfclass.SHN_HEXAGON_SCOMMON:
		return ReservedHexagonSCommon
	case elfclass.SHN_HEXAGON_SCOMMON_2:
		return ReservedHexagonSCommon2
	case elfclass.SHN_HEXAGON_SCOMMON_4:
		return ReservedHexagonSCommon4
	case elfclass.SHN_HEXAGON_SCOMMON_8:
		return ReservedHexagonSCommon8
	}
	panic("reservedFromShndx: shndx not validated")
}

// Symbol is one entry of a symbol table.
//
// Exactly one of DefiningSection and Reserved applies: if
// DefiningSection is non-nil, st_shndx on output is that section's
// index; otherwise Reserved (which may be ReservedUndef) supplies it.
type Symbol struct {
	Name      string
	NameIndex uint32
	Bind      elf.SymBind
	Type      elf.SymType
	// Other holds st_other (currently just the visibility bits); this
	// implementation passes it through unexamined.
	Other byte
	Value uint64
	Size  uint64

	// Index is this symbol's zero-based position within its symbol
	// table. SymtabBody.finalize renumbers it as it moves local
	// symbols ahead of the others; relocations hold a *Symbol and
	// encode its Index as of the last finalize.
	Index int

	DefiningSection *Section // non-owning, nil if Reserved applies
	Reserved        ReservedShndx

	// shndxRaw holds the on-disk st_shndx value between readSymRecord
	// and resolveSymSection, which needs the complete section list
	// before it can turn a plain section index into DefiningSection.
	shndxRaw elf.SectionIndex
}

// Local reports whether this symbol has local binding, per the ELF
// convention that local symbols must precede all others in a symbol
// table.
func (s *Symbol) Local() bool { return s.Bind == elf.STB_LOCAL }

// shndx computes this symbol's on-disk st_shndx.
func (s *Symbol) shndx() (elf.SectionIndex, error) {
	if s.DefiningSection != nil {
		return elf.SectionIndex(s.DefiningSection.Index), nil
	}
	return s.Reserved.shndx()
}

// SymtabBody is the section variant for SYMTAB: an ordered, mutable
// list of Symbols plus a resolved reference to their name string
// table.
type SymtabBody struct {
	Symbols []*Symbol

	// StrTab is the string table sec.Link resolves to. Non-owning.
	StrTab *Section

	strTabBody *StrtabBody
}

// AddSymbolNames pushes every symbol's name into the name string
// table. It must run before that table is finalized -- ordinarily just
// before Object.Finalize runs the layout algorithm.
func (b *SymtabBody) AddSymbolNames() error {
	if b.strTabBody == nil {
		return unsupportedf("symbol table has no resolved string table to add names to")
	}
	for _, sym := range b.Symbols {
		b.strTabBody.Add(b.StrTab, sym.Name)
	}
	return nil
}

func (b *SymtabBody) initialize(sec *Section, tab *SectionTable) error {
	strTab, err := tab.SectionOfType(sec.Link, elf.SHT_STRTAB, "symbol table string table")
	if err != nil {
		return err
	}
	strTabBody, ok := strTab.Body.(*StrtabBody)
	if !ok {
		return malformedf("symbol table %s: string table %s is not mutable (likely an allocated STRTAB)", sec.Name, strTab.Name)
	}
	b.StrTab = strTab
	b.strTabBody = strTabBody
	return nil
}

// finalize enforces the ELF ordering requirement (every STB_LOCAL
// symbol precedes every non-local symbol) with a stable partition,
// then sets NameIndex, Link, and Info.
//
// The source this model is based on sets Info without reordering,
// which is only correct if the input already satisfies the ordering
// invariant; this implementation enforces it instead, so Info is
// always correct even for inputs (or mutations) that violate it. See
// DESIGN.md.
func (b *SymtabBody) finalize(sec *Section, layout elfclass.Layout) error {
	sec.EntSize = uint64(layout.SymSize())

	locals := make([]*Symbol, 0, len(b.Symbols))
	globals := make([]*Symbol, 0, len(b.Symbols))
	for _, sym := range b.Symbols {
		if sym.Local() {
			locals = append(locals, sym)
		} else {
			globals = append(globals, sym)
		}
	}
	b.Symbols = append(locals, globals...)
	for i, sym := range b.Symbols {
		sym.Index = i
	}

	for _, sym := range b.Symbols {
		off, err := b.strTabBody.Builder.OffsetOf(sym.Name)
		if err != nil {
			return malformedf("symbol %q: %v", sym.Name, err)
		}
		sym.NameIndex = uint32(off)
	}

	sec.Link = uint32(b.StrTab.Index)
	sec.Info = uint32(len(locals))
	return nil
}

func (b *SymtabBody) writeSection(sec *Section, buf []byte, layout elfclass.Layout) {
	entSize := int(sec.EntSize)
	out := buf[sec.Offset:]
	for i, sym := range b.Symbols {
		rec := out[i*entSize : (i+1)*entSize]
		shndx, err := sym.shndx()
		if err != nil {
			panic(err)
		}
		writeSymRecord(layout, rec, sym, shndx)
	}
}

// writeSymRecord encodes one fixed-width Elf32_Sym/Elf64_Sym record.
func writeSymRecord(layout elfclass.Layout, rec []byte, sym *Symbol, shndx elf.SectionIndex) {
	if layout.Is64() {
		// Elf64_Sym: name(4) info(1) other(1) shndx(2) value(8) size(8)
		layout.PutUint32(rec[0:4], sym.NameIndex)
		rec[4] = byte(sym.Bind)<<4 | byte(sym.Type)&0xf
		rec[5] = sym.Other
		layout.PutUint16(rec[6:8], uint16(shndx))
		layout.PutUint64(rec[8:16], sym.Value)
		layout.PutUint64(rec[16:24], sym.Size)
	} else {
		// Elf32_Sym: name(4) value(4) size(4) info(1) other(1) shndx(2)
		layout.PutUint32(rec[0:4], sym.NameIndex)
		layout.PutUint32(rec[4:8], uint32(sym.Value))
		layout.PutUint32(rec[8:12], uint32(sym.Size))
		rec[12] = byte(sym.Bind)<<4 | byte(sym.Type)&0xf
		rec[13] = sym.Other
		layout.PutUint16(rec[14:16], uint16(shndx))
	}
}

// sortSymbolsStable is exposed for tests that want to exercise the
// local/global partition independently of a full Finalize.
func sortSymbolsStable(syms []*Symbol) []*Symbol {
	out := make([]*Symbol, len(syms))
	copy(out, syms)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Local() && !out[j].Local()
	})
	return out
}
