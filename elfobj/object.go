// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elfobj

import (
	"debug/elf"

	"github.com/aclements/go-elfcopy/elfclass"
)

// Object is the root aggregate of the model: the file header fields,
// the ordered sequence of Sections and Segments a Read populated (or a
// driver built up by hand), and the two sections every layout needs a
// reference to -- the section-name string table and, if present, the
// static symbol table.
//
// An Object exclusively owns its Sections and Segments (and,
// transitively, every Symbol and Relocation reachable from them).
// Every other cross-reference -- Symbol.DefiningSection,
// Relocation.Symbol, Section.Parent, Segment.Parent, the various Link
// resolutions -- is non-owning and only valid for the Object's
// lifetime.
type Object struct {
	Ident   [16]byte
	Type    elf.Type
	Machine elf.Machine
	Version uint32
	Entry   uint64
	Flags   uint32

	Layout elfclass.Layout

	// Sections is index 1..N; there is no entry for the synthetic null
	// section at index 0, which exists only at emit time.
	Sections []*Section
	Segments []*Segment

	// SectionNames is the section carrying section names, typically
	// ".shstrtab". Required: every valid ELF object has one.
	SectionNames *Section

	// Symbols is the object's static symbol table, or nil if it has
	// none. At most one per Object; see SPEC_FULL.md §9 on multiple
	// symbol tables.
	Symbols *Section

	// shOffset is the file offset of the section header array, valid
	// only after Finalize.
	shOffset uint64
}

// sectionNamesBody and symtabBody are convenience accessors that panic
// if the corresponding Section's Body is not of the expected kind --
// a condition Read never produces and a driver that replaces
// o.SectionNames or o.Symbols with something else has violated the
// model's contract.

func (o *Object) sectionNamesBody() *StrtabBody {
	b, ok := o.SectionNames.Body.(*StrtabBody)
	if !ok {
		panic("elfobj: Object.SectionNames is not a string-table section")
	}
	return b
}

func (o *Object) symtabBody() *SymtabBody {
	if o.Symbols == nil {
		return nil
	}
	b, ok := o.Symbols.Body.(*SymtabBody)
	if !ok {
		panic("elfobj: Object.Symbols is not a symbol-table section")
	}
	return b
}

// sectionTable builds the read-time-indexed lookup table Body methods
// use to resolve Link/Info fields. It is rebuilt on demand rather than
// kept as a field because it goes stale the moment Finalize renumbers
// sections; its caller (Read) builds a fresh one immediately before
// use.
func (o *Object) sectionTable() *SectionTable {
	sections := make([]*Section, len(o.Sections)+1)
	for i, sec := range o.Sections {
		sections[i+1] = sec
	}
	return &SectionTable{sections: sections, classLayout: o.Layout}
}
