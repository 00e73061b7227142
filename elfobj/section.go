// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package elfobj parses an ELF image into a mutable, in-memory model,
// and re-emits it either as a byte-accurate ELF file or as a flat
// concatenation of loadable segment contents. It does not link, does
// not resolve symbols across translation units, and treats DWARF (and
// every other section it doesn't specifically model) as an opaque
// byte blob.
package elfobj

import (
	"debug/elf"

	"github.com/aclements/go-elfcopy/elfclass"
)

// Body is implemented by every section variant (opaque bytes, string
// table, symbol table, relocation table, ...). It is the interface
// half of the section model's tagged sum: Section carries the fields
// common to every kind, Body carries the behavior specific to one.
type Body interface {
	// initialize resolves this section's Link/Info fields into
	// non-owning references, once every section in the Object exists.
	initialize(sec *Section, tab *SectionTable) error

	// finalize refreshes derived header fields after layout has run,
	// deriving any record size this variant owns (e.g. a symbol or
	// relocation entry size) from layout rather than trusting sec.EntSize
	// to have been set by some other path.
	finalize(sec *Section, layout elfclass.Layout) error

	// writeSection serializes this section's body bytes into
	// buf[sec.Offset:], using layout to encode any fixed-width records
	// it owns (symbol table entries, relocation entries).
	writeSection(sec *Section, buf []byte, layout elfclass.Layout)
}

// Section is the common descriptor shared by every section variant,
// hoisting out the fields a tagged-sum switch would otherwise have to
// repeat in every case.
type Section struct {
	// Name is the section's name, e.g. ".text".
	Name string
	// NameIndex is Name's offset in the section-name string table.
	// Valid after Finalize.
	NameIndex uint32

	Type      elf.SectionType
	Flags     elf.SectionFlag
	Addr      uint64
	Link      uint32
	Info      uint32
	AddrAlign uint64
	EntSize   uint64

	// Offset is this section's current file offset. It starts out
	// equal to OrigOffset and is reassigned by Finalize.
	Offset uint64
	// OrigOffset is the file offset this section had when it was read.
	// It never changes after Read.
	OrigOffset uint64
	// Size is the logical size of this section in bytes. For NOBITS
	// sections this is nonzero even though no bytes are stored.
	Size uint64

	// Index is this section's 1-based position in the Object's
	// section list (index 0 is the synthetic null section, which
	// exists only at emit time and has no corresponding Section
	// value). Valid after Finalize; during Read it reflects the
	// section's position in the input.
	Index int
	// HeaderOffset is the file offset at which this section's header
	// will be written. Valid after Finalize.
	HeaderOffset uint64

	// Parent is the segment this section is wholly contained within,
	// or nil. Non-owning.
	Parent *Segment

	// Body carries the behavior specific to this section's kind. See
	// BytesBody, StrtabBody, SymtabBody, RelocBody, LinkedBody.
	Body Body
}

// Mapped reports whether this section occupies space in the runtime
// address space (i.e. carries the ALLOC flag).
func (s *Section) Mapped() bool {
	return s.Flags&elf.SHF_ALLOC != 0
}

func (s *Section) String() string {
	return s.Name
}

// WriteHeader serializes this section's 40/64-byte section header to
// buf[s.HeaderOffset:]. The header layout is the same shape for every
// variant, so unlike writeSection this is not part of Body.
func (s *Section) WriteHeader(layout elfclass.Layout, buf []byte) {
	rec := buf[s.HeaderOffset:]
	layout.PutUint32(rec[0:4], s.NameIndex)
	layout.PutUint32(rec[4:8], uint32(s.Type))
	if layout.Is64() {
		layout.PutUint64(rec[8:16], uint64(s.Flags))
		layout.PutUint64(rec[16:24], s.Addr)
		layout.PutUint64(rec[24:32], s.Offset)
		layout.PutUint64(rec[32:40], s.Size)
		layout.PutUint32(rec[40:44], s.Link)
		layout.PutUint32(rec[44:48], s.Info)
		layout.PutUint64(rec[48:56], s.AddrAlign)
		layout.PutUint64(rec[56:64], s.EntSize)
	} else {
		layout.PutUint32(rec[8:12], uint32(s.Flags))
		layout.PutUint32(rec[12:16], uint32(s.Addr))
		layout.PutUint32(rec[16:20], uint32(s.Offset))
		layout.PutUint32(rec[20:24], uint32(s.Size))
		layout.PutUint32(rec[24:28], s.Link)
		layout.PutUint32(rec[28:32], s.Info)
		layout.PutUint32(rec[32:36], uint32(s.AddrAlign))
		layout.PutUint32(rec[36:40], uint32(s.EntSize))
	}
}

// SectionTable provides Body implementations a way to resolve a raw
// sh_link/sh_info section index into the Section it names, during
// initialize.
type SectionTable struct {
	// sections is indexed by the on-disk section index used at read
	// time: sections[0] is the reserved null entry, sections[i] is the
	// i'th section read from the file. This indexing is stable across
	// Read even though Finalize later renumbers sections; initialize
	// always runs against the as-read indexing.
	sections []*Section

	// classLayout is the ELF class layout of the owning Object. No Body
	// implementation reads it: those that size or encode fixed-width
	// records receive the layout as an argument to finalize and
	// writeSection.
	classLayout elfclass.Layout
}

// Section returns the section at raw on-disk index i, or an error if i
// is out of range. Index 0 (SHN_UNDEF) is never a valid target for a
// link/info reference and returns an error.
func (t *SectionTable) Section(i uint32) (*Section, error) {
	if i == 0 || int(i) >= len(t.sections) {
		return nil, malformedf("section index %d out of range [1, %d)", i, len(t.sections))
	}
	return t.sections[i], nil
}

// SectionOfType is like Section, but additionally requires the
// resolved section to carry sh_type wantType, the way Object.cpp's
// SectionTableRef::getSectionOfType checks a resolved sh_link actually
// names a symbol table (and not just some other section).
func (t *SectionTable) SectionOfType(i uint32, wantType elf.SectionType, what string) (*Section, error) {
	sec, err := t.Section(i)
	if err != nil {
		return nil, err
	}
	if sec.Type != wantType {
		return nil, malformedf("section %d (%s) has type %s, want %s (%s)", i, sec.Name, sec.Type, wantType, what)
	}
	return sec, nil
}

