// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elfobj

import (
	"debug/elf"

	"github.com/aclements/go-elfcopy/elfclass"
)

// BytesBody is the section variant for any section whose contents this
// implementation treats as an opaque byte blob: PROGBITS, NOBITS,
// NOTE, DWARF sections, HASH/GNU_HASH, an allocated STRTAB, and the
// default case for any section type not otherwise modeled.
//
// BytesBody never mutates Link or Info and performs no reference
// resolution; initialize and finalize are both no-ops.
type BytesBody struct {
	// Data holds the section's bytes, copied from the input. NOBITS
	// sections leave this nil even though Section.Size is nonzero.
	Data []byte
}

func (b *BytesBody) initialize(sec *Section, tab *SectionTable) error    { return nil }
func (b *BytesBody) finalize(sec *Section, layout elfclass.Layout) error { return nil }

func (b *BytesBody) writeSection(sec *Section, buf []byte, layout elfclass.Layout) {
	if sec.Type == elf.SHT_NOBITS {
		return
	}
	copy(buf[sec.Offset:], b.Data)
}

// LinkedBody is the section variant for DYNSYM, DYNAMIC, and an
// allocated REL/RELA (a "dynamic relocation section"): opaque-byte
// sections that additionally carry a resolved reference to the
// section their sh_link names. This implementation never mutates
// these sections' contents, only their Link field on re-layout --
// mutating their referenced section's indexing without also rewriting
// their (opaque) payload would desynchronize the two, so a caller that
// wants to edit one of these sections' logical contents must replace
// the whole Data blob itself.
type LinkedBody struct {
	BytesBody

	// Linked is the section sec.Link resolves to. Non-owning.
	Linked *Section
}

func (b *LinkedBody) initialize(sec *Section, tab *SectionTable) error {
	if sec.Link == 0 {
		// Some dynamic sections (rare, but seen in practice for
		// synthetic or stripped inputs) carry no link.
		return nil
	}
	linked, err := tab.Section(sec.Link)
	if err != nil {
		return malformedf("section %s: %v", sec.Name, err)
	}
	b.Linked = linked
	return nil
}

func (b *LinkedBody) finalize(sec *Section, layout elfclass.Layout) error {
	if b.Linked != nil {
		sec.Link = uint32(b.Linked.Index)
	}
	return nil
}
