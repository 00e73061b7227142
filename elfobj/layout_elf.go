// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elfobj

import (
	"debug/elf"
	"sort"

	"github.com/aclements/go-elfcopy/elfclass"
)

// Finalize runs the full-ELF layout algorithm: it assigns every
// section and segment a new file offset consistent with the
// containment relationships Read (or a driver's mutations) set up,
// and refreshes every section's derived header fields. Call it once,
// after all mutation is done and before TotalSize or Write.
func (o *Object) Finalize() error {
	// 1. Populate the section-name string table, then the
	// symbol-name string table.
	for _, sec := range o.Sections {
		o.sectionNamesBody().Add(o.SectionNames, sec.Name)
	}
	if st := o.symtabBody(); st != nil {
		if err := st.AddSymbolNames(); err != nil {
			return err
		}
	}

	// 2. Stable-sort sections by original offset.
	sorted := make([]*Section, len(o.Sections))
	copy(sorted, o.Sections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OrigOffset < sorted[j].OrigOffset
	})
	o.Sections = sorted

	// 3. Auxiliary segment order: original offset ascending, then
	// original program-header index ascending. A parent always
	// precedes its children in this order.
	segOrder := make([]*Segment, len(o.Segments))
	copy(segOrder, o.Segments)
	sort.SliceStable(segOrder, func(i, j int) bool {
		a, b := segOrder[i], segOrder[j]
		if a.OrigOffset != b.OrigOffset {
			return a.OrigOffset < b.OrigOffset
		}
		return a.Index < b.Index
	})

	// 4. Starting offset.
	var offset uint64
	if len(segOrder) > 0 {
		offset = segOrder[0].OrigOffset
	} else {
		offset = uint64(o.Layout.FileHeaderSize())
	}

	// 5. Assign segment offsets.
	for _, seg := range segOrder {
		if seg.Parent != nil {
			seg.Offset = seg.Parent.Offset + (seg.OrigOffset - seg.Parent.OrigOffset)
			continue
		}
		offset = elfclass.AlignUp(offset, seg.Align)
		seg.Offset = offset
		offset += seg.FileSize
	}

	// 6. Assign section offsets and renumber (1-based).
	for i, sec := range o.Sections {
		sec.Index = i + 1
		if sec.Parent != nil {
			sec.Offset = sec.Parent.Offset + (sec.OrigOffset - sec.Parent.OrigOffset)
			continue
		}
		// The source aligns by the section's own current offset
		// rather than its Align field -- almost certainly a bug (see
		// SPEC_FULL.md §9). This implementation aligns by AddrAlign.
		offset = elfclass.AlignUp(offset, sec.AddrAlign)
		sec.Offset = offset
		if sec.Type != elf.SHT_NOBITS {
			offset += sec.Size
		}
	}

	// 7. Section header array offset.
	offset = elfclass.AlignUp(offset, uint64(o.Layout.WordSize()))
	o.shOffset = offset

	// 8. Finalize the section-name string table, assign header
	// offsets and name indexes, then finalize each section.
	if err := o.sectionNamesBody().finalize(o.SectionNames, o.Layout); err != nil {
		return err
	}
	headerOffset := o.shOffset + uint64(o.Layout.SectionHeaderSize()) // leading null header
	for _, sec := range o.Sections {
		sec.HeaderOffset = headerOffset
		headerOffset += uint64(o.Layout.SectionHeaderSize())
		off, err := o.sectionNamesBody().Builder.OffsetOf(sec.Name)
		if err != nil {
			return malformedf("section %q: %v", sec.Name, err)
		}
		sec.NameIndex = uint32(off)
		if err := sec.Body.finalize(sec, o.Layout); err != nil {
			return err
		}
	}

	// 9. Finalize segments: preserve the head gap.
	for _, seg := range o.Segments {
		seg.finalize()
	}

	return nil
}

// TotalSize returns the number of bytes Write requires, valid only
// after Finalize.
func (o *Object) TotalSize() uint64 {
	return o.shOffset + uint64(len(o.Sections)+1)*uint64(o.Layout.SectionHeaderSize())
}
