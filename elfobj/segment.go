// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elfobj

import "debug/elf"

// Segment is one program-header entry: a contiguous file range the
// loader maps, together with the raw bytes that range held at read
// time and the set of Sections wholly contained within it.
type Segment struct {
	Type  elf.ProgType
	Flags elf.ProgFlag

	// Offset is this segment's current file offset. It starts out
	// equal to OrigOffset and is reassigned by Finalize.
	Offset uint64
	// OrigOffset is the file offset this segment had when it was
	// read. It never changes after Read.
	OrigOffset uint64

	VAddr, PAddr     uint64
	FileSize, MemSize uint64
	Align            uint64

	// Index is this segment's zero-based position in load order (its
	// position in the program header array). Program header order is
	// preserved verbatim across Finalize.
	Index int

	// Data is this segment's owned copy of the input byte range
	// [OrigOffset, OrigOffset+FileSize), captured at Read.
	Data []byte

	// Parent is the segment this segment is nested within, chosen by
	// the all-pairs resolution in Read, or nil. Non-owning.
	Parent *Segment

	// Sections is every Section wholly contained within this segment,
	// in the order Read encountered them. Non-owning.
	Sections []*Section
}

// containsOffset reports whether off falls within
// [s.OrigOffset, s.OrigOffset+s.FileSize).
func (s *Segment) containsOffset(off uint64) bool {
	return s.OrigOffset <= off && off < s.OrigOffset+s.FileSize
}

// sectionWithin reports whether sec, as read (at OrigOffset with its
// original size), lies wholly inside s. An empty section is treated as
// size 1 so that a section falling exactly on a segment boundary is
// disambiguated to the later segment, per the spec's containment rule.
func (s *Segment) sectionWithin(sec *Section) bool {
	size := sec.Size
	if size == 0 {
		size = 1
	}
	return s.OrigOffset <= sec.OrigOffset && s.OrigOffset+s.FileSize >= sec.OrigOffset+size
}

// finalize, called after layout has assigned every segment's Offset,
// re-aligns this segment's Offset forward by the gap that existed in
// the input between the segment's start and its first contained
// section's start. This preserves any interstitial bytes (padding,
// unlisted data) at the head of the segment rather than collapsing
// them away.
func (s *Segment) finalize() {
	if len(s.Sections) == 0 {
		return
	}
	first := s.Sections[0]
	for _, sec := range s.Sections[1:] {
		if sec.OrigOffset < first.OrigOffset {
			first = sec
		}
	}
	gap := first.OrigOffset - s.OrigOffset
	s.Offset += gap
}
