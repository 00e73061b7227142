// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elfobj

import (
	"debug/elf"
	"sort"

	"github.com/aclements/go-elfcopy/elfclass"
)

// BinaryImage is the result of laying out an Object for flat-binary
// emission: the concatenated contents of its LOAD segments, in
// ascending offset order, skipping any LOAD segment that contains no
// section (matching GNU objcopy's behavior for a PT_PHDR-only
// segment) and any non-LOAD segment entirely.
type BinaryImage struct {
	obj   *Object
	order []*Segment
	total uint64
}

// FinalizeBinary runs the binary-emit layout algorithm: it is an
// alternative to Finalize, not something run after it. It leaves
// o.Sections and o.Segments' fields exactly as Read (or a driver) set
// them, except for each Segment's Offset, which it resets to
// OrigOffset before applying the head-gap adjustment.
func (o *Object) FinalizeBinary() (*BinaryImage, error) {
	for _, seg := range o.Segments {
		seg.Offset = seg.OrigOffset
		seg.finalize()
	}

	order := make([]*Segment, len(o.Segments))
	copy(order, o.Segments)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Offset < order[j].Offset
	})

	var kept []*Segment
	var offset uint64
	for _, seg := range order {
		if seg.Type != elf.PT_LOAD || len(seg.Sections) == 0 {
			continue
		}
		offset = elfclass.AlignUp(offset, seg.Align)
		seg.Offset = offset
		offset += seg.FileSize
		kept = append(kept, seg)
	}

	return &BinaryImage{obj: o, order: kept, total: offset}, nil
}

// TotalSize returns the number of bytes Write requires.
func (b *BinaryImage) TotalSize() uint64 {
	return b.total
}
