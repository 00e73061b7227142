// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elfobj

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegmentContainsOffset(t *testing.T) {
	s := &Segment{OrigOffset: 0x100, FileSize: 0x40}
	cases := []struct {
		off  uint64
		want bool
	}{
		{0x0ff, false},
		{0x100, true},
		{0x13f, true},
		{0x140, false},
	}
	for _, c := range cases {
		if got := s.containsOffset(c.off); got != c.want {
			t.Errorf("containsOffset(%#x) = %v, want %v", c.off, got, c.want)
		}
	}
}

func TestSegmentSectionWithin(t *testing.T) {
	s := &Segment{OrigOffset: 0x100, FileSize: 0x40}

	within := &Section{OrigOffset: 0x110, Size: 0x10}
	if !s.sectionWithin(within) {
		t.Error("expected section wholly inside segment to be within")
	}

	spanning := &Section{OrigOffset: 0x130, Size: 0x20}
	if s.sectionWithin(spanning) {
		t.Error("expected section spanning past segment end to not be within")
	}

	// An empty section is treated as size 1, so one landing exactly at
	// the segment's end boundary belongs to the later segment, not
	// this one.
	atEnd := &Section{OrigOffset: 0x140, Size: 0}
	if s.sectionWithin(atEnd) {
		t.Error("expected zero-size section at the end boundary to not be within")
	}
	atEndInclusive := &Section{OrigOffset: 0x13f, Size: 0}
	if !s.sectionWithin(atEndInclusive) {
		t.Error("expected zero-size section one byte before the end to be within")
	}
}

func TestSegmentFinalizePreservesHeadGap(t *testing.T) {
	s := &Segment{OrigOffset: 0x1000, Offset: 0x2000}
	first := &Section{OrigOffset: 0x1010}
	later := &Section{OrigOffset: 0x1020}
	s.Sections = []*Section{later, first}

	s.finalize()

	wantGap := uint64(0x1010 - 0x1000)
	assert.Equal(t, uint64(0x2000)+wantGap, s.Offset)
}

func TestSegmentFinalizeNoSections(t *testing.T) {
	s := &Segment{OrigOffset: 0x1000, Offset: 0x2000}
	s.finalize()
	assert.Equal(t, uint64(0x2000), s.Offset, "offset must not change for a segment with no sections")
}
