// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elfobj

import (
	"github.com/aclements/go-elfcopy/elfclass"
	"github.com/aclements/go-elfcopy/internal/strtab"
)

// StrtabBody is the section variant for a non-allocated STRTAB: a
// mutable string table, used for the section-name table and, unless
// stripped entirely, the symbol-name table.
//
// A StrtabBody's Section.Size tracks the builder's current packed
// length, so layout decisions that only need monotonic growth can read
// it before Finalize has run.
type StrtabBody struct {
	Builder strtab.Builder
}

// Add registers s for inclusion in the table and keeps the owning
// Section's Size in sync with the builder's current (pre-finalize)
// size estimate.
func (b *StrtabBody) Add(sec *Section, s string) {
	b.Builder.Add(s)
	sec.Size = b.Builder.Size()
}

func (b *StrtabBody) initialize(sec *Section, tab *SectionTable) error { return nil }

func (b *StrtabBody) finalize(sec *Section, layout elfclass.Layout) error {
	b.Builder.Finalize()
	sec.Size = b.Builder.Size()
	return nil
}

func (b *StrtabBody) writeSection(sec *Section, buf []byte, layout elfclass.Layout) {
	b.Builder.WriteTo(buf, sec.Offset)
}
