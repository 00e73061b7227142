// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package strtab builds packed, null-terminated ELF string tables with
// suffix tail-merging, the way llvm-objcopy's StringTableSection
// delegates to LLVM's StringTableBuilder.
package strtab

import (
	"errors"
	"sort"
	"strings"
)

// ErrBadLookup is returned by OffsetOf for a string that was never
// added to the Builder.
var ErrBadLookup = errors.New("strtab: string not registered")

// Builder accumulates strings and produces a packed byte blob in which
// every distinct string appears exactly once, and any string that is a
// suffix of another shares that other string's trailing bytes.
//
// The zero Builder is ready to use. A Builder must not be used from
// multiple goroutines concurrently.
type Builder struct {
	added     map[string]bool
	finalized bool
	blob      []byte
	offsets   map[string]uint64
}

// Add registers s for inclusion in the table. Calling it after the
// Builder has been finalized is a programmer error and panics, since
// the whole point of finalization is that the set of strings (and
// therefore the blob layout) is frozen.
func (b *Builder) Add(s string) {
	if b.finalized {
		panic("strtab: Add called after Finalize")
	}
	if b.added == nil {
		b.added = make(map[string]bool)
	}
	b.added[s] = true
}

// Size returns the current size of the packed blob in bytes.
//
// Before Finalize, this is an upper bound (the sum of each distinct
// added string's length plus its null terminator, plus the leading
// null byte) sufficient for layout decisions that only need growth to
// be monotonic; it does not account for tail-merging, which can only
// be computed once the full string set is known. After Finalize it is
// exact.
func (b *Builder) Size() uint64 {
	if b.finalized {
		return uint64(len(b.blob))
	}
	size := uint64(1) // offset 0 is the empty string
	for s := range b.added {
		if s == "" {
			continue
		}
		size += uint64(len(s)) + 1
	}
	return size
}

// Finalize freezes the string set and computes the packed layout. It
// is idempotent: calling it more than once just re-derives the same
// blob from the same string set.
func (b *Builder) Finalize() {
	strs := make([]string, 0, len(b.added))
	for s := range b.added {
		if s != "" {
			strs = append(strs, s)
		}
	}

	// Sort by the reversed string, descending. This groups strings that
	// share a common suffix, with the longest member of each group
	// first: if s1 is a suffix of s2, reverse(s1) is a prefix of
	// reverse(s2), so reverse(s2) > reverse(s1) and s2 sorts first.
	sort.Slice(strs, func(i, j int) bool {
		return reverseString(strs[i]) > reverseString(strs[j])
	})

	blob := []byte{0}
	offsets := make(map[string]uint64, len(strs)+1)
	offsets[""] = 0

	var prev string
	var prevOffset uint64
	for _, s := range strs {
		if prev != "" && strings.HasSuffix(prev, s) {
			offsets[s] = prevOffset + uint64(len(prev)-len(s))
		} else {
			offsets[s] = uint64(len(blob))
			blob = append(blob, s...)
			blob = append(blob, 0)
		}
		prev, prevOffset = s, offsets[s]
	}

	b.blob = blob
	b.offsets = offsets
	b.finalized = true
}

// OffsetOf returns the byte offset of s within the finalized blob.
//
// Calling OffsetOf before Finalize is a programmer error and panics.
// Looking up a string that was never Add-ed returns ErrBadLookup.
func (b *Builder) OffsetOf(s string) (uint64, error) {
	if !b.finalized {
		panic("strtab: OffsetOf called before Finalize")
	}
	off, ok := b.offsets[s]
	if !ok {
		return 0, ErrBadLookup
	}
	return off, nil
}

// WriteTo copies the finalized blob into buf at byte offset at. The
// caller must finalize first and ensure buf is large enough.
func (b *Builder) WriteTo(buf []byte, at uint64) {
	if !b.finalized {
		panic("strtab: WriteTo called before Finalize")
	}
	copy(buf[at:], b.blob)
}

func reverseString(s string) string {
	r := []byte(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
