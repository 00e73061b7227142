// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package strtab

import (
	"testing"
)

func TestEmptyStringAtZero(t *testing.T) {
	var b Builder
	b.Add(".text")
	b.Finalize()
	off, err := b.OffsetOf("")
	if err != nil || off != 0 {
		t.Fatalf("OffsetOf(\"\") = %d, %v, want 0, nil", off, err)
	}
}

func TestTailMerge(t *testing.T) {
	var b Builder
	b.Add("name")
	b.Add("rename")
	b.Finalize()

	nameOff, err := b.OffsetOf("name")
	if err != nil {
		t.Fatal(err)
	}
	renameOff, err := b.OffsetOf("rename")
	if err != nil {
		t.Fatal(err)
	}
	if nameOff+uint64(len("name"))+1 != renameOff+uint64(len("rename"))+1 {
		t.Errorf("tail merge invariant violated: offset_of(name)=%d, offset_of(rename)=%d", nameOff, renameOff)
	}
	if nameOff <= renameOff {
		t.Errorf("expected \"name\" to be packed inside \"rename\"'s span: nameOff=%d renameOff=%d", nameOff, renameOff)
	}
}

func TestNoMergeWhenNotASuffix(t *testing.T) {
	var b Builder
	b.Add(".text")
	b.Add(".data")
	b.Finalize()
	if b.Size() != 1+uint64(len(".text"))+1+uint64(len(".data"))+1 {
		t.Errorf("expected no tail-merge between .text and .data, got size %d", b.Size())
	}
}

func TestDuplicateAddIsIdempotent(t *testing.T) {
	var b Builder
	b.Add(".text")
	b.Add(".text")
	b.Finalize()
	if got, want := b.Size(), uint64(1+len(".text")+1); got != want {
		t.Errorf("Size() = %d, want %d", got, want)
	}
}

func TestBadLookup(t *testing.T) {
	var b Builder
	b.Add(".text")
	b.Finalize()
	if _, err := b.OffsetOf(".bogus"); err != ErrBadLookup {
		t.Errorf("OffsetOf(unregistered) = %v, want ErrBadLookup", err)
	}
}

func TestLookupBeforeFinalizePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic looking up an unfinalized Builder")
		}
	}()
	var b Builder
	b.Add(".text")
	b.OffsetOf(".text")
}

func TestWriteTo(t *testing.T) {
	var b Builder
	b.Add(".text")
	b.Finalize()
	buf := make([]byte, 10)
	b.WriteTo(buf, 2)
	want := make([]byte, 10)
	copy(want[2:], append([]byte{0}, ".text\x00"...))
	if string(buf) != string(want) {
		t.Errorf("WriteTo produced %q, want %q", buf, want)
	}
}
