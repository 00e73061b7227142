// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elfclass

import (
	"encoding/binary"
	"testing"
)

func TestLayoutOrder(t *testing.T) {
	data := []byte{0xff, 0xfe, 0xfd, 0xfc, 0xfb, 0xfa, 0xf9, 0xf8}
	check := func(layout Layout, label string, want, got interface{}) {
		t.Helper()
		if want != got {
			t.Errorf("for %s %s: want %v, got %v", layout.Order(), label, want, got)
		}
	}

	l := New(binary.LittleEndian, 4)
	check(l, "Uint16", l.Uint16(data), uint16(0xfeff))
	check(l, "Uint32", l.Uint32(data), uint32(0xfcfdfeff))
	check(l, "Uint64", l.Uint64(data), uint64(0xf8f9fafbfcfdfeff))
	check(l, "Int16", l.Int16(data), -int16(^uint16(0xfeff)+1))
	check(l, "Int32", l.Int32(data), -int32(^uint32(0xfcfdfeff)+1))
	check(l, "Int64", l.Int64(data), -int64(^uint64(0xf8f9fafbfcfdfeff)+1))

	l = New(binary.BigEndian, 4)
	check(l, "Uint16", l.Uint16(data), uint16(0xfffe))
	check(l, "Uint32", l.Uint32(data), uint32(0xfffefdfc))
	check(l, "Uint64", l.Uint64(data), uint64(0xfffefdfcfbfaf9f8))
}

func TestLayoutWord(t *testing.T) {
	data := []byte{0xff, 0xfe, 0xfd, 0xfc, 0xfb, 0xfa, 0xf9, 0xf8}
	check := func(wordSize int, want uint64) {
		t.Helper()
		l := New(binary.LittleEndian, wordSize)
		got := l.Word(data)
		if want != got {
			t.Errorf("for word size %d: want %#x, got %#x", wordSize, want, got)
		}
	}
	check(4, 0xfcfdfeff)
	check(8, 0xf8f9fafbfcfdfeff)
}

func TestLayoutPutRoundTrip(t *testing.T) {
	for _, l := range []Layout{LE32, BE32, LE64, BE64} {
		buf16 := make([]byte, 2)
		l.PutUint16(buf16, 0xabcd)
		if got := l.Uint16(buf16); got != 0xabcd {
			t.Errorf("%s: PutUint16/Uint16 round trip: got %#x", l, got)
		}

		buf32 := make([]byte, 4)
		l.PutUint32(buf32, 0x01234567)
		if got := l.Uint32(buf32); got != 0x01234567 {
			t.Errorf("%s: PutUint32/Uint32 round trip: got %#x", l, got)
		}

		buf64 := make([]byte, 8)
		l.PutUint64(buf64, 0x0123456789abcdef)
		if got := l.Uint64(buf64); got != 0x0123456789abcdef {
			t.Errorf("%s: PutUint64/Uint64 round trip: got %#x", l, got)
		}

		word := make([]byte, l.WordSize())
		l.PutWord(word, 0x1122)
		if got := l.Word(word); got != 0x1122 {
			t.Errorf("%s: PutWord/Word round trip: got %#x", l, got)
		}
	}
}

func TestAlignUp(t *testing.T) {
	cases := []struct {
		x, align, want uint64
	}{
		{0, 16, 0},
		{1, 16, 16},
		{16, 16, 16},
		{17, 16, 32},
		{5, 0, 5},
		{5, 1, 5},
	}
	for _, c := range cases {
		if got := AlignUp(c.x, c.align); got != c.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", c.x, c.align, got, c.want)
		}
	}
}
