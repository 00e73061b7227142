// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elfobj

import (
	"bytes"
	"debug/elf"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aclements/go-elfcopy/elfclass"
)

func elfIdent64LE() [16]byte {
	var id [16]byte
	copy(id[:], "\x7fELF")
	id[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	id[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	id[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	return id
}

// buildMinimal constructs, by hand rather than through Read, a tiny
// relocatable object: one LOAD segment covering a single allocated
// .text section, plus the mandatory .shstrtab.
func buildMinimal(t *testing.T) *Object {
	t.Helper()

	textData := []byte{0x90, 0x90, 0x90, 0x90}
	text := &Section{
		Name:       ".text",
		Type:       elf.SHT_PROGBITS,
		Flags:      elf.SHF_ALLOC | elf.SHF_EXECINSTR,
		AddrAlign:  4,
		OrigOffset: 0x40,
		Size:       uint64(len(textData)),
		Body:       &BytesBody{Data: textData},
	}
	shstrtab := &Section{
		Name:       ".shstrtab",
		Type:       elf.SHT_STRTAB,
		OrigOffset: 0x44,
		Body:       &StrtabBody{},
	}

	seg := &Segment{
		Type:       elf.PT_LOAD,
		Flags:      elf.PF_R | elf.PF_X,
		OrigOffset: 0x40,
		VAddr:      0x1000,
		PAddr:      0x1000,
		FileSize:   uint64(len(textData)),
		MemSize:    uint64(len(textData)),
		Align:      0x1000,
		Data:       append([]byte(nil), textData...),
		Sections:   []*Section{text},
	}
	text.Parent = seg

	return &Object{
		Ident:        elfIdent64LE(),
		Type:         elf.ET_REL,
		Machine:      elf.EM_X86_64,
		Version:      1,
		Layout:       elfclass.LE64,
		Sections:     []*Section{text, shstrtab},
		Segments:     []*Segment{seg},
		SectionNames: shstrtab,
	}
}

func emit(t *testing.T, o *Object) []byte {
	t.Helper()
	if err := o.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	buf := make([]byte, o.TotalSize())
	if err := o.Write(buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return buf
}

func TestRoundTripIdentity(t *testing.T) {
	o := buildMinimal(t)
	buf := emit(t, o)

	o2, err := Read(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("Read round-trip: %v", err)
	}

	if o2.Type != elf.ET_REL || o2.Machine != elf.EM_X86_64 {
		t.Fatalf("header mismatch: type=%v machine=%v", o2.Type, o2.Machine)
	}
	if len(o2.Sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(o2.Sections))
	}

	var text, shstrtab *Section
	for _, sec := range o2.Sections {
		switch sec.Name {
		case ".text":
			text = sec
		case ".shstrtab":
			shstrtab = sec
		}
	}
	if text == nil || shstrtab == nil {
		t.Fatalf("missing expected sections: %+v", o2.Sections)
	}
	if text.Type != elf.SHT_PROGBITS || text.Flags&elf.SHF_ALLOC == 0 {
		t.Errorf(".text type/flags wrong: %v %v", text.Type, text.Flags)
	}
	body, ok := text.Body.(*BytesBody)
	if !ok {
		t.Fatalf(".text body is %T, want *BytesBody", text.Body)
	}
	if diff := cmp.Diff([]byte{0x90, 0x90, 0x90, 0x90}, body.Data); diff != "" {
		t.Errorf(".text contents mismatch (-want +got):\n%s", diff)
	}
	if o2.SectionNames != shstrtab {
		t.Errorf("SectionNames did not resolve to .shstrtab")
	}

	// Section containment preserved (testable property 2).
	if len(o2.Segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(o2.Segments))
	}
	seg := o2.Segments[0]
	if seg.Type != elf.PT_LOAD || seg.VAddr != 0x1000 {
		t.Errorf("segment type/vaddr wrong: %v %#x", seg.Type, seg.VAddr)
	}
	if diff := cmp.Diff([]byte{0x90, 0x90, 0x90, 0x90}, seg.Data); diff != "" {
		t.Errorf("segment contents mismatch, testable property 3 (-want +got):\n%s", diff)
	}
	if text.Parent != seg {
		t.Errorf(".text's parent segment did not round-trip")
	}
}

func TestReadRejectsDuplicateSymtab(t *testing.T) {
	o := buildMinimal(t)
	addSymtab(t, o, ".symtab")
	addSymtab(t, o, ".symtab2")

	buf := emit(t, o)
	_, err := Read(bytes.NewReader(buf))
	if err == nil {
		t.Fatal("Read succeeded on an image with two SYMTAB sections, want UnsupportedFeatureError")
	}
	if _, ok := err.(*UnsupportedFeatureError); !ok {
		t.Fatalf("Read error = %v (%T), want *UnsupportedFeatureError", err, err)
	}
}

// addSymtab appends a minimal, self-consistent SYMTAB+STRTAB pair of
// sections to o, named name and name+"str".
func addSymtab(t *testing.T, o *Object, name string) {
	t.Helper()
	symStrtab := &Section{Name: name + "str", Type: elf.SHT_STRTAB, Body: &StrtabBody{}}
	symtab := &SymtabBody{StrTab: symStrtab, strTabBody: symStrtab.Body.(*StrtabBody)}
	symSec := &Section{Name: name, Type: elf.SHT_SYMTAB, EntSize: 24, Body: symtab}
	if err := symtab.AddSymbolNames(); err != nil {
		t.Fatalf("AddSymbolNames: %v", err)
	}
	o.Sections = append(o.Sections, symStrtab, symSec)
}

func TestSymtabFinalizeEnforcesLocalGlobalOrder(t *testing.T) {
	o := buildMinimal(t)

	strtabSec := &Section{Name: ".strtab", Type: elf.SHT_STRTAB, Body: &StrtabBody{}}
	strtabBody := strtabSec.Body.(*StrtabBody)
	symtab := &SymtabBody{StrTab: strtabSec, strTabBody: strtabBody}
	symSec := &Section{Name: ".symtab", Type: elf.SHT_SYMTAB, EntSize: 24, Body: symtab}

	global := &Symbol{Name: "main", Bind: elf.STB_GLOBAL, Reserved: ReservedUndef}
	local := &Symbol{Name: "helper", Bind: elf.STB_LOCAL, Reserved: ReservedUndef}
	symtab.Symbols = []*Symbol{global, local}

	o.Sections = append(o.Sections, strtabSec, symSec)
	o.Symbols = symSec
	if err := symtab.AddSymbolNames(); err != nil {
		t.Fatalf("AddSymbolNames: %v", err)
	}

	if err := o.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if !symtab.Symbols[0].Local() {
		t.Errorf("first symbol after finalize is not local: %+v", symtab.Symbols[0])
	}
	if symtab.Symbols[1].Local() {
		t.Errorf("second symbol after finalize is local, want global: %+v", symtab.Symbols[1])
	}
	if symSec.Info != 1 {
		t.Errorf("Info = %d, want 1 (one local symbol)", symSec.Info)
	}
}

func TestBinaryEmitEqualsLoadProjection(t *testing.T) {
	o := buildMinimal(t)
	img, err := o.FinalizeBinary()
	if err != nil {
		t.Fatalf("FinalizeBinary: %v", err)
	}
	buf := make([]byte, img.TotalSize())
	if err := img.Write(buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := []byte{0x90, 0x90, 0x90, 0x90}
	if !bytes.Equal(buf, want) {
		t.Errorf("binary image = %x, want %x", buf, want)
	}
}

func TestBinaryEmitSkipsSegmentsWithoutSections(t *testing.T) {
	o := buildMinimal(t)
	empty := &Segment{
		Type:       elf.PT_LOAD,
		OrigOffset: 0x2000,
		FileSize:   0x100,
		Align:      0x1000,
		Data:       make([]byte, 0x100),
	}
	o.Segments = append(o.Segments, empty)

	img, err := o.FinalizeBinary()
	if err != nil {
		t.Fatalf("FinalizeBinary: %v", err)
	}
	if img.TotalSize() != 4 {
		t.Errorf("TotalSize = %d, want 4 (empty LOAD segment must be skipped)", img.TotalSize())
	}
}
