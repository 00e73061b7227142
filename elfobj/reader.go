// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elfobj

import (
	"debug/elf"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/aclements/go-elfcopy/elfclass"
)

// Read parses the ELF image r into a new Object. The returned Object
// owns copies of every byte it needs; r need not outlive the call.
func Read(r io.ReaderAt) (*Object, error) {
	raw, err := readAll(r)
	if err != nil {
		return nil, &IOError{Detail: "reading input image", Err: err}
	}

	o := &Object{}
	if len(raw) < 16 {
		return nil, malformedf("input too short to hold an ELF identification block")
	}
	copy(o.Ident[:], raw[:16])
	if o.Ident[0] != '\x7f' || o.Ident[1] != 'E' || o.Ident[2] != 'L' || o.Ident[3] != 'F' {
		return nil, malformedf("missing ELF magic")
	}

	var order binary.ByteOrder
	switch elf.Data(o.Ident[elf.EI_DATA]) {
	case elf.ELFDATA2LSB:
		order = binary.LittleEndian
	case elf.ELFDATA2MSB:
		order = binary.BigEndian
	default:
		return nil, malformedf("unknown EI_DATA %d", o.Ident[elf.EI_DATA])
	}
	var wordSize int
	switch elf.Class(o.Ident[elf.EI_CLASS]) {
	case elf.ELFCLASS32:
		wordSize = 4
	case elf.ELFCLASS64:
		wordSize = 8
	default:
		return nil, malformedf("unknown EI_CLASS %d", o.Ident[elf.EI_CLASS])
	}
	o.Layout = elfclass.New(order, wordSize)
	l := o.Layout

	// 1. Capture header fields.
	var phoff, shoff uint64
	var phentsize, phnum, shentsize, shnum, shstrndx uint16
	if l.Is64() {
		if len(raw) < 64 {
			return nil, malformedf("input too short to hold an ELF64 file header")
		}
		o.Type = elf.Type(l.Uint16(raw[16:18]))
		o.Machine = elf.Machine(l.Uint16(raw[18:20]))
		o.Version = l.Uint32(raw[20:24])
		o.Entry = l.Uint64(raw[24:32])
		phoff = l.Uint64(raw[32:40])
		shoff = l.Uint64(raw[40:48])
		o.Flags = l.Uint32(raw[48:52])
		phentsize = l.Uint16(raw[54:56])
		phnum = l.Uint16(raw[56:58])
		shentsize = l.Uint16(raw[58:60])
		shnum = l.Uint16(raw[60:62])
		shstrndx = l.Uint16(raw[62:64])
	} else {
		if len(raw) < 52 {
			return nil, malformedf("input too short to hold an ELF32 file header")
		}
		o.Type = elf.Type(l.Uint16(raw[16:18]))
		o.Machine = elf.Machine(l.Uint16(raw[18:20]))
		o.Version = l.Uint32(raw[20:24])
		o.Entry = uint64(l.Uint32(raw[24:28]))
		phoff = uint64(l.Uint32(raw[28:32]))
		shoff = uint64(l.Uint32(raw[32:36]))
		o.Flags = l.Uint32(raw[36:40])
		phentsize = l.Uint16(raw[42:44])
		phnum = l.Uint16(raw[44:46])
		shentsize = l.Uint16(raw[46:48])
		shnum = l.Uint16(raw[48:50])
		shstrndx = l.Uint16(raw[50:52])
	}

	// 2. Walk the section header array once, skipping index 0,
	// dispatching each header to a Section variant by sh_type.
	o.Sections = make([]*Section, 0, shnum)
	for i := uint16(1); i < shnum; i++ {
		hdr := raw[shoff+uint64(i)*uint64(shentsize):]
		sec, err := readSectionHeader(l, hdr)
		if err != nil {
			return nil, errors.Wrapf(err, "section %d", i)
		}
		sec.Index = len(o.Sections) + 1
		o.Sections = append(o.Sections, sec)
	}
	if int(shstrndx) >= 1 && int(shstrndx)-1 < len(o.Sections) {
		o.SectionNames = o.Sections[shstrndx-1]
	}
	if o.SectionNames == nil {
		return nil, malformedf("no section-name string table (e_shstrndx %d)", shstrndx)
	}

	// Resolve every section's Name against the section-name string
	// table's raw on-disk bytes, the way Object.cpp's getSectionName
	// does, before anything downstream (symbol lookup, a driver's
	// strip-by-name policy) needs it.
	namesRaw := raw[o.SectionNames.OrigOffset : o.SectionNames.OrigOffset+o.SectionNames.Size]
	for _, sec := range o.Sections {
		sec.Name = cstringAt(namesRaw, sec.NameIndex)
	}

	// Copy section body bytes for every variant that owns a byte
	// vector directly (BytesBody and LinkedBody); SYMTAB and
	// relocation sections are populated from the same bytes in steps
	// 3 and 4 below.
	for _, sec := range o.Sections {
		switch b := sec.Body.(type) {
		case *BytesBody:
			if sec.Type != elf.SHT_NOBITS {
				b.Data = cloneBytes(raw, sec.OrigOffset, sec.Size)
			}
		case *LinkedBody:
			b.Data = cloneBytes(raw, sec.OrigOffset, sec.Size)
		case *StrtabBody:
			seedStrtab(b, raw, sec.OrigOffset, sec.Size)
		}
	}

	// 3. Load the symbol table, if any.
	var symSec *Section
	for _, sec := range o.Sections {
		if sec.Type != elf.SHT_SYMTAB {
			continue
		}
		if symSec != nil {
			return nil, unsupportedf("more than one SYMTAB section (%s and %s)", symSec.Name, sec.Name)
		}
		symSec = sec
	}
	if symSec != nil {
		o.Symbols = symSec
		symtab := symSec.Body.(*SymtabBody)
		strTab, err := o.sectionTable().SectionOfType(symSec.Link, elf.SHT_STRTAB, "symbol table string table")
		if err != nil {
			return nil, err
		}
		strTabBody, ok := strTab.Body.(*StrtabBody)
		if !ok {
			return nil, malformedf("symbol table %s: string table %s is not mutable", symSec.Name, strTab.Name)
		}
		symtab.StrTab = strTab
		symtab.strTabBody = strTabBody

		entSize := int(symSec.EntSize)
		if entSize == 0 {
			entSize = l.SymSize()
		}
		strTabRaw := raw[strTab.OrigOffset : strTab.OrigOffset+strTab.Size]
		n := int(symSec.Size) / entSize
		symtab.Symbols = make([]*Symbol, 0, n)
		for i := 0; i < n; i++ {
			rec := raw[symSec.OrigOffset+uint64(i*entSize):]
			sym, err := readSymRecord(l, rec, strTabRaw, o.Machine)
			if err != nil {
				return nil, errors.Wrapf(err, "symbol %d", i)
			}
			resolveSymSection(sym, o.Sections)
			sym.Index = i
			symtab.Symbols = append(symtab.Symbols, sym)
		}
	}

	// 4. Walk sections a second time, calling initialize, and loading
	// relocation entries.
	tab := o.sectionTable()
	for _, sec := range o.Sections {
		if err := sec.Body.initialize(sec, tab); err != nil {
			return nil, errors.Wrapf(err, "section %s", sec.Name)
		}
		if rb, ok := sec.Body.(*RelocBody); ok {
			if err := readRelocs(rb, sec, raw, l); err != nil {
				return nil, errors.Wrapf(err, "relocation section %s", sec.Name)
			}
		}
	}

	// 5. Read program headers, build Segments, and assign every
	// contained section's Parent to the lowest-offset covering
	// segment.
	o.Segments = make([]*Segment, 0, phnum)
	for i := uint16(0); i < phnum; i++ {
		hdr := raw[phoff+uint64(i)*uint64(phentsize):]
		seg := readSegmentHeader(l, hdr)
		seg.Index = int(i)
		seg.Data = cloneBytes(raw, seg.OrigOffset, seg.FileSize)
		o.Segments = append(o.Segments, seg)
	}
	for _, sec := range o.Sections {
		var owner *Segment
		for _, seg := range o.Segments {
			if !seg.sectionWithin(sec) {
				continue
			}
			if owner == nil || seg.OrigOffset < owner.OrigOffset {
				owner = seg
			}
		}
		if owner != nil {
			sec.Parent = owner
			owner.Sections = append(owner.Sections, sec)
		}
	}

	// 6. Parent-segment resolution among segments themselves: an
	// all-pairs comparison, parent is whichever candidate has the
	// lowest original_offset, ties broken by lower program-header
	// index.
	for _, child := range o.Segments {
		var parent *Segment
		for _, cand := range o.Segments {
			if cand == child {
				continue
			}
			if cand.OrigOffset < child.OrigOffset && child.OrigOffset < cand.OrigOffset+cand.FileSize {
				if parent == nil ||
					cand.OrigOffset < parent.OrigOffset ||
					(cand.OrigOffset == parent.OrigOffset && cand.Index < parent.Index) {
					parent = cand
				}
			}
		}
		child.Parent = parent
	}

	return o, nil
}

func readAll(r io.ReaderAt) ([]byte, error) {
	type sizer interface{ Size() int64 }
	if s, ok := r.(sizer); ok {
		buf := make([]byte, s.Size())
		if _, err := r.ReadAt(buf, 0); err != nil && err != io.EOF {
			return nil, err
		}
		return buf, nil
	}
	// Fall back to growing reads for an io.ReaderAt without a known
	// size.
	var buf []byte
	const chunk = 64 << 10
	for {
		grown := make([]byte, len(buf)+chunk)
		copy(grown, buf)
		n, err := r.ReadAt(grown[len(buf):], int64(len(buf)))
		buf = grown[:len(buf)+n]
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func cloneBytes(raw []byte, off, size uint64) []byte {
	if size == 0 {
		return nil
	}
	out := make([]byte, size)
	copy(out, raw[off:off+size])
	return out
}

func readSectionHeader(l elfclass.Layout, hdr []byte) (*Section, error) {
	sec := &Section{}
	var shType elf.SectionType
	if l.Is64() {
		sec.NameIndex = l.Uint32(hdr[0:4])
		shType = elf.SectionType(l.Uint32(hdr[4:8]))
		sec.Flags = elf.SectionFlag(l.Uint64(hdr[8:16]))
		sec.Addr = l.Uint64(hdr[16:24])
		sec.OrigOffset = l.Uint64(hdr[24:32])
		sec.Size = l.Uint64(hdr[32:40])
		sec.Link = l.Uint32(hdr[40:44])
		sec.Info = l.Uint32(hdr[44:48])
		sec.AddrAlign = l.Uint64(hdr[48:56])
		sec.EntSize = l.Uint64(hdr[56:64])
	} else {
		sec.NameIndex = l.Uint32(hdr[0:4])
		shType = elf.SectionType(l.Uint32(hdr[4:8]))
		sec.Flags = elf.SectionFlag(l.Uint32(hdr[8:12]))
		sec.Addr = uint64(l.Uint32(hdr[12:16]))
		sec.OrigOffset = uint64(l.Uint32(hdr[16:20]))
		sec.Size = uint64(l.Uint32(hdr[20:24]))
		sec.Link = l.Uint32(hdr[24:28])
		sec.Info = l.Uint32(hdr[28:32])
		sec.AddrAlign = uint64(l.Uint32(hdr[32:36]))
		sec.EntSize = uint64(l.Uint32(hdr[36:40]))
	}
	sec.Type = shType
	sec.Offset = sec.OrigOffset

	alloc := sec.Flags&elf.SHF_ALLOC != 0
	switch {
	case shType == elf.SHT_REL || shType == elf.SHT_RELA:
		if alloc {
			sec.Body = &LinkedBody{}
		} else {
			sec.Body = &RelocBody{WithAddend: shType == elf.SHT_RELA}
		}
	case shType == elf.SHT_STRTAB:
		if alloc {
			sec.Body = &BytesBody{}
		} else {
			sec.Body = &StrtabBody{}
		}
	case shType == elf.SHT_HASH || shType == elf.SHT_GNU_HASH:
		sec.Body = &BytesBody{}
	case shType == elf.SHT_DYNSYM:
		sec.Body = &LinkedBody{}
	case shType == elf.SHT_DYNAMIC:
		sec.Body = &LinkedBody{}
	case shType == elf.SHT_SYMTAB:
		sec.Body = &SymtabBody{}
	default:
		sec.Body = &BytesBody{}
	}
	return sec, nil
}

// seedStrtab reads the raw bytes of an on-disk string table and
// registers every string record it contains with the builder, so that
// the section's existing contents survive a read/finalize/write that
// never touches it.
func seedStrtab(b *StrtabBody, raw []byte, off, size uint64) {
	data := raw[off : off+size]
	start := 1 // byte 0 is always the empty string
	for i := 1; i < len(data); i++ {
		if data[i] == 0 {
			if i > start {
				b.Builder.Add(string(data[start:i]))
			}
			start = i + 1
		}
	}
}

func readSymRecord(l elfclass.Layout, rec []byte, strTabRaw []byte, machine elf.Machine) (*Symbol, error) {
	sym := &Symbol{}
	var nameOff uint32
	var info, other byte
	var shndx elf.SectionIndex
	if l.Is64() {
		nameOff = l.Uint32(rec[0:4])
		info = rec[4]
		other = rec[5]
		shndx = elf.SectionIndex(l.Uint16(rec[6:8]))
		sym.Value = l.Uint64(rec[8:16])
		sym.Size = l.Uint64(rec[16:24])
	} else {
		nameOff = l.Uint32(rec[0:4])
		sym.Value = uint64(l.Uint32(rec[4:8]))
		sym.Size = uint64(l.Uint32(rec[8:12]))
		info = rec[12]
		other = rec[13]
		shndx = elf.SectionIndex(l.Uint16(rec[14:16]))
	}
	sym.Bind = elf.SymBind(info >> 4)
	sym.Type = elf.SymType(info & 0xf)
	sym.Other = other

	sym.Name = cstringAt(strTabRaw, nameOff)

	if shndx >= elf.SHN_LORESERVE {
		if !elfclass.ValidReservedIndex(shndx, machine) {
			return nil, malformedf("invalid reserved st_shndx %#x for machine %s", shndx, machine)
		}
		sym.Reserved = reservedFromShndx(shndx)
	} else if shndx == elf.SHN_UNDEF {
		sym.Reserved = ReservedUndef
	}
	// Non-reserved, non-undef shndx resolves to DefiningSection in
	// resolveSymSection, once the full section list is available.
	sym.shndxRaw = shndx
	return sym, nil
}

// resolveSymSection sets sym.DefiningSection from the raw st_shndx
// value captured by readSymRecord, now that the full section list
// exists. A symbol that resolved to a reserved tag is left alone.
func resolveSymSection(sym *Symbol, sections []*Section) {
	if sym.Reserved != ReservedNone {
		return
	}
	idx := int(sym.shndxRaw)
	if idx >= 1 && idx <= len(sections) {
		sym.DefiningSection = sections[idx-1]
	}
}

// cstringAt reads a NUL-terminated string out of raw starting at off.
// An out-of-range offset yields the empty string rather than an error,
// matching how a stray symbol name offset is tolerated elsewhere in
// the reader.
func cstringAt(raw []byte, off uint32) string {
	if int(off) >= len(raw) {
		return ""
	}
	end := int(off)
	for end < len(raw) && raw[end] != 0 {
		end++
	}
	return string(raw[off:end])
}

func readSegmentHeader(l elfclass.Layout, hdr []byte) *Segment {
	seg := &Segment{}
	if l.Is64() {
		seg.Type = elf.ProgType(l.Uint32(hdr[0:4]))
		seg.Flags = elf.ProgFlag(l.Uint32(hdr[4:8]))
		seg.OrigOffset = l.Uint64(hdr[8:16])
		seg.VAddr = l.Uint64(hdr[16:24])
		seg.PAddr = l.Uint64(hdr[24:32])
		seg.FileSize = l.Uint64(hdr[32:40])
		seg.MemSize = l.Uint64(hdr[40:48])
		seg.Align = l.Uint64(hdr[48:56])
	} else {
		seg.Type = elf.ProgType(l.Uint32(hdr[0:4]))
		seg.OrigOffset = uint64(l.Uint32(hdr[4:8]))
		seg.VAddr = uint64(l.Uint32(hdr[8:12]))
		seg.PAddr = uint64(l.Uint32(hdr[12:16]))
		seg.FileSize = uint64(l.Uint32(hdr[16:20]))
		seg.MemSize = uint64(l.Uint32(hdr[20:24]))
		seg.Flags = elf.ProgFlag(l.Uint32(hdr[24:28]))
		seg.Align = uint64(l.Uint32(hdr[28:32]))
	}
	seg.Offset = seg.OrigOffset
	return seg
}

func readRelocs(rb *RelocBody, sec *Section, raw []byte, l elfclass.Layout) error {
	entSize := int(sec.EntSize)
	if entSize == 0 {
		if rb.WithAddend {
			entSize = l.RelaSize()
		} else {
			entSize = l.RelSize()
		}
	}
	n := int(sec.Size) / entSize
	rb.Relocs = make([]*Relocation, 0, n)
	for i := 0; i < n; i++ {
		rec := raw[sec.OrigOffset+uint64(i*entSize):]
		rel := &Relocation{}
		var symIdx uint32
		if l.Is64() {
			rel.Offset = l.Uint64(rec[0:8])
			info := l.Uint64(rec[8:16])
			symIdx = elf.R_SYM64(info)
			rel.Type = uint32(elf.R_TYPE64(info))
			if rb.WithAddend {
				rel.Addend = l.Int64(rec[16:24])
			}
		} else {
			rel.Offset = uint64(l.Uint32(rec[0:4]))
			info := l.Uint32(rec[4:8])
			symIdx = elf.R_SYM32(info)
			rel.Type = elf.R_TYPE32(info)
			if rb.WithAddend {
				rel.Addend = int64(l.Int32(rec[8:12]))
			}
		}
		if rb.symtabBody != nil && int(symIdx) < len(rb.symtabBody.Symbols) {
			rel.Symbol = rb.symtabBody.Symbols[symIdx]
		}
		rb.Relocs = append(rb.Relocs, rel)
	}
	return nil
}
