// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elfobj

// Write serializes o into buf, which must be at least TotalSize bytes
// long. Call Finalize first; Write does not itself recompute layout.
func (o *Object) Write(buf []byte) error {
	o.writeHeader(buf)
	o.writeProgramHeaders(buf)
	for _, seg := range o.Segments {
		copy(buf[seg.Offset:], seg.Data)
	}
	for _, sec := range o.Sections {
		sec.Body.writeSection(sec, buf, o.Layout)
	}
	o.writeSectionHeaders(buf)
	return nil
}

func (o *Object) writeHeader(buf []byte) {
	l := o.Layout
	copy(buf[0:16], o.Ident[:])
	l.PutUint16(buf[16:18], uint16(o.Type))
	l.PutUint16(buf[18:20], uint16(o.Machine))
	l.PutUint32(buf[20:24], o.Version)

	phoff := uint64(l.FileHeaderSize())
	ehsize := l.FileHeaderSize()
	phentsize := l.ProgramHeaderSize()
	shentsize := l.SectionHeaderSize()
	shnum := len(o.Sections) + 1
	shstrndx := o.SectionNames.Index

	if l.Is64() {
		l.PutUint64(buf[24:32], o.Entry)
		l.PutUint64(buf[32:40], phoff)
		l.PutUint64(buf[40:48], o.shOffset)
		l.PutUint32(buf[48:52], o.Flags)
		l.PutUint16(buf[52:54], uint16(ehsize))
		l.PutUint16(buf[54:56], uint16(phentsize))
		l.PutUint16(buf[56:58], uint16(len(o.Segments)))
		l.PutUint16(buf[58:60], uint16(shentsize))
		l.PutUint16(buf[60:62], uint16(shnum))
		l.PutUint16(buf[62:64], uint16(shstrndx))
	} else {
		l.PutUint32(buf[24:28], uint32(o.Entry))
		l.PutUint32(buf[28:32], uint32(phoff))
		l.PutUint32(buf[32:36], uint32(o.shOffset))
		l.PutUint32(buf[36:40], o.Flags)
		l.PutUint16(buf[40:42], uint16(ehsize))
		l.PutUint16(buf[42:44], uint16(phentsize))
		l.PutUint16(buf[44:46], uint16(len(o.Segments)))
		l.PutUint16(buf[46:48], uint16(shentsize))
		l.PutUint16(buf[48:50], uint16(shnum))
		l.PutUint16(buf[50:52], uint16(shstrndx))
	}
}

func (o *Object) writeProgramHeaders(buf []byte) {
	l := o.Layout
	base := uint64(l.FileHeaderSize())
	phsize := uint64(l.ProgramHeaderSize())
	for i, seg := range o.Segments {
		rec := buf[base+uint64(i)*phsize:]
		if l.Is64() {
			l.PutUint32(rec[0:4], uint32(seg.Type))
			l.PutUint32(rec[4:8], uint32(seg.Flags))
			l.PutUint64(rec[8:16], seg.Offset)
			l.PutUint64(rec[16:24], seg.VAddr)
			l.PutUint64(rec[24:32], seg.PAddr)
			l.PutUint64(rec[32:40], seg.FileSize)
			l.PutUint64(rec[40:48], seg.MemSize)
			l.PutUint64(rec[48:56], seg.Align)
		} else {
			l.PutUint32(rec[0:4], uint32(seg.Type))
			l.PutUint32(rec[4:8], uint32(seg.Offset))
			l.PutUint32(rec[8:12], uint32(seg.VAddr))
			l.PutUint32(rec[12:16], uint32(seg.PAddr))
			l.PutUint32(rec[16:20], uint32(seg.FileSize))
			l.PutUint32(rec[20:24], uint32(seg.MemSize))
			l.PutUint32(rec[24:28], uint32(seg.Flags))
			l.PutUint32(rec[28:32], uint32(seg.Align))
		}
	}
}

// writeSectionHeaders writes the leading null header followed by
// every section's header, at o.shOffset.
func (o *Object) writeSectionHeaders(buf []byte) {
	shsize := o.Layout.SectionHeaderSize()
	for i := 0; i < shsize; i++ {
		buf[int(o.shOffset)+i] = 0
	}
	for _, sec := range o.Sections {
		sec.WriteHeader(o.Layout, buf)
	}
}
