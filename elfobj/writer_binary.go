// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elfobj

// Write copies each kept segment's owned bytes into buf, which must
// be at least b.TotalSize() bytes long, at its assigned offset.
func (b *BinaryImage) Write(buf []byte) error {
	for _, seg := range b.order {
		copy(buf[seg.Offset:], seg.Data)
	}
	return nil
}
