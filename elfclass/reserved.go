// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elfclass

import "debug/elf"

// Hexagon-specific reserved section indices. debug/elf only knows the
// machine-independent reserved range (SHN_ABS, SHN_COMMON, ...); these
// four are EM_HEXAGON's "small common" variants and have no stdlib
// constant.
const (
	SHN_HEXAGON_SCOMMON   elf.SectionIndex = 0xff00
	SHN_HEXAGON_SCOMMON_2 elf.SectionIndex = 0xff01
	SHN_HEXAGON_SCOMMON_4 elf.SectionIndex = 0xff02
	SHN_HEXAGON_SCOMMON_8 elf.SectionIndex = 0xff03
)

// ValidReservedIndex reports whether shndx, which must be
// >= elf.SHN_LORESERVE, is a reserved section index this implementation
// understands for the given machine. Reserved indices outside this set
// are malformed input.
func ValidReservedIndex(shndx elf.SectionIndex, machine elf.Machine) bool {
	switch shndx {
	case elf.SHN_ABS, elf.SHN_COMMON:
		return true
	}
	if machine == elf.EM_HEXAGON {
		switch shndx {
		case SHN_HEXAGON_SCOMMON, SHN_HEXAGON_SCOMMON_2, SHN_HEXAGON_SCOMMON_4, SHN_HEXAGON_SCOMMON_8:
			return true
		}
	}
	return false
}
