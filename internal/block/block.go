// Copyright 2024 The Jazz Authors
// This file is part of Jazz.
//
// Jazz is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Jazz is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Jazz. If not, see <http://www.gnu.org/licenses/>.

// Package block implements the Block value type of spec.md §3.2/§4.1: a
// contiguous, movable, hash-verifiable allocation carrying a typed tensor,
// an attribute table and an internal string buffer. Block is pure data —
// no I/O, no allocation beyond what its Builder performs. Once Close is
// called a Block is immutable.
package block

import (
	"fmt"
	"time"

	"github.com/jazzdata/jazz/internal/jtypes"
)

// Header mirrors spec.md §3.2.1: the fixed-size metadata every Block starts
// with.
type Header struct {
	CellType      jtypes.CellType
	Size          int64 // total cells in the tensor
	Created       int64 // unix nanoseconds
	Rank          int32 // 1..6
	Dim           [6]int64
	NumAttributes int32
	TotalBytes    int64 // whole block, header included
	HasNA         bool
	Hash64        uint64
}

// AttrEntry is one attribute table row: an integer key resolving to a string
// offset inside the block's own string buffer.
type AttrEntry struct {
	Key       int32
	StrOffset int32
}

// Block is the finished, immutable value produced by Builder.Close. Every
// string referenced from the tensor or the attribute table resolves inside
// Strings; no external pointers are ever stored (spec.md §3.2 invariants).
type Block struct {
	Header  Header
	Tensor  []byte // dense cell bytes, length == Size*CellSize(CellType) for plain cell types
	Attrs   []AttrEntry
	Strings *StringBuffer

	// Items holds per-item ItemHeader rows for CellTypeKindItem/CellTypeTupleItem
	// blocks (spec.md §3.2: "Kind/Tuple"); nil for plain tensors.
	Items []ItemHeader

	// ItemData holds each Tuple item's own Block laid out contiguously after
	// the item header array, indexed the same as Items. Nil for Kind blocks
	// (which carry no data, only metadata) and for plain tensors.
	ItemData []*Block

	// Index holds the in-memory map payload for the four Index cell types
	// (spec.md §3.1: "four index variants... treated as a dynamic block").
	// Nil for every other cell type.
	Index *IndexMap
}

// ItemHeader describes one named item inside a Kind or Tuple (spec.md §3.2).
type ItemHeader struct {
	Name      string
	CellType  jtypes.CellType
	Dim       [6]int64 // negative entries are string-buffer offsets of a symbolic dim name (Kind only)
	DataStart int64    // Tuple only: byte offset from the tensor base to this item's tensor
	Level     int32    // Tuple only: hierarchical grouping level from kind merges
}

// Rows returns Dim[0], the Block's first-axis extent — the dimension every
// Filter selects over.
func (b *Block) Rows() int64 {
	if b.Header.Rank == 0 {
		return 0
	}
	return b.Header.Dim[0]
}

// FindNAsInTensor performs the linear scan spec.md §4.1 describes, returning
// whether any cell equals its type's NA sentinel. Index/Kind/Tuple blocks
// never carry NA cells of their own and always report false.
func (b *Block) FindNAsInTensor() bool {
	ct := b.Header.CellType
	if jtypes.IsIndex(ct) || jtypes.IsStructural(ct) {
		return false
	}
	size := int(b.Header.Size)
	switch ct {
	case jtypes.CellTypeByte:
		return false // spec.md Open Question #1: byte tensors are NA-free by contract
	case jtypes.CellTypeByteBoolean:
		for i := 0; i < size; i++ {
			if b.Tensor[i] == jtypes.NAByteBoolean {
				return true
			}
		}
	case jtypes.CellTypeBooleanU32:
		for i := 0; i < size; i++ {
			if b.Tensor[i*4] == jtypes.NAByteBoolean && b.Tensor[i*4+1] == jtypes.NAByteBoolean &&
				b.Tensor[i*4+2] == jtypes.NAByteBoolean && b.Tensor[i*4+3] == jtypes.NAByteBoolean {
				return true
			}
		}
	case jtypes.CellTypeInteger, jtypes.CellTypeFactor, jtypes.CellTypeGrade:
		for i := 0; i < size; i++ {
			if v, _ := b.GetInt32(i); v == jtypes.NAInt32 {
				return true
			}
		}
	case jtypes.CellTypeLongInteger:
		for i := 0; i < size; i++ {
			if v, _ := b.GetInt64(i); v == jtypes.NAInt64 {
				return true
			}
		}
	case jtypes.CellTypeTime:
		for i := 0; i < size; i++ {
			if v, _ := b.GetInt64(i); v == jtypes.NATime {
				return true
			}
		}
	case jtypes.CellTypeSingle:
		for i := 0; i < size; i++ {
			if v, _ := b.GetFloat32(i); jtypes.IsNASingle(v) {
				return true
			}
		}
	case jtypes.CellTypeDouble:
		for i := 0; i < size; i++ {
			if v, _ := b.GetFloat64(i); jtypes.IsNADouble(v) {
				return true
			}
		}
	case jtypes.CellTypeString:
		for i := 0; i < size; i++ {
			if off, _ := b.GetInt32(i); off == 0 {
				return true
			}
		}
	}
	return false
}

// GetAttribute returns the string value of attribute key, if present.
func (b *Block) GetAttribute(key int32) (string, bool) {
	for _, a := range b.Attrs {
		if a.Key == key {
			return b.Strings.Get(a.StrOffset)
		}
	}
	return "", false
}

// GetAttributes copies every attribute into dst.
func (b *Block) GetAttributes(dst map[int32]string) {
	for _, a := range b.Attrs {
		if s, ok := b.Strings.Get(a.StrOffset); ok {
			dst[a.Key] = s
		}
	}
}

// now is a seam the Builder uses for Created timestamps; overridden in tests.
var now = func() int64 { return time.Now().UnixNano() }

func rankError(rank int) error {
	return fmt.Errorf("%w: rank %d out of [1,%d]", jtypes.StatusNewBlockArgs, rank, jtypes.MaxRank)
}
