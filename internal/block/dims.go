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

package block

import (
	"fmt"

	"github.com/jazzdata/jazz/internal/jtypes"
)

// strides holds, for each axis, the number of cells to skip to move one
// step along that axis — computed once by SetDimensions and reused by
// GetOffset/GetIndex.
type strides [6]int64

// SetDimensions computes rank, size and the stride table for dim, following
// spec.md §4.1: trailing zero dims collapse the rank, and an all-zero dim
// forces rank 1, size 0.
func SetDimensions(dim [6]int64) (rank int32, size int64, strd strides, err error) {
	effRank := jtypes.MaxRank
	for effRank > 1 && dim[effRank-1] == 0 {
		effRank--
	}
	allZero := true
	for i := 0; i < effRank; i++ {
		if dim[i] != 0 {
			allZero = false
		}
		if dim[i] < 0 {
			return 0, 0, strd, fmt.Errorf("%w: negative dimension dim[%d]=%d", jtypes.StatusNewBlockArgs, i, dim[i])
		}
	}
	if allZero {
		return 1, 0, strd, nil
	}

	size = 1
	for i := 0; i < effRank; i++ {
		n := dim[i]
		if n == 0 {
			n = 1
		}
		size *= n
	}

	// Row-major strides: axis 0 varies slowest (outermost), matching
	// spec.md's "cell i of axis a has byte offset i*dim[a]*cell_size" when
	// dim[a] there denotes the stride, not the extent — we store extents in
	// Dim and strides separately to keep both available without recomputation.
	acc := int64(1)
	for i := effRank - 1; i >= 0; i-- {
		strd[i] = acc
		n := dim[i]
		if n == 0 {
			n = 1
		}
		acc *= n
	}
	return int32(effRank), size, strd, nil
}

// ValidateIndex reports whether idx is a legal coordinate for a Block with
// the given rank/dim.
func ValidateIndex(idx []int64, rank int32, dim [6]int64) bool {
	if len(idx) != int(rank) {
		return false
	}
	for i := 0; i < int(rank); i++ {
		limit := dim[i]
		if limit == 0 {
			limit = 1
		}
		if idx[i] < 0 || idx[i] >= limit {
			return false
		}
	}
	return true
}

// GetOffset converts idx into a linear cell offset using strd.
func GetOffset(idx []int64, rank int32, strd strides) int64 {
	var off int64
	for i := 0; i < int(rank); i++ {
		off += idx[i] * strd[i]
	}
	return off
}

// GetIndex converts a linear cell offset back into coordinates.
func GetIndex(off int64, rank int32, dim [6]int64, strd strides) []int64 {
	idx := make([]int64, rank)
	rem := off
	for i := 0; i < int(rank); i++ {
		n := dim[i]
		if n == 0 {
			n = 1
		}
		idx[i] = rem / strd[i]
		rem %= strd[i]
		_ = n
	}
	return idx
}

// ValidateOffset reports whether off addresses a real cell of a Block with
// the given size.
func ValidateOffset(off, size int64) bool {
	return off >= 0 && off < size
}

// GetDimensions returns the rank-truncated dim array (spec.md: "If rank < 6,
// dim[rank..] are zero" — already the stored representation, this is just a
// documented accessor).
func (b *Block) GetDimensions() [6]int64 {
	return b.Header.Dim
}

// GetOffset converts a coordinate into a linear cell offset for b.
func (b *Block) GetOffset(idx []int64) (int64, error) {
	if !ValidateIndex(idx, b.Header.Rank, b.Header.Dim) {
		return 0, fmt.Errorf("%w: index %v invalid for dim %v", jtypes.StatusWrongArguments, idx, b.Header.Dim[:b.Header.Rank])
	}
	strd := stridesOf(b.Header.Rank, b.Header.Dim)
	return GetOffset(idx, b.Header.Rank, strd), nil
}

// GetIndex converts a linear cell offset into coordinates for b.
func (b *Block) GetIndex(off int64) ([]int64, error) {
	if !ValidateOffset(off, b.Header.Size) {
		return nil, fmt.Errorf("%w: offset %d invalid for size %d", jtypes.StatusWrongArguments, off, b.Header.Size)
	}
	strd := stridesOf(b.Header.Rank, b.Header.Dim)
	return GetIndex(off, b.Header.Rank, b.Header.Dim, strd), nil
}

// ValidateIndex reports whether idx is legal for b.
func (b *Block) ValidateIndex(idx []int64) bool {
	return ValidateIndex(idx, b.Header.Rank, b.Header.Dim)
}

// ValidateOffset reports whether off is legal for b.
func (b *Block) ValidateOffset(off int64) bool {
	return ValidateOffset(off, b.Header.Size)
}

func stridesOf(rank int32, dim [6]int64) strides {
	var strd strides
	acc := int64(1)
	for i := int(rank) - 1; i >= 0; i-- {
		strd[i] = acc
		n := dim[i]
		if n == 0 {
			n = 1
		}
		acc *= n
	}
	return strd
}
