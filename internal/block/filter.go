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

// FilterKind is the result of Block.FilterAudit.
type FilterKind int

const (
	NotAFilter FilterKind = iota
	FilterByteBoolean
	FilterInteger
)

// FilterAudit verifies the strict filter contract of spec.md §3.2: a Filter
// is a rank-1 Block of either byte-boolean cells (length == rows) or sorted
// strictly-increasing i32 cells in [0, rows).
func (b *Block) FilterAudit(rows int64) FilterKind {
	if b.Header.Rank != 1 {
		return NotAFilter
	}
	switch b.Header.CellType {
	case jtypes.CellTypeByteBoolean:
		if b.Header.Size != rows {
			return NotAFilter
		}
		return FilterByteBoolean
	case jtypes.CellTypeInteger:
		prev := int64(-1)
		for i := 0; i < int(b.Header.Size); i++ {
			v, _ := b.GetInt32(i)
			iv := int64(v)
			if iv < 0 || iv >= rows || iv <= prev {
				return NotAFilter
			}
			prev = iv
		}
		return FilterInteger
	default:
		return NotAFilter
	}
}

// SelectedRows returns the 0-based row indices a filter selects, given the
// row count of the tensor it will be applied to. An empty
// FilterInteger filter (Size==0) selects no rows — spec.md Design Notes,
// Open Question #2, resolved in favour of "empty result".
func (b *Block) SelectedRows(rows int64) ([]int64, error) {
	switch b.FilterAudit(rows) {
	case FilterByteBoolean:
		var out []int64
		for i := 0; i < int(rows); i++ {
			v, ok, err := b.GetBool(i)
			if err != nil {
				return nil, err
			}
			if ok && v {
				out = append(out, int64(i))
			}
		}
		return out, nil
	case FilterInteger:
		out := make([]int64, b.Header.Size)
		for i := range out {
			v, _ := b.GetInt32(i)
			out[i] = int64(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: not a valid filter for %d rows", jtypes.StatusWrongArguments, rows)
	}
}

// ApplyFilter builds a new tensor Block keeping only the rows selected by
// filter (spec.md §4.3 new_block form 3). Only rank-1 and rank-2 source
// tensors are supported, which covers every shape spec.md's scenarios (§8
// S3) and the Container's "tensor filtered by row-filter" contract exercise.
func (b *Block) ApplyFilter(filter *Block) (*Block, error) {
	if jtypes.IsIndex(b.Header.CellType) || jtypes.IsStructural(b.Header.CellType) {
		return nil, fmt.Errorf("%w: cannot filter a structural block", jtypes.StatusWrongType)
	}
	rows := b.Rows()
	selected, err := filter.SelectedRows(rows)
	if err != nil {
		return nil, err
	}

	cellSize := jtypes.CellSize(b.Header.CellType)
	rowStride := cellSize
	cols := int64(1)
	if b.Header.Rank >= 2 {
		cols = b.Header.Dim[1]
		rowStride = cellSize * int(cols)
	}

	newDim := b.Header.Dim
	newDim[0] = int64(len(selected))

	builder, err := NewBuilder(b.Header.CellType, newDim, 0)
	if err != nil {
		return nil, err
	}
	if builder.tensor != nil {
		for outRow, srcRow := range selected {
			srcOff := int(srcRow) * rowStride
			dstOff := outRow * rowStride
			copy(builder.tensor[dstOff:dstOff+rowStride], b.Tensor[srcOff:srcOff+rowStride])
		}
	}
	// Strings referenced by a filtered string tensor still resolve: the new
	// block shares no string buffer with the source, so copy referenced
	// offsets' strings across and rewrite them.
	if b.Header.CellType == jtypes.CellTypeString {
		for outRow, srcRow := range selected {
			for c := 0; c < int(cols); c++ {
				off, _ := b.GetInt32(int(srcRow)*int(cols) + c)
				s, ok := b.Strings.Get(off)
				if ok {
					builder.SetString(outRow*int(cols)+c, s)
				} else {
					builder.SetStringNA(outRow*int(cols) + c)
				}
			}
		}
	}

	return builder.Close(HasNAAuto)
}
