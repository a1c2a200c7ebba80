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

// Package kind builds and audits Kind blocks (spec.md §3.2/§4.2): metadata
// describing a family of Tuples, with named items whose dimensions may be
// symbolic.
package kind

import (
	"fmt"
	"sort"

	"github.com/jazzdata/jazz/internal/block"
	"github.com/jazzdata/jazz/internal/jtypes"
)

// symbolicDim marks an axis of an item's Dim array as "use the name in the
// matching slot of dimNames" when passed to AddItem; Builder replaces it
// with the negative string-buffer offset of that name before storing it.
const symbolicDim = -1

// Builder performs the two-phase construction spec.md §4.2 describes:
// NewKind lays out the skeleton, then repeated AddItem calls fill it in.
type Builder struct {
	bb       *block.Builder
	numItems int
	filled   int
}

// New lays out a Kind skeleton for numItems items with the given attributes
// (e.g. a "kind_name" or version attribute).
func New(numItems int, attrs map[int32]string) (*Builder, error) {
	if numItems <= 0 {
		return nil, fmt.Errorf("%w: kind needs at least one item", jtypes.StatusNewBlockArgs)
	}
	bb, err := block.NewStructuralBuilder(jtypes.CellTypeKindItem)
	if err != nil {
		return nil, err
	}
	bb.SetAttributes(attrs)
	return &Builder{bb: bb, numItems: numItems}, nil
}

// AddItem fills item index with name/dim/cellType. Any axis of dim equal to
// symbolicDim is resolved against the matching entry of dimNames: the name
// is interned and the axis is stored as the negative of its string-buffer
// offset, exactly as spec.md §3.2 describes ("their dim[i] may be negative,
// encoding an offset into the block's string buffer").
func (k *Builder) AddItem(index int, name string, dim [6]int64, cellType jtypes.CellType, dimNames [6]string) error {
	if index < 0 || index >= k.numItems {
		return fmt.Errorf("%w: item index %d out of [0,%d)", jtypes.StatusWrongArguments, index, k.numItems)
	}
	if !jtypes.ValidName(name) {
		return fmt.Errorf("%w: invalid item name %q", jtypes.StatusWrongName, name)
	}

	resolved := dim
	for i, d := range dim {
		if d == symbolicDim {
			if dimNames[i] == "" {
				return fmt.Errorf("%w: item %q axis %d marked symbolic with no name", jtypes.StatusNewBlockArgs, name, i)
			}
			off := k.bb.InternString(dimNames[i])
			resolved[i] = -int64(off)
		} else if d < 0 {
			return fmt.Errorf("%w: item %q axis %d has reserved negative dim %d", jtypes.StatusNewBlockArgs, name, i, d)
		}
	}

	for k.bb.NumItems() <= index {
		k.bb.AppendItem(block.ItemHeader{})
	}
	k.bb.SetItemHeader(index, block.ItemHeader{
		Name:     name,
		CellType: cellType,
		Dim:      resolved,
	})
	k.filled++
	return nil
}

// Close finalises the Kind. Kind items never carry data, so HasNA is always
// false.
func (k *Builder) Close() (*block.Block, error) {
	if k.filled != k.numItems {
		return nil, fmt.Errorf("%w: kind has %d of %d items filled", jtypes.StatusNewBlockArgs, k.filled, k.numItems)
	}
	blk, err := k.bb.Close(block.HasNAFalse)
	if err != nil {
		return nil, err
	}
	if err := Audit(blk); err != nil {
		return nil, err
	}
	return blk, nil
}

// Audit verifies spec.md §3.2's Kind contract: item names unique, every
// symbolic dimension name resolves inside the string buffer, and — trivially
// true by construction, since Kind items carry no data — no item has data.
func Audit(blk *block.Block) error {
	if blk.Header.CellType != jtypes.CellTypeKindItem {
		return fmt.Errorf("%w: not a kind block", jtypes.StatusWrongType)
	}
	seen := make(map[string]bool, len(blk.Items))
	for _, it := range blk.Items {
		if seen[it.Name] {
			return fmt.Errorf("%w: duplicate item name %q", jtypes.StatusBadBlock, it.Name)
		}
		seen[it.Name] = true
		for _, d := range it.Dim {
			if d < 0 {
				if _, ok := blk.Strings.Get(int32(-d)); !ok {
					return fmt.Errorf("%w: item %q references missing dimension name at offset %d", jtypes.StatusBadBlock, it.Name, -d)
				}
			}
		}
	}
	return nil
}

// Dimensions returns the set of symbolic dimension names used anywhere in
// the kind (spec.md §4.2: "dimensions() returns the set of symbolic
// dimension names used anywhere in the kind").
func Dimensions(blk *block.Block) []string {
	seen := make(map[string]bool)
	for _, it := range blk.Items {
		for _, d := range it.Dim {
			if d < 0 {
				if name, ok := blk.Strings.Get(int32(-d)); ok {
					seen[name] = true
				}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// IndexOf performs the linear item-name lookup spec.md §4.2 describes
// ("index(name) is a linear lookup").
func IndexOf(blk *block.Block, name string) (int, bool) {
	for i, it := range blk.Items {
		if it.Name == name {
			return i, true
		}
	}
	return 0, false
}
