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

package container

import (
	"fmt"
	"sort"

	"github.com/jazzdata/jazz/internal/block"
	"github.com/jazzdata/jazz/internal/jtypes"
	"github.com/jazzdata/jazz/internal/locator"
	"github.com/jazzdata/jazz/internal/tuple"
)

// NewBlockTensor is new_block form 1 (spec.md §4.3): a plain tensor built
// from scratch. fill, when non-nil, populates cells through the Builder
// before Close; it may be nil to hand back an all-NA block of the given
// shape.
func (b Base) NewBlockTensor(cellType jtypes.CellType, dim [6]int64, maxStringBytes int, policy block.HasNAPolicy, fill func(*block.Builder) error) (*Transaction, error) {
	bb, err := block.NewBuilder(cellType, dim, maxStringBytes)
	if err != nil {
		return nil, err
	}
	if fill != nil {
		if err := fill(bb); err != nil {
			return nil, err
		}
	}
	blk, err := bb.Close(policy)
	if err != nil {
		return nil, err
	}
	return b.NewTransaction(blk, nil)
}

// NewBlockFromBuilt is new_block form 2: a Kind or Tuple already assembled
// by kind.Builder/tuple.Builder, adopted into a Transaction owned by this
// container so it is accounted the same as any other block.
func (b Base) NewBlockFromBuilt(blk *block.Block) (*Transaction, error) {
	return b.NewTransaction(blk, nil)
}

// NewBlockFiltered is new_block form 3: src's rows selected by filter.
func (b Base) NewBlockFiltered(src, filter *block.Block) (*Transaction, error) {
	out, err := src.ApplyFilter(filter)
	if err != nil {
		return nil, err
	}
	return b.NewTransaction(out, nil)
}

// GetFilteredNative is the Native form of the Easy interface's row_filter
// overload: read loc, then keep only the rows filter selects.
func (b Base) GetFilteredNative(loc locator.Locator, filter *block.Block) (*Transaction, error) {
	src, err := b.Self.GetNative(loc)
	if err != nil {
		return nil, err
	}
	defer src.Destroy()
	return b.NewBlockFiltered(src.Block(), filter)
}

// GetFiltered is GetFilteredNative's string-path Easy form.
func (b Base) GetFiltered(path string, filter *block.Block) (*Transaction, error) {
	loc, err := b.Self.AsLocator(path)
	if err != nil {
		return nil, err
	}
	return b.GetFilteredNative(loc, filter)
}

// NewBlockItem is new_block form 4: the tensor item named itemName,
// extracted from a finished Tuple.
func (b Base) NewBlockItem(tup *block.Block, itemName string) (*Transaction, error) {
	out, err := tuple.ItemByName(tup, itemName)
	if err != nil {
		return nil, err
	}
	return b.NewTransaction(out, nil)
}

// GetItemNative is the Native form of the Easy interface's item_name
// overload: read loc as a Tuple, then extract the named item.
func (b Base) GetItemNative(loc locator.Locator, itemName string) (*Transaction, error) {
	src, err := b.Self.GetNative(loc)
	if err != nil {
		return nil, err
	}
	defer src.Destroy()
	return b.NewBlockItem(src.Block(), itemName)
}

// GetItem is GetItemNative's string-path Easy form.
func (b Base) GetItem(path, itemName string) (*Transaction, error) {
	loc, err := b.Self.AsLocator(path)
	if err != nil {
		return nil, err
	}
	return b.GetItemNative(loc, itemName)
}

// NewBlockFromText is new_block form 5: a tensor parsed from its bracketed
// text form.
func (b Base) NewBlockFromText(text string, cellType jtypes.CellType) (*Transaction, error) {
	blk, err := ParseText(text, cellType)
	if err != nil {
		return nil, err
	}
	return b.NewTransaction(blk, nil)
}

// NewBlockText is new_block form 6: blk serialised to its bracketed text
// form, wrapped as a single-cell string tensor.
func (b Base) NewBlockText(blk *block.Block) (*Transaction, error) {
	text, err := WriteText(blk)
	if err != nil {
		return nil, err
	}
	bb, err := block.NewBuilder(jtypes.CellTypeString, [6]int64{1}, 0)
	if err != nil {
		return nil, err
	}
	if err := bb.SetString(0, text); err != nil {
		return nil, err
	}
	out, err := bb.Close(block.HasNAFalse)
	if err != nil {
		return nil, err
	}
	return b.NewTransaction(out, nil)
}

// NewBlockIndex is new_block form 7: a freshly allocated, empty Index of
// the given flavour.
func (b Base) NewBlockIndex(cellType jtypes.CellType) (*Transaction, error) {
	bb, err := block.NewIndexBuilder(cellType)
	if err != nil {
		return nil, err
	}
	blk, err := bb.Close(block.HasNAFalse)
	if err != nil {
		return nil, err
	}
	return b.NewTransaction(blk, nil)
}

// NewBlockTupleFromIndex is new_block form 8: a Tuple with two parallel
// string items "key" and "value", materialised from idx's string-to-string
// map in sorted key order so the result is deterministic.
func (b Base) NewBlockTupleFromIndex(idx *block.Block) (*Transaction, error) {
	if idx.Header.CellType != jtypes.CellTypeIndexString2String {
		return nil, fmt.Errorf("%w: new_block form 8 expects a string-to-string index", jtypes.StatusWrongType)
	}
	m := idx.Index.String2Str
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	keyBuilder, err := block.NewBuilder(jtypes.CellTypeString, [6]int64{int64(len(keys))}, 0)
	if err != nil {
		return nil, err
	}
	valBuilder, err := block.NewBuilder(jtypes.CellTypeString, [6]int64{int64(len(keys))}, 0)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		if err := keyBuilder.SetString(i, k); err != nil {
			return nil, err
		}
		if err := valBuilder.SetString(i, m[k]); err != nil {
			return nil, err
		}
	}
	keyBlk, err := keyBuilder.Close(block.HasNAFalse)
	if err != nil {
		return nil, err
	}
	valBlk, err := valBuilder.Close(block.HasNAFalse)
	if err != nil {
		return nil, err
	}

	tb, err := tuple.New(0)
	if err != nil {
		return nil, err
	}
	if err := tb.AddItem("key", 0, keyBlk); err != nil {
		return nil, err
	}
	if err := tb.AddItem("value", 0, valBlk); err != nil {
		return nil, err
	}
	out, err := tb.Close(nil, "")
	if err != nil {
		return nil, err
	}
	return b.NewTransaction(out, nil)
}
