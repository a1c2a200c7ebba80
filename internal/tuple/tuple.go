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

// Package tuple builds Tuple blocks (spec.md §3.2/§4.2): a Kind instance,
// carrying one concrete tensor per item inside a single allocation.
package tuple

import (
	"fmt"

	"github.com/jazzdata/jazz/internal/block"
	"github.com/jazzdata/jazz/internal/jtypes"
	"github.com/jazzdata/jazz/internal/kind"
)

// KindAttrKey is the attribute key Close stamps with the originating kind's
// name, when one is supplied (spec.md §4.2: "Tuples reference their kind via
// an optional attribute; the Container sets it").
const KindAttrKey int32 = 1

// Builder assembles a Tuple item by item: New, then repeated AddItem, then
// Close.
type Builder struct {
	bb     *block.Builder
	hasNA  bool
	filled int
}

// New starts a Tuple build. totalBytes is advisory capacity the caller
// expects the finished tuple to occupy; Jazz's allocator does not need to
// pre-reserve it (Go slices grow on demand) but callers may use it to choose
// between Persisted and Volatile ahead of time.
func New(totalBytes int64) (*Builder, error) {
	bb, err := block.NewStructuralBuilder(jtypes.CellTypeTupleItem)
	if err != nil {
		return nil, err
	}
	return &Builder{bb: bb}, nil
}

// AddItem appends data as the next item, named name, at hierarchy level.
// data's own HasNA bubbles up into the finished tuple's HasNA.
func (t *Builder) AddItem(name string, level int32, data *block.Block) error {
	if !jtypes.ValidName(name) {
		return fmt.Errorf("%w: invalid item name %q", jtypes.StatusWrongName, name)
	}
	start := t.bb.AppendItemData(data)
	t.bb.AppendItem(block.ItemHeader{
		Name:      name,
		CellType:  data.Header.CellType,
		Dim:       data.Header.Dim,
		DataStart: start,
		Level:     level,
	})
	if data.Header.HasNA {
		t.hasNA = true
	}
	t.filled++
	return nil
}

// Close finalises the tuple, stamping attrs and (if kindName is non-empty)
// the kind-reference attribute spec.md §4.2 describes.
func (t *Builder) Close(attrs map[int32]string, kindName string) (*block.Block, error) {
	if t.filled == 0 {
		return nil, fmt.Errorf("%w: tuple has no items", jtypes.StatusNewBlockArgs)
	}
	if kindName != "" {
		if attrs == nil {
			attrs = map[int32]string{}
		}
		attrs[KindAttrKey] = kindName
	}
	t.bb.SetAttributes(attrs)

	policy := block.HasNAFalse
	if t.hasNA {
		policy = block.HasNATrue
	}
	blk, err := t.bb.Close(policy)
	if err != nil {
		return nil, err
	}
	return blk, nil
}

// ItemByName extracts the item tensor named name from a finished Tuple
// (spec.md §4.3 new_block form 4: "Tensor extracted from a Tuple by item
// name").
func ItemByName(tup *block.Block, name string) (*block.Block, error) {
	if tup.Header.CellType != jtypes.CellTypeTupleItem {
		return nil, fmt.Errorf("%w: not a tuple block", jtypes.StatusWrongType)
	}
	for i, it := range tup.Items {
		if it.Name == name {
			return tup.ItemData[i], nil
		}
	}
	return nil, fmt.Errorf("%w: tuple has no item %q", jtypes.StatusWrongName, name)
}

// MergeSource is one input to MergeKindItems: either a single scalar item
// (Item non-nil) or a whole Kind to splice in with its item names prefixed
// (Kind non-nil).
type MergeSource struct {
	Name string
	Item *block.ItemHeader
	Kind *block.Block
}

// MergeKindItems implements the level/naming arithmetic spec.md §4.2
// describes for building a Tuple/Kind out of other kinds: merging kinds
// X=(a,b) and scalar f into (f,X) yields items (f@0, X_a@1, X_b@1) — each
// source contributes at its own level, and a multi-item source's items are
// renamed "<source.Name>_<item.Name>".
func MergeKindItems(sources []MergeSource) ([]block.ItemHeader, error) {
	var out []block.ItemHeader
	for level, src := range sources {
		switch {
		case src.Item != nil && src.Kind == nil:
			it := *src.Item
			it.Name = src.Name
			it.Level = int32(level)
			out = append(out, it)
		case src.Kind != nil && src.Item == nil:
			if err := kind.Audit(src.Kind); err != nil {
				return nil, err
			}
			for _, sub := range src.Kind.Items {
				it := sub
				it.Name = src.Name + "_" + sub.Name
				it.Level = int32(level)
				out = append(out, it)
			}
		default:
			return nil, fmt.Errorf("%w: merge source %q must set exactly one of Item/Kind", jtypes.StatusNewBlockArgs, src.Name)
		}
	}
	return out, nil
}
