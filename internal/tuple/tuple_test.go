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

package tuple

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jazzdata/jazz/internal/block"
	"github.com/jazzdata/jazz/internal/jtypes"
	"github.com/jazzdata/jazz/internal/kind"
)

func intBlock(t *testing.T, vals []int32) *block.Block {
	t.Helper()
	b, err := block.NewBuilder(jtypes.CellTypeInteger, [6]int64{int64(len(vals))}, 0)
	require.NoError(t, err)
	for i, v := range vals {
		require.NoError(t, b.SetInt32(i, v))
	}
	blk, err := b.Close(block.HasNAAuto)
	require.NoError(t, err)
	return blk
}

func TestTupleRoundTrip(t *testing.T) {
	tb, err := New(0)
	require.NoError(t, err)
	require.NoError(t, tb.AddItem("a", 0, intBlock(t, []int32{1, 2, 3})))
	require.NoError(t, tb.AddItem("b", 0, intBlock(t, []int32{4, 5, 6})))

	blk, err := tb.Close(nil, "XY")
	require.NoError(t, err)
	kindName, ok := blk.GetAttribute(KindAttrKey)
	require.True(t, ok)
	require.Equal(t, "XY", kindName)

	a, err := ItemByName(blk, "a")
	require.NoError(t, err)
	v, _ := a.GetInt32(1)
	require.Equal(t, int32(2), v)

	data := blk.Bytes()
	parsed, err := block.Parse(data)
	require.NoError(t, err)
	require.True(t, parsed.CheckHash())
	require.Len(t, parsed.ItemData, 2)
}

func TestMergeKindItemsNamingAndLevels(t *testing.T) {
	kb, err := kind.New(2, nil)
	require.NoError(t, err)
	require.NoError(t, kb.AddItem(0, "a", [6]int64{1}, jtypes.CellTypeInteger, [6]string{}))
	require.NoError(t, kb.AddItem(1, "b", [6]int64{1}, jtypes.CellTypeInteger, [6]string{}))
	xKind, err := kb.Close()
	require.NoError(t, err)

	scalar := &block.ItemHeader{CellType: jtypes.CellTypeSingle}
	items, err := MergeKindItems([]MergeSource{
		{Name: "f", Item: scalar},
		{Name: "X", Kind: xKind},
	})
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, "f", items[0].Name)
	require.Equal(t, int32(0), items[0].Level)
	require.Equal(t, "X_a", items[1].Name)
	require.Equal(t, int32(1), items[1].Level)
	require.Equal(t, "X_b", items[2].Name)
	require.Equal(t, int32(1), items[2].Level)
}
