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

package kind

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jazzdata/jazz/internal/jtypes"
)

func buildXY(t *testing.T) *Builder {
	t.Helper()
	b, err := New(2, map[int32]string{1: "X"})
	require.NoError(t, err)
	require.NoError(t, b.AddItem(0, "a", [6]int64{symbolicDim}, jtypes.CellTypeInteger, [6]string{"rows"}))
	require.NoError(t, b.AddItem(1, "b", [6]int64{symbolicDim}, jtypes.CellTypeInteger, [6]string{"rows"}))
	return b
}

func TestKindRoundTrip(t *testing.T) {
	b := buildXY(t)
	blk, err := b.Close()
	require.NoError(t, err)
	require.Len(t, blk.Items, 2)

	i, ok := IndexOf(blk, "b")
	require.True(t, ok)
	require.Equal(t, 1, i)

	dims := Dimensions(blk)
	require.Equal(t, []string{"rows"}, dims)
}

func TestKindAuditRejectsDuplicateNames(t *testing.T) {
	b, err := New(2, nil)
	require.NoError(t, err)
	require.NoError(t, b.AddItem(0, "a", [6]int64{1}, jtypes.CellTypeInteger, [6]string{}))
	require.NoError(t, b.AddItem(1, "a", [6]int64{1}, jtypes.CellTypeInteger, [6]string{}))
	_, err = b.Close()
	require.Error(t, err)
}

func TestKindAddItemRejectsMissingSymbolicName(t *testing.T) {
	b, err := New(1, nil)
	require.NoError(t, err)
	err = b.AddItem(0, "a", [6]int64{symbolicDim}, jtypes.CellTypeInteger, [6]string{})
	require.Error(t, err)
}
