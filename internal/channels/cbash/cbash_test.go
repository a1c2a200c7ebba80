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

package cbash

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jazzdata/jazz/internal/block"
	"github.com/jazzdata/jazz/internal/jtypes"
	"github.com/jazzdata/jazz/internal/tuple"
)

func byteBlock(t *testing.T, s string, size int) *block.Block {
	t.Helper()
	if size == 0 {
		size = len(s)
	}
	bb, err := block.NewBuilder(jtypes.CellTypeByte, [6]int64{int64(size)}, 0)
	require.NoError(t, err)
	for i := 0; i < len(s) && i < size; i++ {
		require.NoError(t, bb.SetByte(i, s[i]))
	}
	blk, err := bb.Close(block.HasNAFalse)
	require.NoError(t, err)
	return blk
}

func TestTranslateCapturesStdout(t *testing.T) {
	tb, err := tuple.New(0)
	require.NoError(t, err)
	require.NoError(t, tb.AddItem("input", 0, byteBlock(t, "echo -n hi", 0)))
	require.NoError(t, tb.AddItem("result", 0, byteBlock(t, "", 16)))
	tup, err := tb.Close(nil, "")
	require.NoError(t, err)

	require.NoError(t, New().Translate(tup))

	result, err := tuple.ItemByName(tup, "result")
	require.NoError(t, err)
	require.Equal(t, append([]byte("hi"), make([]byte, 14)...), result.Tensor)
}

func TestTranslateNonzeroExit(t *testing.T) {
	tb, err := tuple.New(0)
	require.NoError(t, err)
	require.NoError(t, tb.AddItem("input", 0, byteBlock(t, "exit 1", 0)))
	require.NoError(t, tb.AddItem("result", 0, byteBlock(t, "", 4)))
	tup, err := tb.Close(nil, "")
	require.NoError(t, err)

	err = New().Translate(tup)
	require.Error(t, err)
}
