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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jazzdata/jazz/internal/block"
	"github.com/jazzdata/jazz/internal/jtypes"
)

func TestWriteTextRank1Integers(t *testing.T) {
	b, err := block.NewBuilder(jtypes.CellTypeInteger, [6]int64{3}, 0)
	require.NoError(t, err)
	require.NoError(t, b.SetInt32(0, 1))
	require.NoError(t, b.SetInt32(1, 2))
	require.NoError(t, b.SetInt32(2, jtypes.NAInt32))
	blk, err := b.Close(block.HasNAAuto)
	require.NoError(t, err)

	text, err := WriteText(blk)
	require.NoError(t, err)
	require.Equal(t, "[1,2,NA]", text)
}

func TestParseTextRoundTripIntegers(t *testing.T) {
	blk, err := ParseText("[1,2,NA]", jtypes.CellTypeInteger)
	require.NoError(t, err)
	require.Equal(t, int64(3), blk.Header.Size)
	v0, err := blk.GetInt32(0)
	require.NoError(t, err)
	require.Equal(t, int32(1), v0)
	v2, err := blk.GetInt32(2)
	require.NoError(t, err)
	require.Equal(t, jtypes.NAInt32, v2)
}

func TestTextCodecStringEscaping(t *testing.T) {
	b, err := block.NewBuilder(jtypes.CellTypeString, [6]int64{1}, 64)
	require.NoError(t, err)
	require.NoError(t, b.SetString(0, "a\tb\nc\"d"))
	blk, err := b.Close(block.HasNAAuto)
	require.NoError(t, err)

	text, err := WriteText(blk)
	require.NoError(t, err)
	require.Equal(t, `["a\tb\nc\"d"]`, text)

	parsed, err := ParseText(text, jtypes.CellTypeString)
	require.NoError(t, err)
	s, ok, err := parsed.GetString(0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a\tb\nc\"d", s)
}

func TestWriteModePayloadPriority(t *testing.T) {
	m := AsString | AsContent | AsFullBlock
	require.Equal(t, AsString, m.Payload())

	m2 := AsContent | AsFullBlock
	require.Equal(t, AsContent, m2.Payload())

	require.Equal(t, WriteMode(0), WriteMode(0).Payload())
}

func TestAllocationAccountingFailsAboveLimit(t *testing.T) {
	a := NewAccounting(100, 50)
	require.NoError(t, a.Reserve(60))
	err := a.Reserve(60)
	require.Error(t, err)
	require.Equal(t, int64(60), a.Used())
	a.Release(60)
	require.Equal(t, int64(0), a.Used())
}

func TestUnwrapReceivedBlockStringAndRaw(t *testing.T) {
	b, err := block.NewBuilder(jtypes.CellTypeInteger, [6]int64{2}, 0)
	require.NoError(t, err)
	require.NoError(t, b.SetInt32(0, 7))
	require.NoError(t, b.SetInt32(1, 8))
	blk, err := b.Close(block.HasNAAuto)
	require.NoError(t, err)

	got, err := UnwrapReceived(blk.Bytes())
	require.NoError(t, err)
	require.True(t, got.CheckHash())

	got2, err := UnwrapReceived([]byte("hello\x00"))
	require.NoError(t, err)
	require.Equal(t, jtypes.CellTypeString, got2.Header.CellType)

	got3, err := UnwrapReceived([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, jtypes.CellTypeByte, got3.Header.CellType)
}
