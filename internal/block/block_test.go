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
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"

	"github.com/jazzdata/jazz/internal/jtypes"
)

func buildInts(t *testing.T, vals []int32) *Block {
	t.Helper()
	b, err := NewBuilder(jtypes.CellTypeInteger, [6]int64{int64(len(vals))}, 0)
	require.NoError(t, err)
	for i, v := range vals {
		require.NoError(t, b.SetInt32(i, v))
	}
	blk, err := b.Close(HasNAAuto)
	require.NoError(t, err)
	return blk
}

func TestCheckHashHoldsAfterClose(t *testing.T) {
	blk := buildInts(t, []int32{1, 2, 3, 4})
	require.True(t, blk.CheckHash(), spew.Sdump(blk.Header))
}

func TestFindNAsAgreesWithHasNA(t *testing.T) {
	blk := buildInts(t, []int32{1, 2, jtypes.NAInt32, 4})
	require.True(t, blk.Header.HasNA)
	require.True(t, blk.FindNAsInTensor())

	blk2 := buildInts(t, []int32{1, 2, 3, 4})
	require.False(t, blk2.Header.HasNA)
	require.False(t, blk2.FindNAsInTensor())
}

func TestHasNATruePolicyOverridesScan(t *testing.T) {
	b, err := NewBuilder(jtypes.CellTypeInteger, [6]int64{2}, 0)
	require.NoError(t, err)
	require.NoError(t, b.SetInt32(0, 1))
	require.NoError(t, b.SetInt32(1, 2))
	blk, err := b.Close(HasNATrue)
	require.NoError(t, err)
	require.True(t, blk.Header.HasNA)
	require.False(t, blk.FindNAsInTensor())
}

func TestByteTensorsAreNeverNA(t *testing.T) {
	b, err := NewBuilder(jtypes.CellTypeByte, [6]int64{3}, 0)
	require.NoError(t, err)
	require.NoError(t, b.SetByte(0, 0xFF))
	blk, err := b.Close(HasNATrue)
	require.NoError(t, err)
	require.False(t, blk.Header.HasNA)
}

func TestStringInterningDedupesUnderLimit(t *testing.T) {
	b, err := NewBuilder(jtypes.CellTypeString, [6]int64{5}, 0)
	require.NoError(t, err)
	require.NoError(t, b.SetString(0, "foo"))
	require.NoError(t, b.SetString(1, "bar"))
	require.NoError(t, b.SetString(2, "foo"))
	require.NoError(t, b.SetString(3, ""))
	require.NoError(t, b.SetStringNA(4))
	blk, err := b.Close(HasNAAuto)
	require.NoError(t, err)

	off0, _ := blk.GetInt32(0)
	off2, _ := blk.GetInt32(2)
	require.Equal(t, off0, off2, "duplicate strings must share one offset while under the match-check limit")

	s0, ok0, err := blk.GetString(0)
	require.NoError(t, err)
	require.True(t, ok0)
	s2, ok2, err := blk.GetString(2)
	require.NoError(t, err)
	require.True(t, ok2)
	require.Equal(t, s0, s2)

	_, ok3, err := blk.GetString(3)
	require.NoError(t, err)
	require.True(t, ok3)

	_, ok4, err := blk.GetString(4)
	require.NoError(t, err)
	require.False(t, ok4)

	require.True(t, blk.Header.HasNA)
}

func TestStringBufferLayoutMatchesScenarioS2(t *testing.T) {
	sb := NewStringBuffer(0)
	offFoo := sb.Intern("foo")
	offBar := sb.Intern("bar")
	offFoo2 := sb.Intern("foo")
	offEmpty := sb.Intern("")

	require.Equal(t, int32(2), offFoo)
	require.Equal(t, int32(6), offBar)
	require.Equal(t, offFoo, offFoo2)
	require.Equal(t, int32(1), offEmpty)
	require.Equal(t, len("foo")+1+len("bar")+1+2, sb.Len())
}

func TestStringInterningLatchesAfterManyDistinctStrings(t *testing.T) {
	sb := NewStringBuffer(0)
	for i := 0; i < jtypes.MaxChecks4Match; i++ {
		sb.Intern(string(rune('a' + i)))
	}
	require.False(t, sb.StopCheck4Match, "latch flips only once MaxChecks4Match is reached, not before")
	sb.Intern(string(rune('a' + jtypes.MaxChecks4Match)))
	require.True(t, sb.StopCheck4Match)

	// After the latch, even an exact repeat appends rather than dedupes.
	before := sb.Len()
	sb.Intern("a")
	require.Greater(t, sb.Len(), before)
}

func TestFilterByteBooleanRoundTrips(t *testing.T) {
	b, err := NewBuilder(jtypes.CellTypeInteger, [6]int64{4, 2}, 0)
	require.NoError(t, err)
	vals := [][2]int32{{1, 2}, {3, 4}, {5, 6}, {7, 8}}
	for i, row := range vals {
		require.NoError(t, b.SetInt32(i*2, row[0]))
		require.NoError(t, b.SetInt32(i*2+1, row[1]))
	}
	tensor, err := b.Close(HasNAAuto)
	require.NoError(t, err)

	fb, err := NewBuilder(jtypes.CellTypeByteBoolean, [6]int64{4}, 0)
	require.NoError(t, err)
	mask := []bool{true, false, true, false}
	for i, m := range mask {
		require.NoError(t, fb.SetBool(i, m))
	}
	filter, err := fb.Close(HasNAAuto)
	require.NoError(t, err)

	filtered, err := tensor.ApplyFilter(filter)
	require.NoError(t, err)
	require.Equal(t, int64(2), filtered.Header.Dim[0])
	require.Equal(t, int64(2), filtered.Header.Dim[1])
	require.Equal(t, tensor.Header.CellType, filtered.Header.CellType)
	require.False(t, filtered.Header.HasNA)
	require.NotZero(t, filtered.Header.Hash64)

	v0, _ := filtered.GetInt32(0)
	v1, _ := filtered.GetInt32(1)
	v2, _ := filtered.GetInt32(2)
	v3, _ := filtered.GetInt32(3)
	require.Equal(t, []int32{1, 2, 5, 6}, []int32{v0, v1, v2, v3})
}

func TestFilterAuditRejectsUnsortedIntegerFilter(t *testing.T) {
	fb, err := NewBuilder(jtypes.CellTypeInteger, [6]int64{3}, 0)
	require.NoError(t, err)
	require.NoError(t, fb.SetInt32(0, 2))
	require.NoError(t, fb.SetInt32(1, 1))
	require.NoError(t, fb.SetInt32(2, 0))
	filter, err := fb.Close(HasNAAuto)
	require.NoError(t, err)
	require.Equal(t, NotAFilter, filter.FilterAudit(3))
}

func TestBytesRoundTrip(t *testing.T) {
	blk := buildInts(t, []int32{1, 2, 3, 4})
	data := blk.Bytes()
	parsed, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, blk.Header, parsed.Header)
	require.Equal(t, blk.Tensor, parsed.Tensor)
	require.True(t, parsed.CheckHash())
}

func TestEmptyDimensionsForceRankOneSizeZero(t *testing.T) {
	rank, size, _, err := SetDimensions([6]int64{})
	require.NoError(t, err)
	require.Equal(t, int32(1), rank)
	require.Equal(t, int64(0), size)
}

func TestGetIndexGetOffsetRoundTrip(t *testing.T) {
	blk := buildInts(t, []int32{1, 2, 3, 4, 5, 6})
	b2, err := NewBuilder(jtypes.CellTypeInteger, [6]int64{2, 3}, 0)
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		require.NoError(t, b2.SetInt32(i, int32(i)))
	}
	rect, err := b2.Close(HasNAAuto)
	require.NoError(t, err)
	_ = blk

	for off := int64(0); off < rect.Header.Size; off++ {
		idx, err := rect.GetIndex(off)
		require.NoError(t, err)
		require.True(t, rect.ValidateIndex(idx))
		back, err := rect.GetOffset(idx)
		require.NoError(t, err)
		require.Equal(t, off, back)
	}
}
