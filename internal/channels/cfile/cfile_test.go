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

package cfile

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/jazzdata/jazz/internal/block"
	"github.com/jazzdata/jazz/internal/container"
	"github.com/jazzdata/jazz/internal/jtypes"
	"github.com/jazzdata/jazz/internal/locator"
)

func byteBlock(t *testing.T, s string) *block.Block {
	t.Helper()
	b, err := block.NewBuilder(jtypes.CellTypeByte, [6]int64{int64(len(s))}, 0)
	require.NoError(t, err)
	for i := 0; i < len(s); i++ {
		require.NoError(t, b.SetByte(i, s[i]))
	}
	blk, err := b.Close(block.HasNAFalse)
	require.NoError(t, err)
	return blk
}

func TestFilePutThenGetContent(t *testing.T) {
	f := NewWithFs("file", afero.NewMemMapFs(), "/root", PermDelete)
	loc := locator.Locator{Base: "file", Entity: "file", Key: "tmp/x.txt"}

	require.NoError(t, f.PutNative(loc, byteBlock(t, "Hello\n"), 0))

	txn, err := f.GetNative(loc)
	require.NoError(t, err)
	require.Equal(t, jtypes.CellTypeByte, txn.Block().Header.CellType)
	require.Equal(t, []byte("Hello\n"), txn.Block().Tensor)
}

func TestFileDirectoryListingAsIndex(t *testing.T) {
	f := NewWithFs("file", afero.NewMemMapFs(), "/root", PermDelete)
	require.NoError(t, f.PutNative(locator.Locator{Entity: "file", Key: "dir/a.txt"}, byteBlock(t, "a"), 0))
	require.NoError(t, f.PutNative(locator.Locator{Entity: "file", Key: "dir/b.txt"}, byteBlock(t, "b"), 0))

	txn, err := f.GetNative(locator.Locator{Entity: "file", Key: "dir"})
	require.NoError(t, err)
	require.Equal(t, jtypes.CellTypeIndexString2String, txn.Block().Header.CellType)
	require.Equal(t, "file", txn.Block().Index.String2Str["a.txt"])
}

func TestFileOnlyIfNotExistsRejectsOverwrite(t *testing.T) {
	f := NewWithFs("file", afero.NewMemMapFs(), "/root", PermDelete)
	loc := locator.Locator{Entity: "file", Key: "x.txt"}
	require.NoError(t, f.PutNative(loc, byteBlock(t, "a"), 0))

	err := f.PutNative(loc, byteBlock(t, "b"), container.OnlyIfNotExists)
	require.Error(t, err)
}

func TestFileReadForbidden(t *testing.T) {
	f := NewWithFs("file", afero.NewMemMapFs(), "/root", PermNone)
	_, err := f.GetNative(locator.Locator{Entity: "file", Key: "x.txt"})
	require.Error(t, err)
}

func TestFileRemoveRecursive(t *testing.T) {
	f := NewWithFs("file", afero.NewMemMapFs(), "/root", PermDelete)
	require.NoError(t, f.PutNative(locator.Locator{Entity: "file", Key: "dir/a.txt"}, byteBlock(t, "a"), 0))
	require.NoError(t, f.RemoveNative(locator.Locator{Entity: "file", Key: "dir"}))
	_, err := f.GetNative(locator.Locator{Entity: "file", Key: "dir/a.txt"})
	require.Error(t, err)
}
