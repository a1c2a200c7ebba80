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

type fakeRelease struct{ released *bool }

func (f fakeRelease) Release() { *f.released = true }

func intBlock(t *testing.T) *block.Block {
	t.Helper()
	b, err := block.NewBuilder(jtypes.CellTypeInteger, [6]int64{1}, 0)
	require.NoError(t, err)
	require.NoError(t, b.SetInt32(0, 42))
	blk, err := b.Close(block.HasNAAuto)
	require.NoError(t, err)
	return blk
}

func TestPoolNewAndDestroyTransaction(t *testing.T) {
	p := NewPool(2)
	txn, err := p.NewTransaction(intBlock(t), nil)
	require.NoError(t, err)
	require.Equal(t, StatusReady, txn.status)
	require.Equal(t, 1, p.InUse())

	require.NoError(t, p.DestroyTransaction(txn))
	require.Equal(t, 0, p.InUse())
	require.Equal(t, StatusDestroyed, txn.status)
}

func TestPoolExhaustion(t *testing.T) {
	p := NewPool(1)
	_, err := p.NewTransaction(intBlock(t), nil)
	require.NoError(t, err)
	_, err = p.NewTransaction(intBlock(t), nil)
	require.Error(t, err)
}

func TestDestroyTransactionReleasesBorrow(t *testing.T) {
	p := NewPool(1)
	released := false
	txn, err := p.NewTransaction(intBlock(t), fakeRelease{&released})
	require.NoError(t, err)
	require.NoError(t, p.DestroyTransaction(txn))
	require.True(t, released)
}

func TestTransactionReaderWriterCounters(t *testing.T) {
	p := NewPool(1)
	txn, err := p.NewTransaction(intBlock(t), nil)
	require.NoError(t, err)

	txn.EnterRead()
	txn.EnterRead()
	require.True(t, txn.EnterWrite())
	require.False(t, txn.EnterWrite())
	txn.LeaveWrite()
	require.True(t, txn.EnterWrite())
	txn.LeaveWrite()
	txn.LeaveRead()
	txn.LeaveRead()
}
