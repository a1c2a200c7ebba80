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
	"bytes"

	"github.com/jazzdata/jazz/internal/block"
	"github.com/jazzdata/jazz/internal/jtypes"
)

// UnwrapReceived is the single path every boundary read (file, HTTP, 0-mq,
// bash) funnels through (spec.md §4.3). It tries, in order: a hash-verified
// Block; a NUL-terminated C string; and finally a raw byte tensor.
func UnwrapReceived(data []byte) (*block.Block, error) {
	if blk, err := block.Parse(data); err == nil && blk.CheckHash() {
		return blk, nil
	}

	if i := bytes.IndexByte(data, 0); i >= 0 && i == len(data)-1 {
		b, err := block.NewBuilder(jtypes.CellTypeString, [6]int64{1}, 0)
		if err != nil {
			return nil, err
		}
		if err := b.SetString(0, string(data[:i])); err != nil {
			return nil, err
		}
		return b.Close(block.HasNAAuto)
	}

	b, err := block.NewBuilder(jtypes.CellTypeByte, [6]int64{int64(len(data))}, 0)
	if err != nil {
		return nil, err
	}
	for i, c := range data {
		if err := b.SetByte(i, c); err != nil {
			return nil, err
		}
	}
	return b.Close(block.HasNAFalse)
}
