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
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/jazzdata/jazz/internal/jtypes"
)

// headerSize is the serialized width of Header in Bytes()/Parse(). It need
// not match the C++ struct's in-memory padding — Jazz's own wire format only
// has to be self-consistent — but every field is written so nothing is lost
// across a round trip.
const headerSize = 4 + 8 + 8 + 4 + 6*8 + 4 + 8 + 1 + 8

// payloadBytes returns [tensor, end): tensor bytes, attribute table, and
// string buffer, in that order — the region Hash64 is computed over
// (spec.md §3.2 invariant).
func (b *Block) payloadBytes() []byte {
	var buf bytes.Buffer
	buf.Write(b.Tensor)

	if jtypes.IsStructural(b.Header.CellType) {
		for _, it := range b.Items {
			writeItemHeader(&buf, it)
		}
		for _, data := range b.ItemData {
			if data != nil {
				buf.Write(data.Bytes())
			}
		}
	}

	var num [4]byte
	binary.LittleEndian.PutUint32(num[:], uint32(len(b.Attrs)))
	buf.Write(num[:])
	for _, a := range b.Attrs {
		binary.LittleEndian.PutUint32(num[:], uint32(a.Key))
		buf.Write(num[:])
	}
	for _, a := range b.Attrs {
		binary.LittleEndian.PutUint32(num[:], uint32(a.StrOffset))
		buf.Write(num[:])
	}

	if b.Strings != nil {
		var sbHeader [10]byte
		if b.Strings.StopCheck4Match {
			sbHeader[0] = 1
		}
		if b.Strings.AllocFailed {
			sbHeader[1] = 1
		}
		binary.LittleEndian.PutUint32(sbHeader[2:6], uint32(len(b.Strings.Arena)))
		binary.LittleEndian.PutUint32(sbHeader[6:10], uint32(b.Strings.Len()))
		buf.Write(sbHeader[:])
		buf.Write(b.Strings.Arena)
	}

	if b.Index != nil {
		buf.Write(b.Index.Bytes())
	}

	return buf.Bytes()
}

func writeItemHeader(buf *bytes.Buffer, it ItemHeader) {
	var nameLen [4]byte
	binary.LittleEndian.PutUint32(nameLen[:], uint32(len(it.Name)))
	buf.Write(nameLen[:])
	buf.WriteString(it.Name)

	var rest [4 + 48 + 8 + 4]byte
	binary.LittleEndian.PutUint32(rest[0:4], uint32(it.CellType))
	for i, d := range it.Dim {
		binary.LittleEndian.PutUint64(rest[4+i*8:], uint64(d))
	}
	binary.LittleEndian.PutUint64(rest[4+48:], uint64(it.DataStart))
	binary.LittleEndian.PutUint32(rest[4+48+8:], uint32(it.Level))
	buf.Write(rest[:])
}

// Bytes serialises the whole self-describing block — header plus payload —
// the form every peer exchanges and verifies with CheckHash (spec.md §6,
// "Wire formats").
func (b *Block) Bytes() []byte {
	var buf bytes.Buffer
	writeHeader(&buf, b.Header)
	buf.Write(b.payloadBytes())
	return buf.Bytes()
}

func writeHeader(buf *bytes.Buffer, h Header) {
	var fixed [headerSize]byte
	binary.LittleEndian.PutUint32(fixed[0:4], uint32(h.CellType))
	binary.LittleEndian.PutUint64(fixed[4:12], uint64(h.Size))
	binary.LittleEndian.PutUint64(fixed[12:20], uint64(h.Created))
	binary.LittleEndian.PutUint32(fixed[20:24], uint32(h.Rank))
	for i, d := range h.Dim {
		binary.LittleEndian.PutUint64(fixed[24+i*8:], uint64(d))
	}
	off := 24 + 6*8
	binary.LittleEndian.PutUint32(fixed[off:off+4], uint32(h.NumAttributes))
	off += 4
	binary.LittleEndian.PutUint64(fixed[off:off+8], uint64(h.TotalBytes))
	off += 8
	if h.HasNA {
		fixed[off] = 1
	}
	off++
	binary.LittleEndian.PutUint64(fixed[off:off+8], h.Hash64)
	buf.Write(fixed[:])
}

func readHeader(data []byte) (Header, error) {
	if len(data) < headerSize {
		return Header{}, fmt.Errorf("%w: truncated header", jtypes.StatusBadBlock)
	}
	var h Header
	h.CellType = jtypes.CellType(binary.LittleEndian.Uint32(data[0:4]))
	h.Size = int64(binary.LittleEndian.Uint64(data[4:12]))
	h.Created = int64(binary.LittleEndian.Uint64(data[12:20]))
	h.Rank = int32(binary.LittleEndian.Uint32(data[20:24]))
	for i := 0; i < 6; i++ {
		h.Dim[i] = int64(binary.LittleEndian.Uint64(data[24+i*8:]))
	}
	off := 24 + 6*8
	h.NumAttributes = int32(binary.LittleEndian.Uint32(data[off : off+4]))
	off += 4
	h.TotalBytes = int64(binary.LittleEndian.Uint64(data[off : off+8]))
	off += 8
	h.HasNA = data[off] != 0
	off++
	h.Hash64 = binary.LittleEndian.Uint64(data[off : off+8])
	return h, nil
}

// Parse decodes a byte-for-byte image previously produced by Bytes.
func Parse(data []byte) (*Block, error) {
	h, err := readHeader(data)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != h.TotalBytes {
		return nil, fmt.Errorf("%w: size mismatch: have %d want %d", jtypes.StatusBadBlock, len(data), h.TotalBytes)
	}
	rest := data[headerSize:]

	b := &Block{Header: h}

	if jtypes.IsStructural(h.CellType) {
		items, n, err := readItemHeaders(rest, int(h.Size))
		if err != nil {
			return nil, err
		}
		b.Items = items
		rest = rest[n:]
		if h.CellType == jtypes.CellTypeTupleItem {
			data2, err := readItemData(items, rest)
			if err != nil {
				return nil, err
			}
			b.ItemData = data2
			total := 0
			for _, it := range data2 {
				total += len(it.Bytes())
			}
			rest = rest[total:]
		}
	} else if !jtypes.IsIndex(h.CellType) {
		cellLen := int(h.Size) * jtypes.CellSize(h.CellType)
		if len(rest) < cellLen {
			return nil, fmt.Errorf("%w: truncated tensor", jtypes.StatusBadBlock)
		}
		b.Tensor = append([]byte{}, rest[:cellLen]...)
		rest = rest[cellLen:]
	}

	if len(rest) < 4 {
		return nil, fmt.Errorf("%w: truncated attribute count", jtypes.StatusBadBlock)
	}
	numAttrs := int(binary.LittleEndian.Uint32(rest[0:4]))
	rest = rest[4:]
	if len(rest) < numAttrs*8 {
		return nil, fmt.Errorf("%w: truncated attribute table", jtypes.StatusBadBlock)
	}
	keys := make([]int32, numAttrs)
	for i := 0; i < numAttrs; i++ {
		keys[i] = int32(binary.LittleEndian.Uint32(rest[i*4:]))
	}
	rest = rest[numAttrs*4:]
	offsets := make([]int32, numAttrs)
	for i := 0; i < numAttrs; i++ {
		offsets[i] = int32(binary.LittleEndian.Uint32(rest[i*4:]))
	}
	rest = rest[numAttrs*4:]
	for i := 0; i < numAttrs; i++ {
		b.Attrs = append(b.Attrs, AttrEntry{Key: keys[i], StrOffset: offsets[i]})
	}

	if len(rest) < 10 {
		return nil, fmt.Errorf("%w: truncated string buffer header", jtypes.StatusBadBlock)
	}
	sb := &StringBuffer{
		StopCheck4Match: rest[0] != 0,
		AllocFailed:     rest[1] != 0,
	}
	arenaLen := int(binary.LittleEndian.Uint32(rest[2:6]))
	rest = rest[10:]
	if len(rest) < arenaLen {
		return nil, fmt.Errorf("%w: truncated string arena", jtypes.StatusBadBlock)
	}
	sb.Arena = append([]byte{}, rest[:arenaLen]...)
	b.Strings = sb

	// An Index block has no tensor; its map follows the string buffer.
	if jtypes.IsIndex(h.CellType) {
		idx, err := ParseIndexMap(h.CellType, rest[arenaLen:])
		if err != nil {
			return nil, err
		}
		b.Index = idx
	}

	return b, nil
}

func readItemHeaders(data []byte, n int) ([]ItemHeader, int, error) {
	items := make([]ItemHeader, 0, n)
	off := 0
	for i := 0; i < n; i++ {
		if len(data[off:]) < 4 {
			return nil, 0, fmt.Errorf("%w: truncated item name length", jtypes.StatusBadBlock)
		}
		nameLen := int(binary.LittleEndian.Uint32(data[off:]))
		off += 4
		if len(data[off:]) < nameLen {
			return nil, 0, fmt.Errorf("%w: truncated item name", jtypes.StatusBadBlock)
		}
		name := string(data[off : off+nameLen])
		off += nameLen

		const restLen = 4 + 48 + 8 + 4
		if len(data[off:]) < restLen {
			return nil, 0, fmt.Errorf("%w: truncated item header", jtypes.StatusBadBlock)
		}
		it := ItemHeader{Name: name}
		it.CellType = jtypes.CellType(binary.LittleEndian.Uint32(data[off:]))
		for d := 0; d < 6; d++ {
			it.Dim[d] = int64(binary.LittleEndian.Uint64(data[off+4+d*8:]))
		}
		it.DataStart = int64(binary.LittleEndian.Uint64(data[off+4+48:]))
		it.Level = int32(binary.LittleEndian.Uint32(data[off+4+48+8:]))
		off += restLen

		items = append(items, it)
	}
	return items, off, nil
}

func readItemData(items []ItemHeader, data []byte) ([]*Block, error) {
	out := make([]*Block, 0, len(items))
	off := 0
	for range items {
		if len(data[off:]) < headerSize {
			return nil, fmt.Errorf("%w: truncated tuple item block", jtypes.StatusBadBlock)
		}
		h, err := readHeader(data[off:])
		if err != nil {
			return nil, err
		}
		end := off + int(h.TotalBytes)
		if end > len(data) {
			return nil, fmt.Errorf("%w: tuple item block overruns buffer", jtypes.StatusBadBlock)
		}
		sub, err := Parse(data[off:end])
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
		off = end
	}
	return out, nil
}
