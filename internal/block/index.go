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
	"sort"

	"github.com/jazzdata/jazz/internal/jtypes"
)

// IndexMap is the dynamic payload of the four CellTypeIndex* flavours
// (spec.md §3.1/glossary: "a dynamic Block whose payload is a map"). Unlike
// a plain tensor it owns a real Go map, which is why spec.md §4.5 notes it
// "needs a destructor run on destroy, not just free" — in Go that is simply
// letting the garbage collector reclaim it once the owning Transaction is
// released.
type IndexMap struct {
	CellType jtypes.CellType
	Int2Int    map[int64]int64
	Int2String map[int64]string
	String2Int map[string]int64
	String2Str map[string]string
}

// NewIndexMap returns an empty map with every field present; callers use
// only the field matching their CellType.
func NewIndexMap() *IndexMap {
	return &IndexMap{
		Int2Int:    make(map[int64]int64),
		Int2String: make(map[int64]string),
		String2Int: make(map[string]int64),
		String2Str: make(map[string]string),
	}
}

// Len reports the number of entries in the populated map.
func (m *IndexMap) Len() int {
	switch m.CellType {
	case jtypes.CellTypeIndexInt2Int:
		return len(m.Int2Int)
	case jtypes.CellTypeIndexInt2String:
		return len(m.Int2String)
	case jtypes.CellTypeIndexString2Int:
		return len(m.String2Int)
	case jtypes.CellTypeIndexString2String:
		return len(m.String2Str)
	}
	return 0
}

// Bytes serialises the map deterministically (sorted keys) for hashing and
// wire transfer.
func (m *IndexMap) Bytes() []byte {
	var buf bytes.Buffer
	var n [8]byte

	switch m.CellType {
	case jtypes.CellTypeIndexInt2Int:
		keys := make([]int64, 0, len(m.Int2Int))
		for k := range m.Int2Int {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		for _, k := range keys {
			binary.LittleEndian.PutUint64(n[:], uint64(k))
			buf.Write(n[:])
			binary.LittleEndian.PutUint64(n[:], uint64(m.Int2Int[k]))
			buf.Write(n[:])
		}
	case jtypes.CellTypeIndexInt2String:
		keys := make([]int64, 0, len(m.Int2String))
		for k := range m.Int2String {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		for _, k := range keys {
			binary.LittleEndian.PutUint64(n[:], uint64(k))
			buf.Write(n[:])
			writeLenPrefixed(&buf, m.Int2String[k])
		}
	case jtypes.CellTypeIndexString2Int:
		keys := make([]string, 0, len(m.String2Int))
		for k := range m.String2Int {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			writeLenPrefixed(&buf, k)
			binary.LittleEndian.PutUint64(n[:], uint64(m.String2Int[k]))
			buf.Write(n[:])
		}
	case jtypes.CellTypeIndexString2String:
		keys := make([]string, 0, len(m.String2Str))
		for k := range m.String2Str {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			writeLenPrefixed(&buf, k)
			writeLenPrefixed(&buf, m.String2Str[k])
		}
	}
	return buf.Bytes()
}

func writeLenPrefixed(buf *bytes.Buffer, s string) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(s)))
	buf.Write(n[:])
	buf.WriteString(s)
}

// ParseIndexMap decodes a buffer produced by IndexMap.Bytes.
func ParseIndexMap(cellType jtypes.CellType, data []byte) (*IndexMap, error) {
	m := NewIndexMap()
	m.CellType = cellType
	off := 0

	readU64 := func() (uint64, bool) {
		if len(data[off:]) < 8 {
			return 0, false
		}
		v := binary.LittleEndian.Uint64(data[off:])
		off += 8
		return v, true
	}
	readStr := func() (string, bool) {
		if len(data[off:]) < 4 {
			return "", false
		}
		n := int(binary.LittleEndian.Uint32(data[off:]))
		off += 4
		if len(data[off:]) < n {
			return "", false
		}
		s := string(data[off : off+n])
		off += n
		return s, true
	}

	for off < len(data) {
		switch cellType {
		case jtypes.CellTypeIndexInt2Int:
			k, ok1 := readU64()
			v, ok2 := readU64()
			if !ok1 || !ok2 {
				return m, nil
			}
			m.Int2Int[int64(k)] = int64(v)
		case jtypes.CellTypeIndexInt2String:
			k, ok1 := readU64()
			v, ok2 := readStr()
			if !ok1 || !ok2 {
				return m, nil
			}
			m.Int2String[int64(k)] = v
		case jtypes.CellTypeIndexString2Int:
			k, ok1 := readStr()
			v, ok2 := readU64()
			if !ok1 || !ok2 {
				return m, nil
			}
			m.String2Int[k] = int64(v)
		case jtypes.CellTypeIndexString2String:
			k, ok1 := readStr()
			v, ok2 := readStr()
			if !ok1 || !ok2 {
				return m, nil
			}
			m.String2Str[k] = v
		default:
			return m, nil
		}
	}
	return m, nil
}
