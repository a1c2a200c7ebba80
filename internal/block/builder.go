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
	"encoding/binary"
	"fmt"
	"math"

	"github.com/jazzdata/jazz/internal/jtypes"
)

// HasNAPolicy controls how Builder.Close decides the finished Block's HasNA
// flag (spec.md §4.1).
type HasNAPolicy int

const (
	HasNAAuto HasNAPolicy = iota
	HasNAFalse
	HasNATrue
)

// Builder accumulates a tensor, attribute table and string buffer before
// Close hands back an immutable Block. A Builder is owned by whichever
// Container is constructing the block; it is never shared across
// goroutines.
type Builder struct {
	cellType jtypes.CellType
	dim      [6]int64
	rank     int32
	size     int64
	strd     strides

	tensor  []byte
	attrs   []AttrEntry
	attrSet bool // attributes may only be set once
	strs    *StringBuffer

	items    []ItemHeader
	itemData []*Block
	index    *IndexMap

	closed bool
}

// NewBuilder allocates the tensor storage for cellType/dim and fills it with
// the type's NA sentinel (zero bytes for CellTypeByte, which has none).
// Cells are then overwritten one by one through the Set* methods.
func NewBuilder(cellType jtypes.CellType, dim [6]int64, maxStringBytes int) (*Builder, error) {
	rank, size, strd, err := SetDimensions(dim)
	if err != nil {
		return nil, err
	}
	b := &Builder{
		cellType: cellType,
		dim:      dim,
		rank:     rank,
		size:     size,
		strd:     strd,
		strs:     NewStringBuffer(maxStringBytes),
	}
	if !jtypes.IsIndex(cellType) && !jtypes.IsStructural(cellType) {
		b.tensor = make([]byte, int(size)*jtypes.CellSize(cellType))
		b.fillNA()
	}
	return b, nil
}

// NewStructuralBuilder allocates a Kind or Tuple skeleton: cellType must be
// CellTypeKindItem or CellTypeTupleItem. Rank/size reflect the item count,
// which AddItem-style callers grow via AppendItem.
func NewStructuralBuilder(cellType jtypes.CellType) (*Builder, error) {
	if !jtypes.IsStructural(cellType) {
		return nil, fmt.Errorf("%w: %v is not a structural cell type", jtypes.StatusWrongType, cellType)
	}
	return &Builder{
		cellType: cellType,
		rank:     1,
		strs:     NewStringBuffer(0),
	}, nil
}

// NewIndexBuilder allocates an empty dynamic Index block of the given
// flavour (spec.md §3.1: "four index variants").
func NewIndexBuilder(cellType jtypes.CellType) (*Builder, error) {
	if !jtypes.IsIndex(cellType) {
		return nil, fmt.Errorf("%w: %v is not an index cell type", jtypes.StatusWrongType, cellType)
	}
	idx := NewIndexMap()
	idx.CellType = cellType
	return &Builder{
		cellType: cellType,
		rank:     1,
		strs:     NewStringBuffer(0),
		index:    idx,
	}, nil
}

func (b *Builder) fillNA() {
	switch b.cellType {
	case jtypes.CellTypeByteBoolean, jtypes.CellTypeBooleanU32:
		for i := range b.tensor {
			b.tensor[i] = jtypes.NAByteBoolean
		}
	case jtypes.CellTypeInteger, jtypes.CellTypeFactor, jtypes.CellTypeGrade:
		for i := 0; i < int(b.size); i++ {
			binary.LittleEndian.PutUint32(b.tensor[i*4:], uint32(jtypes.NAInt32))
		}
	case jtypes.CellTypeLongInteger:
		for i := 0; i < int(b.size); i++ {
			binary.LittleEndian.PutUint64(b.tensor[i*8:], uint64(jtypes.NAInt64))
		}
	case jtypes.CellTypeTime:
		for i := 0; i < int(b.size); i++ {
			binary.LittleEndian.PutUint64(b.tensor[i*8:], uint64(jtypes.NATime))
		}
	case jtypes.CellTypeSingle:
		bits := math.Float32bits(jtypes.NASingle())
		for i := 0; i < int(b.size); i++ {
			binary.LittleEndian.PutUint32(b.tensor[i*4:], bits)
		}
	case jtypes.CellTypeDouble:
		bits := math.Float64bits(jtypes.NADouble())
		for i := 0; i < int(b.size); i++ {
			binary.LittleEndian.PutUint64(b.tensor[i*8:], bits)
		}
	case jtypes.CellTypeString:
		// offset 0 == NA, already the zero value.
	}
}

// SetInt32 writes an i32-backed cell (integer/factor/grade).
func (b *Builder) SetInt32(i int, v int32) error {
	if err := b.boundsCheck(i, jtypes.CellTypeInteger, jtypes.CellTypeFactor, jtypes.CellTypeGrade); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b.tensor[i*4:], uint32(v))
	return nil
}

// SetInt64 writes an i64-backed cell (long-integer/time).
func (b *Builder) SetInt64(i int, v int64) error {
	if err := b.boundsCheck(i, jtypes.CellTypeLongInteger, jtypes.CellTypeTime); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b.tensor[i*8:], uint64(v))
	return nil
}

// SetFloat32 writes a single-precision cell.
func (b *Builder) SetFloat32(i int, v float32) error {
	if err := b.boundsCheck(i, jtypes.CellTypeSingle); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b.tensor[i*4:], math.Float32bits(v))
	return nil
}

// SetFloat64 writes a double-precision cell.
func (b *Builder) SetFloat64(i int, v float64) error {
	if err := b.boundsCheck(i, jtypes.CellTypeDouble); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b.tensor[i*8:], math.Float64bits(v))
	return nil
}

// SetByte writes a raw byte cell (CellTypeByte has no NA by contract).
func (b *Builder) SetByte(i int, v byte) error {
	if err := b.boundsCheck(i, jtypes.CellTypeByte); err != nil {
		return err
	}
	b.tensor[i] = v
	return nil
}

// SetBoolNA marks cell i of a byte-boolean tensor as NA.
func (b *Builder) SetBoolNA(i int) error {
	if err := b.boundsCheck(i, jtypes.CellTypeByteBoolean); err != nil {
		return err
	}
	b.tensor[i] = jtypes.NAByteBoolean
	return nil
}

// SetBool writes a byte-boolean cell.
func (b *Builder) SetBool(i int, v bool) error {
	if err := b.boundsCheck(i, jtypes.CellTypeByteBoolean); err != nil {
		return err
	}
	if v {
		b.tensor[i] = 1
	} else {
		b.tensor[i] = 0
	}
	return nil
}

// SetString interns s (the empty string excepted — see StringBuffer.Intern)
// and stores the resulting offset at cell i of a CellTypeString tensor.
func (b *Builder) SetString(i int, s string) error {
	if err := b.boundsCheck(i, jtypes.CellTypeString); err != nil {
		return err
	}
	off := b.strs.Intern(s)
	binary.LittleEndian.PutUint32(b.tensor[i*4:], uint32(off))
	return nil
}

// SetStringNA marks cell i of a string tensor as NA (offset 0).
func (b *Builder) SetStringNA(i int) error {
	if err := b.boundsCheck(i, jtypes.CellTypeString); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b.tensor[i*4:], 0)
	return nil
}

func (b *Builder) boundsCheck(i int, allowed ...jtypes.CellType) error {
	ok := false
	for _, t := range allowed {
		if b.cellType == t {
			ok = true
		}
	}
	if !ok {
		return fmt.Errorf("%w: cell type %v does not accept this setter", jtypes.StatusWrongType, b.cellType)
	}
	if i < 0 || int64(i) >= b.size {
		return fmt.Errorf("%w: cell index %d out of [0,%d)", jtypes.StatusWrongArguments, i, b.size)
	}
	return nil
}

// SetAttributes installs the attribute map. It may be called exactly once;
// later calls are silent no-ops, matching spec.md §4.1.
func (b *Builder) SetAttributes(attrs map[int32]string) {
	if b.attrSet {
		return
	}
	b.attrSet = true
	keys := make([]int32, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	// Deterministic ordering keeps Bytes()/hash reproducible across builds
	// of the same logical block.
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			if keys[j] < keys[i] {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}
	for _, k := range keys {
		off := b.strs.Intern(attrs[k])
		b.Attrs2Append(k, off)
	}
}

// Attrs2Append is an internal helper so SetAttributes and Kind/Tuple
// construction share one code path for appending an attribute row.
func (b *Builder) Attrs2Append(key, strOffset int32) {
	b.attrs = append(b.attrs, AttrEntry{Key: key, StrOffset: strOffset})
}

// InternString exposes the builder's string buffer to Kind/Tuple
// construction, which needs to intern item and dimension names using the
// same interning discipline as cell values.
func (b *Builder) InternString(s string) int32 { return b.strs.Intern(s) }

// IndexMap returns the builder's in-progress map for an Index builder,
// letting callers populate it directly with the map type matching CellType.
func (b *Builder) IndexMap() *IndexMap {
	return b.index
}

// AppendItem adds one ItemHeader row, used by the kind and tuple packages to
// build up a CellTypeKindItem/CellTypeTupleItem block's item array.
func (b *Builder) AppendItem(it ItemHeader) {
	b.items = append(b.items, it)
}

// AppendItemData appends a finished item Block after the item header array
// (Tuple only), returning the byte offset it was written at so the caller
// can stamp ItemHeader.DataStart.
func (b *Builder) AppendItemData(data *Block) int64 {
	var start int64
	for _, d := range b.itemData {
		start += int64(len(d.Bytes()))
	}
	b.itemData = append(b.itemData, data)
	return start
}

// SetItemHeader overwrites item i in place, letting callers stamp DataStart
// after the fact once AppendItemData has computed it.
func (b *Builder) SetItemHeader(i int, it ItemHeader) {
	b.items[i] = it
}

// NumItems reports how many item headers have been appended so far.
func (b *Builder) NumItems() int { return len(b.items) }

// Close finalises the block: computes HasNA per policy, stamps Created, and
// recomputes Hash64 over [tensor, end) (spec.md §4.1). After Close the
// Builder must not be reused.
func (b *Builder) Close(policy HasNAPolicy) (*Block, error) {
	if b.closed {
		return nil, fmt.Errorf("%w: block already closed", jtypes.StatusWrongArguments)
	}
	b.closed = true

	size, rank, dim := b.size, b.rank, b.dim
	if b.index != nil {
		size = int64(b.index.Len())
		rank = 1
		dim = [6]int64{size}
	}
	if jtypes.IsStructural(b.cellType) {
		size = int64(len(b.items))
		rank = 1
		dim = [6]int64{size}
	}

	blk := &Block{
		Header: Header{
			CellType:      b.cellType,
			Size:          size,
			Rank:          rank,
			Dim:           dim,
			NumAttributes: int32(len(b.attrs)),
		},
		Tensor:   b.tensor,
		Attrs:    b.attrs,
		Strings:  b.strs,
		Items:    b.items,
		ItemData: b.itemData,
		Index:    b.index,
	}

	switch policy {
	case HasNATrue:
		blk.Header.HasNA = true
	case HasNAFalse:
		blk.Header.HasNA = false
	default:
		blk.Header.HasNA = blk.FindNAsInTensor()
	}
	if b.cellType == jtypes.CellTypeByte {
		// Open Question #1: byte tensors are NA-free by contract regardless
		// of policy.
		blk.Header.HasNA = false
	}

	blk.Header.Created = now()
	payload := blk.payloadBytes()
	blk.Header.TotalBytes = int64(headerSize) + int64(len(payload))
	blk.Header.Hash64 = jtypes.HashBlockPayload(payload)

	return blk, nil
}

// GetInt32 reads an i32-backed cell.
func (b *Block) GetInt32(i int) (int32, error) {
	if i < 0 || int64(i) >= b.Header.Size {
		return 0, fmt.Errorf("%w: cell index %d out of range", jtypes.StatusWrongArguments, i)
	}
	return int32(binary.LittleEndian.Uint32(b.Tensor[i*4:])), nil
}

// GetInt64 reads an i64-backed cell.
func (b *Block) GetInt64(i int) (int64, error) {
	if i < 0 || int64(i) >= b.Header.Size {
		return 0, fmt.Errorf("%w: cell index %d out of range", jtypes.StatusWrongArguments, i)
	}
	return int64(binary.LittleEndian.Uint64(b.Tensor[i*8:])), nil
}

// GetFloat32 reads a single-precision cell.
func (b *Block) GetFloat32(i int) (float32, error) {
	if i < 0 || int64(i) >= b.Header.Size {
		return 0, fmt.Errorf("%w: cell index %d out of range", jtypes.StatusWrongArguments, i)
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b.Tensor[i*4:])), nil
}

// GetFloat64 reads a double-precision cell.
func (b *Block) GetFloat64(i int) (float64, error) {
	if i < 0 || int64(i) >= b.Header.Size {
		return 0, fmt.Errorf("%w: cell index %d out of range", jtypes.StatusWrongArguments, i)
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b.Tensor[i*8:])), nil
}

// GetByte reads a raw byte cell.
func (b *Block) GetByte(i int) (byte, error) {
	if i < 0 || int64(i) >= b.Header.Size {
		return 0, fmt.Errorf("%w: cell index %d out of range", jtypes.StatusWrongArguments, i)
	}
	return b.Tensor[i], nil
}

// GetBool reads a byte-boolean cell; ok is false for NA.
func (b *Block) GetBool(i int) (v, ok bool, err error) {
	if i < 0 || int64(i) >= b.Header.Size {
		return false, false, fmt.Errorf("%w: cell index %d out of range", jtypes.StatusWrongArguments, i)
	}
	c := b.Tensor[i]
	if c == jtypes.NAByteBoolean {
		return false, false, nil
	}
	return c != 0, true, nil
}

// GetString resolves the string stored at cell i of a CellTypeString tensor.
func (b *Block) GetString(i int) (string, bool, error) {
	if b.Header.CellType != jtypes.CellTypeString {
		return "", false, fmt.Errorf("%w: not a string block", jtypes.StatusWrongType)
	}
	off, err := b.GetInt32(i)
	if err != nil {
		return "", false, err
	}
	s, ok := b.Strings.Get(off)
	return s, ok, nil
}

// GetStringAt resolves a string-buffer offset directly (spec.md §4.1:
// "get_string(off|idx)").
func (b *Block) GetStringAt(off int32) (string, bool) {
	return b.Strings.Get(off)
}

// CheckHash recomputes Hash64 over the current payload and compares it to
// the stored value (spec.md §4.1 check_hash; used on every block crossing a
// trust boundary).
func (b *Block) CheckHash() bool {
	return jtypes.HashBlockPayload(b.payloadBytes()) == b.Header.Hash64
}
