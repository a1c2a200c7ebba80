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

// Package jtypes holds the cell-type codes, NA sentinels and other small,
// dependency-free building blocks shared by every layer of the block store.
package jtypes

import "math"

// CellType identifies the binary representation of one tensor cell.
type CellType int32

const (
	CellTypeByte        CellType = 1  // 1B, no NA
	CellTypeByteBoolean CellType = 2  // 1B, NA = 0xFF
	CellTypeInteger      CellType = 3  // i32, NA = math.MinInt32
	CellTypeFactor       CellType = 4  // i32, NA = math.MinInt32
	CellTypeGrade        CellType = 5  // i32 ordered factor, NA = math.MinInt32
	CellTypeBooleanU32   CellType = 6  // u32, NA = 0xFF
	CellTypeSingle       CellType = 7  // f32, NA = quiet NaN
	CellTypeString       CellType = 8  // i32 string-buffer offset, 0 = NA, 1 = empty
	CellTypeLongInteger  CellType = 9  // i64, NA = math.MinInt64
	CellTypeTime         CellType = 10 // i64 epoch, NA = 0
	CellTypeDouble       CellType = 11 // f64, NA = R-compatible qNaN, payload 1954

	CellTypeTupleItem CellType = 20 // structural: ItemHeader (40B)
	CellTypeKindItem  CellType = 21 // structural: ItemHeader (40B)

	CellTypeIndexInt2Int    CellType = 30 // dynamic block, 48B descriptor
	CellTypeIndexInt2String CellType = 31
	CellTypeIndexString2Int CellType = 32
	CellTypeIndexString2String CellType = 33
)

// CellSize returns the fixed width in bytes of one cell of the given type, or
// 0 for the dynamic Index variants (whose storage is not a flat tensor).
func CellSize(ct CellType) int {
	switch ct {
	case CellTypeByte, CellTypeByteBoolean:
		return 1
	case CellTypeInteger, CellTypeFactor, CellTypeGrade, CellTypeBooleanU32, CellTypeSingle, CellTypeString:
		return 4
	case CellTypeLongInteger, CellTypeTime, CellTypeDouble:
		return 8
	case CellTypeTupleItem, CellTypeKindItem:
		return 40
	case CellTypeIndexInt2Int, CellTypeIndexInt2String, CellTypeIndexString2Int, CellTypeIndexString2String:
		return 48
	default:
		return 0
	}
}

// IsStructural reports whether ct describes an ItemHeader array (Kind/Tuple)
// rather than a plain cell tensor.
func IsStructural(ct CellType) bool {
	return ct == CellTypeTupleItem || ct == CellTypeKindItem
}

// IsIndex reports whether ct is one of the four dynamic Index flavours.
func IsIndex(ct CellType) bool {
	switch ct {
	case CellTypeIndexInt2Int, CellTypeIndexInt2String, CellTypeIndexString2Int, CellTypeIndexString2String:
		return true
	default:
		return false
	}
}

// NAInt32 is the NA sentinel shared by CellTypeInteger, CellTypeFactor and CellTypeGrade.
const NAInt32 = math.MinInt32

// NAInt64 is the NA sentinel for CellTypeLongInteger.
const NAInt64 = math.MinInt64

// NATime is the NA sentinel for CellTypeTime (epoch zero).
const NATime int64 = 0

// NAByteBoolean is the NA sentinel for CellTypeByteBoolean and CellTypeBooleanU32 (low byte).
const NAByteBoolean byte = 0xFF

// naDoublePayload is the payload bit-pattern R uses inside its NA double, preserved so
// blocks stay byte-compatible with the original encoding described in spec.md §3.1.
const naDoublePayload = 1954

// NADouble returns the quiet-NaN sentinel used for CellTypeDouble cells.
func NADouble() float64 {
	bits := uint64(0x7FF8000000000000) | naDoublePayload
	return math.Float64frombits(bits)
}

// IsNADouble reports whether f is bit-for-bit the NADouble sentinel.
func IsNADouble(f float64) bool {
	return math.Float64bits(f) == math.Float64bits(NADouble())
}

// NASingle returns the quiet-NaN sentinel used for CellTypeSingle cells.
func NASingle() float32 {
	return math.Float32frombits(0x7FC00000)
}

// IsNASingle reports whether f is the quiet NaN NASingle uses. Any NaN payload
// is accepted, matching the looser float32 NA contract of the C++ source.
func IsNASingle(f float32) bool {
	return f != f
}
