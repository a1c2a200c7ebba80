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

package jtypes

// Integer limit values, used throughout the block layer to size headers and
// validate ranks/dimensions without reaching for math.MaxInt64 at every call
// site.
const (
	MaxInt8  = 1<<7 - 1
	MinInt8  = -1 << 7
	MaxInt16 = 1<<15 - 1
	MinInt16 = -1 << 15
	MaxInt32 = 1<<31 - 1
	MinInt32 = -1 << 31
	MaxInt64 = 1<<63 - 1
	MinInt64 = -1 << 63

	MaxUint8  = 1<<8 - 1
	MaxUint16 = 1<<16 - 1
	MaxUint32 = 1<<32 - 1
	MaxUint64 = 1<<64 - 1
)

// MaxRank is the highest tensor rank a Block may declare (spec.md §3.2: rank 1..6).
const MaxRank = 6

// ShortNameLen bounds Locator.Base length (spec.md §3.3).
const ShortNameLen = 31

// MaxChecks4Match is the number of strings a Block's string buffer will
// linearly scan for a duplicate before latching into append-only mode.
const MaxChecks4Match = 25

// LockWeightOfWrite documents the original reader/writer overflow scheme
// from spec.md §3.4. Jazz itself does not use it (see internal/container,
// Design Notes "Reader/writer lock"); it is kept here only so the historical
// constant has one canonical, searchable home.
const LockWeightOfWrite = 46341

// LockNumRetriesBeforeYield is the historical spin-retry count before a
// yield. No code reads it: there is no structural spinlock (Pool guards its
// free list with a sync.Mutex), and Base.AwaitWrite calls runtime.Gosched
// after every failed EnterWrite.
const LockNumRetriesBeforeYield = 100
