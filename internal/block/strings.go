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

import "github.com/jazzdata/jazz/internal/jtypes"

// reservedHeaderLen is the two reserved bytes at string-buffer offset 0 (NA)
// and offset 1 (empty string), each a single NUL byte. No trailing sentinel
// follows the last interned string: for "foo","bar" the arena is 2+4+4 = 10
// bytes.
const reservedHeaderLen = 2

// StringBuffer is a Block's internal string arena: offset 0 is the reserved
// NA string, offset 1 is the reserved empty string, and every further
// interned string is NUL-terminated (spec.md §3.2.4).
//
// StopCheck4Match and AllocFailed are load-bearing *builder* state (spec.md
// Design Notes: "model it as internal state of the builder, not of the
// finished (immutable) Block") but are kept on the buffer itself so a
// finished Block can still report how it was built, e.g. for diagnostics.
type StringBuffer struct {
	Arena           []byte
	StopCheck4Match bool
	AllocFailed     bool
	MaxSize         int // 0 means unbounded
}

// NewStringBuffer returns an empty buffer with the two reserved bytes
// already written, ready for interning. maxSize of 0 leaves the arena
// unbounded; any positive value is the point at which AllocFailed latches.
func NewStringBuffer(maxSize int) *StringBuffer {
	return &StringBuffer{
		Arena:   []byte{0, 0},
		MaxSize: maxSize,
	}
}

// Get resolves a string-buffer offset into its string. Offset 0 is NA
// (reported via ok=false); offset 1 is the empty string.
func (sb *StringBuffer) Get(off int32) (string, bool) {
	if off == 0 {
		return "", false
	}
	if off == 1 {
		return "", true
	}
	if int(off) >= len(sb.Arena) {
		return "", false
	}
	end := int(off)
	for end < len(sb.Arena) && sb.Arena[end] != 0 {
		end++
	}
	return string(sb.Arena[off:end]), true
}

// Intern stores s and returns its offset, following spec.md's degenerate
// interning contract:
//   - NA is not something Intern is asked for; callers wanting an NA string
//     cell should use offset 0 directly.
//   - empty string always resolves to offset 1.
//   - while AllocFailed is false and fewer than MaxChecks4Match distinct
//     strings have been interned, a linear scan dedupes.
//   - once that many distinct strings exist, StopCheck4Match latches and
//     every further string is appended without a scan.
//   - if the arena would grow past MaxSize, AllocFailed latches and Intern
//     returns offset 0 (NA) from then on.
func (sb *StringBuffer) Intern(s string) int32 {
	if sb.AllocFailed {
		return 0
	}
	if s == "" {
		return 1
	}

	if !sb.StopCheck4Match {
		off, distinct := sb.scanForMatch(s)
		if off >= 0 {
			return off
		}
		if distinct >= jtypes.MaxChecks4Match {
			sb.StopCheck4Match = true
		}
	}

	return sb.append(s)
}

// scanForMatch linearly scans interned strings, returning the offset of an
// exact match (or -1) and the number of distinct strings seen so far.
func (sb *StringBuffer) scanForMatch(s string) (off int32, distinct int) {
	i := reservedHeaderLen
	off = -1
	for i < len(sb.Arena) {
		start := i
		for i < len(sb.Arena) && sb.Arena[i] != 0 {
			i++
		}
		if off < 0 && string(sb.Arena[start:i]) == s {
			off = int32(start)
		}
		distinct++
		i++ // skip NUL
	}
	return off, distinct
}

func (sb *StringBuffer) append(s string) int32 {
	if sb.MaxSize > 0 && len(sb.Arena)+len(s)+1 > sb.MaxSize {
		sb.AllocFailed = true
		return 0
	}
	off := int32(len(sb.Arena))
	sb.Arena = append(sb.Arena, s...)
	sb.Arena = append(sb.Arena, 0)
	return off
}

// Len returns the current arena size in bytes, including the reserved header.
func (sb *StringBuffer) Len() int { return len(sb.Arena) }
