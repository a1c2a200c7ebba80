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

// WriteMode is a bitmask combining existence flags with payload flags
// (spec.md §4.3). Zero means "base default".
type WriteMode uint32

const (
	OnlyIfExists    WriteMode = 1 << iota // fail unless the key already exists
	OnlyIfNotExists                       // fail if the key already exists
	AsString                              // prefer a NUL-terminated C string inside a byte tensor
	AsContent                             // write only the tensor bytes
	AsFullBlock                           // write the whole self-describing block
)

// Payload extracts the effective payload flag, applying the documented
// priority STRING > CONTENT > FULL_BLOCK when more than one is set.
func (m WriteMode) Payload() WriteMode {
	switch {
	case m&AsString != 0:
		return AsString
	case m&AsContent != 0:
		return AsContent
	case m&AsFullBlock != 0:
		return AsFullBlock
	default:
		return 0
	}
}

// Existence extracts the effective existence flag. Setting both is a caller
// bug; ONLY_IF_EXISTS wins since it is the more restrictive check.
func (m WriteMode) Existence() WriteMode {
	switch {
	case m&OnlyIfExists != 0:
		return OnlyIfExists
	case m&OnlyIfNotExists != 0:
		return OnlyIfNotExists
	default:
		return 0
	}
}
