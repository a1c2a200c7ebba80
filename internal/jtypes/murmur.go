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

import "encoding/binary"

// murmurSeed is the seed the original block layer hashes with; every Block's
// hash64 must be bit-for-bit reproducible across peers, so this is fixed.
const murmurSeed uint64 = 0xe17a1465

const (
	murmurM uint64 = 0xc6a4a7935bd1e995
	murmurR        = 47
)

// MurmurHash64A implements Austin Appleby's MurmurHash64A exactly as used by
// spec.md §3.2 to compute a Block's hash64 over [tensor, end). It must not be
// replaced by a different 64-bit hash: peers compare these bytes directly.
func MurmurHash64A(data []byte, seed uint64) uint64 {
	h := seed ^ (uint64(len(data)) * murmurM)

	n := len(data) / 8
	for i := 0; i < n; i++ {
		k := binary.LittleEndian.Uint64(data[i*8 : i*8+8])
		k *= murmurM
		k ^= k >> murmurR
		k *= murmurM

		h ^= k
		h *= murmurM
	}

	tail := data[n*8:]
	switch len(tail) {
	case 7:
		h ^= uint64(tail[6]) << 48
		fallthrough
	case 6:
		h ^= uint64(tail[5]) << 40
		fallthrough
	case 5:
		h ^= uint64(tail[4]) << 32
		fallthrough
	case 4:
		h ^= uint64(tail[3]) << 24
		fallthrough
	case 3:
		h ^= uint64(tail[2]) << 16
		fallthrough
	case 2:
		h ^= uint64(tail[1]) << 8
		fallthrough
	case 1:
		h ^= uint64(tail[0])
		h *= murmurM
	}

	h ^= h >> murmurR
	h *= murmurM
	h ^= h >> murmurR

	return h
}

// HashBlockPayload hashes the tensor-through-end region of a block, seeded
// with the module-wide seed, matching spec.md §3.2's "hash64 ==
// MurmurHash64A(tensor..end, total_bytes - sizeof(header))" invariant.
func HashBlockPayload(payload []byte) uint64 {
	return MurmurHash64A(payload, murmurSeed)
}
