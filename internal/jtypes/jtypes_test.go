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

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidName(t *testing.T) {
	cases := map[string]bool{
		"a":              true,
		"Abc_123":        true,
		"a-b~c$d":        true,
		"":                false,
		"1abc":           false,
		"has space":      false,
		"thisnameiswaytoolongforashortnameconstraint": false,
	}
	for name, want := range cases {
		require.Equal(t, want, ValidName(name), "name=%q", name)
	}
}

func TestMurmurHash64ADeterministic(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	h1 := HashBlockPayload(data)
	h2 := HashBlockPayload(append([]byte{}, data...))
	require.Equal(t, h1, h2)
	require.NotZero(t, h1)

	// Changing a single byte must change the hash (no expectation of a
	// specific value, only of sensitivity to input).
	mutated := append([]byte{}, data...)
	mutated[0] = 'T'
	require.NotEqual(t, h1, HashBlockPayload(mutated))
}

func TestNADoubleRoundtrips(t *testing.T) {
	na := NADouble()
	require.True(t, IsNADouble(na))
	require.False(t, IsNADouble(1.0))
}

func TestStatusCodeError(t *testing.T) {
	require.True(t, StatusOK.OK())
	require.False(t, StatusBlockNotFound.OK())
	require.Equal(t, "block not found", StatusBlockNotFound.Error())
	require.Equal(t, StatusBlockNotFound, AsStatus(StatusBlockNotFound))
	require.Equal(t, StatusOK, AsStatus(nil))
}
