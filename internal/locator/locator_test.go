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

package locator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBaseEntityKey(t *testing.T) {
	loc, err := Parse("//sales/orders/2024-Q1")
	require.NoError(t, err)
	require.Equal(t, "sales", loc.Base)
	require.Equal(t, "orders", loc.Entity)
	require.Equal(t, "2024-Q1", loc.Key)
	require.Equal(t, "//sales/orders/2024-Q1", loc.String())
}

func TestParseBaseEntityOnly(t *testing.T) {
	loc, err := Parse("sales/orders")
	require.NoError(t, err)
	require.Equal(t, "", loc.Key)
	require.Equal(t, "//sales/orders", loc.String())
}

func TestParseKeyMayContainSlashes(t *testing.T) {
	loc, err := Parse("//sales/orders/2024/Q1/west")
	require.NoError(t, err)
	require.Equal(t, "2024/Q1/west", loc.Key)
}

func TestParseRejectsMissingEntity(t *testing.T) {
	_, err := Parse("//sales")
	require.Error(t, err)
}

func TestParseRejectsBadNames(t *testing.T) {
	_, err := Parse("//9bad/orders")
	require.Error(t, err)

	_, err = Parse("//sales/9bad")
	require.Error(t, err)
}
