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

package jmetrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/jazzdata/jazz/internal/jtypes"
)

func TestObserveCountsSuccessWithoutError(t *testing.T) {
	m := New()
	m.Observe("lmdb", "get", time.Now(), nil)

	require.Equal(t, float64(1), testutil.ToFloat64(m.opsTotal.WithLabelValues("lmdb", "get")))
	require.Equal(t, float64(0), testutil.ToFloat64(m.opsErrors.WithLabelValues("lmdb", "get", jtypes.StatusOK.Error())))
}

func TestObserveLabelsErrorsByWrappedStatusCode(t *testing.T) {
	m := New()
	err := fmt.Errorf("%w: entity %q", jtypes.StatusBlockNotFound, "missing")
	m.Observe("lmdb", "get", time.Now(), err)

	require.Equal(t, float64(1), testutil.ToFloat64(m.opsTotal.WithLabelValues("lmdb", "get")))
	require.Equal(t, float64(1), testutil.ToFloat64(
		m.opsErrors.WithLabelValues("lmdb", "get", jtypes.StatusBlockNotFound.Error())))
}

func TestGaugesReportLatestValue(t *testing.T) {
	m := New()
	m.SetTransactionsInUse(3)
	m.SetAllocBytesUsed(4096)

	require.Equal(t, float64(3), testutil.ToFloat64(m.transactionsInUse))
	require.Equal(t, float64(4096), testutil.ToFloat64(m.allocBytesUsed))
}

func TestNewUsesItsOwnRegistry(t *testing.T) {
	a := New()
	b := New()
	require.NotSame(t, a.Registry, b.Registry)
}
