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

package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jazzdata/jazz/internal/jconfig"
	"github.com/jazzdata/jazz/internal/jlog"
	"github.com/jazzdata/jazz/internal/jmetrics"
)

func TestNewBundlesCollaboratorsVerbatim(t *testing.T) {
	cfg := &jconfig.Config{MyNodeName: "node-a"}
	log := jlog.NewNop()
	metrics := jmetrics.New()

	svc := New(cfg, log, metrics)

	require.Same(t, cfg, svc.Config)
	require.Same(t, log, svc.Log)
	require.Same(t, metrics, svc.Metrics)
}

func TestCloseIsSafeWithoutALogger(t *testing.T) {
	svc := &Services{}
	require.NotPanics(t, func() { svc.Close() })
}

func TestCloseIsIdempotent(t *testing.T) {
	svc := New(&jconfig.Config{}, jlog.NewNop(), jmetrics.New())
	svc.Close()
	require.NotPanics(t, func() { svc.Close() })
}
