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

package jlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWritesToGivenPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jazz.log")

	log, err := New(path, false)
	require.NoError(t, err)
	log.Info("hello")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "hello")
}

func TestNewDebugLevelEnablesDebugLogs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jazz.log")

	log, err := New(path, true)
	require.NoError(t, err)
	require.True(t, log.Core().Enabled(-1)) // zapcore.DebugLevel
}

func TestNewEmptyPathFallsBackToStderr(t *testing.T) {
	log, err := New("", false)
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestNopLoggerDiscardsEverything(t *testing.T) {
	log := NewNop()
	require.NotNil(t, log)
	log.Info("discarded")
}
