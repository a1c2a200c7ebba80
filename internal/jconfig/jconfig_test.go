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

package jconfig

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sample = `
// comment line
LOG_PATH = "/var/log/jazz.log"
ENABLE_ZEROMQ_CLIENT = 1
ENABLE_FILE_LEVEL = 2
FILE_ROOT = "/data"
JAZZ_NODE_MY_NAME = alpha
JAZZ_NODE_NAME_0 = alpha
JAZZ_NODE_IP_0 = 127.0.0.1
JAZZ_NODE_PORT_0 = 9000
JAZZ_NODE_NAME_1 = beta
JAZZ_NODE_IP_1 = 127.0.0.2
JAZZ_NODE_PORT_1 = 9001
MDB_PERSISTENCE_PATH = "/data/mdbx"
MDB_ENV_SET_MAPSIZE = 1024
MDB_ENV_SET_MAXREADERS = 64
MDB_ENV_SET_MAXDBS = 16
WRITEMAP = 1
`

func TestLoadParsesBasicKeys(t *testing.T) {
	cfg, err := Load(strings.NewReader(sample))
	require.NoError(t, err)
	require.Equal(t, "/var/log/jazz.log", cfg.LogPath)
	require.True(t, cfg.EnableZeroMQClient)
	require.Equal(t, 2, cfg.EnableFileLevel)
	require.Equal(t, "/data", cfg.FileRoot)
	require.Equal(t, "alpha", cfg.MyNodeName)
	require.Equal(t, int64(1024*1024*1024), cfg.MDBEnvSetMapSize)
	require.Equal(t, 64, cfg.MDBEnvSetMaxReaders)
	require.Equal(t, 16, cfg.MDBEnvSetMaxDBs)
	require.Equal(t, FlagWriteMap, cfg.MDBFlags&FlagWriteMap)
	require.Len(t, cfg.Nodes, 2)
}

func TestLoadRejectsBadFileLevel(t *testing.T) {
	_, err := Load(strings.NewReader("ENABLE_FILE_LEVEL = 9\n"))
	require.Error(t, err)
}

func TestLoadRejectsMissingEquals(t *testing.T) {
	_, err := Load(strings.NewReader("NOT_A_KEY_VALUE_LINE\n"))
	require.Error(t, err)
}

func TestLoadRejectsMaxDBsAbove32(t *testing.T) {
	_, err := Load(strings.NewReader("MDB_ENV_SET_MAXDBS = 40\n"))
	require.Error(t, err)
}
