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

// Package jconfig loads Jazz's configuration file (spec.md §6): simple
// `key = value` lines, `//` comments, double-quoted strings.
package jconfig

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/c2h5oh/datasize"
)

// ClusterNode is one entry of the JAZZ_NODE_* table.
type ClusterNode struct {
	Name string
	IP   string
	Port int
}

// Config is the fully parsed, typed configuration.
type Config struct {
	LogPath string

	EnableZeroMQClient bool
	EnableHTTPClient   bool
	EnableBashExec     bool
	EnableFileLevel    int // 0..3

	FileRoot string

	MyNodeName string
	Nodes      []ClusterNode

	OneShotMaxTransactions  int
	OneShotWarnBlockKBytes  int64
	OneShotErrorBlockKBytes int64

	MDBPersistencePath  string
	MDBEnvSetMapSize    int64 // bytes
	MDBEnvSetMaxReaders int
	MDBEnvSetMaxDBs     int
	MDBFlags            LMDBFlags

	HTTPListenAddr string
}

// LMDBFlags is the bitmask of the 8 LMDB flag bits spec.md §6 names.
type LMDBFlags uint32

const (
	FlagFixedMap LMDBFlags = 1 << iota
	FlagWriteMap
	FlagNoMetaSync
	FlagNoSync
	FlagMapAsync
	FlagNoLock
	FlagNoRdAhead
	FlagNoMemInit
)

var lmdbFlagNames = map[string]LMDBFlags{
	"FIXEDMAP":   FlagFixedMap,
	"WRITEMAP":   FlagWriteMap,
	"NOMETASYNC": FlagNoMetaSync,
	"NOSYNC":     FlagNoSync,
	"MAPASYNC":   FlagMapAsync,
	"NOLOCK":     FlagNoLock,
	"NORDAHEAD":  FlagNoRdAhead,
	"NOMEMINIT":  FlagNoMemInit,
}

// Load parses r's key=value lines into a Config.
func Load(r io.Reader) (*Config, error) {
	raw, err := parseKeyValue(r)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		EnableFileLevel:     0,
		MDBEnvSetMaxDBs:     32,
		OneShotMaxTransactions: 1024,
	}

	nodeNames := map[int]string{}
	nodeIPs := map[int]string{}
	nodePorts := map[int]int{}

	for key, val := range raw {
		switch {
		case key == "LOG_PATH":
			cfg.LogPath = val
		case key == "ENABLE_ZEROMQ_CLIENT":
			cfg.EnableZeroMQClient = val == "1" || strings.EqualFold(val, "true")
		case key == "ENABLE_HTTP_CLIENT":
			cfg.EnableHTTPClient = val == "1" || strings.EqualFold(val, "true")
		case key == "ENABLE_BASH_EXEC":
			cfg.EnableBashExec = val == "1" || strings.EqualFold(val, "true")
		case key == "ENABLE_FILE_LEVEL":
			n, err := strconv.Atoi(val)
			if err != nil || n < 0 || n > 3 {
				return nil, fmt.Errorf("bad config: ENABLE_FILE_LEVEL must be 0..3, got %q", val)
			}
			cfg.EnableFileLevel = n
		case key == "FILE_ROOT":
			cfg.FileRoot = val
		case key == "JAZZ_NODE_MY_NAME":
			cfg.MyNodeName = val
		case key == "JAZZ_HTTP_LISTEN":
			cfg.HTTPListenAddr = val
		case key == "ONE_SHOT_MAX_TRANSACTIONS":
			n, err := strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("bad config: ONE_SHOT_MAX_TRANSACTIONS: %v", err)
			}
			cfg.OneShotMaxTransactions = n
		case key == "ONE_SHOT_WARN_BLOCK_KBYTES":
			n, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bad config: ONE_SHOT_WARN_BLOCK_KBYTES: %v", err)
			}
			cfg.OneShotWarnBlockKBytes = n
		case key == "ONE_SHOT_ERROR_BLOCK_KBYTES":
			n, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bad config: ONE_SHOT_ERROR_BLOCK_KBYTES: %v", err)
			}
			cfg.OneShotErrorBlockKBytes = n
		case key == "MDB_PERSISTENCE_PATH":
			cfg.MDBPersistencePath = val
		case key == "MDB_ENV_SET_MAPSIZE":
			var sz datasize.ByteSize
			if err := sz.UnmarshalText([]byte(val + "MB")); err != nil {
				return nil, fmt.Errorf("bad config: MDB_ENV_SET_MAPSIZE: %v", err)
			}
			cfg.MDBEnvSetMapSize = int64(sz.Bytes())
		case key == "MDB_ENV_SET_MAXREADERS":
			n, err := strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("bad config: MDB_ENV_SET_MAXREADERS: %v", err)
			}
			cfg.MDBEnvSetMaxReaders = n
		case key == "MDB_ENV_SET_MAXDBS":
			n, err := strconv.Atoi(val)
			if err != nil || n > 32 {
				return nil, fmt.Errorf("bad config: MDB_ENV_SET_MAXDBS must be <= 32, got %q", val)
			}
			cfg.MDBEnvSetMaxDBs = n
		case lmdbFlagNames[key] != 0:
			if val == "1" || strings.EqualFold(val, "true") {
				cfg.MDBFlags |= lmdbFlagNames[key]
			}
		case strings.HasPrefix(key, "JAZZ_NODE_NAME_"):
			i, err := strconv.Atoi(strings.TrimPrefix(key, "JAZZ_NODE_NAME_"))
			if err != nil {
				return nil, fmt.Errorf("bad config: malformed node index in %q", key)
			}
			nodeNames[i] = val
		case strings.HasPrefix(key, "JAZZ_NODE_IP_"):
			i, err := strconv.Atoi(strings.TrimPrefix(key, "JAZZ_NODE_IP_"))
			if err != nil {
				return nil, fmt.Errorf("bad config: malformed node index in %q", key)
			}
			nodeIPs[i] = val
		case strings.HasPrefix(key, "JAZZ_NODE_PORT_"):
			i, err := strconv.Atoi(strings.TrimPrefix(key, "JAZZ_NODE_PORT_"))
			if err != nil {
				return nil, fmt.Errorf("bad config: malformed node index in %q", key)
			}
			port, err := strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("bad config: JAZZ_NODE_PORT_%d: %v", i, err)
			}
			nodePorts[i] = port
		}
	}

	for i, name := range nodeNames {
		cfg.Nodes = append(cfg.Nodes, ClusterNode{Name: name, IP: nodeIPs[i], Port: nodePorts[i]})
	}

	return cfg, nil
}

// parseKeyValue handles the bespoke key=value/`//`-comment/quoted-string
// grammar spec.md §6 describes; it is deliberately hand-rolled since no
// pack library targets this exact format.
func parseKeyValue(r io.Reader) (map[string]string, error) {
	out := make(map[string]string)
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if idx := strings.Index(text, "//"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		eq := strings.Index(text, "=")
		if eq < 0 {
			return nil, fmt.Errorf("bad config line %d: missing '='", line)
		}
		key := strings.TrimSpace(text[:eq])
		val := strings.TrimSpace(text[eq+1:])
		if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
			val = val[1 : len(val)-1]
		}
		out[key] = val
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
