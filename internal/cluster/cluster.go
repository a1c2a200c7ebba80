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

// Package cluster turns the JAZZ_NODE_* configuration table into a node
// name -> address directory and dispatches forward_get/forward_put/
// forward_del calls against it through an internal/channels/chttp.Http.
package cluster

import (
	"fmt"

	"github.com/jazzdata/jazz/internal/block"
	"github.com/jazzdata/jazz/internal/channels/chttp"
	"github.com/jazzdata/jazz/internal/container"
	"github.com/jazzdata/jazz/internal/jconfig"
	"github.com/jazzdata/jazz/internal/jtypes"
)

// Table is the resolved set of peer nodes this process knows about,
// excluding itself.
type Table struct {
	MyName string
	Peers  map[string]ClusterNode
}

// ClusterNode mirrors jconfig.ClusterNode; re-exported here so callers
// that only import internal/cluster don't also need internal/jconfig.
type ClusterNode = jconfig.ClusterNode

// NewTable builds a Table from parsed configuration and registers every
// peer's address with http so forward_* calls can reach it.
func NewTable(cfg *jconfig.Config, http *chttp.Http) (*Table, error) {
	t := &Table{MyName: cfg.MyNodeName, Peers: make(map[string]ClusterNode)}
	for _, n := range cfg.Nodes {
		if n.Name == cfg.MyNodeName {
			continue
		}
		t.Peers[n.Name] = n
		http.SetNode(n.Name, fmt.Sprintf("%s:%d", n.IP, n.Port))
	}
	return t, nil
}

// Dispatcher forwards easy-interface calls to a named peer over HTTP. It
// is a thin wrapper over chttp.Http's Forward* methods so callers depend
// on internal/cluster rather than reaching into a specific Channel.
type Dispatcher struct {
	table *Table
	http  *chttp.Http
}

func NewDispatcher(table *Table, http *chttp.Http) *Dispatcher {
	return &Dispatcher{table: table, http: http}
}

func (d *Dispatcher) resolve(node string) error {
	if _, ok := d.table.Peers[node]; !ok {
		return fmt.Errorf("%w: unknown cluster node %q", jtypes.StatusParsingNames, node)
	}
	return nil
}

// ForwardGet dispatches a forward_get call to node.
func (d *Dispatcher) ForwardGet(node, path string) (*container.Transaction, error) {
	if err := d.resolve(node); err != nil {
		return nil, err
	}
	return d.http.ForwardGet(node, path)
}

// ForwardPut dispatches a forward_put call to node.
func (d *Dispatcher) ForwardPut(node, path string, blk *block.Block) error {
	if err := d.resolve(node); err != nil {
		return err
	}
	return d.http.ForwardPut(node, path, blk)
}

// ForwardDel dispatches a forward_del call to node.
func (d *Dispatcher) ForwardDel(node, path string) error {
	if err := d.resolve(node); err != nil {
		return err
	}
	return d.http.ForwardDel(node, path)
}
