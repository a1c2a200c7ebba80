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

// Package czmq implements the "0-mq" Channel (spec.md §4.6): named
// request-reply pipelines over ZeroMQ.
package czmq

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pebbe/zmq4"

	"github.com/jazzdata/jazz/internal/block"
	"github.com/jazzdata/jazz/internal/container"
	"github.com/jazzdata/jazz/internal/jtypes"
	"github.com/jazzdata/jazz/internal/locator"
)

// pipeline is one named ZMQ_REQ socket, tagged with a registry UUID so
// logs and metrics can refer to a specific connection attempt rather than
// just its (reusable) name.
type pipeline struct {
	id     uuid.UUID
	socket *zmq4.Socket
	mu     sync.Mutex
}

// channelPoolCapacity sizes the fixed Transaction pool every Channel shares
// across calls (spec.md §3.4: "a per-container fixed pool", not a fresh one
// per request). 0-mq has no GetNative of its own, but embedding Base still
// gives it the Easy string-path CRUD every descendant shares.
const channelPoolCapacity = 32

// Zmq is the ZeroMQ Channel. Each pipeline's socket is implicitly
// single-threaded (spec.md §5), so every call against one name is
// serialised by the pipeline's own mutex.
type Zmq struct {
	container.Base

	base string

	mu        sync.Mutex
	pipelines map[string]*pipeline
}

// New builds an empty Zmq channel; pipelines are created lazily via
// PutNative("0-mq/pipeline/<name>", ...).
func New(base string) *Zmq {
	z := &Zmq{base: base, pipelines: make(map[string]*pipeline)}
	z.Base = container.NewBase(channelPoolCapacity, 0, 0)
	z.Base.Self = z
	return z
}

func (z *Zmq) Name() string { return "0-mq" }

func (z *Zmq) AsLocator(path string) (locator.Locator, error) {
	path = strings.TrimPrefix(path, "//")
	path = strings.TrimPrefix(path, "/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) < 1 || parts[0] != z.base {
		return locator.Locator{}, fmt.Errorf("%w: %q is not a 0-mq path", jtypes.StatusParsingNames, path)
	}
	loc := locator.Locator{Base: z.base, Entity: "0-mq"}
	if len(parts) == 2 {
		loc.Key = parts[1]
	}
	return loc, nil
}

// PutNative with key "pipeline/<name>" and a string tensor endpoint
// ("tcp://host:port") creates a ZMQ_REQ socket connected to it.
func (z *Zmq) PutNative(loc locator.Locator, blk *block.Block, mode container.WriteMode) error {
	z.AwaitWrite()
	defer z.LeaveWrite()

	name, ok := strings.CutPrefix(loc.Key, "pipeline/")
	if !ok {
		return fmt.Errorf("%w: 0-mq put expects key \"pipeline/<name>\"", jtypes.StatusWrongArguments)
	}
	if blk.Header.CellType != jtypes.CellTypeString && blk.Header.CellType != jtypes.CellTypeByte {
		return fmt.Errorf("%w: pipeline endpoint must be a string or byte tensor", jtypes.StatusWrongType)
	}
	endpoint := string(blk.Tensor)
	if blk.Header.CellType == jtypes.CellTypeString {
		s, _, err := blk.GetString(0)
		if err != nil {
			return err
		}
		endpoint = s
	}

	sock, err := zmq4.NewSocket(zmq4.REQ)
	if err != nil {
		return fmt.Errorf("%w: %v", jtypes.StatusCreateFailed, err)
	}
	if err := sock.Connect(endpoint); err != nil {
		sock.Close()
		return fmt.Errorf("%w: connect %s: %v", jtypes.StatusCreateFailed, endpoint, err)
	}

	z.mu.Lock()
	defer z.mu.Unlock()
	if old, exists := z.pipelines[name]; exists {
		old.socket.Close()
	}
	z.pipelines[name] = &pipeline{id: uuid.New(), socket: sock}
	return nil
}

// RemoveNative closes and forgets the named pipeline.
func (z *Zmq) RemoveNative(loc locator.Locator) error {
	name, ok := strings.CutPrefix(loc.Key, "pipeline/")
	if !ok {
		name = loc.Key
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	p, ok := z.pipelines[name]
	if !ok {
		return fmt.Errorf("%w: pipeline %q", jtypes.StatusBlockNotFound, name)
	}
	p.socket.Close()
	delete(z.pipelines, name)
	return nil
}

// Translate requires tup's first two items to be named "input" (index 0)
// and "result" (index 1). It sends input's raw bytes and writes the reply
// into result in place, truncating to result's reserved size and
// zero-padding any tail (spec.md §4.6). The items' cell types are not
// checked; both tensors are handled as raw bytes.
func (z *Zmq) Translate(name string, tup *block.Block) error {
	input, err := itemNamed(tup, "input")
	if err != nil {
		return err
	}
	result, err := itemNamed(tup, "result")
	if err != nil {
		return err
	}
	if tup.Items[0].Name != "input" || tup.Items[1].Name != "result" {
		return fmt.Errorf("%w: translate expects items \"input\" then \"result\"", jtypes.StatusWrongArguments)
	}

	z.mu.Lock()
	p, ok := z.pipelines[name]
	z.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: pipeline %q", jtypes.StatusBlockNotFound, name)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.socket.SendBytes(input.Tensor, 0); err != nil {
		return fmt.Errorf("%w: send: %v", jtypes.StatusMiscServer, err)
	}
	reply, err := p.socket.RecvBytes(0)
	if err != nil {
		return fmt.Errorf("%w: recv: %v", jtypes.StatusMiscServer, err)
	}

	n := copy(result.Tensor, reply)
	for i := n; i < len(result.Tensor); i++ {
		result.Tensor[i] = 0
	}
	return nil
}

func itemNamed(tup *block.Block, name string) (*block.Block, error) {
	if tup.Header.CellType != jtypes.CellTypeTupleItem {
		return nil, fmt.Errorf("%w: translate expects a Tuple", jtypes.StatusWrongType)
	}
	for i, it := range tup.Items {
		if it.Name == name {
			return tup.ItemData[i], nil
		}
	}
	return nil, fmt.Errorf("%w: tuple has no item %q", jtypes.StatusWrongName, name)
}

func (z *Zmq) GetNative(loc locator.Locator) (*container.Transaction, error) {
	return nil, fmt.Errorf("%w: 0-mq has no get; use Translate", jtypes.StatusNotApplicable)
}

func (z *Zmq) HeaderNative(loc locator.Locator) (*block.Header, error) {
	return nil, fmt.Errorf("%w: 0-mq has no header", jtypes.StatusNotApplicable)
}

func (z *Zmq) NewEntityNative(loc locator.Locator) error {
	return fmt.Errorf("%w: 0-mq has no new_entity", jtypes.StatusNotApplicable)
}

func (z *Zmq) Copy(dst, src locator.Locator, dstContainer container.Container, mode container.WriteMode) error {
	return fmt.Errorf("%w: 0-mq does not support copy", jtypes.StatusNotApplicable)
}

func (z *Zmq) Exec(fn locator.Locator, args *block.Block) (*container.Transaction, error) {
	return nil, fmt.Errorf("%w: exec", jtypes.StatusNotImplemented)
}

func (z *Zmq) Modify(fn locator.Locator, args *block.Block) error {
	return fmt.Errorf("%w: modify", jtypes.StatusNotImplemented)
}
