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

package container

import (
	"fmt"
	"runtime"

	"github.com/jazzdata/jazz/internal/block"
	"github.com/jazzdata/jazz/internal/jtypes"
	"github.com/jazzdata/jazz/internal/locator"
)

// Container is the trait implemented by Persisted, Volatile, and every
// Channel (spec.md §4.3/§4.6). Composition over inheritance: each
// implementation embeds Base for the pool/accounting/locator plumbing and
// supplies only the native get/put/remove/header/newEntity/copy methods.
type Container interface {
	Name() string

	// AsLocator is the default "easy path" parser (spec.md §3.3); Channels
	// overrides it since its paths may contain arbitrary characters.
	AsLocator(path string) (locator.Locator, error)

	// GetNative reads the block at loc verbatim (new_block form 1's Easy
	// counterpart). Forms 3/4 (row_filter/item_name) are not overloads of
	// this method — Base.GetFilteredNative and Base.GetItemNative layer
	// them on top of GetNative generically, for every Container.
	GetNative(loc locator.Locator) (*Transaction, error)
	HeaderNative(loc locator.Locator) (*block.Header, error)
	PutNative(loc locator.Locator, blk *block.Block, mode WriteMode) error
	RemoveNative(loc locator.Locator) error
	NewEntityNative(loc locator.Locator) error

	// Copy delegates to Get on src then Put on dst, crossing containers
	// when they differ (spec.md §2: "Containers may delegate cross-medium
	// copy via internal get then put").
	Copy(dst, src locator.Locator, dstContainer Container, mode WriteMode) error

	// Exec/Modify are stubs here; higher layers plug compiled snippets in
	// (spec.md §4.3).
	Exec(fn locator.Locator, args *block.Block) (*Transaction, error)
	Modify(fn locator.Locator, args *block.Block) error
}

// Base implements the easy-interface string-path methods and the
// transaction pool / allocation accounting shared by every Container.
// Embedders must set Self to the concrete Container so the easy methods can
// dispatch to its native overrides.
type Base struct {
	Self  Container
	Pool  *Pool
	Alloc *Accounting

	// rw is a dedicated, pool-independent Transaction used purely for its
	// EnterRead/LeaveRead/EnterWrite/LeaveWrite bracket (spec.md §3.4): the
	// RW-lock guarantee is a per-container property, not a per-block one, so
	// it does not compete with Pool for capacity.
	rw *Transaction
}

// NewBase wires a fresh pool, allocation accountant and RW-lock guard.
func NewBase(poolCapacity int, failAllocBytes, warnAllocBytes int64) Base {
	return Base{
		Pool:  NewPool(poolCapacity),
		Alloc: NewAccounting(failAllocBytes, warnAllocBytes),
		rw:    &Transaction{},
	}
}

// EnterRead/LeaveRead/EnterWrite/LeaveWrite expose this container's RW-lock
// guard to its own Get/Put paths (spec.md §3.4).
func (b Base) EnterRead()       { b.rw.EnterRead() }
func (b Base) LeaveRead()       { b.rw.LeaveRead() }
func (b Base) EnterWrite() bool { return b.rw.EnterWrite() }
func (b Base) LeaveWrite()      { b.rw.LeaveWrite() }

// AwaitWrite spins until EnterWrite succeeds. Put paths are already
// serialised by their own storage-level lock (MDBX's writer mutex, the
// in-memory map's sync.RWMutex), so contention here is transient.
func (b Base) AwaitWrite() {
	for !b.EnterWrite() {
		runtime.Gosched()
	}
}

// DefaultAsLocator is the default "easy path" parser (spec.md §3.3), called
// by every Container's AsLocator override except Channels's (whose paths
// may contain arbitrary characters). base, when non-empty, restricts the
// locator to that container's own base name.
func DefaultAsLocator(base, path string) (locator.Locator, error) {
	loc, err := locator.Parse(path)
	if err != nil {
		return locator.Locator{}, err
	}
	if base != "" && loc.Base != base {
		return locator.Locator{}, fmt.Errorf("%w: base %q does not belong to container %q", jtypes.StatusParsingNames, loc.Base, base)
	}
	return loc, nil
}

// Get is the easy-interface form 1: string path, plain read.
func (b Base) Get(path string) (*Transaction, error) {
	loc, err := b.Self.AsLocator(path)
	if err != nil {
		return nil, err
	}
	return b.Self.GetNative(loc)
}

// Header resolves path to a Locator and returns its Block header without
// transferring the tensor payload.
func (b Base) Header(path string) (*block.Header, error) {
	loc, err := b.Self.AsLocator(path)
	if err != nil {
		return nil, err
	}
	return b.Self.HeaderNative(loc)
}

// Put is the easy-interface write path.
func (b Base) Put(path string, blk *block.Block, mode WriteMode) error {
	loc, err := b.Self.AsLocator(path)
	if err != nil {
		return err
	}
	return b.Self.PutNative(loc, blk, mode)
}

// Remove is the easy-interface delete path.
func (b Base) Remove(path string) error {
	loc, err := b.Self.AsLocator(path)
	if err != nil {
		return err
	}
	return b.Self.RemoveNative(loc)
}

// NewEntity is the easy-interface entity-creation path.
func (b Base) NewEntity(path string) error {
	loc, err := b.Self.AsLocator(path)
	if err != nil {
		return err
	}
	return b.Self.NewEntityNative(loc)
}
