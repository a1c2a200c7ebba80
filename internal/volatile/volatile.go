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

// Package volatile implements the RAM-backed Container (spec.md §4.5): same
// CRUD contract as Persisted, but for ephemeral entities and the Index
// blocks that need a live process to hold their maps.
package volatile

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jazzdata/jazz/internal/block"
	"github.com/jazzdata/jazz/internal/container"
	"github.com/jazzdata/jazz/internal/jtypes"
	"github.com/jazzdata/jazz/internal/locator"
)

type entityKey struct {
	entity string
	key    string
}

// Volatile holds blocks keyed by (entity, key) in memory. Index blocks are
// stored in data like any other block.
type Volatile struct {
	container.Base

	base string
	mu   sync.RWMutex
	data map[string]map[string]*block.Block

	// indexCache keeps references to the most recently used Index blocks,
	// up to its size. Evicting an entry does not remove the block from
	// data, and nothing is freed.
	indexCache *lru.Cache[entityKey, *block.Block]
}

// New builds a Volatile container. cacheSize bounds the Index LRU;
// poolCapacity/failAlloc/warnAlloc configure the shared Transaction pool and
// allocation accounting exactly as Persisted does.
func New(base string, cacheSize, poolCapacity int, failAlloc, warnAlloc int64) (*Volatile, error) {
	cache, err := lru.New[entityKey, *block.Block](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("%w: index cache: %v", jtypes.StatusStarting, err)
	}
	v := &Volatile{
		Base:       container.NewBase(poolCapacity, failAlloc, warnAlloc),
		base:       base,
		data:       make(map[string]map[string]*block.Block),
		indexCache: cache,
	}
	v.Base.Self = v
	return v, nil
}

func (v *Volatile) Name() string { return "volatile" }

func (v *Volatile) AsLocator(path string) (locator.Locator, error) {
	return container.DefaultAsLocator(v.base, path)
}

func (v *Volatile) store(entity string) map[string]*block.Block {
	m, ok := v.data[entity]
	if !ok {
		m = make(map[string]*block.Block)
		v.data[entity] = m
	}
	return m
}

// GetNative reads a block by (entity, key). Index blocks read here are
// also recorded in indexCache.
func (v *Volatile) GetNative(loc locator.Locator) (*container.Transaction, error) {
	v.EnterRead()
	defer v.LeaveRead()

	v.mu.RLock()
	defer v.mu.RUnlock()
	m, ok := v.data[loc.Entity]
	if !ok {
		return nil, fmt.Errorf("%w: entity %q", jtypes.StatusBlockNotFound, loc.Entity)
	}
	blk, ok := m[loc.Key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", jtypes.StatusBlockNotFound, loc.String())
	}
	if jtypes.IsIndex(blk.Header.CellType) {
		v.indexCache.Add(entityKey{loc.Entity, loc.Key}, blk)
	}
	// No hash verification: spec.md §4.5 — "no hash verification on reads
	// (local)".
	return v.NewTransaction(blk, nil)
}

func (v *Volatile) HeaderNative(loc locator.Locator) (*block.Header, error) {
	txn, err := v.GetNative(loc)
	if err != nil {
		return nil, err
	}
	defer v.Pool.DestroyTransaction(txn)
	h := txn.Block().Header
	return &h, nil
}

// PutNative stores blk at (entity, key), honouring mode's existence flags.
// Payload flags are moot in RAM — there is nothing to compact — so the
// whole block is always kept.
func (v *Volatile) PutNative(loc locator.Locator, blk *block.Block, mode container.WriteMode) error {
	v.AwaitWrite()
	defer v.LeaveWrite()

	v.mu.Lock()
	defer v.mu.Unlock()
	m := v.store(loc.Entity)
	_, exists := m[loc.Key]
	switch mode.Existence() {
	case container.OnlyIfExists:
		if !exists {
			return fmt.Errorf("%w: %s does not exist", jtypes.StatusBlockNotFound, loc.String())
		}
	case container.OnlyIfNotExists:
		if exists {
			return fmt.Errorf("%w: %s already exists", jtypes.StatusWriteForbidden, loc.String())
		}
	}
	m[loc.Key] = blk
	return nil
}

func (v *Volatile) RemoveNative(loc locator.Locator) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	m, ok := v.data[loc.Entity]
	if !ok {
		return fmt.Errorf("%w: entity %q", jtypes.StatusBlockNotFound, loc.Entity)
	}
	if _, ok := m[loc.Key]; !ok {
		return fmt.Errorf("%w: %s", jtypes.StatusBlockNotFound, loc.String())
	}
	delete(m, loc.Key)
	v.indexCache.Remove(entityKey{loc.Entity, loc.Key})
	return nil
}

func (v *Volatile) NewEntityNative(loc locator.Locator) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.store(loc.Entity)
	return nil
}

// RemoveEntity drops every key under entity.
func (v *Volatile) RemoveEntity(entity string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.data[entity]; !ok {
		return fmt.Errorf("%w: entity %q", jtypes.StatusBlockNotFound, entity)
	}
	delete(v.data, entity)
	return nil
}

func (v *Volatile) Copy(dst, src locator.Locator, dstContainer container.Container, mode container.WriteMode) error {
	txn, err := v.GetNative(src)
	if err != nil {
		return err
	}
	defer v.Pool.DestroyTransaction(txn)
	return dstContainer.PutNative(dst, txn.Block(), mode)
}

func (v *Volatile) Exec(fn locator.Locator, args *block.Block) (*container.Transaction, error) {
	return nil, fmt.Errorf("%w: exec", jtypes.StatusNotImplemented)
}

func (v *Volatile) Modify(fn locator.Locator, args *block.Block) error {
	return fmt.Errorf("%w: modify", jtypes.StatusNotImplemented)
}
