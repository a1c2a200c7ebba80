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

// Package persisted implements the LMDB-backed Container (spec.md §4.4):
// entities are named MDBX databases inside one environment; values are
// whole self-describing blocks.
package persisted

import (
	"fmt"
	"sync"

	"github.com/erigontech/mdbx-go/mdbx"
	"go.uber.org/zap"

	"github.com/jazzdata/jazz/internal/block"
	"github.com/jazzdata/jazz/internal/container"
	"github.com/jazzdata/jazz/internal/jtypes"
	"github.com/jazzdata/jazz/internal/locator"
)

// ReservedEntities are created at startup so higher layers can keep config
// and schema without a chicken-and-egg new_entity call (spec.md §4.4).
var ReservedEntities = []string{"sys", "group", "kind", "field", "flux", "agent", "static"}

// writeForbiddenEntities never accept Put/Remove through the public
// Container contract; only Persisted's own startup path writes to them.
var writeForbiddenEntities = map[string]bool{"sys": true}

// Config configures the MDBX environment (spec.md §6 "LMDB" key group).
type Config struct {
	Path        string
	MapSizeMB   int64
	MaxReaders  int
	MaxDBs      int
	Flags       uint // FIXEDMAP/WRITEMAP/NOMETASYNC/NOSYNC/MAPASYNC/NOLOCK/NORDAHEAD/NOMEMINIT
	Base        string
	PoolSize    int
	FailAlloc   int64
	WarnAlloc   int64
}

// Persisted is the LMDB-family Container.
type Persisted struct {
	container.Base

	log  *zap.Logger
	base string

	env  *mdbx.Env
	mu   sync.RWMutex
	dbis map[string]mdbx.DBI
}

// Open creates or opens the MDBX environment at cfg.Path and creates every
// reserved entity that does not yet exist.
func Open(cfg Config, log *zap.Logger) (*Persisted, error) {
	env, err := mdbx.NewEnv()
	if err != nil {
		return nil, fmt.Errorf("%w: mdbx.NewEnv: %v", jtypes.StatusStarting, err)
	}
	if cfg.MaxDBs == 0 || cfg.MaxDBs > 32 {
		cfg.MaxDBs = 32
	}
	if err := env.SetOption(mdbx.OptMaxDB, uint64(cfg.MaxDBs)); err != nil {
		return nil, fmt.Errorf("%w: set max dbs: %v", jtypes.StatusStarting, err)
	}
	if cfg.MaxReaders > 0 {
		if err := env.SetOption(mdbx.OptMaxReaders, uint64(cfg.MaxReaders)); err != nil {
			return nil, fmt.Errorf("%w: set max readers: %v", jtypes.StatusStarting, err)
		}
	}
	if cfg.MapSizeMB > 0 {
		if err := env.SetGeometry(-1, -1, int(cfg.MapSizeMB)<<20, -1, -1, -1); err != nil {
			return nil, fmt.Errorf("%w: set geometry: %v", jtypes.StatusStarting, err)
		}
	}
	if err := env.Open(cfg.Path, mdbx.EnvFlags(cfg.Flags), 0o644); err != nil {
		return nil, fmt.Errorf("%w: env.Open(%s): %v", jtypes.StatusStarting, cfg.Path, err)
	}

	p := &Persisted{
		Base: container.NewBase(cfg.PoolSize, cfg.FailAlloc, cfg.WarnAlloc),
		log:  log,
		base: cfg.Base,
		env:  env,
		dbis: make(map[string]mdbx.DBI),
	}
	p.Alloc.WithLogger(log)
	p.Base.Self = p

	if err := env.Update(func(txn *mdbx.Txn) error {
		for _, name := range ReservedEntities {
			dbi, err := txn.OpenDBI(name, mdbx.Create, nil, nil)
			if err != nil {
				return err
			}
			p.dbis[name] = dbi
		}
		return nil
	}); err != nil {
		env.Close()
		return nil, fmt.Errorf("%w: creating reserved entities: %v", jtypes.StatusStarting, err)
	}

	return p, nil
}

// Close releases the MDBX environment. Call only after every Transaction
// borrowed from this Persisted has been destroyed.
func (p *Persisted) Close() {
	p.env.Close()
}

func (p *Persisted) Name() string { return "persisted" }

func (p *Persisted) AsLocator(path string) (locator.Locator, error) {
	return container.DefaultAsLocator(p.base, path)
}

func (p *Persisted) openDBI(txn *mdbx.Txn, entity string, create bool) (mdbx.DBI, error) {
	p.mu.RLock()
	dbi, ok := p.dbis[entity]
	p.mu.RUnlock()
	if ok {
		return dbi, nil
	}
	flags := uint(0)
	if create {
		flags = mdbx.Create
	}
	dbi, err := txn.OpenDBI(entity, flags, nil, nil)
	if err != nil {
		return 0, err
	}
	p.mu.Lock()
	p.dbis[entity] = dbi
	p.mu.Unlock()
	return dbi, nil
}

// mdbxRelease aborts the read transaction a borrowed Transaction's block
// points into (spec.md §3.4/§4.4: "the returned memory is valid only until
// txn end... making the Transaction itself own the txn handle").
type mdbxRelease struct{ txn *mdbx.Txn }

func (r mdbxRelease) Release() { r.txn.Abort() }

// GetNative reads the block stored at loc.Key in the entity loc.Entity.
func (p *Persisted) GetNative(loc locator.Locator) (*container.Transaction, error) {
	p.EnterRead()
	defer p.LeaveRead()

	txn, err := p.env.BeginTxn(nil, mdbx.Readonly)
	if err != nil {
		return nil, fmt.Errorf("%w: begin read txn: %v", jtypes.StatusMiscServer, err)
	}
	dbi, err := p.openDBI(txn, loc.Entity, false)
	if err != nil {
		txn.Abort()
		return nil, fmt.Errorf("%w: entity %q: %v", jtypes.StatusBlockNotFound, loc.Entity, err)
	}
	val, err := txn.Get(dbi, []byte(loc.Key))
	if err != nil {
		txn.Abort()
		if mdbx.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", jtypes.StatusBlockNotFound, loc.String())
		}
		return nil, fmt.Errorf("%w: %v", jtypes.StatusMiscServer, err)
	}

	blk, err := block.Parse(val)
	if err != nil {
		txn.Abort()
		return nil, fmt.Errorf("%w: corrupt block at %s: %v", jtypes.StatusBadBlock, loc.String(), err)
	}
	if !blk.CheckHash() {
		txn.Abort()
		return nil, fmt.Errorf("%w: hash mismatch at %s", jtypes.StatusBadBlock, loc.String())
	}

	return p.NewTransaction(blk, mdbxRelease{txn})
}

// HeaderNative reads the whole block through GetNative and returns a copy
// of its header.
func (p *Persisted) HeaderNative(loc locator.Locator) (*block.Header, error) {
	txn, err := p.GetNative(loc)
	if err != nil {
		return nil, err
	}
	defer p.Pool.DestroyTransaction(txn)
	h := txn.Block().Header
	return &h, nil
}

// PutNative writes blk at loc.Key, honouring mode's existence and payload
// flags (spec.md §4.4).
func (p *Persisted) PutNative(loc locator.Locator, blk *block.Block, mode container.WriteMode) error {
	if writeForbiddenEntities[loc.Entity] {
		return fmt.Errorf("%w: entity %q", jtypes.StatusWriteForbidden, loc.Entity)
	}
	p.AwaitWrite()
	defer p.LeaveWrite()

	return p.env.Update(func(txn *mdbx.Txn) error {
		dbi, err := p.openDBI(txn, loc.Entity, true)
		if err != nil {
			return fmt.Errorf("%w: %v", jtypes.StatusWriteFailed, err)
		}

		switch mode.Existence() {
		case container.OnlyIfExists:
			if _, err := txn.Get(dbi, []byte(loc.Key)); err != nil {
				return fmt.Errorf("%w: %s does not exist", jtypes.StatusBlockNotFound, loc.String())
			}
		case container.OnlyIfNotExists:
			if _, err := txn.Get(dbi, []byte(loc.Key)); err == nil {
				return fmt.Errorf("%w: %s already exists", jtypes.StatusWriteForbidden, loc.String())
			}
		}

		payload := payloadForMode(blk, mode)
		return txn.Put(dbi, []byte(loc.Key), payload, 0)
	})
}

func payloadForMode(blk *block.Block, mode container.WriteMode) []byte {
	switch mode.Payload() {
	case container.AsString, container.AsContent:
		return blk.Tensor
	default: // AsFullBlock, or zero meaning base default
		return blk.Bytes()
	}
}

// RemoveNative drops the key from its entity's database.
func (p *Persisted) RemoveNative(loc locator.Locator) error {
	if writeForbiddenEntities[loc.Entity] {
		return fmt.Errorf("%w: entity %q", jtypes.StatusWriteForbidden, loc.Entity)
	}
	return p.env.Update(func(txn *mdbx.Txn) error {
		dbi, err := p.openDBI(txn, loc.Entity, false)
		if err != nil {
			return fmt.Errorf("%w: entity %q", jtypes.StatusBlockNotFound, loc.Entity)
		}
		if err := txn.Del(dbi, []byte(loc.Key), nil); err != nil {
			if mdbx.IsNotFound(err) {
				return fmt.Errorf("%w: %s", jtypes.StatusBlockNotFound, loc.String())
			}
			return fmt.Errorf("%w: %v", jtypes.StatusRemoveFailed, err)
		}
		return nil
	})
}

// NewEntityNative opens (creating if absent) the MDBX database for
// loc.Entity.
func (p *Persisted) NewEntityNative(loc locator.Locator) error {
	return p.env.Update(func(txn *mdbx.Txn) error {
		_, err := p.openDBI(txn, loc.Entity, true)
		if err != nil {
			return fmt.Errorf("%w: %v", jtypes.StatusCreateFailed, err)
		}
		return nil
	})
}

// RemoveEntity drops the named database entirely.
func (p *Persisted) RemoveEntity(name string) error {
	if writeForbiddenEntities[name] {
		return fmt.Errorf("%w: entity %q", jtypes.StatusWriteForbidden, name)
	}
	return p.env.Update(func(txn *mdbx.Txn) error {
		dbi, err := p.openDBI(txn, name, false)
		if err != nil {
			return fmt.Errorf("%w: entity %q", jtypes.StatusBlockNotFound, name)
		}
		if err := txn.Drop(dbi, true); err != nil {
			return fmt.Errorf("%w: %v", jtypes.StatusRemoveFailed, err)
		}
		p.mu.Lock()
		delete(p.dbis, name)
		p.mu.Unlock()
		return nil
	})
}

// Copy implements cross-container copy by delegating to Get on src and Put
// on dst (spec.md §2).
func (p *Persisted) Copy(dst, src locator.Locator, dstContainer container.Container, mode container.WriteMode) error {
	txn, err := p.GetNative(src)
	if err != nil {
		return err
	}
	defer p.Pool.DestroyTransaction(txn)
	return dstContainer.PutNative(dst, txn.Block(), mode)
}

// Exec and Modify are stubs; the scripting layer that plugs compiled
// snippets in lives above this package (spec.md §4.3).
func (p *Persisted) Exec(fn locator.Locator, args *block.Block) (*container.Transaction, error) {
	return nil, fmt.Errorf("%w: exec", jtypes.StatusNotImplemented)
}

func (p *Persisted) Modify(fn locator.Locator, args *block.Block) error {
	return fmt.Errorf("%w: modify", jtypes.StatusNotImplemented)
}
