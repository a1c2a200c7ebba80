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

// Package container defines the abstract Container contract (spec.md §4.3)
// shared by Persisted, Volatile, and every Channel, along with the
// Transaction pool and reader/writer lock that back it.
package container

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jazzdata/jazz/internal/block"
	"github.com/jazzdata/jazz/internal/jtypes"
)

// Status is a Transaction's lifecycle state (spec.md §3.4).
type Status int32

const (
	StatusEmpty Status = iota
	StatusReady
	StatusDestroyed
)

// Releaser is released when a Transaction holding a borrowed block is
// destroyed — Persisted attaches the LMDB read txn it must abort here;
// Volatile and the in-memory builders leave it nil.
type Releaser interface {
	Release()
}

// Transaction is a container-owned handle to a Block (spec.md §3.4). Unlike
// the source's single atomic counter biased by ±46341 to detect
// reader/writer overflow, the lock here is two explicit atomic counters —
// the redesign spec.md's Design Notes call for ("do not rely on the
// overflow trick of the source — make the contract explicit").
type Transaction struct {
	owner   *Pool
	index   int
	status  Status
	block   *block.Block
	release Releaser

	readers      atomic.Int32
	writerIntent atomic.Bool
}

// Block returns the attached Block, or nil if the Transaction is not READY.
func (t *Transaction) Block() *block.Block {
	if t.status != StatusReady {
		return nil
	}
	return t.block
}

// EnterRead increments the reader count. It never blocks — spec.md's
// contract is advisory concurrency bookkeeping, not mutual exclusion,
// since Blocks are immutable once closed.
func (t *Transaction) EnterRead() { t.readers.Add(1) }

// LeaveRead decrements the reader count.
func (t *Transaction) LeaveRead() { t.readers.Add(-1) }

// EnterWrite records writer intent. Returns false if a writer already holds
// intent; callers must retry or back off.
func (t *Transaction) EnterWrite() bool {
	return t.writerIntent.CompareAndSwap(false, true)
}

// LeaveWrite releases writer intent.
func (t *Transaction) LeaveWrite() { t.writerIntent.Store(false) }

// Destroy returns t to its owning Pool, releasing any attached borrow.
// Callers that only have a *Transaction (e.g. internal/httpapi, which
// never sees the owning Container's Pool directly) use this instead of
// reaching into Pool.DestroyTransaction themselves.
func (t *Transaction) Destroy() error {
	if t.owner == nil {
		return nil
	}
	return t.owner.DestroyTransaction(t)
}

// Pool is a per-container fixed free list of Transactions (spec.md §4.3:
// "new_transaction takes from the free list or returns OUT_OF_MEM").
type Pool struct {
	mu   sync.Mutex
	all  []*Transaction
	free []int
}

// NewPool preallocates capacity Transactions.
func NewPool(capacity int) *Pool {
	p := &Pool{
		all:  make([]*Transaction, capacity),
		free: make([]int, 0, capacity),
	}
	for i := 0; i < capacity; i++ {
		p.all[i] = &Transaction{owner: p, index: i, status: StatusDestroyed}
		p.free = append(p.free, i)
	}
	return p
}

// NewTransaction takes a Transaction from the free list and attaches blk
// (which may be nil, leaving the Transaction EMPTY until filled).
func (p *Pool) NewTransaction(blk *block.Block, rel Releaser) (*Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) == 0 {
		return nil, fmt.Errorf("%w: transaction pool exhausted", jtypes.StatusNoMem)
	}
	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]

	t := p.all[idx]
	t.block = blk
	t.release = rel
	t.readers.Store(0)
	t.writerIntent.Store(false)
	if blk != nil {
		t.status = StatusReady
	} else {
		t.status = StatusEmpty
	}
	return t, nil
}

// DestroyTransaction returns t to the free list, releasing any attached
// borrow (spec.md §3.4: "destroy_transaction must be routed to the owning
// container because Persisted's READY state holds an open LMDB read txn
// that must be aborted on release").
func (p *Pool) DestroyTransaction(t *Transaction) error {
	if t.owner != p {
		return fmt.Errorf("%w: transaction not owned by this container", jtypes.StatusWrongArguments)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if t.status == StatusDestroyed {
		return nil
	}
	if t.release != nil {
		t.release.Release()
		t.release = nil
	}
	t.block = nil
	t.status = StatusDestroyed
	p.free = append(p.free, t.index)
	return nil
}

// InUse reports how many Transactions are currently checked out, for
// allocation-accounting diagnostics.
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.all) - len(p.free)
}
