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
	"sync/atomic"

	"github.com/jazzdata/jazz/internal/block"
	"github.com/jazzdata/jazz/internal/jtypes"
	"go.uber.org/zap"
)

// Accounting is one Container's allocation accountant (spec.md §4.3: "every
// malloc routed through a wrapper that fails-fast above fail_alloc_bytes and
// logs once at warn_alloc_bytes"). It is deliberately a byte counter, not a
// real allocator — Go's GC owns the memory; this only enforces the
// configured ceilings so a runaway request cannot take down the process.
type Accounting struct {
	failAt    int64
	warnAt    int64
	used      atomic.Int64
	warned    atomic.Bool
	log       *zap.Logger
}

// NewAccounting builds an accountant with the given ceilings, in bytes. A
// zero failAt disables the hard limit.
func NewAccounting(failAt, warnAt int64) *Accounting {
	return &Accounting{failAt: failAt, warnAt: warnAt}
}

// WithLogger attaches a logger used for the one-time warn-threshold
// message; safe to call with nil, which leaves logging off.
func (a *Accounting) WithLogger(log *zap.Logger) *Accounting {
	a.log = log
	return a
}

// Reserve accounts for n additional bytes, failing if the new total would
// exceed failAt. Per-block allocations carry their own total_bytes, which
// Release later subtracts (spec.md §4.3: "Per-block allocations clear
// cell_type and total_bytes so destroy_transaction can subtract the right
// amount").
func (a *Accounting) Reserve(n int64) error {
	total := a.used.Add(n)
	if a.failAt > 0 && total > a.failAt {
		a.used.Add(-n)
		return fmt.Errorf("%w: allocation of %d bytes would exceed %d byte limit", jtypes.StatusNoMem, n, a.failAt)
	}
	if a.warnAt > 0 && total > a.warnAt && a.warned.CompareAndSwap(false, true) {
		if a.log != nil {
			a.log.Warn("allocation accounting exceeded warn threshold",
				zap.Int64("used_bytes", total), zap.Int64("warn_bytes", a.warnAt))
		}
	}
	return nil
}

// Release gives back n bytes previously reserved.
func (a *Accounting) Release(n int64) {
	a.used.Add(-n)
}

// Used reports the current reserved total.
func (a *Accounting) Used() int64 { return a.used.Load() }

// accountingRelease composes the byte-accounting release with any
// domain-specific Releaser already attached to a Transaction (e.g.
// Persisted's open LMDB read txn), so destroy_transaction always gives the
// reserved bytes back exactly once (spec.md §4.3 testable property #9).
type accountingRelease struct {
	alloc *Accounting
	n     int64
	inner Releaser
}

func (r accountingRelease) Release() {
	r.alloc.Release(r.n)
	if r.inner != nil {
		r.inner.Release()
	}
}

// NewTransaction reserves blk's total byte footprint against Alloc before
// handing it to Pool, wrapping rel (which may be nil) so the reservation is
// released exactly once, when the Transaction is destroyed. Every Container
// that builds or hands out a real block routes through this instead of
// calling Pool.NewTransaction directly, so allocation accounting tracks
// every block this container returns.
func (b Base) NewTransaction(blk *block.Block, rel Releaser) (*Transaction, error) {
	var n int64
	if blk != nil {
		n = blk.Header.TotalBytes
	}
	if err := b.Alloc.Reserve(n); err != nil {
		return nil, err
	}
	t, err := b.Pool.NewTransaction(blk, accountingRelease{alloc: b.Alloc, n: n, inner: rel})
	if err != nil {
		b.Alloc.Release(n)
		return nil, err
	}
	return t, nil
}
