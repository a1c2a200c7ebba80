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

// Package cbash implements the "bash" Channel (spec.md §4.6): a single
// translate() that runs a script through bash and captures its output.
package cbash

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/google/uuid"

	"github.com/jazzdata/jazz/internal/block"
	"github.com/jazzdata/jazz/internal/container"
	"github.com/jazzdata/jazz/internal/jtypes"
	"github.com/jazzdata/jazz/internal/locator"
)

// channelPoolCapacity sizes the fixed Transaction pool every Channel shares
// across calls (spec.md §3.4: "a per-container fixed pool", not a fresh one
// per request).
const channelPoolCapacity = 32

// Bash is the shell-exec Channel. It holds no state of its own; every
// Translate call is independent. Like every Channel it satisfies
// container.Container, even though only Translate is meaningful for it —
// the rest report NOT_APPLICABLE (spec.md §4.6).
type Bash struct {
	container.Base

	base string
}

func New() *Bash {
	b := &Bash{base: "bash"}
	b.Base = container.NewBase(channelPoolCapacity, 0, 0)
	b.Base.Self = b
	return b
}

func (b *Bash) Name() string { return "bash" }

// AsLocator accepts "bash/<anything>"; Channels are exempt from the Name
// grammar (spec.md §4.6).
func (b *Bash) AsLocator(path string) (locator.Locator, error) {
	path = strings.TrimPrefix(path, "//")
	path = strings.TrimPrefix(path, "/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) < 1 || parts[0] != b.base {
		return locator.Locator{}, fmt.Errorf("%w: %q is not a bash path", jtypes.StatusParsingNames, path)
	}
	loc := locator.Locator{Base: b.base, Entity: "bash"}
	if len(parts) == 2 {
		loc.Key = parts[1]
	}
	return loc, nil
}

func (b *Bash) GetNative(loc locator.Locator) (*container.Transaction, error) {
	return nil, fmt.Errorf("%w: bash has no get; use Translate", jtypes.StatusNotApplicable)
}

func (b *Bash) HeaderNative(loc locator.Locator) (*block.Header, error) {
	return nil, fmt.Errorf("%w: bash has no header", jtypes.StatusNotApplicable)
}

func (b *Bash) PutNative(loc locator.Locator, blk *block.Block, mode container.WriteMode) error {
	return fmt.Errorf("%w: bash has no put; use Translate", jtypes.StatusNotApplicable)
}

func (b *Bash) RemoveNative(loc locator.Locator) error {
	return fmt.Errorf("%w: bash has no remove", jtypes.StatusNotApplicable)
}

func (b *Bash) NewEntityNative(loc locator.Locator) error {
	return fmt.Errorf("%w: bash has no new_entity", jtypes.StatusNotApplicable)
}

func (b *Bash) Copy(dst, src locator.Locator, dstContainer container.Container, mode container.WriteMode) error {
	return fmt.Errorf("%w: bash does not support copy", jtypes.StatusNotApplicable)
}

func (b *Bash) Exec(fn locator.Locator, args *block.Block) (*container.Transaction, error) {
	return nil, fmt.Errorf("%w: exec", jtypes.StatusNotImplemented)
}

func (b *Bash) Modify(fn locator.Locator, args *block.Block) error {
	return fmt.Errorf("%w: modify", jtypes.StatusNotImplemented)
}

// Translate writes tup's "input" item to a temp file, runs `bash <file>`,
// and captures stdout+stderr into "result" up to its reserved size,
// zero-padding any remainder. Resolved Open Question #3: the temp file is
// removed on every exit path via defer, not left for the OS to reap.
func (b *Bash) Translate(tup *block.Block) error {
	input, err := itemNamed(tup, "input")
	if err != nil {
		return err
	}
	result, err := itemNamed(tup, "result")
	if err != nil {
		return err
	}

	f, err := os.CreateTemp("", "jzz-src-"+uuid.NewString())
	if err != nil {
		return fmt.Errorf("%w: %v", jtypes.StatusCreateFailed, err)
	}
	tmpPath := f.Name()
	defer os.Remove(tmpPath)

	if _, err := f.Write(input.Tensor); err != nil {
		f.Close()
		return fmt.Errorf("%w: %v", jtypes.StatusWriteFailed, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", jtypes.StatusWriteFailed, err)
	}

	var out bytes.Buffer
	cmd := exec.Command("bash", tmpPath)
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return fmt.Errorf("%w: bash script exited nonzero", jtypes.StatusMiscServer)
		}
		return fmt.Errorf("%w: %v", jtypes.StatusMiscServer, err)
	}

	n := copy(result.Tensor, out.Bytes())
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
