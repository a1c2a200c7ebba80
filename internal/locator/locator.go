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

// Package locator implements the Locator type and the default "easy path"
// parser shared by every Container (spec.md §3.3/§6).
package locator

import (
	"fmt"
	"strings"

	"github.com/jazzdata/jazz/internal/jtypes"
)

// Locator addresses one block inside a Container: {base, entity, key,
// attribute|extra} (spec.md §3.3). Extra is an opaque, container-specific
// value — Channels stores a parsed URL or shell command there.
type Locator struct {
	Base      string
	Entity    string
	Key       string
	Attribute string
	Extra     any
}

// ApplyOpcode is the trailing ".attribute(args)" form of the URL grammar
// (spec.md §6): plain read, name select, URL, function application, filter,
// raw/text serialisation, assignment, new-entity, get/set-attribute,
// server-info.
type ApplyOpcode int

const (
	OpcodeNone ApplyOpcode = iota
	OpcodeSelectItem
	OpcodeURL
	OpcodeApplyFunction
	OpcodeFilter
	OpcodeRaw
	OpcodeText
	OpcodeAssign
	OpcodeNewEntity
	OpcodeGetAttribute
	OpcodeSetAttribute
	OpcodeServerInfo
)

// Parse splits an easy-interface path of the form "base/entity[/key]" into a
// Locator. It does not understand the ".attribute(args)" suffix — that is
// the HTTP front end's job (internal/httpapi), which resolves the suffix
// into an ApplyOpcode before ever reaching a Container (spec.md §1: "The
// core does not know about HTTP").
func Parse(path string) (Locator, error) {
	path = strings.TrimPrefix(path, "//")
	path = strings.TrimPrefix(path, "/")
	parts := strings.SplitN(path, "/", 3)
	if len(parts) < 2 {
		return Locator{}, fmt.Errorf("%w: %q has no entity", jtypes.StatusParsingNames, path)
	}
	loc := Locator{Base: parts[0], Entity: parts[1]}
	if !jtypes.ValidName(loc.Base) {
		return Locator{}, fmt.Errorf("%w: bad base %q", jtypes.StatusParsingNames, loc.Base)
	}
	if !jtypes.ValidName(loc.Entity) {
		return Locator{}, fmt.Errorf("%w: bad entity %q", jtypes.StatusParsingNames, loc.Entity)
	}
	if len(parts) == 3 {
		loc.Key = parts[2]
	}
	return loc, nil
}

// String renders the Locator back into its easy-path form.
func (l Locator) String() string {
	s := "//" + l.Base + "/" + l.Entity
	if l.Key != "" {
		s += "/" + l.Key
	}
	return s
}
