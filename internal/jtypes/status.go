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

package jtypes

import (
	"errors"
	"fmt"
)

// StatusCode is the error type returned by every Container operation
// (spec.md §7). Positive values are reserved for parser sub-states; negative
// values are terminal errors. Zero is success.
type StatusCode int

const (
	StatusOK StatusCode = 0

	StatusNotImplemented StatusCode = -1
	StatusBadConfig      StatusCode = -2
	StatusStarting       StatusCode = -3
	StatusNoMem          StatusCode = -4
	StatusNewBlockArgs   StatusCode = -5
	StatusWrongType      StatusCode = -6
	StatusWrongName      StatusCode = -7
	StatusWrongArguments StatusCode = -8
	StatusBadBlock       StatusCode = -9
	StatusWriteForbidden StatusCode = -10
	StatusWriteFailed    StatusCode = -11
	StatusRemoveFailed   StatusCode = -12
	StatusCreateFailed   StatusCode = -13
	StatusBlockNotFound  StatusCode = -14
	StatusParsingNames   StatusCode = -15
	StatusReadForbidden  StatusCode = -16
	StatusMiscServer     StatusCode = -17
	StatusBaseForbidden  StatusCode = -18
	StatusNotApplicable  StatusCode = -19
)

var statusText = map[StatusCode]string{
	StatusOK:             "ok",
	StatusNotImplemented: "not implemented",
	StatusBadConfig:      "bad config",
	StatusStarting:       "service could not start",
	StatusNoMem:          "out of memory",
	StatusNewBlockArgs:   "bad new_block arguments",
	StatusWrongType:      "wrong type",
	StatusWrongName:      "wrong name",
	StatusWrongArguments: "wrong arguments",
	StatusBadBlock:       "bad block",
	StatusWriteForbidden: "write forbidden",
	StatusWriteFailed:    "write failed",
	StatusRemoveFailed:   "remove failed",
	StatusCreateFailed:   "create failed",
	StatusBlockNotFound:  "block not found",
	StatusParsingNames:   "could not parse locator",
	StatusReadForbidden:  "read forbidden",
	StatusMiscServer:     "upstream server error",
	StatusBaseForbidden:  "base disabled by configuration",
	StatusNotApplicable:  "not applicable to this container",
}

// Error implements the error interface so a StatusCode can be returned and
// compared directly, the way the rest of the module handles errors.
func (s StatusCode) Error() string {
	if t, ok := statusText[s]; ok {
		return t
	}
	return fmt.Sprintf("status %d", int(s))
}

// OK reports whether s represents success.
func (s StatusCode) OK() bool { return s == StatusOK }

// AsStatus extracts a StatusCode from err if it is (or wraps) one, else
// returns StatusMiscServer for any other non-nil error and StatusOK for nil.
func AsStatus(err error) StatusCode {
	if err == nil {
		return StatusOK
	}
	var sc StatusCode
	if errors.As(err, &sc) {
		return sc
	}
	return StatusMiscServer
}
