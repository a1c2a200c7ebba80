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

import "regexp"

// nameRe is the Name identifier grammar from spec.md §3.3: a letter followed
// by up to 30 letters, digits, or one of _-~$.
var nameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_\-~$]{0,30}$`)

// ValidName reports whether s is a legal base/entity/key Name.
func ValidName(s string) bool {
	if len(s) == 0 || len(s) > ShortNameLen {
		return false
	}
	return nameRe.MatchString(s)
}
