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

package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jazzdata/jazz/internal/container"
	"github.com/jazzdata/jazz/internal/jlog"
	"github.com/jazzdata/jazz/internal/jmetrics"
	"github.com/jazzdata/jazz/internal/jtypes"
	"github.com/jazzdata/jazz/internal/locator"
	"github.com/jazzdata/jazz/internal/volatile"
)

type staticResolver struct {
	byBase map[string]container.Container
}

func (r staticResolver) ContainerForBase(base string) (container.Container, bool) {
	c, ok := r.byBase[base]
	return c, ok
}

func newTestVolatile(t *testing.T) *volatile.Volatile {
	t.Helper()
	v, err := volatile.New("ram", 16, 8, 0, 0)
	require.NoError(t, err)
	return v
}

func TestResolveParsesAttributeSuffix(t *testing.T) {
	v := newTestVolatile(t)
	s := New(staticResolver{byBase: map[string]container.Container{"ram": v}}, jlog.NewNop(), jmetrics.New(), Config{})

	req, err := s.resolve("ram/myentity/mykey.filter(x>1)")
	require.NoError(t, err)
	require.Equal(t, locator.OpcodeFilter, req.Opcode)
	require.Equal(t, "x>1", req.Args)
	require.Equal(t, "mykey", req.Locator.Key)
}

func TestResolveUnknownBaseIsForbidden(t *testing.T) {
	s := New(staticResolver{byBase: map[string]container.Container{}}, jlog.NewNop(), jmetrics.New(), Config{})
	_, err := s.resolve("nope/entity/key")
	require.Error(t, err)
	require.Equal(t, jtypes.StatusBaseForbidden, jtypes.AsStatus(err))
}

func TestIPWhitelistRejectsUnknownRemote(t *testing.T) {
	v := newTestVolatile(t)
	s := New(staticResolver{byBase: map[string]container.Container{"ram": v}}, jlog.NewNop(), jmetrics.New(), Config{
		AllowedIPs: []string{"10.0.0.1"},
	})

	req := httptest.NewRequest(http.MethodGet, "/ram/entity/key", nil)
	req.RemoteAddr = "1.2.3.4:5555"
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServerInfoEndpoint(t *testing.T) {
	s := New(staticResolver{byBase: map[string]container.Container{}}, jlog.NewNop(), jmetrics.New(), Config{})
	req := httptest.NewRequest(http.MethodGet, "/sys/info", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
