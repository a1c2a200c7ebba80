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

// Package scenario runs the end-to-end scenarios spec.md §8 names (S1 and
// S3-S6; S2, string interning, is covered by internal/block's tests)
// across real Containers rather than unit-testing one package in
// isolation. Each scenario is independent and table-free on purpose:
// these are narrative walkthroughs, not input grids.
package scenario

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/pebbe/zmq4"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/jazzdata/jazz/internal/block"
	"github.com/jazzdata/jazz/internal/channels/cfile"
	"github.com/jazzdata/jazz/internal/channels/chttp"
	"github.com/jazzdata/jazz/internal/channels/czmq"
	"github.com/jazzdata/jazz/internal/container"
	"github.com/jazzdata/jazz/internal/jlog"
	"github.com/jazzdata/jazz/internal/jtypes"
	"github.com/jazzdata/jazz/internal/locator"
	"github.com/jazzdata/jazz/internal/persisted"
	"github.com/jazzdata/jazz/internal/tuple"
)

// S1: Persisted put/get/remove round trip.
func TestScenarioS1PersistedPutGetRemove(t *testing.T) {
	dir := t.TempDir()
	p, err := persisted.Open(persisted.Config{
		Path:       dir,
		MapSizeMB:  64,
		MaxReaders: 8,
		MaxDBs:     8,
		Base:       "lmdb",
		PoolSize:   8,
		FailAlloc:  1 << 30,
		WarnAlloc:  1 << 29,
	}, jlog.NewNop())
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.NewEntityNative(locator.Locator{Base: "lmdb", Entity: "e"}))

	bb, err := block.NewBuilder(jtypes.CellTypeInteger, [6]int64{4}, 0)
	require.NoError(t, err)
	for i, v := range []int32{1, 2, 3, 4} {
		require.NoError(t, bb.SetInt32(i, v))
	}
	in, err := bb.Close(block.HasNAFalse)
	require.NoError(t, err)

	require.NoError(t, p.Put("lmdb/e/k", in, 0))

	txn, err := p.Get("lmdb/e/k")
	require.NoError(t, err)
	require.Equal(t, in.Tensor, txn.Block().Tensor)
	require.NoError(t, txn.Destroy())

	require.NoError(t, p.Remove("lmdb/e/k"))
	_, err = p.Get("lmdb/e/k")
	require.Error(t, err)
	require.Equal(t, jtypes.StatusBlockNotFound, jtypes.AsStatus(err))
}

// S3: rank-2 filter application.
func TestScenarioS3FilterRankTwo(t *testing.T) {
	bb, err := block.NewBuilder(jtypes.CellTypeInteger, [6]int64{4, 2}, 0)
	require.NoError(t, err)
	for i, v := range []int32{1, 2, 3, 4, 5, 6, 7, 8} {
		require.NoError(t, bb.SetInt32(i, v))
	}
	in, err := bb.Close(block.HasNAFalse)
	require.NoError(t, err)

	fb, err := block.NewBuilder(jtypes.CellTypeByteBoolean, [6]int64{4}, 0)
	require.NoError(t, err)
	for i, v := range []bool{true, false, true, false} {
		require.NoError(t, fb.SetBool(i, v))
	}
	filter, err := fb.Close(block.HasNAFalse)
	require.NoError(t, err)

	out, err := in.ApplyFilter(filter)
	require.NoError(t, err)
	require.Equal(t, []int64{2, 2}, []int64{out.Header.Dim[0], out.Header.Dim[1]})
	require.Equal(t, []int32{1, 2, 5, 6}, bytesToInt32(out.Tensor))
	require.False(t, out.Header.HasNA)
	require.NotZero(t, out.Header.Hash64)
}

// S4: Channels/file write-as-content then read-back.
func TestScenarioS4FileWriteThenRead(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := "/srv"
	require.NoError(t, fs.MkdirAll(root, 0o755))
	f := cfile.NewWithFs("file", fs, root, cfile.PermWrite)

	bb, err := block.NewBuilder(jtypes.CellTypeByte, [6]int64{6}, 0)
	require.NoError(t, err)
	for i, c := range []byte("Hello\n") {
		require.NoError(t, bb.SetByte(i, c))
	}
	in, err := bb.Close(block.HasNAFalse)
	require.NoError(t, err)

	loc, err := f.AsLocator("file/tmp/x.txt")
	require.NoError(t, err)
	require.NoError(t, f.PutNative(loc, in, container.AsContent))

	txn, err := f.GetNative(loc)
	require.NoError(t, err)
	require.Equal(t, []byte("Hello\n"), txn.Block().Tensor)
	require.Equal(t, int64(6), txn.Block().Header.Dim[0])

	exists, err := afero.Exists(fs, filepath.Join(root, "tmp", "x.txt"))
	require.NoError(t, err)
	require.True(t, exists)
}

// S5: Channels/http connection then get.
func TestScenarioS5HTTPConnectionThenGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	h := chttp.New("http", time.Second)
	idx := block.NewIndexMap()
	idx.String2Str["URL"] = srv.URL
	require.NoError(t, h.PutConnection("google", idx))

	txn, err := h.GetNative(locator.Locator{Entity: "http", Key: "google"})
	require.NoError(t, err)
	require.Equal(t, []byte("<html>ok</html>"), txn.Block().Tensor)
}

// S6: Channels/0-mq pipeline registration then translate round trip.
func TestScenarioS6ZmqTranslateRoundTrip(t *testing.T) {
	sock, err := zmq4.NewSocket(zmq4.REP)
	require.NoError(t, err)
	require.NoError(t, sock.Bind("tcp://127.0.0.1:*"))
	endpoint, err := sock.GetLastEndpoint()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			msg, err := sock.RecvBytes(0)
			if err != nil {
				return
			}
			if _, err := sock.SendBytes(bytes.ToUpper(msg), 0); err != nil {
				return
			}
		}
	}()
	defer func() {
		sock.Close()
		<-done
	}()

	z := czmq.New("0-mq")
	eb, err := block.NewBuilder(jtypes.CellTypeString, [6]int64{1}, 0)
	require.NoError(t, err)
	require.NoError(t, eb.SetString(0, endpoint))
	endpointBlk, err := eb.Close(block.HasNAFalse)
	require.NoError(t, err)
	require.NoError(t, z.PutNative(locator.Locator{Entity: "0-mq", Key: "pipeline/worker"}, endpointBlk, 0))

	tb, err := tuple.New(0)
	require.NoError(t, err)
	inputBlk, err := block.NewBuilder(jtypes.CellTypeByte, [6]int64{5}, 0)
	require.NoError(t, err)
	for i, c := range []byte("jazzd") {
		require.NoError(t, inputBlk.SetByte(i, c))
	}
	input, err := inputBlk.Close(block.HasNAFalse)
	require.NoError(t, err)
	resultBlk, err := block.NewBuilder(jtypes.CellTypeByte, [6]int64{10}, 0)
	require.NoError(t, err)
	result, err := resultBlk.Close(block.HasNAFalse)
	require.NoError(t, err)
	require.NoError(t, tb.AddItem("input", 0, input))
	require.NoError(t, tb.AddItem("result", 0, result))
	tup, err := tb.Close(nil, "")
	require.NoError(t, err)

	require.NoError(t, z.Translate("worker", tup))

	out, err := tuple.ItemByName(tup, "result")
	require.NoError(t, err)
	require.Equal(t, append([]byte("JAZZD"), make([]byte, 5)...), out.Tensor)
}

func bytesToInt32(b []byte) []int32 {
	out := make([]int32, len(b)/4)
	for i := range out {
		out[i] = int32(b[4*i]) | int32(b[4*i+1])<<8 | int32(b[4*i+2])<<16 | int32(b[4*i+3])<<24
	}
	return out
}
