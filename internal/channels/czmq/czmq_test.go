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

package czmq

import (
	"bytes"
	"testing"

	"github.com/pebbe/zmq4"
	"github.com/stretchr/testify/require"

	"github.com/jazzdata/jazz/internal/block"
	"github.com/jazzdata/jazz/internal/jtypes"
	"github.com/jazzdata/jazz/internal/locator"
	"github.com/jazzdata/jazz/internal/tuple"
)

func stringBlock(t *testing.T, s string) *block.Block {
	t.Helper()
	b, err := block.NewBuilder(jtypes.CellTypeString, [6]int64{1}, 0)
	require.NoError(t, err)
	require.NoError(t, b.SetString(0, s))
	blk, err := b.Close(block.HasNAFalse)
	require.NoError(t, err)
	return blk
}

func byteBlock(t *testing.T, s string, size int) *block.Block {
	t.Helper()
	if size == 0 {
		size = len(s)
	}
	bb, err := block.NewBuilder(jtypes.CellTypeByte, [6]int64{int64(size)}, 0)
	require.NoError(t, err)
	for i := 0; i < len(s) && i < size; i++ {
		require.NoError(t, bb.SetByte(i, s[i]))
	}
	blk, err := bb.Close(block.HasNAFalse)
	require.NoError(t, err)
	return blk
}

// newEchoResponder binds a REP socket to an ephemeral local port and echoes
// every request back uppercased, so Translate has something deterministic
// to observe on the reply leg (spec.md §8 S6: the 0-mq translate scenario).
func newEchoResponder(t *testing.T) (endpoint string, stop func()) {
	t.Helper()
	sock, err := zmq4.NewSocket(zmq4.REP)
	require.NoError(t, err)
	require.NoError(t, sock.Bind("tcp://127.0.0.1:*"))
	endpoint, err = sock.GetLastEndpoint()
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
	return endpoint, func() {
		sock.Close()
		<-done
	}
}

func TestPutNativeConnectsPipeline(t *testing.T) {
	endpoint, stop := newEchoResponder(t)
	defer stop()

	z := New("0-mq")
	loc := locator.Locator{Entity: "0-mq", Key: "pipeline/echo"}
	require.NoError(t, z.PutNative(loc, stringBlock(t, endpoint), 0))
	_, ok := z.pipelines["echo"]
	require.True(t, ok)
}

func TestTranslateRoundTripsThroughReplySocket(t *testing.T) {
	endpoint, stop := newEchoResponder(t)
	defer stop()

	z := New("0-mq")
	require.NoError(t, z.PutNative(locator.Locator{Entity: "0-mq", Key: "pipeline/echo"}, stringBlock(t, endpoint), 0))

	tb, err := tuple.New(0)
	require.NoError(t, err)
	require.NoError(t, tb.AddItem("input", 0, byteBlock(t, "hello", 0)))
	require.NoError(t, tb.AddItem("result", 0, byteBlock(t, "", 16)))
	tup, err := tb.Close(nil, "")
	require.NoError(t, err)

	require.NoError(t, z.Translate("echo", tup))

	result, err := tuple.ItemByName(tup, "result")
	require.NoError(t, err)
	want := append([]byte("HELLO"), make([]byte, 11)...)
	require.Equal(t, want, result.Tensor)
}

func TestRemoveNativeClosesPipeline(t *testing.T) {
	endpoint, stop := newEchoResponder(t)
	defer stop()

	z := New("0-mq")
	require.NoError(t, z.PutNative(locator.Locator{Entity: "0-mq", Key: "pipeline/echo"}, stringBlock(t, endpoint), 0))
	require.NoError(t, z.RemoveNative(locator.Locator{Entity: "0-mq", Key: "pipeline/echo"}))
	_, ok := z.pipelines["echo"]
	require.False(t, ok)
}

func TestTranslateUnknownPipeline(t *testing.T) {
	z := New("0-mq")
	tb, err := tuple.New(0)
	require.NoError(t, err)
	require.NoError(t, tb.AddItem("input", 0, byteBlock(t, "x", 0)))
	require.NoError(t, tb.AddItem("result", 0, byteBlock(t, "", 4)))
	tup, err := tb.Close(nil, "")
	require.NoError(t, err)

	err = z.Translate("missing", tup)
	require.Error(t, err)
}
