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

// Package chttp implements the "http" Channel (spec.md §4.6): named
// connections backed by an Index, get/put/remove against a connection or a
// bare URL, and cluster request forwarding.
package chttp

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/klauspost/compress/gzip"

	"github.com/jazzdata/jazz/internal/block"
	"github.com/jazzdata/jazz/internal/container"
	"github.com/jazzdata/jazz/internal/jtypes"
	"github.com/jazzdata/jazz/internal/locator"
)

// channelPoolCapacity sizes the fixed Transaction pool every Channel shares
// across calls (spec.md §3.4: "a per-container fixed pool", not a fresh one
// per request).
const channelPoolCapacity = 32

// connection holds one named endpoint's credentials. A connection is
// registered by PutConnection, or by a put of a string-to-string Index to
// key "connection/<name>"; the Index must hold a URL key, and
// CURLOPT_USERNAME / CURLOPT_USERPWD become basic-auth credentials. Other
// keys, CURLOPT_COOKIEFILE and CURLOPT_COOKIEJAR included, are ignored: no
// cookies are sent or stored.
type connection struct {
	url      string
	username string
	password string
}

// Http is the outbound HTTP Channel.
type Http struct {
	container.Base

	base   string
	client *http.Client

	mu    sync.RWMutex
	conns map[string]connection

	nodes map[string]string // cluster node name -> ip:port
}

// New builds an Http channel. timeout bounds every outbound call.
func New(base string, timeout time.Duration) *Http {
	h := &Http{
		base:   base,
		client: &http.Client{Timeout: timeout},
		conns:  make(map[string]connection),
		nodes:  make(map[string]string),
	}
	h.Base = container.NewBase(channelPoolCapacity, 0, 0)
	h.Base.Self = h
	return h
}

// SetNode registers a cluster node's address for forwarding.
func (h *Http) SetNode(name, addr string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nodes[name] = addr
}

func (h *Http) Name() string { return "http" }

// AsLocator parses "http/<conn>/<suffix>" or a bare "http/<url>". Either
// way the Key carries whatever the verb should be applied to; Channels's
// paths are exempt from the Name grammar (spec.md §4.6).
func (h *Http) AsLocator(path string) (locator.Locator, error) {
	path = strings.TrimPrefix(path, "//")
	path = strings.TrimPrefix(path, "/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) < 1 || parts[0] != h.base {
		return locator.Locator{}, fmt.Errorf("%w: %q is not an http path", jtypes.StatusParsingNames, path)
	}
	loc := locator.Locator{Base: h.base, Entity: "http"}
	if len(parts) == 2 {
		loc.Key = parts[1]
	}
	return loc, nil
}

// PutConnection registers (or updates) a named connection.
func (h *Http) PutConnection(name string, idx *block.IndexMap) error {
	u, ok := idx.String2Str["URL"]
	if !ok {
		return fmt.Errorf("%w: connection %q missing mandatory URL key", jtypes.StatusNewBlockArgs, name)
	}
	c := connection{url: u}
	c.username = idx.String2Str["CURLOPT_USERNAME"]
	c.password = idx.String2Str["CURLOPT_USERPWD"]
	h.mu.Lock()
	h.conns[name] = c
	h.mu.Unlock()
	return nil
}

// resolveTarget splits loc.Key into an optional connection name and the
// suffix applied to its URL, or treats the whole key as a bare URL.
func (h *Http) resolveTarget(key string) (targetURL string, user, pass string, err error) {
	parts := strings.SplitN(key, "/", 2)
	h.mu.RLock()
	conn, ok := h.conns[parts[0]]
	h.mu.RUnlock()
	if ok {
		suffix := ""
		if len(parts) == 2 {
			suffix = parts[1]
		}
		return conn.url + suffix, conn.username, conn.password, nil
	}
	if _, err := url.ParseRequestURI(key); err != nil {
		return "", "", "", fmt.Errorf("%w: %q is neither a known connection nor a valid URL", jtypes.StatusParsingNames, key)
	}
	return key, "", "", nil
}

func (h *Http) do(method string, loc locator.Locator, body []byte) (*http.Response, error) {
	target, user, pass, err := h.resolveTarget(loc.Key)
	if err != nil {
		return nil, err
	}
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, target, rdr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", jtypes.StatusWrongArguments, err)
	}
	if user != "" {
		req.SetBasicAuth(user, pass)
	}
	return h.client.Do(req)
}

// statusFor maps an HTTP status code to a Jazz StatusCode (spec.md §4.6).
func statusFor(code int) jtypes.StatusCode {
	switch {
	case code >= 200 && code < 300:
		return jtypes.StatusOK
	case code == 404 || code == 410:
		return jtypes.StatusBlockNotFound
	case code == 401 || code == 403 || code == 405 || code == 406 || code == 407 || code == 429:
		return jtypes.StatusReadForbidden
	case code >= 400 && code < 500:
		return jtypes.StatusWrongArguments
	case code >= 500:
		return jtypes.StatusMiscServer
	default:
		return jtypes.StatusMiscServer
	}
}

// GetNative issues GET against the resolved URL and runs the response
// through UnwrapReceived.
func (h *Http) GetNative(loc locator.Locator) (*container.Transaction, error) {
	h.EnterRead()
	defer h.LeaveRead()

	resp, err := h.do(http.MethodGet, loc, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", jtypes.StatusMiscServer, err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", jtypes.StatusMiscServer, err)
	}
	if sc := statusFor(resp.StatusCode); sc != jtypes.StatusOK {
		return nil, fmt.Errorf("%w: upstream returned %d", sc, resp.StatusCode)
	}

	blk, err := container.UnwrapReceived(body)
	if err != nil {
		return nil, err
	}
	return h.NewTransaction(blk, nil)
}

func readBody(resp *http.Response) ([]byte, error) {
	reader := io.Reader(resp.Body)
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	}
	return io.ReadAll(reader)
}

func (h *Http) HeaderNative(loc locator.Locator) (*block.Header, error) {
	txn, err := h.GetNative(loc)
	if err != nil {
		return nil, err
	}
	defer txn.Destroy()
	hdr := txn.Block().Header
	return &hdr, nil
}

// PutNative writes blk's payload (per mode) with PUT.
func (h *Http) PutNative(loc locator.Locator, blk *block.Block, mode container.WriteMode) error {
	h.AwaitWrite()
	defer h.LeaveWrite()

	if name, ok := strings.CutPrefix(loc.Key, "connection/"); ok {
		if blk.Header.CellType != jtypes.CellTypeIndexString2String || blk.Index == nil {
			return fmt.Errorf("%w: connection must be a string-to-string index", jtypes.StatusWrongType)
		}
		return h.PutConnection(name, blk.Index)
	}

	var payload []byte
	if mode.Payload() == container.AsFullBlock {
		payload = blk.Bytes()
	} else {
		payload = blk.Tensor
	}
	resp, err := h.do(http.MethodPut, loc, payload)
	if err != nil {
		return fmt.Errorf("%w: %v", jtypes.StatusMiscServer, err)
	}
	defer resp.Body.Close()
	if sc := statusFor(resp.StatusCode); sc != jtypes.StatusOK {
		return fmt.Errorf("%w: upstream returned %d", sc, resp.StatusCode)
	}
	return nil
}

// RemoveNative issues DELETE.
func (h *Http) RemoveNative(loc locator.Locator) error {
	resp, err := h.do(http.MethodDelete, loc, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", jtypes.StatusMiscServer, err)
	}
	defer resp.Body.Close()
	if sc := statusFor(resp.StatusCode); sc != jtypes.StatusOK {
		return fmt.Errorf("%w: upstream returned %d", sc, resp.StatusCode)
	}
	return nil
}

// NewEntityNative has no HTTP analogue; connections are created via
// PutConnection instead.
func (h *Http) NewEntityNative(loc locator.Locator) error {
	return fmt.Errorf("%w: http has no new_entity", jtypes.StatusNotApplicable)
}

func (h *Http) Copy(dst, src locator.Locator, dstContainer container.Container, mode container.WriteMode) error {
	txn, err := h.GetNative(src)
	if err != nil {
		return err
	}
	defer txn.Destroy()
	return dstContainer.PutNative(dst, txn.Block(), mode)
}

func (h *Http) Exec(fn locator.Locator, args *block.Block) (*container.Transaction, error) {
	return nil, fmt.Errorf("%w: exec", jtypes.StatusNotImplemented)
}

func (h *Http) Modify(fn locator.Locator, args *block.Block) error {
	return fmt.Errorf("%w: modify", jtypes.StatusNotImplemented)
}

// safeURLChars is the percent-encoding safe set for cluster-forwarded paths
// (spec.md §4.6: "percent-encodes the path with a documented safe-character
// set").
const safeURLChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-._~/"

func percentEncodePath(p string) string {
	var sb strings.Builder
	for i := 0; i < len(p); i++ {
		c := p[i]
		if strings.IndexByte(safeURLChars, c) >= 0 {
			sb.WriteByte(c)
		} else {
			fmt.Fprintf(&sb, "%%%02X", c)
		}
	}
	return sb.String()
}

// forward composes a URL from the cluster node table and issues method
// against it, retrying transient 5xx responses with exponential backoff.
func (h *Http) forward(node, method, path string, body []byte) (*http.Response, error) {
	h.mu.RLock()
	addr, ok := h.nodes[node]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown cluster node %q", jtypes.StatusParsingNames, node)
	}
	target := fmt.Sprintf("http://%s/%s", addr, percentEncodePath(path))

	var resp *http.Response
	op := func() error {
		var rdr io.Reader
		if body != nil {
			rdr = bytes.NewReader(body)
		}
		req, err := http.NewRequest(method, target, rdr)
		if err != nil {
			return backoff.Permanent(err)
		}
		r, err := h.client.Do(req)
		if err != nil {
			return err
		}
		if r.StatusCode >= 500 {
			r.Body.Close()
			return fmt.Errorf("upstream node %q returned %d", node, r.StatusCode)
		}
		resp = r
		return nil
	}
	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, fmt.Errorf("%w: %v", jtypes.StatusMiscServer, err)
	}
	return resp, nil
}

// ForwardGet implements the cluster forward_get operation (spec.md §4.6).
func (h *Http) ForwardGet(node, path string) (*container.Transaction, error) {
	resp, err := h.forward(node, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", jtypes.StatusMiscServer, err)
	}
	blk, err := container.UnwrapReceived(body)
	if err != nil {
		return nil, err
	}
	return h.NewTransaction(blk, nil)
}

// ForwardPut implements forward_put.
func (h *Http) ForwardPut(node, path string, blk *block.Block) error {
	resp, err := h.forward(node, http.MethodPut, path, blk.Bytes())
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// ForwardDel implements forward_del.
func (h *Http) ForwardDel(node, path string) error {
	resp, err := h.forward(node, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}
