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

// Package httpapi is the HTTP front end (spec.md §6): it translates
// "//base/entity[/key[.attribute(args)]]" into a Locator plus an
// ApplyOpcode and dispatches against the registered Containers. The core
// packages know nothing about HTTP (spec.md §1); all of that lives here.
package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/jazzdata/jazz/internal/container"
	"github.com/jazzdata/jazz/internal/jmetrics"
	"github.com/jazzdata/jazz/internal/jtypes"
	"github.com/jazzdata/jazz/internal/locator"
)

// attrCall matches the trailing ".attribute(args)" suffix on a key, e.g.
// "myblock.filter(x>1)" or "myentity.raw()".
var attrCall = regexp.MustCompile(`^(.*)\.([A-Za-z_][A-Za-z0-9_]*)\((.*)\)$`)

// opcodeByName maps the attribute names §6 lists onto locator.ApplyOpcode.
var opcodeByName = map[string]locator.ApplyOpcode{
	"select":        locator.OpcodeSelectItem,
	"url":           locator.OpcodeURL,
	"apply":         locator.OpcodeApplyFunction,
	"filter":        locator.OpcodeFilter,
	"raw":           locator.OpcodeRaw,
	"text":          locator.OpcodeText,
	"assign":        locator.OpcodeAssign,
	"new_entity":    locator.OpcodeNewEntity,
	"get_attribute": locator.OpcodeGetAttribute,
	"set_attribute": locator.OpcodeSetAttribute,
	"info":          locator.OpcodeServerInfo,
}

// Request is a fully resolved easy-interface call: the base's Container,
// the Locator within it, the apply-opcode and its argument string.
type Request struct {
	Container container.Container
	Locator   locator.Locator
	Opcode    locator.ApplyOpcode
	Args      string
}

// Resolver looks a base name up to the Container that owns it. Persisted,
// Volatile and each Channel register themselves under their base name.
type Resolver interface {
	ContainerForBase(base string) (container.Container, bool)
}

// Server is the chi-routed HTTP front end.
type Server struct {
	resolver Resolver
	log      *zap.Logger
	metrics  *jmetrics.Metrics
	router   chi.Router

	allowedIPs map[string]bool // empty means "allow all"
}

// Config configures the HTTP front end's own concerns (spec.md §6: "HTTP
// server parameters passed through to libmicrohttpd" — here, to net/http).
type Config struct {
	AllowedIPs     []string
	CORSOrigins    []string
	TrustedProxies bool
}

// New builds a Server routing every request through ipWhitelist then
// dispatch. chi/v5 plus go-chi/cors mirror the teacher's own router stack.
func New(resolver Resolver, log *zap.Logger, metrics *jmetrics.Metrics, cfg Config) *Server {
	s := &Server{resolver: resolver, log: log, metrics: metrics, allowedIPs: toSet(cfg.AllowedIPs)}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: orDefault(cfg.CORSOrigins, []string{"*"}),
		AllowedMethods: []string{"GET", "PUT", "DELETE", "POST"},
	}))
	r.Use(s.ipWhitelist)

	r.Get("/sys/info", s.handleServerInfo)
	r.Get("/*", s.handle(http.MethodGet))
	r.Put("/*", s.handle(http.MethodPut))
	r.Delete("/*", s.handle(http.MethodDelete))

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// ipWhitelist rejects any remote address not in allowedIPs, when that set
// is non-empty (spec.md §6 notes an IP-whitelist hook for the easy
// interface; empty configuration means "allow all").
func (s *Server) ipWhitelist(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.allowedIPs) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !s.allowedIPs[host] {
			writeStatus(w, jtypes.StatusReadForbidden, fmt.Sprintf("%s not whitelisted", host))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleServerInfo answers the "sys/info" pseudo-entity the original
// server exposes for "apply-opcode OpcodeServerInfo" style probes without
// routing through any real Container.
func (s *Server) handleServerInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "jazz",
		"status":  "ok",
	})
}

// handle dispatches a parsed Request to the right Container method based
// on both the HTTP method and the resolved ApplyOpcode.
func (s *Server) handle(method string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := s.resolve(r.URL.Path)
		if err != nil {
			writeStatus(w, jtypes.AsStatus(err), err.Error())
			return
		}

		switch method {
		case http.MethodGet:
			s.dispatchGet(w, r, req)
		case http.MethodPut:
			s.dispatchPut(w, r, req)
		case http.MethodDelete:
			s.dispatchDelete(w, req)
		}
	}
}

func (s *Server) dispatchGet(w http.ResponseWriter, r *http.Request, req Request) {
	switch req.Opcode {
	case locator.OpcodeNewEntity:
		if err := req.Container.NewEntityNative(req.Locator); err != nil {
			writeStatus(w, jtypes.AsStatus(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	default:
		txn, err := req.Container.GetNative(req.Locator)
		if err != nil {
			writeStatus(w, jtypes.AsStatus(err), err.Error())
			return
		}
		defer txn.Destroy()
		blk := txn.Block()
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(blk.Bytes())
	}
}

func (s *Server) dispatchPut(w http.ResponseWriter, r *http.Request, req Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeStatus(w, jtypes.StatusWrongArguments, err.Error())
		return
	}
	blk, err := container.UnwrapReceived(body)
	if err != nil {
		writeStatus(w, jtypes.AsStatus(err), err.Error())
		return
	}
	mode := modeFromQuery(r)
	if err := req.Container.PutNative(req.Locator, blk, mode); err != nil {
		writeStatus(w, jtypes.AsStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) dispatchDelete(w http.ResponseWriter, req Request) {
	if err := req.Container.RemoveNative(req.Locator); err != nil {
		writeStatus(w, jtypes.AsStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// resolve parses path into a Request: container lookup by base, Locator by
// Container.AsLocator (each Container may parse its own key grammar), and
// the trailing ".attribute(args)" suffix into an ApplyOpcode.
func (s *Server) resolve(path string) (Request, error) {
	trimmed := strings.TrimPrefix(path, "/")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) == 0 || parts[0] == "" {
		return Request{}, fmt.Errorf("%w: empty path", jtypes.StatusParsingNames)
	}
	base := parts[0]
	c, ok := s.resolver.ContainerForBase(base)
	if !ok {
		return Request{}, fmt.Errorf("%w: unknown base %q", jtypes.StatusBaseForbidden, base)
	}

	opcode := locator.OpcodeNone
	args := ""
	rest := trimmed
	if m := attrCall.FindStringSubmatch(trimmed); m != nil {
		rest = m[1]
		if op, ok := opcodeByName[m[2]]; ok {
			opcode = op
		}
		args = m[3]
	}

	loc, err := c.AsLocator(rest)
	if err != nil {
		return Request{}, err
	}
	loc.Attribute = args
	return Request{Container: c, Locator: loc, Opcode: opcode, Args: args}, nil
}

func modeFromQuery(r *http.Request) container.WriteMode {
	var mode container.WriteMode
	q := r.URL.Query()
	if q.Get("only_if_exists") == "1" {
		mode |= container.OnlyIfExists
	}
	if q.Get("only_if_not_exists") == "1" {
		mode |= container.OnlyIfNotExists
	}
	switch q.Get("as") {
	case "string":
		mode |= container.AsString
	case "content":
		mode |= container.AsContent
	case "full_block":
		mode |= container.AsFullBlock
	}
	return mode
}

func writeStatus(w http.ResponseWriter, code jtypes.StatusCode, msg string) {
	writeJSON(w, httpStatusFor(code), map[string]any{"status": int(code), "error": msg})
}

func httpStatusFor(code jtypes.StatusCode) int {
	switch code {
	case jtypes.StatusOK:
		return http.StatusOK
	case jtypes.StatusBlockNotFound:
		return http.StatusNotFound
	case jtypes.StatusReadForbidden, jtypes.StatusWriteForbidden, jtypes.StatusBaseForbidden:
		return http.StatusForbidden
	case jtypes.StatusWrongArguments, jtypes.StatusWrongType, jtypes.StatusWrongName,
		jtypes.StatusParsingNames, jtypes.StatusNewBlockArgs, jtypes.StatusBadBlock:
		return http.StatusBadRequest
	case jtypes.StatusNotImplemented, jtypes.StatusNotApplicable:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func toSet(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}

func orDefault(ss, def []string) []string {
	if len(ss) == 0 {
		return def
	}
	return ss
}
