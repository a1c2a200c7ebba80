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

// Package services bundles the process-wide collaborators (config, logger,
// metrics) that every other package takes as constructor arguments instead
// of reaching for global state (Design Notes: "Global singletons").
package services

import (
	"go.uber.org/zap"

	"github.com/jazzdata/jazz/internal/jconfig"
	"github.com/jazzdata/jazz/internal/jmetrics"
)

// Services is constructed once in cmd/jazzd's main and threaded through
// every constructor that needs configuration, logging or metrics.
type Services struct {
	Config  *jconfig.Config
	Log     *zap.Logger
	Metrics *jmetrics.Metrics
}

// New bundles already-constructed collaborators. It does not build them
// itself so callers keep control over startup ordering (config, then
// logger, then metrics, per spec.md §6's explicit startup sequence).
func New(cfg *jconfig.Config, log *zap.Logger, metrics *jmetrics.Metrics) *Services {
	return &Services{Config: cfg, Log: log, Metrics: metrics}
}

// Close flushes the logger. Safe to call more than once.
func (s *Services) Close() {
	if s.Log != nil {
		_ = s.Log.Sync()
	}
}
