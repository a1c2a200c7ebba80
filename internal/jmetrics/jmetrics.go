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

// Package jmetrics is the Prometheus registry and Container-operation
// instrumentation layer, sitting one level above individual Container
// implementations so none of them need to import prometheus directly.
package jmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jazzdata/jazz/internal/jtypes"
)

// Metrics bundles the counters/histograms Jazz exposes under /metrics.
type Metrics struct {
	Registry *prometheus.Registry

	opsTotal   *prometheus.CounterVec
	opsErrors  *prometheus.CounterVec
	opDuration *prometheus.HistogramVec

	transactionsInUse prometheus.Gauge
	allocBytesUsed    prometheus.Gauge
}

// New builds a fresh Metrics bundle registered into its own registry (never
// the global default, so multiple Jazz instances in one test binary don't
// collide).
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		opsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jazz",
			Name:      "container_ops_total",
			Help:      "Total Container operations, by container and operation name.",
		}, []string{"container", "op"}),
		opsErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jazz",
			Name:      "container_op_errors_total",
			Help:      "Total Container operation failures, by container, operation and status.",
		}, []string{"container", "op", "status"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "jazz",
			Name:      "container_op_duration_seconds",
			Help:      "Container operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"container", "op"}),
		transactionsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jazz",
			Name:      "transactions_in_use",
			Help:      "Transactions currently borrowed from a container's pool.",
		}),
		allocBytesUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jazz",
			Name:      "alloc_bytes_used",
			Help:      "Bytes currently reserved by the allocation accountant.",
		}),
	}
	reg.MustRegister(m.opsTotal, m.opsErrors, m.opDuration, m.transactionsInUse, m.allocBytesUsed)
	return m
}

// Observe records one completed Container operation.
func (m *Metrics) Observe(containerName, op string, start time.Time, err error) {
	m.opsTotal.WithLabelValues(containerName, op).Inc()
	m.opDuration.WithLabelValues(containerName, op).Observe(time.Since(start).Seconds())
	if err != nil {
		m.opsErrors.WithLabelValues(containerName, op, statusLabel(err)).Inc()
	}
}

// SetTransactionsInUse reports the current pool occupancy of a container.
func (m *Metrics) SetTransactionsInUse(n int) {
	m.transactionsInUse.Set(float64(n))
}

// SetAllocBytesUsed reports the allocation accountant's current total.
func (m *Metrics) SetAllocBytesUsed(n int64) {
	m.allocBytesUsed.Set(float64(n))
}

// statusLabel turns err into a bounded, low-cardinality Prometheus label —
// the jtypes.StatusCode it carries, not its free-text message.
func statusLabel(err error) string {
	return jtypes.AsStatus(err).Error()
}
