/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP API metrics.
var (
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "huginn_api_request_duration_seconds",
		Help:    "HTTP request latency by method, endpoint and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huginn_api_requests_total",
		Help: "Total HTTP requests by method, endpoint and status.",
	}, []string{"method", "endpoint", "status"})

	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "huginn_api_active_connections",
		Help: "In-flight HTTP requests.",
	})
)

// Session and selection metrics.
var (
	SessionsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "huginn_sessions_started_total",
		Help: "Sessions started since process start.",
	})

	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "huginn_sessions_active",
		Help: "Currently active sessions.",
	})

	SelectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huginn_selections_total",
		Help: "Tracks selected, by session phase.",
	}, []string{"phase"})

	SelectionExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "huginn_selection_exhausted_total",
		Help: "Selection attempts that found no eligible candidate.",
	})

	SkipsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "huginn_skips_total",
		Help: "Tracks reported skipped by the host.",
	})

	SelectionScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "huginn_selection_score",
		Help:    "Adjusted score of the chosen track.",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})

	SessionEnergyTarget = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "huginn_session_energy_target",
		Help: "Energy target of the most recent selection.",
	})

	SessionPoolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "huginn_session_pool_size",
		Help: "Tracks in the active session pool.",
	})
)

// Catalog and cache metrics.
var (
	CatalogRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huginn_catalog_requests_total",
		Help: "Catalog operations by operation and outcome.",
	}, []string{"operation", "outcome"})

	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huginn_cache_hits_total",
		Help: "Cache hits by kind.",
	}, []string{"kind"})

	CacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huginn_cache_misses_total",
		Help: "Cache misses by kind.",
	}, []string{"kind"})
)

// Event and archive metrics.
var (
	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huginn_events_published_total",
		Help: "Events published on the internal bus, by type.",
	}, []string{"type"})

	WSClientsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "huginn_ws_clients_active",
		Help: "Connected websocket event subscribers.",
	})

	ArchiveWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huginn_archive_writes_total",
		Help: "Session archive writes by backend and outcome.",
	}, []string{"backend", "outcome"})
)

// Database metrics.
var (
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "huginn_database_query_duration_seconds",
		Help:    "Database operation latency by operation and table.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huginn_database_errors_total",
		Help: "Database errors by operation and type.",
	}, []string{"operation", "type"})

	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "huginn_database_connections_active",
		Help: "Open database connections.",
	})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
