// Copyright 2026 The Recordcore Authors
// This file is part of recordcore.
//
// Recordcore is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Recordcore is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with recordcore. If not, see <http://www.gnu.org/licenses/>.

// Package metrics exposes the module's Prometheus instrumentation: online
// indexer progress, cursor page latency, and planner cost estimates.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// IndexerRecordsScanned counts records observed by the online indexer.
	IndexerRecordsScanned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recordcore",
		Subsystem: "online_indexer",
		Name:      "records_scanned_total",
		Help:      "Records scanned by the online indexer, by index name.",
	}, []string{"index"})

	// IndexerViolationsRecorded counts uniqueness violations appended during
	// a build.
	IndexerViolationsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recordcore",
		Subsystem: "online_indexer",
		Name:      "violations_recorded_total",
		Help:      "Uniqueness violations recorded during online index builds.",
	}, []string{"index"})

	// CursorPageLatency observes the wall time of a single Cursor.Next call.
	CursorPageLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "recordcore",
		Subsystem: "cursor",
		Name:      "page_latency_seconds",
		Help:      "Latency of a single cursor page.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"scan_type"})

	// PlannerWinnerCost observes the estimated cost of the chosen plan per
	// optimization.
	PlannerWinnerCost = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "recordcore",
		Subsystem: "planner",
		Name:      "winner_cost",
		Help:      "Estimated cost of the winning physical plan.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
	})

	// GraphAlgorithmIterations observes how many supersteps PageRank or label
	// propagation actually ran before hitting maxIterations or converging.
	GraphAlgorithmIterations = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "recordcore",
		Subsystem: "graph_algorithm",
		Name:      "iterations",
		Help:      "Supersteps run by a graph algorithm invocation.",
		Buckets:   prometheus.LinearBuckets(1, 5, 10),
	}, []string{"algorithm"})
)

func init() {
	prometheus.MustRegister(IndexerRecordsScanned, IndexerViolationsRecorded, CursorPageLatency, PlannerWinnerCost,
		GraphAlgorithmIterations)
}
