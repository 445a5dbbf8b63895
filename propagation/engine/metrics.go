// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

package engine

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	groupOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "warden",
			Subsystem: "propagation",
			Name:      "group_outcomes",
			Help:      "Total number of per-group outcomes produced by propagation runs",
		},
		[]string{"status"},
	)
	rateLimitBackoffs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "warden",
			Subsystem: "propagation",
			Name:      "rate_limit_backoffs",
			Help:      "Total number of extended pauses taken after the platform reported rate limiting",
		},
	)
	suffixHeuristicMatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "warden",
			Subsystem: "propagation",
			Name:      "suffix_heuristic_matches",
			Help:      "Total number of membership matches made solely via the last-9-digit heuristic",
		},
	)
)

var registerMetrics sync.Once

func init() {
	registerMetrics.Do(func() {
		prometheus.MustRegister(groupOutcomes, rateLimitBackoffs, suffixHeuristicMatches)
	})
}
