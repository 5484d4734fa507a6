// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey-rp.
//
// go-passkey-rp is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package metrics provides Prometheus instrumentation for ceremony
// orchestration. It exposes ceremony counters, finish-latency histograms,
// and bookkeeping failure counters for monitoring relying-party health.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all relying-party metrics
	Namespace = "passkey_rp"

	// Label names
	LabelKind    = "kind"
	LabelStatus  = "status"
	LabelOutcome = "outcome"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// Metadata resolution outcomes
	OutcomeMatched  = "matched"
	OutcomeFallback = "fallback"
	OutcomeNone     = "none"
	OutcomeError    = "error"
)

var (
	// CeremoniesStartedTotal counts started ceremonies by kind.
	CeremoniesStartedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ceremonies_started_total",
			Help:      "Total number of started ceremonies by kind",
		},
		[]string{LabelKind},
	)

	// CeremoniesFinishedTotal counts finished ceremonies by kind and status.
	CeremoniesFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ceremonies_finished_total",
			Help:      "Total number of finished ceremonies by kind and status",
		},
		[]string{LabelKind, LabelStatus},
	)

	// CeremonyFinishDuration tracks finish-phase latency in seconds,
	// including verifier and repository time.
	CeremonyFinishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "ceremony_finish_duration_seconds",
			Help:      "Duration of ceremony finish processing in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{LabelKind},
	)

	// CounterUpdateFailuresTotal counts signature-counter bookkeeping
	// failures reported alongside otherwise successful authentications.
	CounterUpdateFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "counter_update_failures_total",
			Help:      "Total number of signature counter update failures",
		},
	)

	// MetadataResolutionsTotal counts attestation metadata resolutions by
	// outcome (matched, fallback, none, error).
	MetadataResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "metadata_resolutions_total",
			Help:      "Total number of attestation metadata resolutions by outcome",
		},
		[]string{LabelOutcome},
	)
)

// RecordCeremonyStart increments the started-ceremonies counter.
func RecordCeremonyStart(kind string) {
	CeremoniesStartedTotal.WithLabelValues(kind).Inc()
}

// RecordCeremonyFinish increments the finished-ceremonies counter and
// observes the finish latency.
func RecordCeremonyFinish(kind string, err error, started time.Time) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	CeremoniesFinishedTotal.WithLabelValues(kind, status).Inc()
	CeremonyFinishDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
}

// RecordCounterUpdateFailure increments the bookkeeping-failure counter.
func RecordCounterUpdateFailure() {
	CounterUpdateFailuresTotal.Inc()
}

// RecordMetadataResolution increments the metadata resolution counter.
func RecordMetadataResolution(outcome string) {
	MetadataResolutionsTotal.WithLabelValues(outcome).Inc()
}
