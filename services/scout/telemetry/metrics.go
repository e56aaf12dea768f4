// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/AleutianAI/AleutianScout/services/scout/events"
)

// Metrics contains pre-defined metrics for the scout service.
//
// Description:
//
//	Provides counters and histograms for HTTP requests, operation
//	dispatch, session lifecycle, and the evidence loop. All metrics
//	use the "scout_" prefix.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// --- HTTP Metrics ---

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal metric.Int64Counter

	// HTTPRequestDuration records HTTP request duration in seconds.
	HTTPRequestDuration metric.Float64Histogram

	// HTTPActiveRequests tracks currently active HTTP requests.
	HTTPActiveRequests metric.Int64UpDownCounter

	// --- Operation Metrics ---

	// OperationsTotal counts dispatched operations by name and status.
	OperationsTotal metric.Int64Counter

	// OperationDuration records operation duration in seconds.
	OperationDuration metric.Float64Histogram

	// --- Session Metrics ---

	// SessionsTotal counts sessions created.
	SessionsTotal metric.Int64Counter

	// SessionsActive tracks currently live sessions.
	SessionsActive metric.Int64UpDownCounter

	// --- Loop Metrics ---

	// EvidenceEntriesTotal counts evidence entries recorded.
	EvidenceEntriesTotal metric.Int64Counter

	// CacheLookupsTotal counts answer cache lookups by result (hit).
	CacheLookupsTotal metric.Int64Counter

	// PhaseTransitionsTotal counts phase transitions by target phase.
	PhaseTransitionsTotal metric.Int64Counter

	// LoopIterationsTotal counts reasoning loop iterations.
	LoopIterationsTotal metric.Int64Counter

	// DecisionsTotal counts final decisions produced.
	DecisionsTotal metric.Int64Counter

	// ErrorsTotal counts errors surfaced through the event stream.
	ErrorsTotal metric.Int64Counter
}

// NewMetrics creates a Metrics instance with all instruments registered
// on the given meter.
//
// Outputs:
//
//	*Metrics - Metrics with all instruments initialized.
//	error    - Non-nil if instrument registration fails.
//
// Thread Safety: Safe for concurrent use after creation.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	// --- HTTP Metrics ---
	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"scout_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_requests_total: %w", err)
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"scout_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_request_duration: %w", err)
	}

	m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"scout_http_active_requests",
		metric.WithDescription("Currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_active_requests: %w", err)
	}

	// --- Operation Metrics ---
	m.OperationsTotal, err = meter.Int64Counter(
		"scout_operations_total",
		metric.WithDescription("Total operations dispatched"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create operations_total: %w", err)
	}

	m.OperationDuration, err = meter.Float64Histogram(
		"scout_operation_duration_seconds",
		metric.WithDescription("Operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	)
	if err != nil {
		return nil, fmt.Errorf("create operation_duration: %w", err)
	}

	// --- Session Metrics ---
	m.SessionsTotal, err = meter.Int64Counter(
		"scout_sessions_total",
		metric.WithDescription("Total sessions created"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create sessions_total: %w", err)
	}

	m.SessionsActive, err = meter.Int64UpDownCounter(
		"scout_sessions_active",
		metric.WithDescription("Currently live sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create sessions_active: %w", err)
	}

	// --- Loop Metrics ---
	m.EvidenceEntriesTotal, err = meter.Int64Counter(
		"scout_evidence_entries_total",
		metric.WithDescription("Total evidence entries recorded"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create evidence_entries_total: %w", err)
	}

	m.CacheLookupsTotal, err = meter.Int64Counter(
		"scout_cache_lookups_total",
		metric.WithDescription("Answer cache lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cache_lookups_total: %w", err)
	}

	m.PhaseTransitionsTotal, err = meter.Int64Counter(
		"scout_phase_transitions_total",
		metric.WithDescription("Phase transitions by target phase"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create phase_transitions_total: %w", err)
	}

	m.LoopIterationsTotal, err = meter.Int64Counter(
		"scout_loop_iterations_total",
		metric.WithDescription("Total reasoning loop iterations"),
		metric.WithUnit("{iteration}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create loop_iterations_total: %w", err)
	}

	m.DecisionsTotal, err = meter.Int64Counter(
		"scout_decisions_total",
		metric.WithDescription("Total final decisions produced"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create decisions_total: %w", err)
	}

	m.ErrorsTotal, err = meter.Int64Counter(
		"scout_errors_total",
		metric.WithDescription("Errors surfaced through the event stream"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create errors_total: %w", err)
	}

	return m, nil
}

// RecordOperation records one operation dispatch.
//
// Thread Safety: Safe for concurrent use.
func (m *Metrics) RecordOperation(ctx context.Context, name string, success bool, seconds float64) {
	status := "ok"
	if !success {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", name),
		attribute.String("status", status),
	)
	m.OperationsTotal.Add(ctx, 1, attrs)
	m.OperationDuration.Record(ctx, seconds, attrs)
}

// ObserveEmitter subscribes loop counters to an event emitter so the
// core packages stay metrics-free.
//
// Description:
//
//	Evidence, cache, phase, iteration, decision, and error events are
//	counted as they flow through the emitter. The returned id can be
//	passed to Unsubscribe when the session ends.
//
// Outputs:
//
//	string - Subscription id, or "" when the emitter is nil.
//
// Thread Safety: Safe for concurrent use.
func (m *Metrics) ObserveEmitter(em *events.Emitter) string {
	if em == nil {
		return ""
	}
	return em.Subscribe(func(event *events.Event) {
		if event == nil {
			return
		}
		ctx := context.Background()
		switch event.Type {
		case events.TypeEvidenceAdded:
			m.EvidenceEntriesTotal.Add(ctx, 1)
		case events.TypeCacheHit:
			m.CacheLookupsTotal.Add(ctx, 1,
				metric.WithAttributes(attribute.String("result", "hit")))
		case events.TypePhaseTransition:
			if data, ok := event.Data.(events.PhaseTransitionData); ok {
				m.PhaseTransitionsTotal.Add(ctx, 1,
					metric.WithAttributes(attribute.String("to_phase", string(data.ToPhase))))
			}
		case events.TypeIterationComplete:
			m.LoopIterationsTotal.Add(ctx, 1)
		case events.TypeDecision:
			m.DecisionsTotal.Add(ctx, 1)
		case events.TypeError:
			m.ErrorsTotal.Add(ctx, 1)
		}
	},
		events.TypeEvidenceAdded,
		events.TypeCacheHit,
		events.TypePhaseTransition,
		events.TypeIterationComplete,
		events.TypeDecision,
		events.TypeError,
	)
}
