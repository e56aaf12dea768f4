// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package events provides event types and broadcasting for the
// investigation loop.
//
// Events let external systems observe evidence collection, gate
// decisions, and loop progress without coupling to the loop
// implementation. The evidence store itself never emits; the gate,
// controller, and service layers do.
//
// Thread Safety:
//
//	All types in this package are designed for concurrent use.
package events

import (
	"time"

	"github.com/AleutianAI/AleutianScout/services/scout/evidence"
)

// Type identifies the kind of event.
type Type string

const (
	// TypeSessionStart is emitted when an investigation session begins.
	TypeSessionStart Type = "session_start"

	// TypeSessionEnd is emitted when an investigation session ends.
	TypeSessionEnd Type = "session_end"

	// TypeEvidenceAdded is emitted when an entry lands in the evidence log.
	TypeEvidenceAdded Type = "evidence_added"

	// TypeCacheHit is emitted when a gate precheck finds a cached answer.
	TypeCacheHit Type = "cache_hit"

	// TypePhaseTransition is emitted when the investigation phase advances.
	TypePhaseTransition Type = "phase_transition"

	// TypeGateCheck is emitted for every gate precheck verdict.
	TypeGateCheck Type = "gate_check"

	// TypeThought is emitted when the controller logs a thought.
	TypeThought Type = "thought"

	// TypeReasoningPass is emitted when a multi-pass reasoning cycle finishes.
	TypeReasoningPass Type = "reasoning_pass"

	// TypeDecision is emitted when a final decision is produced.
	TypeDecision Type = "decision"

	// TypeIterationComplete is emitted at the end of each loop iteration.
	TypeIterationComplete Type = "iteration_complete"

	// TypeOperation is emitted when a named operation is dispatched.
	TypeOperation Type = "operation"

	// TypeError is emitted when an error occurs.
	TypeError Type = "error"
)

// Event represents an observable moment in an investigation.
//
// Description:
//
//	Each event has a type that determines the structure of its Data
//	field. Use the matching typed data struct (EvidenceAddedData,
//	GateCheckData, etc.) when setting Data.
//
// Thread Safety:
//
//	Event structs should be treated as immutable after creation.
type Event struct {
	// ID is a unique identifier for this event.
	ID string `json:"id"`

	// Type identifies the kind of event.
	Type Type `json:"type"`

	// SessionID links the event to a session.
	SessionID string `json:"session_id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Iteration is the loop iteration when this event occurred.
	Iteration int `json:"iteration"`

	// Data contains event-specific data. Should be one of the typed
	// data structs: SessionStartData, SessionEndData, EvidenceAddedData,
	// CacheHitData, PhaseTransitionData, GateCheckData, ThoughtData,
	// ReasoningPassData, DecisionData, IterationCompleteData,
	// OperationData, or ErrorData.
	Data any `json:"data,omitempty"`

	// Metadata contains typed additional context for the event.
	Metadata *EventMetadata `json:"metadata,omitempty"`
}

// SessionStartData is the data for session start events.
type SessionStartData struct {
	// Task is the investigation objective.
	Task string `json:"task"`

	// MaxIterations is the configured loop budget.
	MaxIterations int `json:"max_iterations"`
}

// SessionEndData is the data for session end events.
type SessionEndData struct {
	// FinalPhase is the phase when the session ended.
	FinalPhase evidence.Phase `json:"final_phase"`

	// Iterations is the number of loop iterations executed.
	Iterations int `json:"iterations"`

	// TotalDuration is how long the session lasted.
	TotalDuration time.Duration `json:"total_duration"`

	// Converged indicates the loop stopped on convergence rather than
	// budget exhaustion.
	Converged bool `json:"converged"`

	// Error is set if the session ended with an error.
	Error string `json:"error,omitempty"`
}

// EvidenceAddedData is the data for evidence insertion events.
type EvidenceAddedData struct {
	// Kind is the action that produced the evidence.
	Kind evidence.ActionKind `json:"kind"`

	// Query is what the action looked for.
	Query string `json:"query"`

	// Path optionally narrows the query to a location.
	Path string `json:"path,omitempty"`

	// Confidence is the scored reliability of the entry.
	Confidence float64 `json:"confidence"`

	// Timestamp is the entry's logical insertion counter.
	Timestamp int64 `json:"timestamp"`
}

// CacheHitData is the data for cache hit events.
type CacheHitData struct {
	// Kind is the action kind that was looked up.
	Kind evidence.ActionKind `json:"kind"`

	// Query is the action's query.
	Query string `json:"query"`

	// Path optionally narrows the query to a location.
	Path string `json:"path,omitempty"`

	// Confidence is the cached entry's confidence.
	Confidence float64 `json:"confidence"`
}

// PhaseTransitionData is the data for phase transition events.
type PhaseTransitionData struct {
	// FromPhase is the previous phase.
	FromPhase evidence.Phase `json:"from_phase"`

	// ToPhase is the new phase.
	ToPhase evidence.Phase `json:"to_phase"`

	// Reason explains why the transition occurred.
	Reason string `json:"reason,omitempty"`
}

// GateCheckData is the data for gate precheck events.
type GateCheckData struct {
	// Kind is the action that was checked.
	Kind evidence.ActionKind `json:"kind"`

	// Query is the action's query.
	Query string `json:"query"`

	// Proceed is the gate's verdict.
	Proceed bool `json:"proceed"`

	// Relevance is the phase-fit score of the action.
	Relevance float64 `json:"relevance"`

	// Combined is the blended decision score.
	Combined float64 `json:"combined"`

	// Sufficient indicates the evidence base supported the action.
	Sufficient bool `json:"sufficient"`

	// CacheHit indicates the verdict came from a cached answer.
	CacheHit bool `json:"cache_hit"`
}

// ThoughtData is the data for controller thought events.
type ThoughtData struct {
	// Ordinal is the thought's position in the session (1-indexed).
	Ordinal int `json:"ordinal"`

	// Kind is the thought category (EXPLORE, THINK, EXECUTE, REFLECT).
	Kind string `json:"kind"`

	// Confidence is the confidence attached to the thought.
	Confidence float64 `json:"confidence"`

	// Preview is the truncated thought text.
	Preview string `json:"preview"`
}

// ReasoningPassData is the data for reasoning cycle events.
type ReasoningPassData struct {
	// Iterations is the number of passes executed.
	Iterations int `json:"iterations"`

	// Confidence is the final pass confidence.
	Confidence float64 `json:"confidence"`

	// MetThreshold indicates the requested confidence was reached.
	MetThreshold bool `json:"met_threshold"`

	// Conclusion is the final conclusion text.
	Conclusion string `json:"conclusion"`
}

// DecisionData is the data for final decision events.
type DecisionData struct {
	// Assessment is the decision bucket (e.g., "high confidence").
	Assessment string `json:"assessment"`

	// Confidence is the decision confidence.
	Confidence float64 `json:"confidence"`

	// PlanSteps is the number of steps in the recommended plan.
	PlanSteps int `json:"plan_steps"`
}

// IterationCompleteData is the data for loop iteration events.
type IterationCompleteData struct {
	// Iteration is the iteration that completed (1-indexed).
	Iteration int `json:"iteration"`

	// Strategy is the branch the iteration took (e.g., "broad_exploration").
	Strategy string `json:"strategy"`

	// Convergence is the convergence score after the iteration.
	Convergence float64 `json:"convergence"`
}

// OperationData is the data for operation dispatch events.
type OperationData struct {
	// Name is the operation name.
	Name string `json:"name"`

	// Success indicates if the operation succeeded.
	Success bool `json:"success"`

	// Duration is how long the operation took.
	Duration time.Duration `json:"duration"`

	// Error is set if the operation failed.
	Error string `json:"error,omitempty"`
}

// ErrorContext contains typed context for error events.
type ErrorContext struct {
	// Operation is the operation that caused the error, if applicable.
	Operation string `json:"operation,omitempty"`

	// Phase is the investigation phase where the error occurred.
	Phase string `json:"phase,omitempty"`

	// Iteration is the loop iteration where the error occurred.
	Iteration int `json:"iteration,omitempty"`
}

// ErrorData is the data for error events.
type ErrorData struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`

	// Recoverable indicates if the error can be recovered from.
	Recoverable bool `json:"recoverable"`

	// Context provides typed additional error context.
	Context *ErrorContext `json:"context,omitempty"`
}
