// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scout

import (
	"github.com/AleutianAI/AleutianScout/services/scout/events"
	"github.com/AleutianAI/AleutianScout/services/scout/gate"
	"github.com/AleutianAI/AleutianScout/services/scout/ops"
)

// CreateSessionRequest is the request body for POST /v1/scout/sessions.
type CreateSessionRequest struct {
	// Task is the investigation objective in plain language. Required.
	Task string `json:"task" binding:"required"`

	// MaxIterations overrides the default iteration budget for the
	// session's reasoning loop. Default: service configuration.
	MaxIterations int `json:"max_iterations"`

	// DecisionAuthority selects who answers the decision endpoint:
	// "gate" for an immediate verdict, "controller" for an iterative
	// session. Default: service configuration.
	DecisionAuthority string `json:"decision_authority"`
}

// SessionResponse describes one session.
type SessionResponse struct {
	// SessionID is the unique session identifier.
	SessionID string `json:"session_id"`

	// Task is the investigation objective.
	Task string `json:"task"`

	// Phase is the session's current investigation phase.
	Phase string `json:"phase"`

	// DecisionAuthority is the session's decision authority.
	DecisionAuthority string `json:"decision_authority"`

	// EntryCount is the number of evidence entries collected so far.
	EntryCount int `json:"entry_count"`

	// Confidence is the mean evidence confidence (0.0-1.0).
	Confidence float64 `json:"confidence"`

	// Steps is the number of gate trace steps recorded.
	Steps int `json:"steps"`

	// Thoughts is the number of reasoning thoughts recorded.
	Thoughts int `json:"thoughts"`

	// CreatedAt is the session creation time (Unix seconds).
	CreatedAt int64 `json:"created_at"`

	// LastActiveAt is the last request time (Unix seconds).
	LastActiveAt int64 `json:"last_active_at"`
}

// SessionListResponse is the response for GET /v1/scout/sessions.
type SessionListResponse struct {
	// Sessions lists the registered sessions ordered by creation time.
	Sessions []SessionResponse `json:"sessions"`

	// Count is the number of sessions listed.
	Count int `json:"count"`
}

// OperationListResponse is the response for GET /v1/scout/sessions/:id/operations.
type OperationListResponse struct {
	// Operations lists the dispatchable operations with their guidance.
	Operations []ops.Definition `json:"operations"`

	// Count is the number of operations listed.
	Count int `json:"count"`
}

// OperationRequest is the request body for
// POST /v1/scout/sessions/:id/operations/:name.
type OperationRequest struct {
	// Params are the operation parameters. Unknown keys are ignored and
	// missing keys fall back to operation defaults.
	Params map[string]any `json:"params"`
}

// OperationResponse is the outcome of a dispatched operation.
type OperationResponse struct {
	// Operation is the operation name that ran.
	Operation string `json:"operation"`

	// Success indicates the operation completed without error.
	Success bool `json:"success"`

	// Output is the rendered markdown output.
	Output string `json:"output,omitempty"`

	// Error is the failure message for unsuccessful operations.
	Error string `json:"error,omitempty"`

	// DurationMs is the dispatch time in milliseconds.
	DurationMs int64 `json:"duration_ms"`

	// Truncated indicates the output was cut at the size limit.
	Truncated bool `json:"truncated,omitempty"`

	// Data is the operation's structured result.
	Data any `json:"data,omitempty"`
}

// PrecheckRequest is the request body for
// POST /v1/scout/sessions/:id/gate/before.
type PrecheckRequest struct {
	// Kind is the proposed action kind (e.g. "READ_FILE"). Required.
	Kind string `json:"kind" binding:"required"`

	// Query is what the action will look for. Required.
	Query string `json:"query" binding:"required"`

	// Path is an optional location scope.
	Path string `json:"path"`
}

// PrecheckResponse is the gate's verdict on a proposed action.
type PrecheckResponse struct {
	// Proceed is the verdict: true means the action is worth running.
	Proceed bool `json:"proceed"`

	// Confidence is the decision score backing the verdict.
	Confidence float64 `json:"confidence"`

	// Relevance is the phase-fit score of the proposed action.
	Relevance float64 `json:"relevance"`

	// Sufficient indicates the evidence base supported the action.
	Sufficient bool `json:"sufficient"`

	// CacheHit indicates the answer was already in the evidence cache.
	CacheHit bool `json:"cache_hit"`

	// CachedPreview is a bounded preview of the cached content on a hit.
	CachedPreview string `json:"cached_preview,omitempty"`

	// Reasoning is the human-readable explanation of the verdict.
	Reasoning string `json:"reasoning"`

	// Phase is the session phase the verdict was made in.
	Phase string `json:"phase"`
}

// ReflectionRequest is the request body for
// POST /v1/scout/sessions/:id/gate/after.
type ReflectionRequest struct {
	// Kind is the action kind that produced the result. Required.
	Kind string `json:"kind" binding:"required"`

	// Query is what the action looked for. Required.
	Query string `json:"query" binding:"required"`

	// Path is an optional location scope.
	Path string `json:"path"`

	// Output is the action's text output.
	Output string `json:"output"`

	// Record is structured output for non-text results. When set it
	// takes precedence over Output.
	Record map[string]any `json:"record"`
}

// ReflectionResponse is the outcome of folding a result into evidence.
type ReflectionResponse struct {
	// Confidence is the score the result was recorded at.
	Confidence float64 `json:"confidence"`

	// Insights are the tags derived from the result's content.
	Insights []string `json:"insights"`

	// PhaseBefore is the phase when the result arrived.
	PhaseBefore string `json:"phase_before"`

	// PhaseAfter is the phase after any transition.
	PhaseAfter string `json:"phase_after"`

	// Transitioned indicates the phase advanced.
	Transitioned bool `json:"transitioned"`

	// NextActions are suggested follow-up actions.
	NextActions []string `json:"next_actions"`

	// EntryCount is the evidence volume after recording.
	EntryCount int `json:"entry_count"`
}

// ResultRequest is the request body for POST /v1/scout/sessions/:id/results.
type ResultRequest struct {
	// Result is the external action output to hand to the reasoning
	// loop. Required.
	Result string `json:"result" binding:"required"`
}

// DecisionRequest is the request body for POST /v1/scout/sessions/:id/decision.
type DecisionRequest struct {
	// MaxIterations overrides the session's iteration budget when the
	// controller decides. Ignored for gate authority.
	MaxIterations int `json:"max_iterations"`
}

// DecisionResponse is the verdict of the session's decision authority.
type DecisionResponse struct {
	// Decision is the assessment text.
	Decision string `json:"decision"`

	// Confidence is the score the assessment was bucketed from.
	Confidence float64 `json:"confidence"`

	// ActionPlan is the recommended plan.
	ActionPlan []string `json:"action_plan"`

	// Reasoning is the human-readable justification.
	Reasoning string `json:"reasoning"`

	// Authority names who decided: "gate" or "controller".
	Authority string `json:"authority"`

	// Iterations is the number of loop iterations run. Zero for gate
	// authority.
	Iterations int `json:"iterations,omitempty"`

	// Converged indicates the loop converged before its budget ran out.
	Converged bool `json:"converged,omitempty"`
}

// EventsResponse is the response for GET /v1/scout/sessions/:id/events.
type EventsResponse struct {
	// Events lists the buffered events, oldest first.
	Events []events.Event `json:"events"`

	// Count is the number of events listed.
	Count int `json:"count"`
}

// HealthResponse is the response for GET /v1/scout/health.
type HealthResponse struct {
	// Status is "healthy".
	Status string `json:"status"`

	// Version is the service version.
	Version string `json:"version"`

	// Sessions is the number of registered sessions.
	Sessions int `json:"sessions"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`
}

// sessionResponseFrom renders a session into its API representation.
func sessionResponseFrom(s *Session) SessionResponse {
	summary := s.Store.GenerateSummary()
	return SessionResponse{
		SessionID:         s.ID,
		Task:              s.Task,
		Phase:             s.Store.Phase().String(),
		DecisionAuthority: s.DecisionAuthority,
		EntryCount:        summary.TotalEntries,
		Confidence:        summary.ConfidenceScore,
		Steps:             len(s.Gate.Steps()),
		Thoughts:          len(s.Controller.Thoughts()),
		CreatedAt:         s.CreatedAt.Unix(),
		LastActiveAt:      s.LastActive().Unix(),
	}
}

// decisionResponseFrom renders a gate decision into its API representation.
func decisionResponseFrom(d gate.Decision, authority string, iterations int, converged bool) DecisionResponse {
	return DecisionResponse{
		Decision:   d.Decision,
		Confidence: d.Confidence,
		ActionPlan: d.ActionPlan,
		Reasoning:  d.Reasoning,
		Authority:  authority,
		Iterations: iterations,
		Converged:  converged,
	}
}
