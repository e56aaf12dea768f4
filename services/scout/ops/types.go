// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ops provides the named operations a session exposes and the
// dispatcher that runs them.
//
// Operations are read-mostly queries over a session's evidence store,
// gate, and controller, returning formatted text plus a structured
// payload. They are dispatched by name with loosely typed JSON
// parameters; an unknown name or bad parameters produce an error
// result, never a panic.
package ops

import (
	"context"
	"time"

	"github.com/AleutianAI/AleutianScout/services/scout/evidence"
	"github.com/AleutianAI/AleutianScout/services/scout/gate"
	"github.com/AleutianAI/AleutianScout/services/scout/loop"
)

// Operation names, fixed across the wire surface.
const (
	OpExplorationSummary         = "exploration_summary"
	OpToughReasoning             = "tough_reasoning"
	OpCheckCache                 = "check_cache"
	OpRecommendations            = "get_exploration_recommendations"
	OpThinkingHistory            = "thinking_history"
	OpIntelligentThinkingHistory = "intelligent_thinking_history"
	OpFinalDecision              = "final_decision"
	OpIntelligentThinking        = "intelligent_thinking"
)

const (
	// MaxParamsSize bounds the serialized parameter payload.
	MaxParamsSize = 1 << 20 // 1 MB

	// MaxOutputSize bounds an operation's formatted output.
	MaxOutputSize = 1 << 22 // 4 MB

	// DefaultTimeout bounds a single operation execution.
	DefaultTimeout = 30 * time.Second
)

// Operation is a named, idempotent query over a session's components.
//
// Implementations must be safe for concurrent use and must not retain
// the params map.
type Operation interface {
	// Name returns the operation's dispatch name.
	Name() string

	// Definition returns the operation's parameter schema and guidance.
	Definition() Definition

	// Execute runs the operation with loosely typed parameters.
	//
	// Missing or mistyped parameters fall back to neutral defaults.
	// An error return means the operation could not produce a result;
	// the dispatcher converts it into an error Result.
	Execute(ctx context.Context, params map[string]any) (*Result, error)
}

// Definition describes an operation to callers.
type Definition struct {
	// Name is the dispatch name.
	Name string `json:"name"`

	// Description is a one-line summary of what the operation does.
	Description string `json:"description"`

	// Params is the parameter schema keyed by parameter name.
	Params map[string]ParamDef `json:"params,omitempty"`

	// Guidance is optional routing metadata for callers.
	Guidance *Guidance `json:"guidance,omitempty"`
}

// ParamDef describes one parameter.
type ParamDef struct {
	// Type is the parameter type: "string", "int", or "float".
	Type string `json:"type"`

	// Description explains the parameter.
	Description string `json:"description"`

	// Required marks parameters without a usable default.
	Required bool `json:"required,omitempty"`

	// Default is the value used when the parameter is absent.
	Default any `json:"default,omitempty"`
}

// Guidance is routing metadata attached to a definition. It can be
// overridden from configuration at runtime.
type Guidance struct {
	// Keywords are terms that suggest this operation.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords"`

	// UseWhen describes the situation the operation fits.
	UseWhen string `json:"use_when,omitempty" yaml:"use_when"`

	// AvoidWhen describes situations where the operation misleads.
	AvoidWhen string `json:"avoid_when,omitempty" yaml:"avoid_when"`
}

// Result is the outcome of one dispatched operation.
type Result struct {
	// Operation is the dispatch name.
	Operation string `json:"operation"`

	// Success indicates the operation produced its output.
	Success bool `json:"success"`

	// Output is the formatted text result.
	Output string `json:"output,omitempty"`

	// Error is the failure message when Success is false.
	Error string `json:"error,omitempty"`

	// Duration is how long the operation took.
	Duration time.Duration `json:"duration"`

	// Truncated indicates Output was cut at the size limit.
	Truncated bool `json:"truncated,omitempty"`

	// Data is the operation's structured payload (summary, decision,
	// history, ...). Shape depends on the operation.
	Data any `json:"data,omitempty"`
}

// Components bundles the per-session core the operations consult.
type Components struct {
	// Store is the session's evidence store.
	Store *evidence.Store

	// Gate is the session's action gate.
	Gate *gate.Gate

	// Controller is the session's iteration controller.
	Controller *loop.Controller
}

// CacheCheck is the structured payload of the check_cache operation.
type CacheCheck struct {
	// Hit indicates the key was cached.
	Hit bool `json:"hit"`

	// Key is the normalized cache key that was looked up.
	Key string `json:"key"`

	// Entry is the cached entry on a hit, nil otherwise.
	Entry *evidence.Entry `json:"entry,omitempty"`

	// Preview is the cached payload preview (at most 100 characters).
	Preview string `json:"preview,omitempty"`

	// Stats is the cache-wide hit/miss accounting.
	Stats evidence.CacheStats `json:"stats"`
}

// ReasoningOutcome is the structured payload of the tough_reasoning
// operation.
type ReasoningOutcome struct {
	// Result is the reasoning cycle outcome.
	Result evidence.ReasoningResult `json:"result"`

	// PhaseAdvanced indicates the store phase moved forward because
	// the threshold was met.
	PhaseAdvanced bool `json:"phase_advanced"`

	// FromPhase and ToPhase describe the transition when one occurred.
	FromPhase evidence.Phase `json:"from_phase,omitempty"`
	ToPhase   evidence.Phase `json:"to_phase,omitempty"`
}
