// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gate provides the action gate that sits between a caller and
// its workspace actions.
//
// The gate answers three questions: before an action, is it worth
// doing right now (BeforeAction); after an action, what did we learn
// from it (AfterResult); and once evidence accumulates, what should be
// done about the task (FinalDecision). Every answer is appended to a
// per-task trace so the reasoning stays reviewable.
//
// Thread Safety:
//
//	Gate is safe for concurrent use. Result structs are immutable
//	after creation.
package gate

import (
	"github.com/AleutianAI/AleutianScout/services/scout/evidence"
)

// ThoughtPhase classifies trace steps and thoughts for history rendering.
//
// Unlike evidence.Phase this includes REFLECT, which is a thought
// category rather than an investigation stage. Histories render groups
// in the fixed order EXPLORE, THINK, EXECUTE, REFLECT.
type ThoughtPhase string

const (
	// ThoughtExplore marks steps about gathering evidence.
	ThoughtExplore ThoughtPhase = "EXPLORE"

	// ThoughtThink marks steps about weighing evidence.
	ThoughtThink ThoughtPhase = "THINK"

	// ThoughtExecute marks steps about acting on conclusions.
	ThoughtExecute ThoughtPhase = "EXECUTE"

	// ThoughtReflect marks steps about processing results.
	ThoughtReflect ThoughtPhase = "REFLECT"
)

// String returns the string representation of the thought phase.
func (p ThoughtPhase) String() string {
	return string(p)
}

// HistoryOrder returns the fixed rendering order for grouped histories.
//
// Outputs:
//
//	[]ThoughtPhase - EXPLORE, THINK, EXECUTE, REFLECT
func HistoryOrder() []ThoughtPhase {
	return []ThoughtPhase{ThoughtExplore, ThoughtThink, ThoughtExecute, ThoughtReflect}
}

// thoughtPhaseFor maps an investigation phase onto a thought category.
func thoughtPhaseFor(p evidence.Phase) ThoughtPhase {
	switch p {
	case evidence.PhaseThink:
		return ThoughtThink
	case evidence.PhaseExecute:
		return ThoughtExecute
	default:
		return ThoughtExplore
	}
}

// Step kinds recorded in the gate trace.
const (
	// StepAssessment is the initial task assessment.
	StepAssessment = "assessment"

	// StepPrecheck records a BeforeAction verdict.
	StepPrecheck = "precheck"

	// StepReflection records an AfterResult reflection.
	StepReflection = "reflection"

	// StepReasoning records a fallback reasoning cycle.
	StepReasoning = "reasoning"

	// StepDecision records the final decision.
	StepDecision = "decision"
)

// Step is one entry in the gate's per-task trace.
type Step struct {
	// Step is the 1-indexed position in the trace.
	Step int `json:"step"`

	// Kind describes what happened (assessment, precheck, reflection,
	// reasoning, decision).
	Kind string `json:"kind"`

	// Phase is the thought category for history grouping.
	Phase ThoughtPhase `json:"phase"`

	// Thought is the human-readable trace text.
	Thought string `json:"thought"`

	// Confidence is the confidence attached to this step (0.0-1.0).
	Confidence float64 `json:"confidence"`

	// CreatedAt is when the step was recorded (Unix milliseconds UTC).
	CreatedAt int64 `json:"created_at"`
}

// Precheck is the verdict of BeforeAction.
type Precheck struct {
	// Proceed is the gate's verdict: true means the action is worth
	// running now.
	Proceed bool `json:"proceed"`

	// Confidence is the blended decision score backing the verdict.
	// On a cache hit it is the cached entry's confidence instead.
	Confidence float64 `json:"confidence"`

	// Relevance is the phase-fit score of the proposed action.
	Relevance float64 `json:"relevance"`

	// Sufficient indicates the evidence base supported the action.
	Sufficient bool `json:"sufficient"`

	// CacheHit indicates the answer was already in the evidence cache.
	CacheHit bool `json:"cache_hit"`

	// CachedEntry is the cached entry on a cache hit, nil otherwise.
	CachedEntry *evidence.Entry `json:"cached_entry,omitempty"`

	// Reasoning is the human-readable explanation of the verdict.
	Reasoning string `json:"reasoning"`
}

// Reflection is the outcome of AfterResult.
type Reflection struct {
	// Entry is the evidence entry written for the result.
	Entry evidence.Entry `json:"entry"`

	// Insights are the tags derived from the result's content.
	Insights []string `json:"insights"`

	// ShouldTransition indicates the store advised a phase transition.
	ShouldTransition bool `json:"should_transition"`

	// Transitioned indicates the phase actually advanced.
	Transitioned bool `json:"transitioned"`

	// PhaseBefore is the phase when the result arrived.
	PhaseBefore evidence.Phase `json:"phase_before"`

	// PhaseAfter is the phase after any transition.
	PhaseAfter evidence.Phase `json:"phase_after"`

	// NextActions are suggested follow-up actions for the caller.
	NextActions []string `json:"next_actions"`
}

// Decision is the outcome of FinalDecision.
type Decision struct {
	// Decision is the assessment text (e.g., "high confidence: execute
	// the plan").
	Decision string `json:"decision"`

	// Confidence is the score the assessment was bucketed from.
	Confidence float64 `json:"confidence"`

	// ActionPlan is the recommended plan. High and moderate confidence
	// buckets always produce exactly three steps.
	ActionPlan []string `json:"action_plan"`

	// Reasoning is the human-readable justification, including entry
	// count and confidence percentage.
	Reasoning string `json:"reasoning"`

	// ReasoningResult is set when a fallback reasoning cycle ran
	// because the evidence confidence was below 0.8.
	ReasoningResult *evidence.ReasoningResult `json:"reasoning_result,omitempty"`
}

// nextActionTable is the fixed lookup for AfterResult suggestions,
// keyed by the pre-transition phase and whether a transition was
// advised.
var nextActionTable = map[evidence.Phase]map[bool][]string{
	evidence.PhaseExplore: {
		false: {
			"Continue reading the files most central to the task",
			"Search for the task's main identifiers",
			"List directories that have not been explored yet",
		},
		true: {
			"Consolidate findings into a working hypothesis",
			"Re-check low-confidence evidence before analysis",
		},
	},
	evidence.PhaseThink: {
		false: {
			"Run a deep reasoning pass over the collected evidence",
			"Fill evidence gaps with targeted searches",
		},
		true: {
			"Draft the execution plan",
			"Identify the files the change will touch",
		},
	},
	evidence.PhaseExecute: {
		false: {
			"Apply the planned change",
			"Validate the outcome against the evidence log",
		},
		// EXECUTE never transitions; kept for table totality.
		true: {
			"Apply the planned change",
			"Validate the outcome against the evidence log",
		},
	},
}

// nextActions returns the suggested follow-ups for a reflection.
func nextActions(phase evidence.Phase, transition bool) []string {
	byTransition, ok := nextActionTable[phase]
	if !ok {
		byTransition = nextActionTable[evidence.PhaseExplore]
	}

	src := byTransition[transition]
	out := make([]string, len(src))
	copy(out, src)
	return out
}
