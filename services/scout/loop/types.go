// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package loop provides the iteration controller that drives an
// investigation from an objective to a decision.
//
// Each iteration picks a strategy from the evidence state, logs the
// thinking behind it, and checks whether the session has converged.
// The controller plans and reflects; it never executes workspace
// actions itself. Results of external actions are fed back in through
// RegisterActionResult and folded into the next iteration.
package loop

import (
	"github.com/AleutianAI/AleutianScout/services/scout/gate"
)

// Strategy identifies the branch an iteration takes.
type Strategy string

const (
	// StrategyBroadExploration maps the workspace when evidence is scarce.
	StrategyBroadExploration Strategy = "broad_exploration"

	// StrategyDeepReasoning runs a multi-pass reasoning cycle when the
	// analysis phase lacks confidence.
	StrategyDeepReasoning Strategy = "deep_reasoning"

	// StrategyDecide produces the final decision.
	StrategyDecide Strategy = "decide"

	// StrategyTargetedExploration fills specific evidence gaps.
	StrategyTargetedExploration Strategy = "targeted_exploration"
)

// String returns the string representation of the strategy.
func (s Strategy) String() string {
	return string(s)
}

// Thought is one entry in the controller's reasoning record.
type Thought struct {
	// Ordinal is the thought's 1-indexed position in the session.
	Ordinal int `json:"ordinal"`

	// Kind is the thought category for history grouping.
	Kind gate.ThoughtPhase `json:"kind"`

	// Text is the thought content.
	Text string `json:"text"`

	// Confidence is the confidence attached to the thought (0.0-1.0).
	Confidence float64 `json:"confidence"`

	// CreatedAt is when the thought was logged (Unix milliseconds UTC).
	CreatedAt int64 `json:"created_at"`
}

// Context is the controller's working state for one session.
type Context struct {
	// Task is the investigation objective.
	Task string `json:"task"`

	// Iteration is the most recently started iteration (1-indexed,
	// zero before Run).
	Iteration int `json:"iteration"`

	// Knowledge accumulates what the session has learned, keyed by
	// origin (e.g. "exploration:iteration-2", "result:latest").
	Knowledge map[string]string `json:"knowledge"`

	// Focus optionally narrows targeted exploration.
	Focus string `json:"focus,omitempty"`

	// PendingResult holds an externally registered action result that
	// has not been reflected on yet. Cleared by the next iteration.
	PendingResult string `json:"pending_result,omitempty"`

	// Convergence is the most recent convergence score (0.0-1.0).
	Convergence float64 `json:"convergence"`

	// Thoughts is the session's reasoning record in logging order.
	Thoughts []Thought `json:"thoughts"`
}

// Result is the outcome of a Run.
type Result struct {
	// Decision is the final verdict. Zero-valued when Run returned an
	// error before deciding.
	Decision gate.Decision `json:"decision"`

	// Confidence is the decision confidence.
	Confidence float64 `json:"confidence"`

	// Thoughts is the full reasoning record of the session.
	Thoughts []Thought `json:"thoughts"`

	// Iterations is the number of iterations that ran.
	Iterations int `json:"iterations"`

	// Converged indicates the loop stopped on convergence rather than
	// budget exhaustion or a stop request.
	Converged bool `json:"converged"`
}

// broadAvenues are the fixed exploration avenues used when the
// evidence log is still nearly empty.
var broadAvenues = []string{
	"Survey the workspace root for overall structure",
	"Read the primary configuration and build files",
	"Search for the task's core identifiers",
}

// fallbackAvenues are used when targeted exploration finds no specific
// gap to fill.
var fallbackAvenues = []string{
	"Re-read the highest-value evidence for missed detail",
	"Search for gaps between the findings collected so far",
}
