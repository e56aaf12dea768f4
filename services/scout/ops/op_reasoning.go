// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianScout/services/scout/evidence"
)

const (
	// defaultReasoningIterations is the pass budget when the caller
	// does not set max_iterations.
	defaultReasoningIterations = 5

	// defaultReasoningThreshold is the stop threshold when the caller
	// does not set min_confidence.
	defaultReasoningThreshold = 0.8
)

// ToughReasoningOp runs a multi-pass reasoning cycle over the evidence
// log. When the cycle reaches its confidence threshold the store phase
// advances, since settled reasoning is the signal the phase machine
// waits for.
type ToughReasoningOp struct {
	store *evidence.Store
}

// NewToughReasoningOp returns the tough_reasoning operation.
func NewToughReasoningOp(store *evidence.Store) *ToughReasoningOp {
	return &ToughReasoningOp{store: store}
}

// Name returns the dispatch name.
func (o *ToughReasoningOp) Name() string { return OpToughReasoning }

// Definition returns the operation schema.
func (o *ToughReasoningOp) Definition() Definition {
	return Definition{
		Name:        OpToughReasoning,
		Description: "Run an iterative reasoning cycle over the evidence log, refining confidence each pass; advances the phase when the threshold is met.",
		Params: map[string]ParamDef{
			"max_iterations": {
				Type:        "int",
				Description: "Maximum reasoning passes to run.",
				Default:     defaultReasoningIterations,
			},
			"min_confidence": {
				Type:        "float",
				Description: "Confidence at which the cycle stops early.",
				Default:     defaultReasoningThreshold,
			},
		},
		Guidance: &Guidance{
			Keywords:  []string{"reason", "analyze", "refine", "confidence"},
			UseWhen:   "Evidence has accumulated but confidence is still below the decision bar.",
			AvoidWhen: "The log is empty; reasoning over nothing produces nothing.",
		},
	}
}

// Execute runs the cycle and renders each pass.
func (o *ToughReasoningOp) Execute(_ context.Context, params map[string]any) (*Result, error) {
	maxIterations := intParam(params, "max_iterations", defaultReasoningIterations)
	if maxIterations < 1 {
		maxIterations = 1
	}
	minConfidence := floatParam(params, "min_confidence", defaultReasoningThreshold)

	r := o.store.ToughReasoning(maxIterations, minConfidence)

	outcome := ReasoningOutcome{Result: r}
	if r.MetThreshold {
		from, to, changed := o.store.AdvancePhase()
		outcome.PhaseAdvanced = changed
		if changed {
			outcome.FromPhase = from
			outcome.ToPhase = to
		}
	}

	var b strings.Builder
	writeHeader(&b, "Deep Reasoning")
	fmt.Fprintf(&b, "Conclusion: %s\n", r.Conclusion)
	fmt.Fprintf(&b, "Confidence: %s\n", percent(r.Confidence))
	fmt.Fprintf(&b, "Passes: %d of %d\n", r.Iterations, maxIterations)
	fmt.Fprintf(&b, "Threshold met: %t\n", r.MetThreshold)
	if outcome.PhaseAdvanced {
		fmt.Fprintf(&b, "Phase advanced: %s -> %s\n", outcome.FromPhase, outcome.ToPhase)
	}

	if len(r.Steps) > 0 {
		b.WriteString("\n")
		writeSubheader(&b, "Passes")
		for i, step := range r.Steps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
	}

	return successResult(OpToughReasoning, b.String(), outcome), nil
}

var _ Operation = (*ToughReasoningOp)(nil)
