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

	"github.com/AleutianAI/AleutianScout/services/scout/loop"
)

// defaultLoopIterations is the iteration budget when the caller does
// not set max_iterations.
const defaultLoopIterations = 10

// IntelligentThinkingOp runs the controller's reasoning loop to a
// decision and renders the result with the full thought trace.
type IntelligentThinkingOp struct {
	controller *loop.Controller
}

// NewIntelligentThinkingOp returns the intelligent_thinking operation.
func NewIntelligentThinkingOp(c *loop.Controller) *IntelligentThinkingOp {
	return &IntelligentThinkingOp{controller: c}
}

// Name returns the dispatch name.
func (o *IntelligentThinkingOp) Name() string { return OpIntelligentThinking }

// Definition returns the operation schema.
func (o *IntelligentThinkingOp) Definition() Definition {
	return Definition{
		Name:        OpIntelligentThinking,
		Description: "Run the phase-aware reasoning loop until it converges, decides, or exhausts its iteration budget.",
		Params: map[string]ParamDef{
			"max_iterations": {
				Type:        "int",
				Description: "Maximum loop iterations to run.",
				Default:     defaultLoopIterations,
			},
		},
		Guidance: &Guidance{
			Keywords:  []string{"think", "loop", "iterate", "converge"},
			UseWhen:   "You want the controller to drive exploration and reasoning end to end.",
			AvoidWhen: "You only need a one-shot summary or decision.",
		},
	}
}

// Execute runs the loop and renders the outcome.
func (o *IntelligentThinkingOp) Execute(ctx context.Context, params map[string]any) (*Result, error) {
	maxIterations := intParam(params, "max_iterations", defaultLoopIterations)

	res, err := o.controller.Run(ctx, maxIterations)
	if err != nil {
		return nil, fmt.Errorf("reasoning loop interrupted after %d iteration(s): %w",
			res.Iterations, err)
	}

	var b strings.Builder
	writeHeader(&b, "Intelligent Thinking")
	fmt.Fprintf(&b, "Decision: %s\n", res.Decision.Decision)
	fmt.Fprintf(&b, "Confidence: %s\n", percent(res.Confidence))
	fmt.Fprintf(&b, "Iterations: %d\n", res.Iterations)
	fmt.Fprintf(&b, "Converged: %t\n", res.Converged)

	if len(res.Decision.ActionPlan) > 0 {
		b.WriteString("\n")
		writeSubheader(&b, "Action Plan")
		for i, step := range res.Decision.ActionPlan {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
	}

	if len(res.Thoughts) > 0 {
		b.WriteString("\n")
		writeSubheader(&b, "Thoughts")
		for _, t := range res.Thoughts {
			fmt.Fprintf(&b, "%d. [%s] %s (%s)\n", t.Ordinal, t.Kind, t.Text, percent(t.Confidence))
		}
	}

	return successResult(OpIntelligentThinking, b.String(), res), nil
}

var _ Operation = (*IntelligentThinkingOp)(nil)
