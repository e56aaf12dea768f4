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

	"github.com/AleutianAI/AleutianScout/services/scout/gate"
)

// FinalDecisionOp asks the gate for its final decision on the task.
type FinalDecisionOp struct {
	gate *gate.Gate
}

// NewFinalDecisionOp returns the final_decision operation.
func NewFinalDecisionOp(g *gate.Gate) *FinalDecisionOp {
	return &FinalDecisionOp{gate: g}
}

// Name returns the dispatch name.
func (o *FinalDecisionOp) Name() string { return OpFinalDecision }

// Definition returns the operation schema.
func (o *FinalDecisionOp) Definition() Definition {
	return Definition{
		Name:        OpFinalDecision,
		Description: "Produce the gate's final decision: an assessment, confidence, and an action plan sized to it.",
		Guidance: &Guidance{
			Keywords:  []string{"decide", "decision", "plan", "conclude"},
			UseWhen:   "Exploration is done and you need a verdict with a plan.",
			AvoidWhen: "The evidence log is still thin; gather more first.",
		},
	}
}

// Execute renders the decision.
func (o *FinalDecisionOp) Execute(_ context.Context, _ map[string]any) (*Result, error) {
	d := o.gate.FinalDecision()

	var b strings.Builder
	writeHeader(&b, "Final Decision")
	fmt.Fprintf(&b, "Assessment: %s\n", d.Decision)
	fmt.Fprintf(&b, "Confidence: %s\n", percent(d.Confidence))

	if len(d.ActionPlan) > 0 {
		b.WriteString("\n")
		writeSubheader(&b, "Action Plan")
		for i, step := range d.ActionPlan {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
	}

	if d.ReasoningResult != nil {
		b.WriteString("\n")
		writeSubheader(&b, "Fallback Reasoning")
		fmt.Fprintf(&b, "Passes: %d, final confidence %s, threshold met: %t\n",
			d.ReasoningResult.Iterations, percent(d.ReasoningResult.Confidence),
			d.ReasoningResult.MetThreshold)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Reasoning: %s\n", d.Reasoning)

	return successResult(OpFinalDecision, b.String(), d), nil
}

var _ Operation = (*FinalDecisionOp)(nil)
