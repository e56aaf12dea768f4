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
	"github.com/AleutianAI/AleutianScout/services/scout/loop"
)

// ThinkingHistoryOp renders the gate's step trace grouped by phase.
type ThinkingHistoryOp struct {
	gate *gate.Gate
}

// NewThinkingHistoryOp returns the thinking_history operation.
func NewThinkingHistoryOp(g *gate.Gate) *ThinkingHistoryOp {
	return &ThinkingHistoryOp{gate: g}
}

// Name returns the dispatch name.
func (o *ThinkingHistoryOp) Name() string { return OpThinkingHistory }

// Definition returns the operation schema.
func (o *ThinkingHistoryOp) Definition() Definition {
	return Definition{
		Name:        OpThinkingHistory,
		Description: "Render the gate's reasoning trace (assessments, prechecks, reflections, decisions) grouped by phase.",
		Guidance: &Guidance{
			Keywords: []string{"history", "trace", "steps", "audit"},
			UseWhen:  "You want to review how the gate judged earlier actions.",
		},
	}
}

// Execute renders the grouped trace.
func (o *ThinkingHistoryOp) Execute(_ context.Context, _ map[string]any) (*Result, error) {
	steps := o.gate.Steps()

	var b strings.Builder
	writeHeader(&b, "Thinking History")
	if len(steps) == 0 {
		b.WriteString("No thinking steps recorded yet.\n")
		return successResult(OpThinkingHistory, b.String(), steps), nil
	}
	fmt.Fprintf(&b, "%d recorded step(s).\n", len(steps))

	for _, phase := range gate.HistoryOrder() {
		var lines []string
		for _, s := range steps {
			if s.Phase == phase {
				lines = append(lines, fmt.Sprintf("- [%d] (%s) %s (%s)",
					s.Step, s.Kind, s.Thought, percent(s.Confidence)))
			}
		}
		if len(lines) == 0 {
			continue
		}
		b.WriteString("\n")
		writeSubheader(&b, phase.String())
		for _, line := range lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return successResult(OpThinkingHistory, b.String(), steps), nil
}

var _ Operation = (*ThinkingHistoryOp)(nil)

// IntelligentThinkingHistoryOp renders the controller's thought trace
// grouped by phase.
type IntelligentThinkingHistoryOp struct {
	controller *loop.Controller
}

// NewIntelligentThinkingHistoryOp returns the
// intelligent_thinking_history operation.
func NewIntelligentThinkingHistoryOp(c *loop.Controller) *IntelligentThinkingHistoryOp {
	return &IntelligentThinkingHistoryOp{controller: c}
}

// Name returns the dispatch name.
func (o *IntelligentThinkingHistoryOp) Name() string { return OpIntelligentThinkingHistory }

// Definition returns the operation schema.
func (o *IntelligentThinkingHistoryOp) Definition() Definition {
	return Definition{
		Name:        OpIntelligentThinkingHistory,
		Description: "Render the controller's thought trace grouped by phase.",
		Guidance: &Guidance{
			Keywords: []string{"history", "thoughts", "loop", "iterations"},
			UseWhen:  "You want to review what the reasoning loop considered.",
		},
	}
}

// Execute renders the grouped thoughts.
func (o *IntelligentThinkingHistoryOp) Execute(_ context.Context, _ map[string]any) (*Result, error) {
	thoughts := o.controller.Thoughts()

	var b strings.Builder
	writeHeader(&b, "Intelligent Thinking History")
	if len(thoughts) == 0 {
		b.WriteString("No thoughts recorded yet.\n")
		return successResult(OpIntelligentThinkingHistory, b.String(), thoughts), nil
	}
	fmt.Fprintf(&b, "%d recorded thought(s).\n", len(thoughts))

	for _, phase := range gate.HistoryOrder() {
		var lines []string
		for _, t := range thoughts {
			if t.Kind == phase {
				lines = append(lines, fmt.Sprintf("- [%d] %s (%s)",
					t.Ordinal, t.Text, percent(t.Confidence)))
			}
		}
		if len(lines) == 0 {
			continue
		}
		b.WriteString("\n")
		writeSubheader(&b, phase.String())
		for _, line := range lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return successResult(OpIntelligentThinkingHistory, b.String(), thoughts), nil
}

var _ Operation = (*IntelligentThinkingHistoryOp)(nil)
