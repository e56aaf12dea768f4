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

// summaryCategories is the render order for activity counts.
var summaryCategories = []string{"files", "searches", "listings"}

// ExplorationSummaryOp renders the current evidence summary.
type ExplorationSummaryOp struct {
	store *evidence.Store
}

// NewExplorationSummaryOp returns the exploration_summary operation.
func NewExplorationSummaryOp(store *evidence.Store) *ExplorationSummaryOp {
	return &ExplorationSummaryOp{store: store}
}

// Name returns the dispatch name.
func (o *ExplorationSummaryOp) Name() string { return OpExplorationSummary }

// Definition returns the operation schema.
func (o *ExplorationSummaryOp) Definition() Definition {
	return Definition{
		Name:        OpExplorationSummary,
		Description: "Summarize the evidence collected so far: entry count, mean confidence, activity breakdown, and key findings.",
		Guidance: &Guidance{
			Keywords: []string{"summary", "progress", "overview", "evidence"},
			UseWhen:  "You want a quick read on how much has been learned and how solid it is.",
		},
	}
}

// Execute renders the summary.
func (o *ExplorationSummaryOp) Execute(_ context.Context, _ map[string]any) (*Result, error) {
	summary := o.store.GenerateSummary()

	var b strings.Builder
	writeHeader(&b, "Exploration Summary")
	fmt.Fprintf(&b, "Entries: %d\n", summary.TotalEntries)
	fmt.Fprintf(&b, "Mean confidence: %s\n", percent(summary.ConfidenceScore))
	fmt.Fprintf(&b, "Phase: %s\n", o.store.Phase())
	fmt.Fprintf(&b, "Elapsed: %s\n", o.store.Elapsed().Round(timeRounding))

	if counts := summary.CountByCategory; len(counts) > 0 {
		b.WriteString("\n")
		writeSubheader(&b, "Activity")
		for _, cat := range summaryCategories {
			if n, ok := counts[cat]; ok {
				fmt.Fprintf(&b, "- %s: %d\n", cat, n)
			}
		}
	}

	if len(summary.KeyFindings) > 0 {
		b.WriteString("\n")
		writeSubheader(&b, "Key Findings")
		for i, finding := range summary.KeyFindings {
			fmt.Fprintf(&b, "%d. %s\n", i+1, finding)
		}
	}

	return successResult(OpExplorationSummary, b.String(), summary), nil
}

var _ Operation = (*ExplorationSummaryOp)(nil)
