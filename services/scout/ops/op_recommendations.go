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

// lowConfidenceCeiling marks evidence worth re-verifying.
const lowConfidenceCeiling = 0.5

// coldStartRecommendations seed exploration when the log is empty.
var coldStartRecommendations = []string{
	"Start with a directory listing of the workspace root",
	"Read the project manifest and build files",
	"Search for the task's main identifiers",
}

// RecommendationsOp suggests next exploration steps keyed off the gaps
// in the evidence summary.
type RecommendationsOp struct {
	store *evidence.Store
}

// NewRecommendationsOp returns the get_exploration_recommendations
// operation.
func NewRecommendationsOp(store *evidence.Store) *RecommendationsOp {
	return &RecommendationsOp{store: store}
}

// Name returns the dispatch name.
func (o *RecommendationsOp) Name() string { return OpRecommendations }

// Definition returns the operation schema.
func (o *RecommendationsOp) Definition() Definition {
	return Definition{
		Name:        OpRecommendations,
		Description: "Suggest the next exploration steps based on gaps in the evidence collected so far.",
		Guidance: &Guidance{
			Keywords: []string{"next", "recommend", "explore", "gaps"},
			UseWhen:  "You are unsure what to look at next.",
		},
	}
}

// Execute derives and renders the suggestions.
func (o *RecommendationsOp) Execute(_ context.Context, _ map[string]any) (*Result, error) {
	summary := o.store.GenerateSummary()
	phase := o.store.Phase()
	recs := recommendationsFor(summary, phase)

	var b strings.Builder
	writeHeader(&b, "Exploration Recommendations")
	fmt.Fprintf(&b, "Based on %d entries at %s confidence in the %s phase:\n\n",
		summary.TotalEntries, percent(summary.ConfidenceScore), phase)
	for i, rec := range recs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rec)
	}

	return successResult(OpRecommendations, b.String(), recs), nil
}

// recommendationsFor applies the gap heuristics in a fixed order so
// the same summary always yields the same list.
func recommendationsFor(summary evidence.Summary, phase evidence.Phase) []string {
	if summary.TotalEntries == 0 {
		out := make([]string, len(coldStartRecommendations))
		copy(out, coldStartRecommendations)
		return out
	}

	var recs []string
	counts := summary.CountByCategory
	if counts["files"] == 0 {
		recs = append(recs, "Read the files surfaced by searches and listings")
	}
	if counts["searches"] == 0 {
		recs = append(recs, "Search for the identifiers the task mentions")
	}
	if counts["listings"] == 0 {
		recs = append(recs, "List the directories surrounding known findings")
	}
	if summary.ConfidenceScore < lowConfidenceCeiling {
		recs = append(recs, "Re-verify the low-confidence evidence before relying on it")
	}

	switch phase {
	case evidence.PhaseThink:
		recs = append(recs, "Run a deep reasoning cycle to consolidate the evidence")
	case evidence.PhaseExecute:
		recs = append(recs, "Request a final decision to close out the task")
	}

	if len(recs) == 0 {
		recs = append(recs, "Coverage looks balanced; deepen the highest-value findings")
	}
	return recs
}

var _ Operation = (*RecommendationsOp)(nil)
