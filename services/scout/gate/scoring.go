// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gate

import (
	"strings"

	"github.com/AleutianAI/AleutianScout/services/scout/evidence"
)

// =============================================================================
// Scoring and Insight Interfaces
// =============================================================================

// ResultScorer assigns a confidence score to an action result before it
// is written to the evidence log.
//
// Implementations must be pure: no side effects, no retained references
// to the payload.
type ResultScorer interface {
	// Score returns a confidence in [0.0, 1.0] for the result of an
	// action of the given kind.
	Score(kind evidence.ActionKind, payload evidence.Payload) float64
}

// InsightExtractor derives insight tags from an action result.
//
// Implementations must be pure. Returning nil or an empty slice is
// valid and means no insights were found.
type InsightExtractor interface {
	// Extract returns insight tags for the result of an action of the
	// given kind.
	Extract(kind evidence.ActionKind, payload evidence.Payload) []string
}

// =============================================================================
// Default Implementations
// =============================================================================

const (
	// scoreFailure is assigned when the result carries failure markers.
	scoreFailure = 0.3

	// scoreRich is assigned to substantial textual results.
	scoreRich = 0.9

	// scoreNeutral is the default for short, clean textual results.
	scoreNeutral = 0.7

	// scoreRecord is assigned to structured (non-text) results.
	scoreRecord = 0.8

	// richTextThreshold is the text length above which a result counts
	// as substantial.
	richTextThreshold = 100

	// largeResultThreshold is the text length above which the extractor
	// tags a result as large.
	largeResultThreshold = 500
)

// failureMarkers are the lowercase substrings that mark a result as a
// failure for scoring purposes.
var failureMarkers = []string{"error", "not found"}

// HeuristicScorer is the default ResultScorer.
//
// It applies fixed content heuristics in order: failure markers win
// over length, and structured records score a flat value because their
// content is not inspected.
type HeuristicScorer struct{}

var _ ResultScorer = (*HeuristicScorer)(nil)

// Score implements ResultScorer.
//
// Outputs:
//
//	0.8 for structured records
//	0.3 when the text contains "error" or "not found" (case-insensitive)
//	0.9 when the text is longer than 100 bytes
//	0.7 otherwise
func (HeuristicScorer) Score(_ evidence.ActionKind, payload evidence.Payload) float64 {
	if !payload.IsText() {
		return scoreRecord
	}

	lower := strings.ToLower(payload.Text)
	for _, marker := range failureMarkers {
		if strings.Contains(lower, marker) {
			return scoreFailure
		}
	}

	if len(payload.Text) > richTextThreshold {
		return scoreRich
	}
	return scoreNeutral
}

// Insight tags produced by MarkerExtractor.
const (
	// InsightErrorsPresent marks results containing failure language.
	InsightErrorsPresent = "errors-present"

	// InsightConfigFiles marks results touching configuration files.
	InsightConfigFiles = "config-files"

	// InsightSourceLayout marks results exposing source structure.
	InsightSourceLayout = "source-layout"

	// InsightLargeResult marks results above the large threshold.
	InsightLargeResult = "large-result"

	// InsightStructured marks structured (non-text) results.
	InsightStructured = "structured-record"
)

// MarkerExtractor is the default InsightExtractor.
//
// It scans textual results for fixed content markers and tags what it
// finds. Tags are emitted in a fixed order so reflections are stable
// for the same input.
type MarkerExtractor struct{}

var _ InsightExtractor = (*MarkerExtractor)(nil)

// Extract implements InsightExtractor.
func (MarkerExtractor) Extract(_ evidence.ActionKind, payload evidence.Payload) []string {
	if !payload.IsText() {
		return []string{InsightStructured}
	}

	var insights []string
	lower := strings.ToLower(payload.Text)

	if containsAny(lower, "error", "not found", "failed") {
		insights = append(insights, InsightErrorsPresent)
	}
	if containsAny(lower, ".yaml", ".yml", ".json", ".toml", "config") {
		insights = append(insights, InsightConfigFiles)
	}
	if containsAny(payload.Text, "package ", "func ", "import ", "type ") {
		insights = append(insights, InsightSourceLayout)
	}
	if payload.Len() > largeResultThreshold {
		insights = append(insights, InsightLargeResult)
	}

	return insights
}

// containsAny reports whether s contains at least one of the markers.
func containsAny(s string, markers ...string) bool {
	for _, marker := range markers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// =============================================================================
// Decision Math
// =============================================================================

const (
	// proceedThreshold is the combined score a precheck must exceed.
	proceedThreshold = 0.6

	// insufficiencyPenalty scales the combined score when the evidence
	// base does not yet support the action.
	insufficiencyPenalty = 0.8

	// Relevance levels by action fit.
	relevanceHigh    = 0.9
	relevanceDeep    = 0.95
	relevanceNeutral = 0.6
	relevanceLow     = 0.5

	// mutationConfidenceFloor is the evidence confidence a mutating
	// action needs before it is considered well-timed in EXECUTE.
	mutationConfidenceFloor = 0.7

	// mutationSufficiencyFloor is the evidence confidence a mutating
	// action needs to count as sufficiently supported.
	mutationSufficiencyFloor = 0.8

	// mutationMinEntries is the evidence volume a mutating action
	// needs to count as sufficiently supported.
	mutationMinEntries = 5
)

// relevanceFor scores how well an action fits the current phase.
//
// Inputs:
//
//	kind       - The proposed action kind
//	phase      - The store's current investigation phase
//	confidence - The store's mean evidence confidence
//
// Outputs:
//
//	float64 - Relevance in [0.5, 0.95]
func relevanceFor(kind evidence.ActionKind, phase evidence.Phase, confidence float64) float64 {
	switch {
	case kind.IsDeepReasoning():
		return relevanceDeep
	case kind.IsExploratory() && phase == evidence.PhaseExplore:
		return relevanceHigh
	case kind.IsMutating() && phase == evidence.PhaseExecute:
		if confidence > mutationConfidenceFloor {
			return relevanceHigh
		}
		return relevanceLow
	default:
		return relevanceNeutral
	}
}

// sufficientFor reports whether the evidence base supports the action.
//
// Exploratory actions are always supported: gathering evidence is how
// the base grows. Mutating actions need both confidence and volume.
// Everything else needs at least one entry.
func sufficientFor(kind evidence.ActionKind, summary evidence.Summary) bool {
	switch {
	case kind.IsExploratory():
		return true
	case kind.IsMutating():
		return summary.ConfidenceScore > mutationSufficiencyFloor &&
			summary.TotalEntries > mutationMinEntries
	default:
		return summary.TotalEntries > 0
	}
}

// combinedScore blends relevance with evidence confidence and applies
// the insufficiency penalty.
//
// Outputs:
//
//	float64 - min(1.0, penalized mean of relevance and confidence)
func combinedScore(relevance, confidence float64, sufficient bool) float64 {
	combined := (relevance + confidence) / 2.0
	if !sufficient {
		combined *= insufficiencyPenalty
	}
	if combined > 1.0 {
		combined = 1.0
	}
	return combined
}
