// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package evidence

import (
	"fmt"
	"log/slog"
	"math"
)

// Reasoning confidence model.
const (
	// reasoningVolumeSaturation is the entry count at which evidence
	// volume stops boosting the base confidence.
	reasoningVolumeSaturation = 10.0

	// reasoningIterationStep is the per-pass persistence bonus.
	reasoningIterationStep = 0.05

	// reasoningIterationCap bounds the total persistence bonus.
	reasoningIterationCap = 0.2

	// reasoningElapsedWindowMs is the elapsed time at which the
	// time-invested bonus saturates.
	reasoningElapsedWindowMs = 60000.0

	// reasoningElapsedCap bounds the time-invested bonus.
	reasoningElapsedCap = 0.1
)

// Scope tier boundaries for the first reasoning pass.
const (
	scopeNarrowBelow    = 3
	scopeBroadAtOrAbove = 10
)

// Quality tier boundaries for the second reasoning pass.
const (
	qualityStrongAtOrAbove = 0.8
	qualityMixedAtOrAbove  = 0.5
)

// ToughReasoning runs up to maxIterations analysis passes over the
// current evidence and returns the last pass's conclusion.
//
// Description:
//
//	Each pass examines the evidence from a different angle: pass 1
//	assesses investigation scope from entry and search counts, pass 2
//	grades evidence quality from the mean confidence, pass 3 identifies
//	the dominant activity category, and passes 4 and beyond measure
//	throughput against elapsed time.
//
//	Pass confidence combines the mean evidence confidence (scaled by
//	how saturated the log is, out of 10 entries), a persistence bonus
//	that grows 0.05 per pass up to 0.2, and a time-invested bonus up
//	to 0.1 over the first minute. The total is clamped to 1.0. The
//	cycle stops at the first pass whose confidence reaches
//	minConfidence; otherwise it runs the full budget.
//
//	Reasoning is read-only. It never mutates the log or the phase;
//	callers that want to act on the result (for example advancing the
//	phase once the threshold is met) do so explicitly.
//
// Inputs:
//
//	maxIterations - Pass budget. Values below 1 are clamped to 1.
//	minConfidence - Early-stop threshold, clamped to [0.0, 1.0].
//
// Outputs:
//
//	ReasoningResult - Last conclusion, its confidence, the number of
//	passes executed, and whether the threshold was met.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Store) ToughReasoning(maxIterations int, minConfidence float64) ReasoningResult {
	if maxIterations < 1 {
		slog.Warn("reasoning pass budget below 1, clamping",
			slog.Int("requested", maxIterations),
		)
		maxIterations = 1
	}
	minConfidence = clamp01(minConfidence)

	s.mu.RLock()
	summary := s.summaryLocked()
	elapsedMs := float64(s.now().Sub(s.started).Milliseconds())
	s.mu.RUnlock()

	base := summary.ConfidenceScore
	volume := math.Min(1.0, float64(summary.TotalEntries)/reasoningVolumeSaturation)
	elapsedBonus := math.Min(reasoningElapsedCap, elapsedMs/reasoningElapsedWindowMs)

	var result ReasoningResult
	for i := 1; i <= maxIterations; i++ {
		persistence := math.Min(reasoningIterationCap, float64(i)*reasoningIterationStep)

		result.Conclusion = s.conclusionForPass(i, summary, elapsedMs)
		result.Confidence = math.Min(1.0, base*volume+persistence+elapsedBonus)
		result.Iterations = i
		result.Steps = append(result.Steps, result.Conclusion)

		if result.Confidence >= minConfidence {
			result.MetThreshold = true
			break
		}
	}

	slog.Debug("reasoning cycle finished",
		slog.Int("iterations", result.Iterations),
		slog.Float64("confidence", result.Confidence),
		slog.Bool("met_threshold", result.MetThreshold),
	)
	return result
}

// conclusionForPass builds the themed conclusion for a reasoning pass.
func (s *Store) conclusionForPass(pass int, summary Summary, elapsedMs float64) string {
	switch pass {
	case 1:
		return scopeConclusion(summary)
	case 2:
		return qualityConclusion(summary)
	case 3:
		return activityConclusion(summary)
	default:
		return throughputConclusion(summary, elapsedMs, pass)
	}
}

// scopeConclusion assesses investigation breadth from entry and search counts.
func scopeConclusion(summary Summary) string {
	if summary.TotalEntries == 0 {
		return "No evidence has been collected yet; any conclusion would be premature."
	}

	breadth := "moderate"
	switch {
	case summary.TotalEntries < scopeNarrowBelow:
		breadth = "narrow"
	case summary.TotalEntries >= scopeBroadAtOrAbove:
		breadth = "broad"
	}

	return fmt.Sprintf("Scope assessment: %d entries including %d searches indicate a %s investigation.",
		summary.TotalEntries, summary.CountByCategory["searches"], breadth)
}

// qualityConclusion grades the evidence from its mean confidence.
func qualityConclusion(summary Summary) string {
	tier := "weak"
	switch {
	case summary.ConfidenceScore >= qualityStrongAtOrAbove:
		tier = "strong"
	case summary.ConfidenceScore >= qualityMixedAtOrAbove:
		tier = "mixed"
	}

	return fmt.Sprintf("Evidence quality is %s with a mean confidence of %.2f across %d entries.",
		tier, summary.ConfidenceScore, summary.TotalEntries)
}

// activityConclusion names the dominant activity category, if any.
func activityConclusion(summary Summary) string {
	var dominant string
	var max, counted int
	tied := false
	// Fixed category order keeps the conclusion deterministic on ties.
	for _, cat := range []string{"files", "searches", "listings"} {
		n := summary.CountByCategory[cat]
		counted += n
		switch {
		case n > max:
			dominant, max, tied = cat, n, false
		case n == max && n > 0:
			tied = true
		}
	}

	if max == 0 || tied {
		return "Activity is balanced across files, searches, and listings with no dominant focus."
	}
	return fmt.Sprintf("Investigation activity is dominated by %s (%d of %d categorized entries).",
		dominant, max, counted)
}

// throughputConclusion measures collection rate for late passes.
func throughputConclusion(summary Summary, elapsedMs float64, pass int) string {
	seconds := elapsedMs / 1000.0
	if seconds < 1.0 {
		seconds = 1.0
	}
	rate := float64(summary.TotalEntries) / seconds

	return fmt.Sprintf("Throughput check at pass %d: %.2f entries/sec over the observation window.",
		pass, rate)
}

// clamp01 bounds v to [0.0, 1.0].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
