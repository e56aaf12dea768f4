// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package loop

import (
	"math"
)

const (
	// convergenceThreshold is the score at which a session stops
	// iterating and decides.
	convergenceThreshold = 0.85

	// convergenceIterationStep is the per-iteration persistence bonus.
	convergenceIterationStep = 0.05

	// convergenceIterationCap bounds the total persistence bonus.
	convergenceIterationCap = 0.3

	// convergenceConsistencyWeight scales the thought-consistency term.
	convergenceConsistencyWeight = 0.2

	// defaultConsistency is assumed while fewer than two thoughts exist.
	defaultConsistency = 0.5
)

// convergenceScore blends evidence confidence, iteration persistence,
// and thought consistency into a single settledness score.
//
// Inputs:
//
//	confidence  - The store's mean evidence confidence
//	iteration   - The current iteration (1-indexed)
//	consistency - The thought-consistency score from thoughtConsistency
//
// Outputs:
//
//	float64 - min(1.0, confidence + persistence + weighted consistency)
func convergenceScore(confidence float64, iteration int, consistency float64) float64 {
	persistence := math.Min(convergenceIterationCap, float64(iteration)*convergenceIterationStep)
	return math.Min(1.0, confidence+persistence+convergenceConsistencyWeight*consistency)
}

// thoughtConsistency measures how much the session's thought
// confidences agree with one another.
//
// Description:
//
//	Consistency is one minus the standard deviation of the thought
//	confidences, floored at zero. Tight agreement approaches 1.0 and
//	scattered confidences fall toward zero. With fewer than two
//	thoughts there is no spread to measure, so a neutral default is
//	returned.
//
// Outputs:
//
//	float64 - Consistency in [0.0, 1.0]
func thoughtConsistency(thoughts []Thought) float64 {
	if len(thoughts) < 2 {
		return defaultConsistency
	}

	var sum float64
	for _, th := range thoughts {
		sum += th.Confidence
	}
	mean := sum / float64(len(thoughts))

	var variance float64
	for _, th := range thoughts {
		d := th.Confidence - mean
		variance += d * d
	}
	variance /= float64(len(thoughts))

	return math.Max(0.0, 1.0-math.Sqrt(variance))
}
