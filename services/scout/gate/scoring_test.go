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
	"math"
	"strings"
	"testing"

	"github.com/AleutianAI/AleutianScout/services/scout/evidence"
)

func TestHeuristicScorer_Score(t *testing.T) {
	scorer := HeuristicScorer{}

	tests := []struct {
		name    string
		payload evidence.Payload
		want    float64
	}{
		{
			name:    "error text scores low",
			payload: evidence.TextPayload("error: permission denied"),
			want:    0.3,
		},
		{
			name:    "not found scores low",
			payload: evidence.TextPayload("the symbol was not found anywhere"),
			want:    0.3,
		},
		{
			name:    "failure markers are case insensitive",
			payload: evidence.TextPayload("ERROR: boom"),
			want:    0.3,
		},
		{
			name:    "failure markers win over length",
			payload: evidence.TextPayload("error: " + strings.Repeat("x", 200)),
			want:    0.3,
		},
		{
			name:    "substantial text scores high",
			payload: evidence.TextPayload(strings.Repeat("a", 101)),
			want:    0.9,
		},
		{
			name:    "exactly threshold length stays neutral",
			payload: evidence.TextPayload(strings.Repeat("a", 100)),
			want:    0.7,
		},
		{
			name:    "short clean text is neutral",
			payload: evidence.TextPayload("ok"),
			want:    0.7,
		},
		{
			name:    "structured records score flat",
			payload: evidence.RecordPayload(map[string]any{"status": "done"}),
			want:    0.8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorer.Score(evidence.KindReadFile, tt.payload)
			if got != tt.want {
				t.Errorf("Score(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestMarkerExtractor_Extract(t *testing.T) {
	extractor := MarkerExtractor{}

	hasInsight := func(insights []string, want string) bool {
		for _, ins := range insights {
			if ins == want {
				return true
			}
		}
		return false
	}

	t.Run("failure language is tagged", func(t *testing.T) {
		insights := extractor.Extract(evidence.KindSearch, evidence.TextPayload("build FAILED with 3 errors"))
		if !hasInsight(insights, InsightErrorsPresent) {
			t.Errorf("Extract missing %q, got %v", InsightErrorsPresent, insights)
		}
	})

	t.Run("configuration mentions are tagged", func(t *testing.T) {
		insights := extractor.Extract(evidence.KindReadFile, evidence.TextPayload("settings live in app.yaml"))
		if !hasInsight(insights, InsightConfigFiles) {
			t.Errorf("Extract missing %q, got %v", InsightConfigFiles, insights)
		}
	})

	t.Run("source structure is tagged", func(t *testing.T) {
		insights := extractor.Extract(evidence.KindReadFile, evidence.TextPayload("package maincode\n\nfunc run() {}"))
		if !hasInsight(insights, InsightSourceLayout) {
			t.Errorf("Extract missing %q, got %v", InsightSourceLayout, insights)
		}
	})

	t.Run("large results are tagged", func(t *testing.T) {
		insights := extractor.Extract(evidence.KindSearch, evidence.TextPayload(strings.Repeat("m", 501)))
		if !hasInsight(insights, InsightLargeResult) {
			t.Errorf("Extract missing %q, got %v", InsightLargeResult, insights)
		}
	})

	t.Run("structured records get a single tag", func(t *testing.T) {
		insights := extractor.Extract(evidence.KindRunCommand, evidence.RecordPayload(map[string]any{"exit": 0}))
		if len(insights) != 1 || insights[0] != InsightStructured {
			t.Errorf("Extract = %v, want [%s]", insights, InsightStructured)
		}
	})

	t.Run("clean short text yields nothing", func(t *testing.T) {
		insights := extractor.Extract(evidence.KindListDir, evidence.TextPayload("two entries"))
		if len(insights) != 0 {
			t.Errorf("Extract = %v, want empty", insights)
		}
	})
}

func TestRelevanceFor(t *testing.T) {
	tests := []struct {
		name       string
		kind       evidence.ActionKind
		phase      evidence.Phase
		confidence float64
		want       float64
	}{
		{"deep reasoning is always relevant", evidence.KindDeepReason, evidence.PhaseExplore, 0.0, 0.95},
		{"exploration fits the explore phase", evidence.KindReadFile, evidence.PhaseExplore, 0.0, 0.9},
		{"exploration is neutral in think", evidence.KindSearch, evidence.PhaseThink, 0.9, 0.6},
		{"confident mutation fits execute", evidence.KindWriteFile, evidence.PhaseExecute, 0.8, 0.9},
		{"uncertain mutation is penalized in execute", evidence.KindWriteFile, evidence.PhaseExecute, 0.5, 0.5},
		{"mutation outside execute is neutral", evidence.KindRunCommand, evidence.PhaseExplore, 0.9, 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := relevanceFor(tt.kind, tt.phase, tt.confidence)
			if got != tt.want {
				t.Errorf("relevanceFor(%s, %s, %v) = %v, want %v",
					tt.kind, tt.phase, tt.confidence, got, tt.want)
			}
		})
	}
}

func TestSufficientFor(t *testing.T) {
	t.Run("exploration never needs prior evidence", func(t *testing.T) {
		if !sufficientFor(evidence.KindReadFile, evidence.Summary{}) {
			t.Error("sufficientFor(READ_FILE, empty) = false, want true")
		}
	})

	t.Run("mutation needs confident volume", func(t *testing.T) {
		thin := evidence.Summary{TotalEntries: 6, ConfidenceScore: 0.8}
		if sufficientFor(evidence.KindWriteFile, thin) {
			t.Error("sufficientFor at exactly 0.8 confidence = true, want false")
		}

		few := evidence.Summary{TotalEntries: 5, ConfidenceScore: 0.9}
		if sufficientFor(evidence.KindWriteFile, few) {
			t.Error("sufficientFor at exactly 5 entries = true, want false")
		}

		ready := evidence.Summary{TotalEntries: 6, ConfidenceScore: 0.9}
		if !sufficientFor(evidence.KindWriteFile, ready) {
			t.Error("sufficientFor(6 entries, 0.9) = false, want true")
		}
	})

	t.Run("other actions need any evidence at all", func(t *testing.T) {
		if sufficientFor(evidence.KindDeepReason, evidence.Summary{}) {
			t.Error("sufficientFor(DEEP_REASON, empty) = true, want false")
		}
		if !sufficientFor(evidence.KindDeepReason, evidence.Summary{TotalEntries: 1}) {
			t.Error("sufficientFor(DEEP_REASON, 1 entry) = false, want true")
		}
	})
}

func TestCombinedScore(t *testing.T) {
	t.Run("sufficient evidence blends without penalty", func(t *testing.T) {
		got := combinedScore(0.9, 0.7, true)
		if math.Abs(got-0.8) > 1e-9 {
			t.Errorf("combinedScore(0.9, 0.7, true) = %v, want 0.8", got)
		}
	})

	t.Run("insufficient evidence is penalized", func(t *testing.T) {
		got := combinedScore(0.9, 0.7, false)
		if math.Abs(got-0.64) > 1e-9 {
			t.Errorf("combinedScore(0.9, 0.7, false) = %v, want 0.64", got)
		}
	})

	t.Run("score is capped at one", func(t *testing.T) {
		if got := combinedScore(1.5, 1.0, true); got != 1.0 {
			t.Errorf("combinedScore(1.5, 1.0, true) = %v, want 1.0", got)
		}
	})
}
