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
	"math"
	"strings"
	"testing"
	"time"
)

func seedEntries(s *Store, n int, confidence float64) {
	for i := 0; i < n; i++ {
		s.AddEntry(Entry{
			Kind:       KindReadFile,
			Query:      fmt.Sprintf("file-%d.go", i),
			Payload:    TextPayload("content"),
			Confidence: confidence,
		})
	}
}

func TestStore_ToughReasoning(t *testing.T) {
	t.Run("stops at the first pass crossing the threshold", func(t *testing.T) {
		store := NewStore(fixedClock())
		seedEntries(store, 5, 1.0)

		// base 1.0, volume 0.5: pass confidences run 0.55, 0.60, 0.65...
		r := store.ToughReasoning(5, 0.6)
		if r.Iterations != 2 {
			t.Errorf("Iterations = %d, want 2", r.Iterations)
		}
		if !r.MetThreshold {
			t.Error("MetThreshold = false, want true")
		}
		if r.Confidence < 0.6 || r.Confidence >= 0.65 {
			t.Errorf("Confidence = %v, want in [0.6, 0.65)", r.Confidence)
		}
	})

	t.Run("saturated log can finish in one pass", func(t *testing.T) {
		store := NewStore(fixedClock())
		seedEntries(store, 10, 1.0)

		r := store.ToughReasoning(5, 0.85)
		if r.Iterations != 1 {
			t.Errorf("Iterations = %d, want 1", r.Iterations)
		}
		if r.Confidence != 1.0 {
			t.Errorf("Confidence = %v, want clamped to 1.0", r.Confidence)
		}
	})

	t.Run("budget below one is clamped to one pass", func(t *testing.T) {
		store := NewStore(fixedClock())

		r := store.ToughReasoning(0, 0.9)
		if r.Iterations != 1 {
			t.Errorf("Iterations = %d, want 1", r.Iterations)
		}
		if r.MetThreshold {
			t.Error("MetThreshold = true on an empty store, want false")
		}
		if !strings.Contains(r.Conclusion, "No evidence") {
			t.Errorf("Conclusion = %q, want the empty-store assessment", r.Conclusion)
		}
	})

	t.Run("unreachable threshold runs the full budget", func(t *testing.T) {
		store := NewStore(fixedClock())
		seedEntries(store, 3, 0.5)

		r := store.ToughReasoning(3, 0.9)
		if r.Iterations != 3 {
			t.Errorf("Iterations = %d, want 3", r.Iterations)
		}
		if len(r.Steps) != 3 {
			t.Errorf("len(Steps) = %d, want one line per pass", len(r.Steps))
		}
		if r.MetThreshold {
			t.Error("MetThreshold = true, want false")
		}
	})

	t.Run("persistence bonus caps at 0.2", func(t *testing.T) {
		store := NewStore(fixedClock())

		// Empty store: confidence is the persistence bonus alone.
		r := store.ToughReasoning(10, 0.99)
		if r.Iterations != 10 {
			t.Errorf("Iterations = %d, want 10", r.Iterations)
		}
		if r.Confidence != 0.2 {
			t.Errorf("Confidence = %v, want 0.2 (capped persistence)", r.Confidence)
		}
	})

	t.Run("elapsed time adds a capped bonus", func(t *testing.T) {
		base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		var elapsed time.Duration
		store := NewStore(WithNow(func() time.Time { return base.Add(elapsed) }))

		elapsed = 30 * time.Second
		r := store.ToughReasoning(1, 0.99)
		// Empty store: 0.05 persistence + 0.1 capped elapsed bonus.
		if math.Abs(r.Confidence-0.15) > 1e-9 {
			t.Errorf("Confidence = %v, want 0.15", r.Confidence)
		}
	})

	t.Run("threshold above one still allows a clamped-confidence stop", func(t *testing.T) {
		store := NewStore(fixedClock())
		seedEntries(store, 10, 1.0)

		r := store.ToughReasoning(3, 5.0)
		if r.Iterations != 1 {
			t.Errorf("Iterations = %d, want 1 (threshold clamped to 1.0)", r.Iterations)
		}
		if !r.MetThreshold {
			t.Error("MetThreshold = false, want true at confidence 1.0")
		}
	})

	t.Run("reasoning never mutates the store", func(t *testing.T) {
		store := NewStore(fixedClock())
		seedEntries(store, 5, 1.0)

		store.ToughReasoning(5, 0.99)
		if store.Len() != 5 {
			t.Errorf("Len() = %d after reasoning, want 5", store.Len())
		}
		if store.Phase() != PhaseExplore {
			t.Errorf("Phase() = %s after reasoning, want EXPLORE", store.Phase())
		}
	})
}

func TestStore_ToughReasoning_PassThemes(t *testing.T) {
	// An unreachable threshold forces the cycle to end on a chosen pass,
	// exposing that pass's themed conclusion.
	store := NewStore(fixedClock())
	seedEntries(store, 5, 1.0)

	tests := []struct {
		passes int
		want   string
	}{
		{1, "Scope assessment"},
		{2, "Evidence quality"},
		{3, "dominated by files"},
		{4, "entries/sec"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("pass %d", tt.passes), func(t *testing.T) {
			r := store.ToughReasoning(tt.passes, 1.0)
			if !strings.Contains(r.Conclusion, tt.want) {
				t.Errorf("Conclusion = %q, want substring %q", r.Conclusion, tt.want)
			}
		})
	}
}

func TestStore_ToughReasoning_BalancedActivity(t *testing.T) {
	store := NewStore(fixedClock())
	store.AddEntry(Entry{Kind: KindReadFile, Query: "a", Payload: TextPayload("a"), Confidence: 0.5})
	store.AddEntry(Entry{Kind: KindSearch, Query: "b", Payload: TextPayload("b"), Confidence: 0.5})

	r := store.ToughReasoning(3, 1.0)
	if !strings.Contains(r.Conclusion, "balanced") {
		t.Errorf("Conclusion = %q, want balanced-activity wording on a tie", r.Conclusion)
	}
}
