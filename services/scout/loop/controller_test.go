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
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/AleutianScout/services/scout/events"
	"github.com/AleutianAI/AleutianScout/services/scout/evidence"
	"github.com/AleutianAI/AleutianScout/services/scout/gate"
)

// newTestController wires a controller over a pinned-clock store so
// elapsed-time bonuses stay at zero.
func newTestController(opts ...Option) (*Controller, *evidence.Store) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := evidence.NewStore(evidence.WithNow(func() time.Time { return fixed }))
	return NewController(store, gate.NewGate(store), opts...), store
}

// seedEntries inserts n read-file entries at the given confidence.
func seedEntries(s *evidence.Store, n int, confidence float64) {
	for i := 0; i < n; i++ {
		s.AddEntry(evidence.Entry{
			Kind:       evidence.KindReadFile,
			Query:      fmt.Sprintf("file-%d.go", i),
			Payload:    evidence.TextPayload("contents"),
			Confidence: confidence,
		})
	}
}

// countingPacer records how often it was consulted.
type countingPacer struct {
	calls int
}

func (p *countingPacer) Pause(context.Context) error {
	p.calls++
	return nil
}

func TestNewController(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := evidence.NewStore(evidence.WithNow(func() time.Time { return fixed }))

	if c := NewController(nil, gate.NewGate(store)); c != nil {
		t.Error("NewController(nil store) != nil, want nil")
	}
	if c := NewController(store, nil); c != nil {
		t.Error("NewController(nil gate) != nil, want nil")
	}
	if c := NewController(store, gate.NewGate(store)); c == nil {
		t.Error("NewController with valid inputs = nil, want a controller")
	}
}

func TestController_Initialize(t *testing.T) {
	t.Run("seeds an objective and an empty-log assessment", func(t *testing.T) {
		c, _ := newTestController()
		c.Initialize("trace the flaky websocket reconnect")

		thoughts := c.Thoughts()
		if len(thoughts) != 2 {
			t.Fatalf("Thoughts() returned %d thoughts, want 2", len(thoughts))
		}
		if !strings.Contains(thoughts[0].Text, "Objective:") {
			t.Errorf("first thought = %q, want the objective restatement", thoughts[0].Text)
		}
		if !strings.Contains(thoughts[1].Text, "empty") {
			t.Errorf("second thought = %q, want the empty-log assessment", thoughts[1].Text)
		}
		if thoughts[0].Kind != gate.ThoughtThink || thoughts[1].Kind != gate.ThoughtThink {
			t.Error("initialization thoughts are not both THINK")
		}
	})

	t.Run("assesses prior evidence when it exists", func(t *testing.T) {
		c, store := newTestController()
		seedEntries(store, 4, 0.8)
		c.Initialize("extend the cache layer")

		thoughts := c.Thoughts()
		if len(thoughts) != 2 {
			t.Fatalf("Thoughts() returned %d thoughts, want 2", len(thoughts))
		}
		if !strings.Contains(thoughts[1].Text, "Prior evidence: 4 entries") {
			t.Errorf("second thought = %q, want the prior-evidence assessment", thoughts[1].Text)
		}
	})

	t.Run("re-initializing resets the session", func(t *testing.T) {
		c, _ := newTestController()
		c.Initialize("first")
		c.RegisterActionResult("dangling")
		c.Initialize("second")

		snap := c.Snapshot()
		if snap.Task != "second" {
			t.Errorf("Task = %q, want %q", snap.Task, "second")
		}
		if snap.PendingResult != "" {
			t.Errorf("PendingResult = %q, want cleared", snap.PendingResult)
		}
		if len(snap.Thoughts) != 2 {
			t.Errorf("Thoughts carried over, got %d, want 2", len(snap.Thoughts))
		}
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		entries   int
		conf      float64
		phase     evidence.Phase
		iteration int
		want      Strategy
	}{
		{"empty explore goes broad", 0, 0.0, evidence.PhaseExplore, 1, StrategyBroadExploration},
		{"scarce evidence goes broad even when confident", 2, 0.9, evidence.PhaseExplore, 1, StrategyBroadExploration},
		{"uncertain think reasons deeply", 5, 0.6, evidence.PhaseThink, 1, StrategyDeepReasoning},
		{"deep reasoning outranks the iteration floor", 5, 0.6, evidence.PhaseThink, 7, StrategyDeepReasoning},
		{"confident evidence decides", 5, 0.85, evidence.PhaseExplore, 1, StrategyDecide},
		{"late iterations decide regardless", 5, 0.5, evidence.PhaseExplore, 5, StrategyDecide},
		{"middling explore targets gaps", 5, 0.75, evidence.PhaseExplore, 2, StrategyTargetedExploration},
		{"middling execute targets gaps", 5, 0.75, evidence.PhaseExecute, 2, StrategyTargetedExploration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := evidence.Summary{TotalEntries: tt.entries, ConfidenceScore: tt.conf}
			if got := classify(summary, tt.phase, tt.iteration); got != tt.want {
				t.Errorf("classify(%d entries, %.2f, %s, iter %d) = %s, want %s",
					tt.entries, tt.conf, tt.phase, tt.iteration, got, tt.want)
			}
		})
	}
}

func TestController_Run(t *testing.T) {
	t.Run("confident evidence decides in exactly one iteration", func(t *testing.T) {
		c, store := newTestController()
		seedEntries(store, 4, 0.95)
		c.Initialize("confirm the fix is safe to apply")

		res, err := c.Run(context.Background(), 1)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if res.Iterations != 1 {
			t.Errorf("Iterations = %d, want 1", res.Iterations)
		}
		if !strings.Contains(res.Decision.Decision, "high confidence") {
			t.Errorf("Decision = %q, want a high confidence verdict", res.Decision.Decision)
		}

		last := res.Thoughts[len(res.Thoughts)-1]
		if last.Kind != gate.ThoughtExecute {
			t.Errorf("last thought kind = %s, want EXECUTE", last.Kind)
		}
	})

	t.Run("an empty log explores broadly and decides on budget", func(t *testing.T) {
		c, _ := newTestController()
		c.Initialize("understand the repository layout")

		res, err := c.Run(context.Background(), 2)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if res.Iterations != 2 {
			t.Errorf("Iterations = %d, want the full budget of 2", res.Iterations)
		}
		if res.Converged {
			t.Error("Converged = true on an empty log, want false")
		}
		if res.Decision.Decision != gate.AssessmentInsufficient {
			t.Errorf("Decision = %q, want %q", res.Decision.Decision, gate.AssessmentInsufficient)
		}

		snap := c.Snapshot()
		for _, key := range []string{"exploration:iteration-1", "exploration:iteration-2"} {
			if _, ok := snap.Knowledge[key]; !ok {
				t.Errorf("Knowledge missing %q", key)
			}
		}

		explores := 0
		for _, th := range res.Thoughts {
			if th.Kind == gate.ThoughtExplore {
				explores++
			}
		}
		if explores != 2*len(broadAvenues) {
			t.Errorf("EXPLORE thoughts = %d, want %d", explores, 2*len(broadAvenues))
		}
	})

	t.Run("settled evidence converges before the budget", func(t *testing.T) {
		c, store := newTestController()
		seedEntries(store, 6, 0.75)
		c.Initialize("verify the migration plan")

		res, err := c.Run(context.Background(), 10)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if !res.Converged {
			t.Fatal("Converged = false, want true")
		}
		if res.Iterations != 1 {
			t.Errorf("Iterations = %d, want 1", res.Iterations)
		}
		if c.Snapshot().Convergence < convergenceThreshold {
			t.Errorf("Convergence = %v, want >= %v", c.Snapshot().Convergence, convergenceThreshold)
		}
	})

	t.Run("an uncertain think phase reasons deeply", func(t *testing.T) {
		c, store := newTestController()
		seedEntries(store, 4, 0.5)
		store.AdvancePhase()
		c.Initialize("weigh the competing designs")

		res, err := c.Run(context.Background(), 1)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}

		found := false
		for _, th := range res.Thoughts {
			if strings.Contains(th.Text, "Reasoning cycle") {
				found = true
			}
		}
		if !found {
			t.Error("no reasoning-cycle thought was logged")
		}
		if _, ok := c.Snapshot().Knowledge["reasoning:conclusion"]; !ok {
			t.Error("Knowledge missing the reasoning conclusion")
		}
	})

	t.Run("registered results are reflected once and cleared", func(t *testing.T) {
		c, _ := newTestController()
		c.Initialize("stabilize the importer")
		c.RegisterActionResult("error: connection refused")

		res, err := c.Run(context.Background(), 1)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}

		var reflected *Thought
		for i := range res.Thoughts {
			if strings.Contains(res.Thoughts[i].Text, "reported a failure") {
				reflected = &res.Thoughts[i]
			}
		}
		if reflected == nil {
			t.Fatal("no reflection thought for the registered result")
		}
		if reflected.Confidence != failedResultConfidence {
			t.Errorf("reflection confidence = %v, want %v", reflected.Confidence, failedResultConfidence)
		}

		snap := c.Snapshot()
		if snap.PendingResult != "" {
			t.Errorf("PendingResult = %q, want cleared", snap.PendingResult)
		}
		if snap.Knowledge["result:latest"] != "error: connection refused" {
			t.Errorf("Knowledge[result:latest] = %q, want the raw result", snap.Knowledge["result:latest"])
		}
	})

	t.Run("a deciding iteration leaves pending results untouched", func(t *testing.T) {
		c, store := newTestController()
		seedEntries(store, 4, 0.95)
		c.Initialize("decide now")
		c.RegisterActionResult("late arrival")

		if _, err := c.Run(context.Background(), 1); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if got := c.Snapshot().PendingResult; got != "late arrival" {
			t.Errorf("PendingResult = %q, want preserved past the deciding iteration", got)
		}
	})

	t.Run("a second registration overwrites an unreflected one", func(t *testing.T) {
		c, _ := newTestController()
		c.Initialize("anything")
		c.RegisterActionResult("first")
		c.RegisterActionResult("second")

		if got := c.Snapshot().PendingResult; got != "second" {
			t.Errorf("PendingResult = %q, want %q", got, "second")
		}
	})

	t.Run("a stop request still produces a decision", func(t *testing.T) {
		c, _ := newTestController()
		c.Initialize("halt early")
		c.Stop()

		res, err := c.Run(context.Background(), 5)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if res.Iterations != 0 {
			t.Errorf("Iterations = %d, want 0 after an immediate stop", res.Iterations)
		}
		if res.Decision.Decision == "" {
			t.Error("Decision is empty, want a forced final decision")
		}
	})

	t.Run("cancellation aborts without a decision", func(t *testing.T) {
		c, _ := newTestController()
		c.Initialize("cancelled task")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res, err := c.Run(ctx, 5)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run error = %v, want context.Canceled", err)
		}
		if res.Decision.Decision != "" {
			t.Errorf("Decision = %q, want empty after cancellation", res.Decision.Decision)
		}
	})

	t.Run("the pacer is consulted every iteration", func(t *testing.T) {
		pacer := &countingPacer{}
		c, _ := newTestController(WithPacer(pacer))
		c.Initialize("count pauses")

		if _, err := c.Run(context.Background(), 2); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if pacer.calls != 2 {
			t.Errorf("pacer calls = %d, want 2", pacer.calls)
		}
	})

	t.Run("an iteration budget below one is clamped", func(t *testing.T) {
		c, store := newTestController()
		seedEntries(store, 4, 0.95)
		c.Initialize("clamp check")

		res, err := c.Run(context.Background(), 0)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if res.Iterations != 1 {
			t.Errorf("Iterations = %d, want 1 after clamping", res.Iterations)
		}
	})
}

func TestController_Events(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := evidence.NewStore(evidence.WithNow(func() time.Time { return fixed }))
	em := events.NewEmitter()
	g := gate.NewGate(store, gate.WithEmitter(em))
	c := NewController(store, g, WithEmitter(em))

	seedEntries(store, 4, 0.95)
	c.Initialize("emit a full session")

	if _, err := c.Run(context.Background(), 1); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := em.GetBufferByType(events.TypeSessionStart); len(got) != 1 {
		t.Errorf("session_start events = %d, want 1", len(got))
	}
	if got := em.GetBufferByType(events.TypeSessionEnd); len(got) != 1 {
		t.Errorf("session_end events = %d, want 1", len(got))
	}
	if got := em.GetBufferByType(events.TypeThought); len(got) == 0 {
		t.Error("no thought events were emitted")
	}
	if got := em.GetBufferByType(events.TypeDecision); len(got) != 1 {
		t.Errorf("decision events = %d, want 1", len(got))
	}
}

func TestAssessResult(t *testing.T) {
	tests := []struct {
		name     string
		result   string
		wantConf float64
	}{
		{"failure markers need investigation", "error: no such table", failedResultConfidence},
		{"missing targets need investigation", "symbol not found in any package", failedResultConfidence},
		{"substantial output supports proceeding", strings.Repeat("line of build output\n", 15), richResultConfidence},
		{"modest output is neutral", "done", neutralResultConfidence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, conf := assessResult(tt.result)
			if conf != tt.wantConf {
				t.Errorf("assessResult(%q) confidence = %v, want %v", tt.name, conf, tt.wantConf)
			}
		})
	}
}

func TestController_TargetedAvenues(t *testing.T) {
	t.Run("focus leads the avenue list", func(t *testing.T) {
		c, store := newTestController()
		seedEntries(store, 5, 0.75)
		c.Initialize("narrowed task")
		c.SetFocus("the session store")

		avenues := c.targetedAvenues(store.GenerateSummary())
		if len(avenues) == 0 || !strings.Contains(avenues[0], "the session store") {
			t.Errorf("avenues = %v, want the focus first", avenues)
		}
	})

	t.Run("covered categories fall back to generic avenues", func(t *testing.T) {
		c, store := newTestController()
		store.AddEntry(evidence.Entry{Kind: evidence.KindReadFile, Query: "a.go", Payload: evidence.TextPayload("x"), Confidence: 0.7})
		store.AddEntry(evidence.Entry{Kind: evidence.KindSearch, Query: "init", Payload: evidence.TextPayload("x"), Confidence: 0.7})
		store.AddEntry(evidence.Entry{Kind: evidence.KindListDir, Query: "src", Payload: evidence.TextPayload("x"), Confidence: 0.7})

		avenues := c.targetedAvenues(store.GenerateSummary())
		if len(avenues) != len(fallbackAvenues) {
			t.Errorf("avenues = %v, want the %d fallbacks", avenues, len(fallbackAvenues))
		}
	})
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short, 10) = %q, want unchanged", got)
	}
	got := truncate(strings.Repeat("x", 50), 20)
	if len(got) != 20 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncate long = %q, want 20 bytes ending in ellipsis", got)
	}
}
