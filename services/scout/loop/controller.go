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
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/AleutianScout/services/scout/events"
	"github.com/AleutianAI/AleutianScout/services/scout/evidence"
	"github.com/AleutianAI/AleutianScout/services/scout/gate"
)

const (
	// broadExplorationEntryFloor is the evidence volume below which an
	// EXPLORE iteration maps the workspace broadly.
	broadExplorationEntryFloor = 3

	// deepReasoningConfidenceCeiling is the confidence below which a
	// THINK iteration runs a reasoning cycle.
	deepReasoningConfidenceCeiling = 0.7

	// decideConfidenceFloor is the confidence at which an iteration may
	// decide regardless of phase.
	decideConfidenceFloor = 0.8

	// decideIterationFloor is the iteration at which a session decides
	// even without confident evidence.
	decideIterationFloor = 5

	// deepReasoningBudget and deepReasoningThreshold parameterize the
	// reasoning cycle run by StrategyDeepReasoning.
	deepReasoningBudget    = 3
	deepReasoningThreshold = 0.8

	// richResultThreshold is the registered-result length above which
	// the reflection reads it as substantial.
	richResultThreshold = 200

	// Thought confidences by origin.
	taskThoughtConfidence        = 0.5
	explorationThoughtConfidence = 0.6
	neutralResultConfidence      = 0.6
	richResultConfidence         = 0.85
	failedResultConfidence       = 0.3
	errorThoughtConfidence       = 0.2

	// knowledgePreviewLen bounds registered results stored in Knowledge.
	knowledgePreviewLen = 200

	// thoughtPreviewLen bounds thought previews in emitted events.
	thoughtPreviewLen = 80
)

// Controller drives an investigation session iteration by iteration.
//
// Description:
//
//	Each iteration reflects on any registered action result, picks a
//	strategy from the evidence state, executes it, and re-checks
//	convergence. The controller reads and reasons over the evidence
//	store and asks the gate for the final decision; it never performs
//	workspace actions. Callers feed external action results back in
//	with RegisterActionResult between iterations.
//
// Thread Safety:
//
//	All methods are safe for concurrent use. Run itself must not be
//	called concurrently on the same controller.
type Controller struct {
	store   *evidence.Store
	gate    *gate.Gate
	emitter *events.Emitter
	pacer   Pacer

	mu         sync.Mutex
	state      Context
	thoughtSeq int

	stopRequested atomic.Bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithPacer replaces the default no-op pacer.
func WithPacer(p Pacer) Option {
	return func(c *Controller) {
		if p != nil {
			c.pacer = p
		}
	}
}

// WithEmitter attaches an event emitter. Without one the controller
// stays silent.
func WithEmitter(em *events.Emitter) Option {
	return func(c *Controller) {
		c.emitter = em
	}
}

// NewController creates a controller over the given store and gate.
//
// Inputs:
//
//	store - The evidence store to read and reason over. Must not be nil.
//	g     - The gate that produces final decisions. Must not be nil.
//	opts  - Optional configuration.
//
// Outputs:
//
//	*Controller - The configured controller, or nil if store or g is nil.
func NewController(store *evidence.Store, g *gate.Gate, opts ...Option) *Controller {
	if store == nil || g == nil {
		return nil
	}

	c := &Controller{
		store: store,
		gate:  g,
		pacer: NopPacer{},
	}
	c.state.Knowledge = make(map[string]string)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize starts a fresh session for a task.
//
// Description:
//
//	Resets the working context and seeds two thoughts: a restatement
//	of the objective and an assessment of the evidence the session
//	starts from.
func (c *Controller) Initialize(task string) {
	summary := c.store.GenerateSummary()

	c.mu.Lock()
	c.state = Context{Task: task, Knowledge: make(map[string]string)}
	c.thoughtSeq = 0
	c.mu.Unlock()
	c.stopRequested.Store(false)

	c.logThought(gate.ThoughtThink, fmt.Sprintf("Objective: %s", task), taskThoughtConfidence)

	if summary.TotalEntries == 0 {
		c.logThought(gate.ThoughtThink,
			"The evidence log is empty; exploration must come before any conclusion.", 0.0)
	} else {
		c.logThought(gate.ThoughtThink,
			fmt.Sprintf("Prior evidence: %d entries at %.0f%% mean confidence in the %s phase.",
				summary.TotalEntries, summary.ConfidenceScore*100, c.store.Phase()),
			summary.ConfidenceScore)
	}
}

// Run iterates until a decision, convergence, a stop request, or the
// budget runs out.
//
// Description:
//
//	Each iteration classifies the evidence state into a strategy:
//	broad exploration while the log is nearly empty, deep reasoning
//	when the analysis phase lacks confidence, deciding once
//	confidence or iteration count is high enough, and targeted
//	exploration otherwise. A non-deciding iteration then reflects on
//	any pending registered result and recomputes the convergence
//	score; crossing its threshold ends the session with a decision.
//	A session that exhausts its budget or is stopped still decides
//	on whatever evidence it has.
//
//	An iteration that fails is recorded as a low-confidence
//	reflection and the session continues with the next one.
//
// Inputs:
//
//	ctx           - Cancels the session between iterations.
//	maxIterations - The iteration budget. Values below 1 are clamped to 1.
//
// Outputs:
//
//	Result - The decision, reasoning record, and iteration count.
//	error  - Context cancellation; nil otherwise.
func (c *Controller) Run(ctx context.Context, maxIterations int) (Result, error) {
	if maxIterations < 1 {
		slog.Warn("iteration budget below 1, clamping",
			slog.Int("requested", maxIterations))
		maxIterations = 1
	}

	start := time.Now()
	c.emitSessionStart(maxIterations)

	var (
		iterations int
		converged  bool
		decision   *gate.Decision
	)

	for i := 1; i <= maxIterations; i++ {
		if c.stopRequested.Load() {
			slog.Info("stop requested, ending the session early", slog.Int("iteration", i))
			break
		}

		select {
		case <-ctx.Done():
			c.emitSessionEnd(start, iterations, false, ctx.Err())
			return c.buildResult(nil, iterations, false), ctx.Err()
		default:
		}

		if err := c.pacer.Pause(ctx); err != nil {
			c.emitSessionEnd(start, iterations, false, err)
			return c.buildResult(nil, iterations, false), err
		}

		iterations = i
		c.setIteration(i)

		strategy, d, err := c.runIteration(i)
		if err != nil {
			c.logThought(gate.ThoughtReflect,
				fmt.Sprintf("Iteration %d failed: %v. Continuing with reduced confidence.", i, err),
				errorThoughtConfidence)
			c.emitError(err, i)
			continue
		}
		if d != nil {
			decision = d
			break
		}

		conv := c.updateConvergence(i)
		c.emitIterationComplete(i, strategy, conv)

		if conv >= convergenceThreshold {
			converged = true
			dd := c.decide(fmt.Sprintf("Convergence reached %.2f; the evidence is settled enough to decide.", conv))
			decision = &dd
			break
		}
	}

	if decision == nil {
		d := c.decide("Iteration budget exhausted; deciding on the evidence collected so far.")
		decision = &d
	}

	slog.Info("session complete",
		slog.Int("iterations", iterations),
		slog.Bool("converged", converged),
		slog.Float64("confidence", decision.Confidence))

	c.emitSessionEnd(start, iterations, converged, nil)
	return c.buildResult(decision, iterations, converged), nil
}

// RegisterActionResult hands an external action result to the session.
//
// The next iteration reflects on it and clears it. Registering again
// before that overwrites the unreflected value.
func (c *Controller) RegisterActionResult(result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.PendingResult = result
}

// SetFocus narrows targeted exploration to the given area.
func (c *Controller) SetFocus(focus string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Focus = focus
}

// Stop requests a cooperative stop. The session ends at the next
// iteration boundary and still produces a decision.
func (c *Controller) Stop() {
	c.stopRequested.Store(true)
}

// Snapshot returns a deep copy of the session context.
func (c *Controller) Snapshot() Context {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.state
	out.Knowledge = make(map[string]string, len(c.state.Knowledge))
	for k, v := range c.state.Knowledge {
		out.Knowledge[k] = v
	}
	out.Thoughts = make([]Thought, len(c.state.Thoughts))
	copy(out.Thoughts, c.state.Thoughts)
	return out
}

// Thoughts returns a copy of the session's reasoning record.
func (c *Controller) Thoughts() []Thought {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Thought, len(c.state.Thoughts))
	copy(out, c.state.Thoughts)
	return out
}

// =============================================================================
// Iteration Internals
// =============================================================================

// runIteration executes one iteration and returns the strategy taken
// and, for deciding iterations, the decision. A deciding iteration
// stops immediately and leaves any pending registered result for the
// caller to inspect. Panics are converted to errors so a bad iteration
// cannot take down the session.
func (c *Controller) runIteration(iteration int) (strategy Strategy, decision *gate.Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("iteration %d panicked: %v", iteration, r)
		}
	}()

	summary := c.store.GenerateSummary()
	phase := c.store.Phase()
	strategy = classify(summary, phase, iteration)

	c.logThought(gate.ThoughtThink,
		fmt.Sprintf("Iteration %d: choosing %s (%d entries, %.0f%% confidence, %s phase).",
			iteration, strategy, summary.TotalEntries, summary.ConfidenceScore*100, phase),
		summary.ConfidenceScore)

	switch strategy {
	case StrategyBroadExploration:
		c.explore(iteration, broadAvenues)
	case StrategyDeepReasoning:
		c.deepReason()
	case StrategyDecide:
		d := c.decide(fmt.Sprintf("Iteration %d: the evidence supports a decision.", iteration))
		return strategy, &d, nil
	case StrategyTargetedExploration:
		c.explore(iteration, c.targetedAvenues(summary))
	}

	c.processPendingResult()
	return strategy, nil, nil
}

// classify picks the strategy for an iteration. Rules are evaluated in
// order and the first match wins.
func classify(summary evidence.Summary, phase evidence.Phase, iteration int) Strategy {
	switch {
	case summary.TotalEntries < broadExplorationEntryFloor && phase == evidence.PhaseExplore:
		return StrategyBroadExploration
	case summary.ConfidenceScore < deepReasoningConfidenceCeiling && phase == evidence.PhaseThink:
		return StrategyDeepReasoning
	case summary.ConfidenceScore >= decideConfidenceFloor || iteration >= decideIterationFloor:
		return StrategyDecide
	default:
		return StrategyTargetedExploration
	}
}

// explore logs one EXPLORE thought per avenue, records the avenues in
// the knowledge map, and closes with a REFLECT thought. Exploration
// plans avenues only; running them is the caller's business.
func (c *Controller) explore(iteration int, avenues []string) {
	for _, avenue := range avenues {
		c.logThought(gate.ThoughtExplore, avenue, explorationThoughtConfidence)
	}

	c.setKnowledge(fmt.Sprintf("exploration:iteration-%d", iteration), strings.Join(avenues, "; "))
	c.logThought(gate.ThoughtReflect,
		fmt.Sprintf("Exploration pass %d noted %d avenues to pursue.", iteration, len(avenues)),
		explorationThoughtConfidence)
}

// deepReason runs a bounded reasoning cycle and records its conclusion.
func (c *Controller) deepReason() {
	r := c.store.ToughReasoning(deepReasoningBudget, deepReasoningThreshold)

	c.setKnowledge("reasoning:conclusion", r.Conclusion)
	c.logThought(gate.ThoughtThink,
		fmt.Sprintf("Reasoning cycle (%d passes): %s", r.Iterations, r.Conclusion),
		r.Confidence)

	if c.emitter != nil {
		c.emitter.Emit(events.TypeReasoningPass, events.ReasoningPassData{
			Iterations:   r.Iterations,
			Confidence:   r.Confidence,
			MetThreshold: r.MetThreshold,
			Conclusion:   r.Conclusion,
		})
	}
}

// decide asks the gate for the final decision and logs it.
func (c *Controller) decide(reason string) gate.Decision {
	d := c.gate.FinalDecision()
	c.logThought(gate.ThoughtExecute,
		fmt.Sprintf("%s Verdict: %s", reason, d.Decision), d.Confidence)
	return d
}

// targetedAvenues derives exploration avenues from evidence gaps.
func (c *Controller) targetedAvenues(summary evidence.Summary) []string {
	c.mu.Lock()
	focus := c.state.Focus
	c.mu.Unlock()

	var avenues []string
	if focus != "" {
		avenues = append(avenues, fmt.Sprintf("Concentrate on %s before widening the search", focus))
	}
	if summary.CountByCategory["files"] == 0 {
		avenues = append(avenues, "Read the files implicated by earlier findings")
	}
	if summary.CountByCategory["searches"] == 0 {
		avenues = append(avenues, "Search for the identifiers surfaced in earlier evidence")
	}
	if summary.CountByCategory["listings"] == 0 {
		avenues = append(avenues, "List the directories adjacent to known findings")
	}
	if len(avenues) == 0 {
		avenues = append(avenues, fallbackAvenues...)
	}
	return avenues
}

// processPendingResult reflects on a registered action result and
// clears it.
func (c *Controller) processPendingResult() {
	c.mu.Lock()
	pending := c.state.PendingResult
	c.state.PendingResult = ""
	c.mu.Unlock()

	if pending == "" {
		return
	}

	text, confidence := assessResult(pending)
	c.setKnowledge("result:latest", truncate(pending, knowledgePreviewLen))
	c.logThought(gate.ThoughtReflect, text, confidence)
}

// assessResult maps a registered result onto a reflection and its
// confidence.
func assessResult(result string) (string, float64) {
	lower := strings.ToLower(result)
	switch {
	case strings.Contains(lower, "error") || strings.Contains(lower, "not found"):
		return "The last action reported a failure; the affected area needs investigation before further changes.",
			failedResultConfidence
	case len(result) > richResultThreshold:
		return "The last action returned substantial output; the current approach can proceed.",
			richResultConfidence
	default:
		return "The last action completed with a modest result; continuing on the current path.",
			neutralResultConfidence
	}
}

// updateConvergence recomputes and stores the convergence score.
func (c *Controller) updateConvergence(iteration int) float64 {
	confidence := c.store.GenerateSummary().ConfidenceScore

	c.mu.Lock()
	defer c.mu.Unlock()

	conv := convergenceScore(confidence, iteration, thoughtConsistency(c.state.Thoughts))
	c.state.Convergence = conv
	return conv
}

// buildResult assembles the Run outcome.
func (c *Controller) buildResult(decision *gate.Decision, iterations int, converged bool) Result {
	res := Result{
		Thoughts:   c.Thoughts(),
		Iterations: iterations,
		Converged:  converged,
	}
	if decision != nil {
		res.Decision = *decision
		res.Confidence = decision.Confidence
	} else {
		res.Confidence = c.store.GenerateSummary().ConfidenceScore
	}
	return res
}

// =============================================================================
// Bookkeeping
// =============================================================================

// logThought appends a thought to the session record.
func (c *Controller) logThought(kind gate.ThoughtPhase, text string, confidence float64) Thought {
	c.mu.Lock()
	c.thoughtSeq++
	th := Thought{
		Ordinal:    c.thoughtSeq,
		Kind:       kind,
		Text:       text,
		Confidence: confidence,
		CreatedAt:  time.Now().UnixMilli(),
	}
	c.state.Thoughts = append(c.state.Thoughts, th)
	c.mu.Unlock()

	if c.emitter != nil {
		c.emitter.Emit(events.TypeThought, events.ThoughtData{
			Ordinal:    th.Ordinal,
			Kind:       string(kind),
			Confidence: confidence,
			Preview:    truncate(text, thoughtPreviewLen),
		})
	}
	return th
}

// setKnowledge writes a knowledge entry, creating the map if needed.
func (c *Controller) setKnowledge(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Knowledge == nil {
		c.state.Knowledge = make(map[string]string)
	}
	c.state.Knowledge[key] = value
}

// setIteration advances the iteration counter in state and emitter.
func (c *Controller) setIteration(i int) {
	c.mu.Lock()
	c.state.Iteration = i
	c.mu.Unlock()

	if c.emitter != nil {
		c.emitter.SetIteration(i)
	}
}

func (c *Controller) emitSessionStart(maxIterations int) {
	if c.emitter == nil {
		return
	}

	c.mu.Lock()
	task := c.state.Task
	c.mu.Unlock()

	c.emitter.Emit(events.TypeSessionStart, events.SessionStartData{
		Task:          task,
		MaxIterations: maxIterations,
	})
}

func (c *Controller) emitSessionEnd(start time.Time, iterations int, converged bool, err error) {
	if c.emitter == nil {
		return
	}

	data := events.SessionEndData{
		FinalPhase:    c.store.Phase(),
		Iterations:    iterations,
		TotalDuration: time.Since(start),
		Converged:     converged,
	}
	if err != nil {
		data.Error = err.Error()
	}
	c.emitter.Emit(events.TypeSessionEnd, data)
}

func (c *Controller) emitIterationComplete(i int, strategy Strategy, convergence float64) {
	if c.emitter == nil {
		return
	}
	c.emitter.Emit(events.TypeIterationComplete, events.IterationCompleteData{
		Iteration:   i,
		Strategy:    string(strategy),
		Convergence: convergence,
	})
}

func (c *Controller) emitError(err error, iteration int) {
	if c.emitter == nil {
		return
	}
	c.emitter.Emit(events.TypeError, events.ErrorData{
		Error:       err.Error(),
		Recoverable: true,
		Context: &events.ErrorContext{
			Phase:     c.store.Phase().String(),
			Iteration: iteration,
		},
	})
}

// truncate shortens s to at most max bytes, marking the cut.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
