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
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianScout/services/scout/events"
	"github.com/AleutianAI/AleutianScout/services/scout/evidence"
)

const (
	// decisionConfidenceFloor is the evidence confidence below which
	// FinalDecision runs a fallback reasoning cycle first.
	decisionConfidenceFloor = 0.8

	// fallbackReasoningBudget is the pass budget for the fallback cycle.
	fallbackReasoningBudget = 5

	// fallbackReasoningThreshold is the confidence the fallback cycle
	// tries to reach.
	fallbackReasoningThreshold = 0.85

	// highConfidenceFloor buckets a decision as high confidence.
	highConfidenceFloor = 0.9

	// moderateConfidenceFloor buckets a decision as moderate confidence.
	moderateConfidenceFloor = 0.7

	// noPriorConfidence is the confidence attached to the trace step
	// recorded when a task starts against an empty evidence log.
	noPriorConfidence = 0.3
)

// Decision assessment texts, fixed so callers can match on them.
const (
	// AssessmentHigh means the evidence supports acting immediately.
	AssessmentHigh = "high confidence: execute the plan"

	// AssessmentModerate means the evidence supports careful action.
	AssessmentModerate = "moderate confidence: proceed incrementally"

	// AssessmentInsufficient means more evidence is needed first.
	AssessmentInsufficient = "needs more analysis before acting"
)

// Action plans by decision bucket. The high and moderate plans are
// always exactly three steps.
var (
	executePlan = []string{
		"Execute the planned changes",
		"Validate the outcome against the gathered evidence",
		"Run tests to confirm no regressions",
	}

	incrementalPlan = []string{
		"Implement the change in small steps",
		"Verify each step against the evidence log",
		"Adjust the approach if verification fails",
	}

	analysisPlan = []string{
		"Continue exploring the areas with the least evidence",
		"Re-run deep reasoning once new evidence is collected",
	}
)

// Gate mediates between a caller and its workspace actions.
//
// Description:
//
//	A Gate wraps an evidence store and applies fixed decision rules:
//	prechecks consult the cache and score phase fit, reflections score
//	results into evidence entries and advance the investigation phase,
//	and the final decision buckets the accumulated confidence into an
//	assessment with an action plan. Every call appends a step to the
//	gate's per-task trace.
//
// Thread Safety:
//
//	All methods are safe for concurrent use.
type Gate struct {
	mu        sync.Mutex
	store     *evidence.Store
	scorer    ResultScorer
	extractor InsightExtractor
	emitter   *events.Emitter

	task    string
	steps   []Step
	stepSeq int
}

// Option configures a Gate.
type Option func(*Gate)

// WithScorer replaces the default result scorer.
func WithScorer(s ResultScorer) Option {
	return func(g *Gate) {
		if s != nil {
			g.scorer = s
		}
	}
}

// WithExtractor replaces the default insight extractor.
func WithExtractor(e InsightExtractor) Option {
	return func(g *Gate) {
		if e != nil {
			g.extractor = e
		}
	}
}

// WithEmitter attaches an event emitter. Without one the gate stays
// silent.
func WithEmitter(em *events.Emitter) Option {
	return func(g *Gate) {
		g.emitter = em
	}
}

// NewGate creates a gate over the given evidence store.
//
// Inputs:
//
//	store - The evidence store to consult and write to. Must not be nil.
//	opts  - Optional configuration.
//
// Outputs:
//
//	*Gate - The configured gate, or nil if store is nil.
func NewGate(store *evidence.Store, opts ...Option) *Gate {
	if store == nil {
		return nil
	}

	g := &Gate{
		store:     store,
		scorer:    HeuristicScorer{},
		extractor: MarkerExtractor{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Store returns the evidence store the gate operates on.
func (g *Gate) Store() *evidence.Store {
	return g.store
}

// Task returns the task set by the most recent InitializeTask call.
func (g *Gate) Task() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.task
}

// Steps returns a copy of the gate's trace in recording order.
func (g *Gate) Steps() []Step {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Step, len(g.steps))
	copy(out, g.steps)
	return out
}

// InitializeTask starts a fresh trace for a task.
//
// Description:
//
//	Clears any previous trace and records an initial assessment step
//	summarizing the current evidence base. When the store is empty an
//	additional step notes that no prior knowledge exists, so the trace
//	explains why exploration starts from nothing.
//
// Inputs:
//
//	task - The investigation objective in plain language.
func (g *Gate) InitializeTask(task string) {
	summary := g.store.GenerateSummary()

	g.mu.Lock()
	g.task = task
	g.steps = nil
	g.stepSeq = 0
	g.mu.Unlock()

	g.appendStep(StepAssessment, ThoughtThink,
		fmt.Sprintf("Task accepted: %s. The evidence log holds %d entries at %.0f%% mean confidence.",
			task, summary.TotalEntries, summary.ConfidenceScore*100),
		summary.ConfidenceScore)

	if summary.TotalEntries == 0 {
		g.appendStep(StepAssessment, ThoughtExplore,
			"No prior knowledge is available for this task; exploration should begin at the workspace root.",
			noPriorConfidence)
	}

	slog.Debug("gate initialized",
		slog.String("task", task),
		slog.Int("prior_entries", summary.TotalEntries))
}

// BeforeAction decides whether a proposed action is worth running.
//
// Description:
//
//	Checks the evidence cache first: a hit means the answer already
//	exists, so the verdict is not to proceed and the cached entry is
//	returned. Otherwise the action's phase fit and the evidence base
//	are scored and blended; the action proceeds when the combined
//	score clears the threshold. A missing query or path is treated as
//	empty rather than rejected, so malformed requests degrade to
//	neutral verdicts instead of errors.
//
// Inputs:
//
//	kind  - The proposed action kind.
//	query - What the action will look for.
//	path  - Optional location scope.
//
// Outputs:
//
//	Precheck - The verdict with its scores and reasoning.
func (g *Gate) BeforeAction(kind evidence.ActionKind, query, path string) Precheck {
	if cached, ok := g.store.Cached(kind, query, path); ok {
		pre := Precheck{
			Proceed:     false,
			Confidence:  cached.Confidence,
			Relevance:   cached.Relevance,
			Sufficient:  true,
			CacheHit:    true,
			CachedEntry: &cached,
			Reasoning: fmt.Sprintf("Cached evidence already answers %s %q; re-running it would add nothing.",
				kind, query),
		}

		g.appendStep(StepPrecheck, thoughtPhaseFor(g.store.Phase()), pre.Reasoning, pre.Confidence)
		g.emit(events.TypeCacheHit, events.CacheHitData{
			Kind:       kind,
			Query:      query,
			Path:       path,
			Confidence: cached.Confidence,
		})
		g.emitGateCheck(kind, query, pre)
		return pre
	}

	summary := g.store.GenerateSummary()
	phase := g.store.Phase()

	relevance := relevanceFor(kind, phase, summary.ConfidenceScore)
	sufficient := sufficientFor(kind, summary)
	combined := combinedScore(relevance, summary.ConfidenceScore, sufficient)

	pre := Precheck{
		Proceed:    combined > proceedThreshold,
		Confidence: combined,
		Relevance:  relevance,
		Sufficient: sufficient,
	}

	switch {
	case pre.Proceed:
		pre.Reasoning = fmt.Sprintf("%s %q fits the %s phase with relevance %.2f and a combined score of %.2f.",
			kind, query, phase, relevance, combined)
	case !sufficient:
		pre.Reasoning = fmt.Sprintf("%s %q is premature: the evidence base does not yet support it (combined score %.2f after penalty).",
			kind, query, combined)
	default:
		pre.Reasoning = fmt.Sprintf("%s %q scores too low against the current evidence (combined score %.2f).",
			kind, query, combined)
	}

	g.appendStep(StepPrecheck, thoughtPhaseFor(phase), pre.Reasoning, combined)
	g.emitGateCheck(kind, query, pre)
	return pre
}

// AfterResult folds an action result into the evidence log.
//
// Description:
//
//	Scores the result, extracts insight tags, and writes a single
//	evidence entry. The store is then consulted about a phase
//	transition; when one is advised the phase advances immediately.
//	Suggested next actions come from a fixed table keyed by the
//	pre-transition phase and the transition verdict.
//
// Inputs:
//
//	kind    - The action kind that produced the result.
//	query   - What the action looked for.
//	path    - Optional location scope.
//	payload - The result content.
//
// Outputs:
//
//	Reflection - The recorded entry, insights, and phase outcome.
func (g *Gate) AfterResult(kind evidence.ActionKind, query, path string, payload evidence.Payload) Reflection {
	preSummary := g.store.GenerateSummary()

	score := g.scorer.Score(kind, payload)
	insights := g.extractor.Extract(kind, payload)
	relevance := relevanceFor(kind, g.store.Phase(), preSummary.ConfidenceScore)

	entry := g.store.AddEntry(evidence.Entry{
		Kind:       kind,
		Query:      query,
		Path:       path,
		Payload:    payload,
		Confidence: score,
		Relevance:  relevance,
		Insights:   insights,
	})

	g.emit(events.TypeEvidenceAdded, events.EvidenceAddedData{
		Kind:       kind,
		Query:      query,
		Path:       path,
		Confidence: score,
		Timestamp:  entry.Timestamp,
	})

	phaseBefore := g.store.Phase()
	shouldTransition := g.store.ShouldTransitionPhase()

	phaseAfter := phaseBefore
	transitioned := false
	if shouldTransition {
		from, to, changed := g.store.AdvancePhase()
		phaseAfter = to
		transitioned = changed
		if changed {
			g.emit(events.TypePhaseTransition, events.PhaseTransitionData{
				FromPhase: from,
				ToPhase:   to,
				Reason:    "evidence thresholds reached after reflection",
			})
		}
	}

	thought := fmt.Sprintf("Recorded %s %q at %.2f confidence with %d insight(s).",
		kind, query, score, len(insights))
	if transitioned {
		thought += fmt.Sprintf(" Phase advanced from %s to %s.", phaseBefore, phaseAfter)
	}
	g.appendStep(StepReflection, ThoughtReflect, thought, score)

	return Reflection{
		Entry:            entry,
		Insights:         insights,
		ShouldTransition: shouldTransition,
		Transitioned:     transitioned,
		PhaseBefore:      phaseBefore,
		PhaseAfter:       phaseAfter,
		NextActions:      nextActions(phaseBefore, shouldTransition),
	}
}

// FinalDecision produces the gate's verdict on the task.
//
// Description:
//
//	When the evidence confidence sits below the decision floor a
//	fallback reasoning cycle runs first and its confidence replaces
//	the raw store confidence. The resulting score is bucketed into
//	one of three fixed assessments, each with its own action plan.
//	The high and moderate plans always contain exactly three steps.
//
// Outputs:
//
//	Decision - The assessment, confidence, plan, and reasoning.
func (g *Gate) FinalDecision() Decision {
	summary := g.store.GenerateSummary()
	confidence := summary.ConfidenceScore

	var reasoningResult *evidence.ReasoningResult
	if confidence < decisionConfidenceFloor {
		r := g.store.ToughReasoning(fallbackReasoningBudget, fallbackReasoningThreshold)
		reasoningResult = &r
		confidence = r.Confidence

		g.appendStep(StepReasoning, ThoughtThink, r.Conclusion, r.Confidence)
		g.emit(events.TypeReasoningPass, events.ReasoningPassData{
			Iterations:   r.Iterations,
			Confidence:   r.Confidence,
			MetThreshold: r.MetThreshold,
			Conclusion:   r.Conclusion,
		})
	}

	decision := Decision{
		Confidence:      confidence,
		ReasoningResult: reasoningResult,
	}

	switch {
	case confidence > highConfidenceFloor:
		decision.Decision = AssessmentHigh
		decision.ActionPlan = copyPlan(executePlan)
	case confidence > moderateConfidenceFloor:
		decision.Decision = AssessmentModerate
		decision.ActionPlan = copyPlan(incrementalPlan)
	default:
		decision.Decision = AssessmentInsufficient
		decision.ActionPlan = copyPlan(analysisPlan)
	}

	decision.Reasoning = fmt.Sprintf("Assessed %d evidence entries at %.0f%% confidence in the %s phase.",
		summary.TotalEntries, confidence*100, g.store.Phase())
	if reasoningResult != nil {
		decision.Reasoning += fmt.Sprintf(" A %d-pass reasoning cycle ran because raw confidence was %.0f%%; threshold met: %t.",
			reasoningResult.Iterations, summary.ConfidenceScore*100, reasoningResult.MetThreshold)
	}

	g.appendStep(StepDecision, ThoughtExecute, decision.Decision, confidence)
	g.emit(events.TypeDecision, events.DecisionData{
		Assessment: decision.Decision,
		Confidence: confidence,
		PlanSteps:  len(decision.ActionPlan),
	})

	slog.Info("gate decision",
		slog.String("assessment", decision.Decision),
		slog.Float64("confidence", confidence),
		slog.Int("entries", summary.TotalEntries))

	return decision
}

// appendStep records a trace step and returns it.
func (g *Gate) appendStep(kind string, phase ThoughtPhase, thought string, confidence float64) Step {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stepSeq++
	step := Step{
		Step:       g.stepSeq,
		Kind:       kind,
		Phase:      phase,
		Thought:    thought,
		Confidence: confidence,
		CreatedAt:  time.Now().UnixMilli(),
	}
	g.steps = append(g.steps, step)
	return step
}

// emit publishes an event when an emitter is attached.
func (g *Gate) emit(eventType events.Type, data any) {
	if g.emitter == nil {
		return
	}
	g.emitter.Emit(eventType, data)
}

// emitGateCheck publishes the uniform precheck audit event.
func (g *Gate) emitGateCheck(kind evidence.ActionKind, query string, pre Precheck) {
	g.emit(events.TypeGateCheck, events.GateCheckData{
		Kind:       kind,
		Query:      query,
		Proceed:    pre.Proceed,
		Relevance:  pre.Relevance,
		Combined:   pre.Confidence,
		Sufficient: pre.Sufficient,
		CacheHit:   pre.CacheHit,
	})
}

// copyPlan returns a defensive copy of a fixed plan.
func copyPlan(plan []string) []string {
	out := make([]string, len(plan))
	copy(out, plan)
	return out
}
