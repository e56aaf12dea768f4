// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scout

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianScout/services/scout/events"
	"github.com/AleutianAI/AleutianScout/services/scout/evidence"
	"github.com/AleutianAI/AleutianScout/services/scout/gate"
	"github.com/AleutianAI/AleutianScout/services/scout/loop"
	"github.com/AleutianAI/AleutianScout/services/scout/ops"
	"github.com/AleutianAI/AleutianScout/services/scout/telemetry"
)

// Session is one investigation with its own evidence store, gate,
// reasoning loop, and operation dispatcher.
//
// Description:
//
//	Sessions are isolated: nothing is shared between two sessions
//	except the service configuration they were created from. The
//	emitter carries the session ID so every event is attributable.
//
// Thread Safety:
//
//	All component fields are safe for concurrent use. Exclusive
//	operations (running the reasoning loop) are serialized through
//	TryAcquire and Release.
type Session struct {
	// ID is the unique session identifier.
	ID string

	// Task is the investigation objective.
	Task string

	// DecisionAuthority is "gate" or "controller".
	DecisionAuthority string

	// MaxIterations is the session's default iteration budget.
	MaxIterations int

	// CreatedAt is the session creation time.
	CreatedAt time.Time

	// Store is the session's evidence log.
	Store *evidence.Store

	// Gate mediates the session's workspace actions.
	Gate *gate.Gate

	// Controller drives the session's reasoning loop.
	Controller *loop.Controller

	// Emitter publishes the session's lifecycle events.
	Emitter *events.Emitter

	// Dispatcher runs the session's named operations.
	Dispatcher *ops.Dispatcher

	mu         sync.Mutex
	lastActive time.Time

	busy atomic.Bool
}

// newSession builds a fully wired session for a task.
func newSession(task string, cfg ServiceConfig, authority string, maxIterations int, metrics *telemetry.Metrics) (*Session, error) {
	id := uuid.NewString()

	emitter := events.NewEmitter(
		events.WithBufferSize(cfg.EventBufferSize),
		events.WithSessionID(id),
	)
	if metrics != nil {
		metrics.ObserveEmitter(emitter)
	}

	store := evidence.NewStore()
	g := gate.NewGate(store, gate.WithEmitter(emitter))
	if g == nil {
		return nil, fmt.Errorf("build gate for session %s", id)
	}

	var pacer loop.Pacer = loop.NopPacer{}
	if cfg.PacingDelay > 0 {
		pacer = loop.DelayPacer{Delay: cfg.PacingDelay}
	}

	controller := loop.NewController(store, g,
		loop.WithEmitter(emitter),
		loop.WithPacer(pacer),
	)
	if controller == nil {
		return nil, fmt.Errorf("build controller for session %s", id)
	}

	registry, err := ops.NewDefaultRegistry(ops.Components{
		Store:      store,
		Gate:       g,
		Controller: controller,
	})
	if err != nil {
		return nil, fmt.Errorf("build operation registry: %w", err)
	}
	if len(cfg.Guidance) > 0 {
		registry.ApplyGuidance(cfg.Guidance)
	}

	dispatcher := ops.NewDispatcher(registry,
		ops.WithTimeout(cfg.DispatchTimeout),
		ops.WithEmitter(emitter),
		ops.WithMetrics(metrics),
	)

	now := time.Now()
	s := &Session{
		ID:                id,
		Task:              task,
		DecisionAuthority: authority,
		MaxIterations:     maxIterations,
		CreatedAt:         now,
		Store:             store,
		Gate:              g,
		Controller:        controller,
		Emitter:           emitter,
		Dispatcher:        dispatcher,
		lastActive:        now,
	}

	g.InitializeTask(task)
	controller.Initialize(task)
	return s, nil
}

// Touch records request activity on the session.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// LastActive returns the time of the most recent request.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// TryAcquire claims the session for an exclusive operation.
//
// Outputs:
//
//	bool - True if the claim succeeded; false if the session is busy.
func (s *Session) TryAcquire() bool {
	return s.busy.CompareAndSwap(false, true)
}

// Release returns the session to the idle state.
func (s *Session) Release() {
	s.busy.Store(false)
}

// Decide produces the session's verdict through its decision authority.
//
// Description:
//
//	Gate authority returns an immediate verdict on the accumulated
//	evidence. Controller authority runs the reasoning loop first, up
//	to maxIterations, and returns the loop's decision along with its
//	iteration count and convergence flag.
//
// Inputs:
//
//	ctx           - Cancels a controller-driven decision between iterations.
//	maxIterations - Iteration budget for controller authority. Values
//	                below 1 fall back to the session budget.
//
// Outputs:
//
//	DecisionResponse - The rendered verdict.
//	error            - Context cancellation; nil otherwise.
func (s *Session) Decide(ctx context.Context, maxIterations int) (DecisionResponse, error) {
	if s.DecisionAuthority == AuthorityGate {
		d := s.Gate.FinalDecision()
		return decisionResponseFrom(d, AuthorityGate, 0, false), nil
	}

	if maxIterations < 1 {
		maxIterations = s.MaxIterations
	}
	res, err := s.Controller.Run(ctx, maxIterations)
	if err != nil {
		return DecisionResponse{}, fmt.Errorf("reasoning loop: %w", err)
	}
	return decisionResponseFrom(res.Decision, AuthorityController, res.Iterations, res.Converged), nil
}
