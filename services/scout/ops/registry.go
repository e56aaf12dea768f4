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
	"fmt"
	"sort"
	"sync"
)

// Registry holds the operations available to one session, keyed by
// name.
//
// Description:
//
//	The registry is the lookup table behind the dispatcher. Guidance
//	metadata can be overridden at runtime (for example from a reloaded
//	configuration file) without touching the operations themselves.
//
// Thread Safety: Registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	ops      map[string]Operation
	guidance map[string]Guidance
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		ops:      make(map[string]Operation),
		guidance: make(map[string]Guidance),
	}
}

// NewDefaultRegistry returns a registry populated with the full
// operation set wired to the given session components.
//
// Outputs:
//
//	*Registry - registry with all standard operations registered.
//	error     - ErrNilComponent when a component is missing.
func NewDefaultRegistry(c Components) (*Registry, error) {
	if c.Store == nil {
		return nil, fmt.Errorf("%w: store", ErrNilComponent)
	}
	if c.Gate == nil {
		return nil, fmt.Errorf("%w: gate", ErrNilComponent)
	}
	if c.Controller == nil {
		return nil, fmt.Errorf("%w: controller", ErrNilComponent)
	}

	r := NewRegistry()
	all := []Operation{
		NewExplorationSummaryOp(c.Store),
		NewToughReasoningOp(c.Store),
		NewCheckCacheOp(c.Store),
		NewRecommendationsOp(c.Store),
		NewThinkingHistoryOp(c.Gate),
		NewIntelligentThinkingHistoryOp(c.Controller),
		NewFinalDecisionOp(c.Gate),
		NewIntelligentThinkingOp(c.Controller),
	}
	for _, op := range all {
		if err := r.Register(op); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds an operation under its name.
func (r *Registry) Register(op Operation) error {
	if op == nil {
		return ErrNilOperation
	}
	name := op.Name()
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrNilOperation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ops[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateOperation, name)
	}
	r.ops[name] = op
	return nil
}

// Get returns the operation registered under name.
func (r *Registry) Get(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// Names returns all registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the definitions of all registered operations,
// sorted by name, with any guidance overrides applied.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.ops))
	for name, op := range r.ops {
		def := op.Definition()
		if g, ok := r.guidance[name]; ok {
			override := g
			def.Guidance = &override
		}
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// ApplyGuidance replaces the guidance overrides. Entries for names
// that are not registered are ignored on render but kept for later
// registrations.
func (r *Registry) ApplyGuidance(byName map[string]Guidance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guidance = make(map[string]Guidance, len(byName))
	for name, g := range byName {
		r.guidance[name] = g
	}
}

// Len returns the number of registered operations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ops)
}
