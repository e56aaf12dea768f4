// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scout provides the Scout HTTP service for evidence-driven
// investigation sessions.
//
// The service exposes endpoints for:
//   - Creating and inspecting investigation sessions
//   - Dispatching named reasoning operations
//   - Prechecking and reflecting on workspace actions through the gate
//   - Driving the reasoning loop to a final decision
//   - Streaming session lifecycle events
package scout

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianScout/services/scout/config"
	"github.com/AleutianAI/AleutianScout/services/scout/ops"
	"github.com/AleutianAI/AleutianScout/services/scout/telemetry"
)

// ServiceVersion is the Scout service version.
const ServiceVersion = "0.1.0"

// Decision authorities.
const (
	// AuthorityGate answers decision requests with an immediate gate
	// verdict.
	AuthorityGate = "gate"

	// AuthorityController answers decision requests by running the
	// reasoning loop first. This is the default.
	AuthorityController = "controller"
)

// ServiceConfig configures the Scout service.
type ServiceConfig struct {
	// MaxSessions is the maximum number of concurrent sessions.
	// Default: 64
	MaxSessions int

	// DefaultMaxIterations is the iteration budget for sessions that do
	// not override it. Default: 10
	DefaultMaxIterations int

	// PacingDelay is the pause between loop iterations. Default: 0
	PacingDelay time.Duration

	// DecisionAuthority is the default authority for new sessions.
	// Default: "controller"
	DecisionAuthority string

	// EventBufferSize is the per-session event buffer capacity.
	// Default: 256
	EventBufferSize int

	// DispatchTimeout bounds a single operation dispatch. Default: 30s
	DispatchTimeout time.Duration

	// Guidance overrides operation guidance by operation name.
	Guidance map[string]ops.Guidance
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxSessions:          64,
		DefaultMaxIterations: 10,
		PacingDelay:          0,
		DecisionAuthority:    AuthorityController,
		EventBufferSize:      256,
		DispatchTimeout:      30 * time.Second,
	}
}

// FromConfig converts a loaded configuration into a service configuration.
//
// Inputs:
//
//	cfg - The loaded configuration. Nil selects the defaults.
//
// Outputs:
//
//	ServiceConfig - The converted configuration.
func FromConfig(cfg *config.Config) ServiceConfig {
	if cfg == nil {
		return DefaultServiceConfig()
	}
	return ServiceConfig{
		MaxSessions:          cfg.Sessions.MaxSessions,
		DefaultMaxIterations: cfg.Sessions.DefaultMaxIterations,
		PacingDelay:          cfg.Sessions.PacingDelay(),
		DecisionAuthority:    cfg.Sessions.DecisionAuthority,
		EventBufferSize:      cfg.Sessions.EventBufferSize,
		DispatchTimeout:      cfg.Operations.DispatchTimeout(),
		Guidance:             guidanceFromConfig(cfg.Operations.Guidance),
	}
}

// guidanceFromConfig converts configured guidance entries into the
// dispatcher's override map.
func guidanceFromConfig(entries []config.GuidanceEntry) map[string]ops.Guidance {
	if len(entries) == 0 {
		return nil
	}
	out := make(map[string]ops.Guidance, len(entries))
	for _, e := range entries {
		out[e.Name] = ops.Guidance{
			Keywords:  append([]string(nil), e.Keywords...),
			UseWhen:   e.UseWhen,
			AvoidWhen: e.AvoidWhen,
		}
	}
	return out
}

// Service is the Scout session registry.
//
// Thread Safety:
//
//	Service is safe for concurrent use. Multiple goroutines can call
//	any combination of methods simultaneously.
type Service struct {
	mu       sync.RWMutex
	config   ServiceConfig
	sessions map[string]*Session
	metrics  *telemetry.Metrics
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMetrics attaches service metrics. Without them the service
// records nothing.
func WithMetrics(m *telemetry.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a new Scout service.
//
// Inputs:
//
//	cfg  - Service configuration.
//	opts - Optional configuration.
//
// Outputs:
//
//	*Service - The configured service with no sessions.
func NewService(cfg ServiceConfig, opts ...ServiceOption) *Service {
	s := &Service{
		config:   cfg,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns a snapshot of the current service configuration.
func (s *Service) Config() ServiceConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// CreateSession registers a new investigation session.
//
// Description:
//
//	Builds a fully wired session and registers it. A blank decision
//	authority falls back to the configured default; anything other
//	than "gate" or "controller" is rejected. An iteration budget
//	below 1 falls back to the configured default.
//
// Inputs:
//
//	ctx           - Carries the request trace for metrics.
//	task          - The investigation objective. Must not be empty.
//	maxIterations - Optional iteration budget override.
//	authority     - Optional decision authority override.
//
// Outputs:
//
//	*Session - The registered session.
//	error    - ErrEmptyTask, ErrInvalidAuthority, or ErrTooManySessions.
func (s *Service) CreateSession(ctx context.Context, task string, maxIterations int, authority string) (*Session, error) {
	if strings.TrimSpace(task) == "" {
		return nil, ErrEmptyTask
	}

	cfg := s.Config()

	authority, err := normalizeAuthority(authority, cfg.DecisionAuthority)
	if err != nil {
		return nil, err
	}
	if maxIterations < 1 {
		maxIterations = cfg.DefaultMaxIterations
	}

	sess, err := newSession(task, cfg, authority, maxIterations, s.metrics)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if len(s.sessions) >= cfg.MaxSessions {
		s.mu.Unlock()
		return nil, ErrTooManySessions
	}
	s.sessions[sess.ID] = sess
	count := len(s.sessions)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SessionsTotal.Add(ctx, 1)
		s.metrics.SessionsActive.Add(ctx, 1)
	}

	slog.Info("session created",
		slog.String("session_id", sess.ID),
		slog.String("authority", authority),
		slog.Int("active_sessions", count))
	return sess, nil
}

// GetSession looks up a session by ID.
//
// Outputs:
//
//	*Session - The session.
//	error    - ErrSessionNotFound if the ID is unknown.
func (s *Service) GetSession(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// ListSessions returns all sessions ordered by creation time.
func (s *Service) ListSessions() []*Session {
	s.mu.RLock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// SessionCount returns the number of registered sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// DeleteSession removes a session, stopping any running loop first.
//
// Outputs:
//
//	error - ErrSessionNotFound if the ID is unknown.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	sess.Controller.Stop()
	if s.metrics != nil {
		s.metrics.SessionsActive.Add(ctx, -1)
	}

	slog.Info("session deleted", slog.String("session_id", id))
	return nil
}

// ApplyConfig applies a reloaded configuration.
//
// Description:
//
//	Limits take effect for future sessions; existing sessions keep
//	the budgets they were created with. Guidance overrides reach the
//	operation registries of every live session immediately.
//
// Inputs:
//
//	cfg - The reloaded configuration. Nil is ignored.
func (s *Service) ApplyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	next := FromConfig(cfg)

	s.mu.Lock()
	s.config = next
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Dispatcher.Registry().ApplyGuidance(next.Guidance)
	}

	slog.Info("configuration applied",
		slog.Int("max_sessions", next.MaxSessions),
		slog.Int("guidance_overrides", len(next.Guidance)),
		slog.Int("live_sessions", len(sessions)))
}

// normalizeAuthority validates and defaults a decision authority.
func normalizeAuthority(authority, fallback string) (string, error) {
	authority = strings.ToLower(strings.TrimSpace(authority))
	switch authority {
	case "":
		if fallback == "" {
			return AuthorityController, nil
		}
		return fallback, nil
	case AuthorityGate, AuthorityController:
		return authority, nil
	default:
		return "", ErrInvalidAuthority
	}
}
