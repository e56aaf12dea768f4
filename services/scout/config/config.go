// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config provides configuration loading for the scout service.
//
// A default configuration ships embedded in the binary; an external
// YAML file can override it, either by explicit path or by discovery.
// Operation guidance metadata lives here too so deployments can tune
// routing hints without a rebuild.
//
// Thread Safety:
//
//	Loading returns an immutable snapshot. The Watcher delivers fresh
//	snapshots on file changes; callers swap atomically.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gopkg.in/yaml.v3"
)

const (
	// MaxConfigFileSize is the maximum allowed config file size.
	// Prevents memory issues from oversized files.
	MaxConfigFileSize = 1 << 20 // 1 MB

	// MaxKeywordsPerOperation bounds guidance keyword lists.
	MaxKeywordsPerOperation = 50

	// EnvConfigPath names the environment variable holding an explicit
	// config path.
	EnvConfigPath = "SCOUT_CONFIG_PATH"
)

// AuthorityGate and AuthorityController are the two decision
// authorities a session can be configured with.
const (
	AuthorityGate       = "gate"
	AuthorityController = "controller"
)

//go:embed config.yaml
var defaultConfigYAML []byte

var (
	configLoadErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scout_config_load_errors_total",
		Help: "Total configuration load failures",
	})

	configReloads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scout_config_reloads_total",
		Help: "Total successful configuration reloads",
	})
)

// Config is the root configuration for the scout service.
type Config struct {
	// Server holds HTTP server settings.
	Server ServerConfig `yaml:"server" validate:"required"`

	// Sessions holds session registry settings.
	Sessions SessionsConfig `yaml:"sessions" validate:"required"`

	// Operations holds dispatch settings and guidance metadata.
	Operations OperationsConfig `yaml:"operations"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host" validate:"required"`

	// Port is the API port.
	Port int `yaml:"port" validate:"min=1,max=65535"`

	// MetricsPort is the Prometheus scrape port. 0 disables the
	// metrics listener.
	MetricsPort int `yaml:"metrics_port" validate:"min=0,max=65535"`

	// ReadTimeoutSeconds bounds request reads.
	ReadTimeoutSeconds int `yaml:"read_timeout_seconds" validate:"min=1"`

	// WriteTimeoutSeconds bounds response writes.
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds" validate:"min=1"`

	// ShutdownTimeoutSeconds bounds graceful shutdown.
	ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds" validate:"min=1"`
}

// ReadTimeout returns the read timeout as a duration.
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the write timeout as a duration.
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the shutdown timeout as a duration.
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

// SessionsConfig holds session registry settings.
type SessionsConfig struct {
	// MaxSessions caps concurrently live sessions.
	MaxSessions int `yaml:"max_sessions" validate:"min=1"`

	// DefaultMaxIterations is the loop budget when a request does not
	// set one.
	DefaultMaxIterations int `yaml:"default_max_iterations" validate:"min=1"`

	// PacingDelayMs inserts a delay between loop iterations.
	// 0 disables pacing.
	PacingDelayMs int `yaml:"pacing_delay_ms" validate:"min=0"`

	// DecisionAuthority selects who owns the final decision:
	// "gate" or "controller".
	DecisionAuthority string `yaml:"decision_authority" validate:"oneof=gate controller"`

	// EventBufferSize caps each session's event ring buffer.
	EventBufferSize int `yaml:"event_buffer_size" validate:"min=1"`
}

// PacingDelay returns the pacing delay as a duration.
func (s SessionsConfig) PacingDelay() time.Duration {
	return time.Duration(s.PacingDelayMs) * time.Millisecond
}

// OperationsConfig holds operation dispatch settings and guidance.
type OperationsConfig struct {
	// DispatchTimeoutSeconds bounds a single operation execution.
	DispatchTimeoutSeconds int `yaml:"dispatch_timeout_seconds" validate:"min=1"`

	// Guidance carries per-operation routing hints.
	Guidance []GuidanceEntry `yaml:"guidance" validate:"dive"`
}

// DispatchTimeout returns the dispatch timeout as a duration.
func (o OperationsConfig) DispatchTimeout() time.Duration {
	return time.Duration(o.DispatchTimeoutSeconds) * time.Second
}

// GuidanceEntry is routing guidance for one operation.
type GuidanceEntry struct {
	// Name is the operation dispatch name.
	Name string `yaml:"name" validate:"required"`

	// Keywords are terms that suggest this operation.
	Keywords []string `yaml:"keywords"`

	// UseWhen describes when the operation fits.
	UseWhen string `yaml:"use_when"`

	// AvoidWhen describes when the operation misleads.
	AvoidWhen string `yaml:"avoid_when"`
}

// Default returns the embedded default configuration.
func Default() (*Config, error) {
	cfg, err := parse(defaultConfigYAML)
	if err != nil {
		// The embedded default is compiled in; failing to parse it is
		// a build defect, not a runtime condition.
		return nil, fmt.Errorf("embedded default config invalid: %w", err)
	}
	return cfg, nil
}

// Load reads configuration from path, or returns the embedded default
// when path is empty.
//
// Inputs:
//
//	path - Config file path. "" selects the embedded default.
//
// Outputs:
//
//	*Config - Parsed and validated configuration.
//	error   - Non-nil on read, parse, or validation failure.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default()
	}

	data, err := readConfigFile(path)
	if err != nil {
		configLoadErrors.Inc()
		return nil, err
	}

	cfg, err := parse(data)
	if err != nil {
		configLoadErrors.Inc()
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	slog.Info("configuration loaded",
		slog.String("path", path),
		slog.Int("guidance_entries", len(cfg.Operations.Guidance)))
	return cfg, nil
}

// Discover returns the first config path that exists, checking the
// SCOUT_CONFIG_PATH environment variable and the conventional file
// locations. Returns "" when none is found.
func Discover() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}

	locations := []string{
		"./config/scout.yaml",
		"./scout.yaml",
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			abs, _ := filepath.Abs(loc)
			return abs
		}
	}
	return ""
}

// readConfigFile reads an external config file with path and size
// checks.
func readConfigFile(path string) ([]byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	if strings.Contains(abs, "..") {
		return nil, fmt.Errorf("config path traversal not allowed: %s", abs)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > MaxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), MaxConfigFileSize)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return data, nil
}

// parse unmarshals, normalizes, and validates raw YAML.
func parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	cfg.Sessions.DecisionAuthority = strings.ToLower(strings.TrimSpace(cfg.Sessions.DecisionAuthority))
	if cfg.Sessions.DecisionAuthority == "" {
		cfg.Sessions.DecisionAuthority = AuthorityController
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	for _, g := range cfg.Operations.Guidance {
		if len(g.Keywords) > MaxKeywordsPerOperation {
			return nil, fmt.Errorf("operation %s has too many keywords: %d (max %d)",
				g.Name, len(g.Keywords), MaxKeywordsPerOperation)
		}
	}

	return &cfg, nil
}
