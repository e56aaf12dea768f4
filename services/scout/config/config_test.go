// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, 8096, cfg.Server.Port)
	assert.Equal(t, AuthorityController, cfg.Sessions.DecisionAuthority)
	assert.Equal(t, 64, cfg.Sessions.MaxSessions)
	assert.Len(t, cfg.Operations.Guidance, 8)
	assert.Equal(t, 30*time.Second, cfg.Operations.DispatchTimeout())
}

func TestLoad(t *testing.T) {
	t.Run("an empty path selects the embedded default", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 8096, cfg.Server.Port)
	})

	t.Run("an external file overrides the default", func(t *testing.T) {
		path := writeTempConfig(t, `
server:
  host: 127.0.0.1
  port: 9000
  metrics_port: 0
  read_timeout_seconds: 5
  write_timeout_seconds: 5
  shutdown_timeout_seconds: 5
sessions:
  max_sessions: 2
  default_max_iterations: 3
  pacing_delay_ms: 250
  decision_authority: gate
  event_buffer_size: 16
operations:
  dispatch_timeout_seconds: 10
`)

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, AuthorityGate, cfg.Sessions.DecisionAuthority)
		assert.Equal(t, 250*time.Millisecond, cfg.Sessions.PacingDelay())
	})

	t.Run("a missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("an invalid authority fails validation", func(t *testing.T) {
		path := writeTempConfig(t, `
server:
  host: 127.0.0.1
  port: 9000
  read_timeout_seconds: 5
  write_timeout_seconds: 5
  shutdown_timeout_seconds: 5
sessions:
  max_sessions: 2
  default_max_iterations: 3
  decision_authority: committee
  event_buffer_size: 16
operations:
  dispatch_timeout_seconds: 10
`)
		_, err := Load(path)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "validate")
	})

	t.Run("malformed yaml is an error", func(t *testing.T) {
		path := writeTempConfig(t, "server: [not: a: mapping")
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("an oversized file is rejected", func(t *testing.T) {
		path := writeTempConfig(t, strings.Repeat("# padding\n", MaxConfigFileSize/10+1))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestParse_AuthorityDefaulting(t *testing.T) {
	cfg, err := parse([]byte(`
server:
  host: 127.0.0.1
  port: 9000
  read_timeout_seconds: 5
  write_timeout_seconds: 5
  shutdown_timeout_seconds: 5
sessions:
  max_sessions: 2
  default_max_iterations: 3
  event_buffer_size: 16
operations:
  dispatch_timeout_seconds: 10
`))
	require.NoError(t, err)
	assert.Equal(t, AuthorityController, cfg.Sessions.DecisionAuthority,
		"omitted decision_authority should default to the controller")
}

func TestServerConfig_Durations(t *testing.T) {
	s := ServerConfig{
		ReadTimeoutSeconds:     7,
		WriteTimeoutSeconds:    9,
		ShutdownTimeoutSeconds: 3,
	}
	assert.Equal(t, 7*time.Second, s.ReadTimeout())
	assert.Equal(t, 9*time.Second, s.WriteTimeout())
	assert.Equal(t, 3*time.Second, s.ShutdownTimeout())
}

func TestWatcher_HandleEvent(t *testing.T) {
	t.Run("a valid rewrite reaches the callback", func(t *testing.T) {
		path := writeTempConfig(t, validOverride(9001))

		var got *Config
		w, err := NewWatcher(path, func(cfg *Config) { got = cfg })
		require.NoError(t, err)
		defer w.Stop()

		w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Write})
		require.NotNil(t, got, "callback not invoked for valid config")
		assert.Equal(t, 9001, got.Server.Port)
	})

	t.Run("a broken rewrite keeps the previous snapshot", func(t *testing.T) {
		path := writeTempConfig(t, "sessions: {max_sessions: -5}")

		called := false
		w, err := NewWatcher(path, func(*Config) { called = true })
		require.NoError(t, err)
		defer w.Stop()

		w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Write})
		assert.False(t, called, "callback invoked for invalid config")
	})

	t.Run("non-write events are ignored", func(t *testing.T) {
		path := writeTempConfig(t, validOverride(9002))

		called := false
		w, err := NewWatcher(path, func(*Config) { called = true })
		require.NoError(t, err)
		defer w.Stop()

		w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Chmod})
		assert.False(t, called, "callback invoked for chmod event")
	})
}

// writeTempConfig writes content to a temp file and returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scout.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

// validOverride renders a minimal valid config with the given port.
func validOverride(port int) string {
	return strings.ReplaceAll(`
server:
  host: 127.0.0.1
  port: PORT
  read_timeout_seconds: 5
  write_timeout_seconds: 5
  shutdown_timeout_seconds: 5
sessions:
  max_sessions: 2
  default_max_iterations: 3
  event_buffer_size: 16
operations:
  dispatch_timeout_seconds: 10
`, "PORT", strconv.Itoa(port))
}
