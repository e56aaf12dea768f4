// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// withServer points the client globals at a test server for the
// duration of one test.
func withServer(t *testing.T, handler http.HandlerFunc) *scoutClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	previous := serverURL
	serverURL = server.URL
	t.Cleanup(func() { serverURL = previous })

	return newScoutClient()
}

func TestResolveServerURL(t *testing.T) {
	t.Run("default is localhost", func(t *testing.T) {
		previous := serverURL
		serverURL = ""
		defer func() { serverURL = previous }()
		t.Setenv(EnvServerURL, "")

		if got := resolveServerURL(); got != "http://localhost:8096" {
			t.Errorf("resolveServerURL() = %q, want the local default", got)
		}
	})

	t.Run("environment beats the default", func(t *testing.T) {
		previous := serverURL
		serverURL = ""
		defer func() { serverURL = previous }()
		t.Setenv(EnvServerURL, "http://scout.internal:9000/")

		if got := resolveServerURL(); got != "http://scout.internal:9000" {
			t.Errorf("resolveServerURL() = %q, want the env URL without trailing slash", got)
		}
	})

	t.Run("flag beats the environment", func(t *testing.T) {
		previous := serverURL
		serverURL = "http://flagged:1234"
		defer func() { serverURL = previous }()
		t.Setenv(EnvServerURL, "http://ignored:9000")

		if got := resolveServerURL(); got != "http://flagged:1234" {
			t.Errorf("resolveServerURL() = %q, want the flag URL", got)
		}
	})
}

func TestScoutClient_Health(t *testing.T) {
	client := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/scout/health" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(healthInfo{Status: "healthy", Version: "0.1.0", Sessions: 3})
	})

	info, err := client.health()
	if err != nil {
		t.Fatalf("health() error: %v", err)
	}
	if info.Status != "healthy" || info.Sessions != 3 {
		t.Errorf("health() = %+v, want healthy with 3 sessions", info)
	}
}

func TestScoutClient_CreateSession(t *testing.T) {
	t.Run("sends only the provided fields", func(t *testing.T) {
		client := withServer(t, func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if body["task"] != "find the leak" {
				t.Errorf("task = %v, want 'find the leak'", body["task"])
			}
			if _, ok := body["max_iterations"]; ok {
				t.Error("max_iterations sent despite zero value")
			}
			if _, ok := body["decision_authority"]; ok {
				t.Error("decision_authority sent despite empty value")
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(sessionInfo{SessionID: "s-1", Task: "find the leak", Phase: "EXPLORE"})
		})

		sess, err := client.createSession("find the leak", 0, "")
		if err != nil {
			t.Fatalf("createSession() error: %v", err)
		}
		if sess.SessionID != "s-1" || sess.Phase != "EXPLORE" {
			t.Errorf("createSession() = %+v", sess)
		}
	})

	t.Run("includes overrides when set", func(t *testing.T) {
		client := withServer(t, func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			if body["max_iterations"] != float64(7) {
				t.Errorf("max_iterations = %v, want 7", body["max_iterations"])
			}
			if body["decision_authority"] != "gate" {
				t.Errorf("decision_authority = %v, want gate", body["decision_authority"])
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(sessionInfo{SessionID: "s-2"})
		})

		if _, err := client.createSession("t", 7, "gate"); err != nil {
			t.Fatalf("createSession() error: %v", err)
		}
	})
}

func TestScoutClient_ErrorMapping(t *testing.T) {
	t.Run("structured errors surface message and code", func(t *testing.T) {
		client := withServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(apiError{Message: "session not found", Code: "SESSION_NOT_FOUND"})
		})

		_, err := client.getSession("missing")
		if err == nil {
			t.Fatal("getSession() = nil error, want failure")
		}
		if !strings.Contains(err.Error(), "session not found") {
			t.Errorf("error %q does not carry the server message", err)
		}
		if !strings.Contains(err.Error(), "SESSION_NOT_FOUND") {
			t.Errorf("error %q does not carry the error code", err)
		}
	})

	t.Run("unstructured errors surface the status", func(t *testing.T) {
		client := withServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream exploded"))
		})

		err := client.deleteSession("s-1")
		if err == nil {
			t.Fatal("deleteSession() = nil error, want failure")
		}
		if !strings.Contains(err.Error(), "502") {
			t.Errorf("error %q does not mention the status code", err)
		}
	})
}

func TestScoutClient_RunOperation(t *testing.T) {
	client := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		want := "/v1/scout/sessions/s-1/operations/tough_reasoning"
		if r.URL.Path != want {
			t.Errorf("path = %s, want %s", r.URL.Path, want)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		params, _ := body["params"].(map[string]any)
		if params["max_iterations"] != float64(5) {
			t.Errorf("params = %v, want max_iterations 5", params)
		}
		json.NewEncoder(w).Encode(operationResult{
			Operation: "tough_reasoning",
			Success:   true,
			Output:    "## Reasoning Summary",
		})
	})

	result, err := client.runOperation("s-1", "tough_reasoning", map[string]any{"max_iterations": 5})
	if err != nil {
		t.Fatalf("runOperation() error: %v", err)
	}
	if !result.Success || !strings.Contains(result.Output, "Reasoning") {
		t.Errorf("runOperation() = %+v", result)
	}
}

func TestScoutClient_Events(t *testing.T) {
	client := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("types") != "decision,error" {
			t.Errorf("types = %q, want decision,error", query.Get("types"))
		}
		if query.Get("since_ms") != "1500" {
			t.Errorf("since_ms = %q, want 1500", query.Get("since_ms"))
		}
		json.NewEncoder(w).Encode(eventList{Count: 0})
	})

	if _, err := client.events("s-1", "decision,error", 1500); err != nil {
		t.Fatalf("events() error: %v", err)
	}
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		types   string
		replay  bool
		want    string
		wantErr bool
	}{
		{
			name: "http becomes ws",
			base: "http://localhost:8096",
			want: "ws://localhost:8096/v1/scout/sessions/s-1/events/stream",
		},
		{
			name: "https becomes wss",
			base: "https://scout.example.com",
			want: "wss://scout.example.com/v1/scout/sessions/s-1/events/stream",
		},
		{
			name:   "filters and replay land in the query",
			base:   "http://localhost:8096",
			types:  "decision",
			replay: true,
			want:   "ws://localhost:8096/v1/scout/sessions/s-1/events/stream?replay=true&types=decision",
		},
		{
			name:    "unsupported scheme is rejected",
			base:    "ftp://nope",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := websocketURL(tt.base, "s-1", tt.types, tt.replay)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("websocketURL(%q) = %q, want error", tt.base, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("websocketURL(%q) error: %v", tt.base, err)
			}
			if got != tt.want {
				t.Errorf("websocketURL(%q) = %q, want %q", tt.base, got, tt.want)
			}
		})
	}
}
