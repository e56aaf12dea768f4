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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/AleutianScout/services/scout/events"
)

func setupTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers := NewHandlers(svc)
	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers)
	return router
}

// createTestSession creates a session over HTTP and returns its ID.
func createTestSession(t *testing.T, router *gin.Engine, body string) string {
	t.Helper()

	req, _ := http.NewRequest("POST", "/v1/scout/sessions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("create session: status %d: %s", w.Code, w.Body.String())
	}

	var resp SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal session response: %v", err)
	}
	return resp.SessionID
}

func TestHandlers_HandleHealth(t *testing.T) {
	svc := NewService(DefaultServiceConfig())
	router := setupTestRouter(svc)

	req, _ := http.NewRequest("GET", "/v1/scout/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", resp.Status)
	}
	if resp.Version != ServiceVersion {
		t.Errorf("Version = %q, want %q", resp.Version, ServiceVersion)
	}
}

func TestHandlers_HandleCreateSession(t *testing.T) {
	t.Run("a valid request creates a session", func(t *testing.T) {
		svc := NewService(DefaultServiceConfig())
		router := setupTestRouter(svc)

		body := `{"task": "map the indexing pipeline"}`
		req, _ := http.NewRequest("POST", "/v1/scout/sessions", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
		}

		var resp SessionResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if resp.SessionID == "" {
			t.Error("session_id should not be empty")
		}
		if resp.Phase != "EXPLORE" {
			t.Errorf("Phase = %q, want EXPLORE", resp.Phase)
		}
		if resp.DecisionAuthority != AuthorityController {
			t.Errorf("DecisionAuthority = %q, want controller", resp.DecisionAuthority)
		}
	})

	t.Run("a missing task is rejected", func(t *testing.T) {
		svc := NewService(DefaultServiceConfig())
		router := setupTestRouter(svc)

		req, _ := http.NewRequest("POST", "/v1/scout/sessions", bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var resp ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if resp.Code != "INVALID_REQUEST" {
			t.Errorf("expected code INVALID_REQUEST, got %q", resp.Code)
		}
	})

	t.Run("an unknown authority is rejected", func(t *testing.T) {
		svc := NewService(DefaultServiceConfig())
		router := setupTestRouter(svc)

		body := `{"task": "t", "decision_authority": "committee"}`
		req, _ := http.NewRequest("POST", "/v1/scout/sessions", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var resp ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if resp.Code != "INVALID_AUTHORITY" {
			t.Errorf("expected code INVALID_AUTHORITY, got %q", resp.Code)
		}
	})

	t.Run("the session limit maps to 503", func(t *testing.T) {
		cfg := DefaultServiceConfig()
		cfg.MaxSessions = 1
		svc := NewService(cfg)
		router := setupTestRouter(svc)

		createTestSession(t, router, `{"task": "first"}`)

		req, _ := http.NewRequest("POST", "/v1/scout/sessions", bytes.NewBufferString(`{"task": "second"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
		}
	})
}

func TestHandlers_HandleGetSession(t *testing.T) {
	svc := NewService(DefaultServiceConfig())
	router := setupTestRouter(svc)

	id := createTestSession(t, router, `{"task": "trace the config loader"}`)

	req, _ := http.NewRequest("GET", "/v1/scout/sessions/"+id, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Task != "trace the config loader" {
		t.Errorf("Task = %q", resp.Task)
	}

	req, _ = http.NewRequest("GET", "/v1/scout/sessions/absent", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestHandlers_HandleDeleteSession(t *testing.T) {
	svc := NewService(DefaultServiceConfig())
	router := setupTestRouter(svc)

	id := createTestSession(t, router, `{"task": "t"}`)

	req, _ := http.NewRequest("DELETE", "/v1/scout/sessions/"+id, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	req, _ = http.NewRequest("GET", "/v1/scout/sessions/"+id, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("deleted session should 404, got %d", w.Code)
	}
}

func TestHandlers_HandleListOperations(t *testing.T) {
	svc := NewService(DefaultServiceConfig())
	router := setupTestRouter(svc)

	id := createTestSession(t, router, `{"task": "t"}`)

	req, _ := http.NewRequest("GET", "/v1/scout/sessions/"+id+"/operations", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp OperationListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Count != 8 {
		t.Errorf("Count = %d, want 8", resp.Count)
	}
}

func TestHandlers_HandleRunOperation(t *testing.T) {
	t.Run("an operation runs without a body", func(t *testing.T) {
		svc := NewService(DefaultServiceConfig())
		router := setupTestRouter(svc)
		id := createTestSession(t, router, `{"task": "t"}`)

		req, _ := http.NewRequest("POST", "/v1/scout/sessions/"+id+"/operations/exploration_summary", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}

		var resp OperationResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if !resp.Success {
			t.Errorf("Success = false: %s", resp.Error)
		}
		if !strings.Contains(resp.Output, "Exploration Summary") {
			t.Errorf("output missing header: %q", resp.Output)
		}
	})

	t.Run("parameters reach the operation", func(t *testing.T) {
		svc := NewService(DefaultServiceConfig())
		router := setupTestRouter(svc)
		id := createTestSession(t, router, `{"task": "t"}`)

		body := `{"params": {"max_iterations": 2, "min_confidence": 0.99}}`
		req, _ := http.NewRequest("POST", "/v1/scout/sessions/"+id+"/operations/tough_reasoning", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var resp OperationResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if !strings.Contains(resp.Output, "Passes: 2 of 2") {
			t.Errorf("iteration budget not honored: %q", resp.Output)
		}
	})

	t.Run("an unknown operation is 404", func(t *testing.T) {
		svc := NewService(DefaultServiceConfig())
		router := setupTestRouter(svc)
		id := createTestSession(t, router, `{"task": "t"}`)

		req, _ := http.NewRequest("POST", "/v1/scout/sessions/"+id+"/operations/nonexistent", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}

		var resp ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if resp.Code != "OPERATION_NOT_FOUND" {
			t.Errorf("expected code OPERATION_NOT_FOUND, got %q", resp.Code)
		}
	})

	t.Run("a busy session is 409", func(t *testing.T) {
		svc := NewService(DefaultServiceConfig())
		router := setupTestRouter(svc)
		id := createTestSession(t, router, `{"task": "t"}`)

		sess, err := svc.GetSession(id)
		if err != nil {
			t.Fatalf("GetSession: %v", err)
		}
		if !sess.TryAcquire() {
			t.Fatal("acquire should succeed")
		}
		defer sess.Release()

		req, _ := http.NewRequest("POST", "/v1/scout/sessions/"+id+"/operations/exploration_summary", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusConflict {
			t.Errorf("expected status %d, got %d", http.StatusConflict, w.Code)
		}
	})
}

func TestHandlers_HandlePrecheck(t *testing.T) {
	svc := NewService(DefaultServiceConfig())
	router := setupTestRouter(svc)
	id := createTestSession(t, router, `{"task": "t"}`)

	t.Run("a fresh action gets a verdict", func(t *testing.T) {
		body := `{"kind": "read_file", "query": "main.go"}`
		req, _ := http.NewRequest("POST", "/v1/scout/sessions/"+id+"/gate/before", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}

		var resp PrecheckResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if resp.CacheHit {
			t.Error("fresh action should not be a cache hit")
		}
		if resp.Phase != "EXPLORE" {
			t.Errorf("Phase = %q, want EXPLORE", resp.Phase)
		}
		if resp.Reasoning == "" {
			t.Error("Reasoning should not be empty")
		}
	})

	t.Run("a recorded action becomes a cache hit", func(t *testing.T) {
		after := `{"kind": "READ_FILE", "query": "pkg/server.go", "output": "` + strings.Repeat("x", 150) + `"}`
		req, _ := http.NewRequest("POST", "/v1/scout/sessions/"+id+"/gate/after", bytes.NewBufferString(after))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("reflect: status %d: %s", w.Code, w.Body.String())
		}

		before := `{"kind": "READ_FILE", "query": "pkg/server.go"}`
		req, _ = http.NewRequest("POST", "/v1/scout/sessions/"+id+"/gate/before", bytes.NewBufferString(before))
		req.Header.Set("Content-Type", "application/json")
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("precheck: status %d", w.Code)
		}

		var resp PrecheckResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if !resp.CacheHit {
			t.Fatal("repeat action should be a cache hit")
		}
		if resp.Proceed {
			t.Error("cache hit should not proceed")
		}
		if resp.CachedPreview == "" || len(resp.CachedPreview) > 100 {
			t.Errorf("CachedPreview length = %d, want 1..100", len(resp.CachedPreview))
		}
	})

	t.Run("a missing kind is rejected", func(t *testing.T) {
		req, _ := http.NewRequest("POST", "/v1/scout/sessions/"+id+"/gate/before", bytes.NewBufferString(`{"query": "q"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})
}

func TestHandlers_HandleReflect(t *testing.T) {
	svc := NewService(DefaultServiceConfig())
	router := setupTestRouter(svc)
	id := createTestSession(t, router, `{"task": "t"}`)

	body := `{"kind": "read_file", "query": "internal/store.go", "output": "` + strings.Repeat("y", 150) + `"}`
	req, _ := http.NewRequest("POST", "/v1/scout/sessions/"+id+"/gate/after", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp ReflectionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9 for a long text result", resp.Confidence)
	}
	if resp.EntryCount != 1 {
		t.Errorf("EntryCount = %d, want 1", resp.EntryCount)
	}
	if resp.PhaseBefore != "EXPLORE" {
		t.Errorf("PhaseBefore = %q, want EXPLORE", resp.PhaseBefore)
	}
	if len(resp.NextActions) == 0 {
		t.Error("NextActions should not be empty")
	}
}

func TestHandlers_HandleRegisterResult(t *testing.T) {
	svc := NewService(DefaultServiceConfig())
	router := setupTestRouter(svc)
	id := createTestSession(t, router, `{"task": "t"}`)

	body := `{"result": "grep matched 14 call sites"}`
	req, _ := http.NewRequest("POST", "/v1/scout/sessions/"+id+"/results", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	req, _ = http.NewRequest("POST", "/v1/scout/sessions/"+id+"/results", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("missing result should 400, got %d", w.Code)
	}
}

func TestHandlers_HandleDecide(t *testing.T) {
	t.Run("gate authority decides on thin evidence", func(t *testing.T) {
		svc := NewService(DefaultServiceConfig())
		router := setupTestRouter(svc)
		id := createTestSession(t, router, `{"task": "t", "decision_authority": "gate"}`)

		req, _ := http.NewRequest("POST", "/v1/scout/sessions/"+id+"/decision", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}

		var resp DecisionResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if resp.Authority != AuthorityGate {
			t.Errorf("Authority = %q, want gate", resp.Authority)
		}
		if !strings.Contains(resp.Decision, "needs more analysis") {
			t.Errorf("Decision = %q, want the insufficient bucket", resp.Decision)
		}
	})

	t.Run("controller authority honors the iteration budget", func(t *testing.T) {
		svc := NewService(DefaultServiceConfig())
		router := setupTestRouter(svc)
		id := createTestSession(t, router, `{"task": "t"}`)

		body := `{"max_iterations": 1}`
		req, _ := http.NewRequest("POST", "/v1/scout/sessions/"+id+"/decision", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}

		var resp DecisionResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if resp.Authority != AuthorityController {
			t.Errorf("Authority = %q, want controller", resp.Authority)
		}
		if resp.Iterations != 1 {
			t.Errorf("Iterations = %d, want 1", resp.Iterations)
		}
		if resp.Decision == "" {
			t.Error("Decision should not be empty")
		}
	})
}

func TestHandlers_HandleEvents(t *testing.T) {
	svc := NewService(DefaultServiceConfig())
	router := setupTestRouter(svc)
	id := createTestSession(t, router, `{"task": "t"}`)

	t.Run("seeded thoughts are buffered", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/v1/scout/sessions/"+id+"/events", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var resp EventsResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if resp.Count < 2 {
			t.Errorf("Count = %d, want at least the two seeded thoughts", resp.Count)
		}
		for _, ev := range resp.Events {
			if ev.SessionID != id {
				t.Errorf("event session = %q, want %q", ev.SessionID, id)
			}
		}
	})

	t.Run("the type filter applies", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/v1/scout/sessions/"+id+"/events?type=thought", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		var resp EventsResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if resp.Count == 0 {
			t.Fatal("thought events should be buffered")
		}
		for _, ev := range resp.Events {
			if ev.Type != events.TypeThought {
				t.Errorf("event type = %q, want thought", ev.Type)
			}
		}
	})

	t.Run("a bad since_ms is rejected", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/v1/scout/sessions/"+id+"/events?since_ms=yesterday", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})
}

func TestHandlers_HandleEventStream(t *testing.T) {
	svc := NewService(DefaultServiceConfig())
	router := setupTestRouter(svc)
	id := createTestSession(t, router, `{"task": "t"}`)

	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") +
		"/v1/scout/sessions/" + id + "/events/stream?replay=true&types=thought"
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	// Replay should deliver the two thoughts seeded at session creation.
	for i := 0; i < 2; i++ {
		var ev events.Event
		if err := ws.ReadJSON(&ev); err != nil {
			t.Fatalf("read event %d: %v", i, err)
		}
		if ev.Type != events.TypeThought {
			t.Errorf("event type = %q, want thought", ev.Type)
		}
		if ev.SessionID != id {
			t.Errorf("event session = %q, want %q", ev.SessionID, id)
		}
	}
}
