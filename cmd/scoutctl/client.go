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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Constants for default connection settings
const (
	DefaultScoutHost = "localhost"
	DefaultScoutPort = 8096

	// EnvServerURL overrides the default server address.
	EnvServerURL = "SCOUT_SERVER_URL"
)

// resolveServerURL picks the server base URL: flag, then environment,
// then the default local address. A trailing slash is stripped so path
// joins stay predictable.
func resolveServerURL() string {
	base := serverURL
	if base == "" {
		base = os.Getenv(EnvServerURL)
	}
	if base == "" {
		base = fmt.Sprintf("http://%s:%d", DefaultScoutHost, DefaultScoutPort)
	}
	return strings.TrimRight(base, "/")
}

// --- Wire Types ---
//
// These mirror the server's JSON responses. They are declared here
// instead of importing the service package so the CLI binary does not
// pull in the HTTP server stack.

type healthInfo struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Sessions int    `json:"sessions"`
}

type sessionInfo struct {
	SessionID         string  `json:"session_id"`
	Task              string  `json:"task"`
	Phase             string  `json:"phase"`
	DecisionAuthority string  `json:"decision_authority"`
	EntryCount        int     `json:"entry_count"`
	Confidence        float64 `json:"confidence"`
	Steps             int     `json:"steps"`
	Thoughts          int     `json:"thoughts"`
	CreatedAt         int64   `json:"created_at"`
	LastActiveAt      int64   `json:"last_active_at"`
}

type sessionList struct {
	Sessions []sessionInfo `json:"sessions"`
	Count    int           `json:"count"`
}

type operationInfo struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Params      map[string]paramInfo `json:"params"`
	Guidance    *guidanceInfo        `json:"guidance"`
}

type paramInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Default     any    `json:"default"`
}

type guidanceInfo struct {
	Keywords  []string `json:"keywords"`
	UseWhen   string   `json:"use_when"`
	AvoidWhen string   `json:"avoid_when"`
}

type operationList struct {
	Operations []operationInfo `json:"operations"`
	Count      int             `json:"count"`
}

type operationResult struct {
	Operation  string `json:"operation"`
	Success    bool   `json:"success"`
	Output     string `json:"output"`
	Error      string `json:"error"`
	DurationMs int64  `json:"duration_ms"`
	Truncated  bool   `json:"truncated"`
}

type decisionInfo struct {
	Decision   string   `json:"decision"`
	Confidence float64  `json:"confidence"`
	ActionPlan []string `json:"action_plan"`
	Reasoning  string   `json:"reasoning"`
	Authority  string   `json:"authority"`
	Iterations int      `json:"iterations"`
	Converged  bool     `json:"converged"`
}

type streamEvent struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	Timestamp time.Time       `json:"timestamp"`
	Iteration int             `json:"iteration"`
	Data      json.RawMessage `json:"data"`
}

type eventList struct {
	Events []streamEvent `json:"events"`
	Count  int           `json:"count"`
}

type apiError struct {
	Message string `json:"error"`
	Code    string `json:"code"`
}

// --- Client ---

// scoutClient is a thin JSON client for the Scout HTTP API.
type scoutClient struct {
	baseURL string
	http    *http.Client
}

// newScoutClient builds a client against the resolved server URL.
func newScoutClient() *scoutClient {
	return &scoutClient{
		baseURL: resolveServerURL(),
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// doJSON performs one request and decodes the response into out.
//
// Description:
//
//	Non-2xx responses are converted into errors carrying the server's
//	error message when the body parses as the standard error shape,
//	and the raw body otherwise. A nil out skips decoding.
func (c *scoutClient) doJSON(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			if apiErr.Code != "" {
				return fmt.Errorf("%s (%s, status %d)", apiErr.Message, apiErr.Code, resp.StatusCode)
			}
			return fmt.Errorf("%s (status %d)", apiErr.Message, resp.StatusCode)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *scoutClient) health() (*healthInfo, error) {
	var out healthInfo
	if err := c.doJSON(http.MethodGet, "/v1/scout/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *scoutClient) createSession(task string, maxIterations int, authority string) (*sessionInfo, error) {
	body := map[string]any{"task": task}
	if maxIterations > 0 {
		body["max_iterations"] = maxIterations
	}
	if authority != "" {
		body["decision_authority"] = authority
	}
	var out sessionInfo
	if err := c.doJSON(http.MethodPost, "/v1/scout/sessions", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *scoutClient) listSessions() (*sessionList, error) {
	var out sessionList
	if err := c.doJSON(http.MethodGet, "/v1/scout/sessions", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *scoutClient) getSession(id string) (*sessionInfo, error) {
	var out sessionInfo
	if err := c.doJSON(http.MethodGet, "/v1/scout/sessions/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *scoutClient) deleteSession(id string) error {
	return c.doJSON(http.MethodDelete, "/v1/scout/sessions/"+url.PathEscape(id), nil, nil)
}

func (c *scoutClient) listOperations(id string) (*operationList, error) {
	var out operationList
	path := fmt.Sprintf("/v1/scout/sessions/%s/operations", url.PathEscape(id))
	if err := c.doJSON(http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *scoutClient) runOperation(id, name string, params map[string]any) (*operationResult, error) {
	body := map[string]any{"params": params}
	var out operationResult
	path := fmt.Sprintf("/v1/scout/sessions/%s/operations/%s",
		url.PathEscape(id), url.PathEscape(name))
	if err := c.doJSON(http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *scoutClient) decide(id string, maxIterations int) (*decisionInfo, error) {
	body := map[string]any{}
	if maxIterations > 0 {
		body["max_iterations"] = maxIterations
	}
	var out decisionInfo
	path := fmt.Sprintf("/v1/scout/sessions/%s/decision", url.PathEscape(id))
	if err := c.doJSON(http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *scoutClient) events(id, types string, sinceMs int64) (*eventList, error) {
	query := url.Values{}
	if types != "" {
		query.Set("types", types)
	}
	if sinceMs > 0 {
		query.Set("since_ms", fmt.Sprintf("%d", sinceMs))
	}
	path := fmt.Sprintf("/v1/scout/sessions/%s/events", url.PathEscape(id))
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var out eventList
	if err := c.doJSON(http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// websocketURL converts the HTTP base URL into the event stream
// WebSocket address for one session.
func websocketURL(base, sessionID, types string, replay bool) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// Already a WebSocket scheme.
	default:
		return "", fmt.Errorf("unsupported server scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") +
		fmt.Sprintf("/v1/scout/sessions/%s/events/stream", url.PathEscape(sessionID))

	query := url.Values{}
	if types != "" {
		query.Set("types", types)
	}
	if replay {
		query.Set("replay", "true")
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}
