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
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/AleutianScout/services/scout/events"
)

// streamChannelSize buffers events between the emitter and the
// WebSocket writer. A slow client drops events rather than blocking
// the investigation.
const streamChannelSize = 64

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// HandleEventStream handles GET /v1/scout/sessions/:id/events/stream.
//
// Description:
//
//	Upgrades the connection to a WebSocket and pushes the session's
//	events as they happen. With replay=true the buffered history is
//	sent first. The stream ends when the client disconnects or the
//	session is deleted and its emitter goes quiet.
//
// Query Parameters:
//
//	types: Comma-separated event types to include (optional, default all)
//	replay: Send the buffered history before live events (optional)
//
// Response:
//
//	101 Switching Protocols: WebSocket stream of events.Event JSON
//	404 Not Found: Session not found
func (h *Handlers) HandleEventStream(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleEventStream")

	sess := h.lookupSession(c, logger)
	if sess == nil {
		return
	}

	typeFilter := parseTypeFilter(c.Query("types"))
	replay := c.Query("replay") == "true"

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("Failed to upgrade the websocket", "error", err)
		return
	}
	defer ws.Close()
	sess.Touch()

	logger.Info("Event stream connected",
		"session_id", sess.ID,
		"types", len(typeFilter),
		"replay", replay)

	if replay {
		for _, ev := range sess.Emitter.GetBuffer() {
			if !typeMatches(typeFilter, ev.Type) {
				continue
			}
			if err := ws.WriteJSON(ev); err != nil {
				logger.Info("Event stream client disconnected during replay", "error", err.Error())
				return
			}
		}
	}

	// The subscription handler must never block the emitter, so events
	// flow through a bounded channel and overflow is dropped.
	stream := make(chan events.Event, streamChannelSize)
	subID := sess.Emitter.Subscribe(func(event *events.Event) {
		select {
		case stream <- *event:
		default:
		}
	}, typeFilter...)
	defer sess.Emitter.Unsubscribe(subID)

	// Reads only serve to detect the client closing the stream.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			logger.Info("Event stream client disconnected", "session_id", sess.ID)
			return
		case <-c.Request.Context().Done():
			logger.Info("Event stream request cancelled", "session_id", sess.ID)
			return
		case ev := <-stream:
			if err := ws.WriteJSON(ev); err != nil {
				logger.Info("Event stream write failed", "error", err.Error())
				return
			}
		}
	}
}

// parseTypeFilter splits a comma-separated type list into event types.
func parseTypeFilter(raw string) []events.Type {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var out []events.Type
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, events.Type(part))
		}
	}
	return out
}

// typeMatches reports whether an event type passes the filter. An
// empty filter admits everything.
func typeMatches(filter []events.Type, t events.Type) bool {
	if len(filter) == 0 {
		return true
	}
	for _, ft := range filter {
		if ft == t {
			return true
		}
	}
	return false
}
