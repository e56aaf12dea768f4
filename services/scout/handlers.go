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
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianScout/services/scout/events"
	"github.com/AleutianAI/AleutianScout/services/scout/evidence"
)

// cachedPreviewLen bounds the cached-content preview in precheck
// responses.
const cachedPreviewLen = 100

// Handlers contains the HTTP handlers for Scout.
//
// Thread Safety: Handlers is safe for concurrent use.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleHealth handles GET /v1/scout/health.
//
// Response:
//
//	200 OK: HealthResponse
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:   "healthy",
		Version:  ServiceVersion,
		Sessions: h.svc.SessionCount(),
	})
}

// HandleCreateSession handles POST /v1/scout/sessions.
//
// Description:
//
//	Creates a new investigation session for a task. The session starts
//	in the EXPLORE phase with an empty evidence log and an initialized
//	gate trace and reasoning context.
//
// Request Body:
//
//	CreateSessionRequest
//
// Response:
//
//	201 Created: SessionResponse
//	400 Bad Request: Validation error
//	503 Service Unavailable: Session limit reached
func (h *Handlers) HandleCreateSession(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleCreateSession")

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	sess, err := h.svc.CreateSession(c.Request.Context(), req.Task, req.MaxIterations, req.DecisionAuthority)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "CREATE_FAILED"

		if errors.Is(err, ErrEmptyTask) {
			statusCode = http.StatusBadRequest
			errCode = "EMPTY_TASK"
		} else if errors.Is(err, ErrInvalidAuthority) {
			statusCode = http.StatusBadRequest
			errCode = "INVALID_AUTHORITY"
		} else if errors.Is(err, ErrTooManySessions) {
			statusCode = http.StatusServiceUnavailable
			errCode = "TOO_MANY_SESSIONS"
		}

		logger.Error("Session creation failed", "error", err)
		c.JSON(statusCode, ErrorResponse{Error: err.Error(), Code: errCode})
		return
	}

	logger.Info("Session created",
		"session_id", sess.ID,
		"authority", sess.DecisionAuthority,
		"task_len", len(req.Task))

	c.JSON(http.StatusCreated, sessionResponseFrom(sess))
}

// HandleListSessions handles GET /v1/scout/sessions.
//
// Response:
//
//	200 OK: SessionListResponse
func (h *Handlers) HandleListSessions(c *gin.Context) {
	sessions := h.svc.ListSessions()

	out := make([]SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sessionResponseFrom(sess))
	}

	c.JSON(http.StatusOK, SessionListResponse{
		Sessions: out,
		Count:    len(out),
	})
}

// HandleGetSession handles GET /v1/scout/sessions/:id.
//
// Path Parameters:
//
//	id: Session ID (required)
//
// Response:
//
//	200 OK: SessionResponse
//	404 Not Found: Session not found
func (h *Handlers) HandleGetSession(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetSession")

	sess := h.lookupSession(c, logger)
	if sess == nil {
		return
	}

	c.JSON(http.StatusOK, sessionResponseFrom(sess))
}

// HandleDeleteSession handles DELETE /v1/scout/sessions/:id.
//
// Description:
//
//	Removes a session. Any running reasoning loop receives a stop
//	request and ends at its next iteration boundary.
//
// Response:
//
//	200 OK: Success message
//	404 Not Found: Session not found
func (h *Handlers) HandleDeleteSession(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleDeleteSession")

	sessionID := c.Param("id")
	if err := h.svc.DeleteSession(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: err.Error(),
				Code:  "SESSION_NOT_FOUND",
			})
			return
		}

		logger.Error("Session deletion failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "DELETE_FAILED",
		})
		return
	}

	logger.Info("Session deleted", "session_id", sessionID)

	c.JSON(http.StatusOK, gin.H{
		"message":    "Session deleted successfully",
		"session_id": sessionID,
	})
}

// HandleListOperations handles GET /v1/scout/sessions/:id/operations.
//
// Response:
//
//	200 OK: OperationListResponse
//	404 Not Found: Session not found
func (h *Handlers) HandleListOperations(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleListOperations")

	sess := h.lookupSession(c, logger)
	if sess == nil {
		return
	}

	defs := sess.Dispatcher.Registry().Definitions()
	c.JSON(http.StatusOK, OperationListResponse{
		Operations: defs,
		Count:      len(defs),
	})
}

// HandleRunOperation handles POST /v1/scout/sessions/:id/operations/:name.
//
// Description:
//
//	Dispatches a named operation against the session. The request body
//	is optional; an absent body runs the operation with its defaults.
//	Operations that fail internally still return 200 with Success
//	false, so callers always receive the dispatch record.
//
// Request Body:
//
//	OperationRequest (optional)
//
// Response:
//
//	200 OK: OperationResponse
//	400 Bad Request: Malformed body
//	404 Not Found: Session or operation not found
//	409 Conflict: Session busy with another exclusive operation
func (h *Handlers) HandleRunOperation(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleRunOperation")

	sess := h.lookupSession(c, logger)
	if sess == nil {
		return
	}

	name := c.Param("name")
	if _, ok := sess.Dispatcher.Registry().Get(name); !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "unknown operation " + strconv.Quote(name),
			Code:  "OPERATION_NOT_FOUND",
		})
		return
	}

	var req OperationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	if !sess.TryAcquire() {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: ErrSessionBusy.Error(),
			Code:  "SESSION_BUSY",
		})
		return
	}
	defer sess.Release()
	sess.Touch()

	logger.Info("Dispatching operation",
		"session_id", sess.ID,
		"operation", name,
		"params", len(req.Params))

	res := sess.Dispatcher.Dispatch(c.Request.Context(), name, req.Params)

	c.JSON(http.StatusOK, OperationResponse{
		Operation:  res.Operation,
		Success:    res.Success,
		Output:     res.Output,
		Error:      res.Error,
		DurationMs: res.Duration.Milliseconds(),
		Truncated:  res.Truncated,
		Data:       res.Data,
	})
}

// HandlePrecheck handles POST /v1/scout/sessions/:id/gate/before.
//
// Description:
//
//	Asks the gate whether a proposed workspace action is worth running.
//	A cached answer yields a do-not-proceed verdict with a preview of
//	the cached content.
//
// Request Body:
//
//	PrecheckRequest
//
// Response:
//
//	200 OK: PrecheckResponse
//	400 Bad Request: Validation error
//	404 Not Found: Session not found
func (h *Handlers) HandlePrecheck(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandlePrecheck")

	sess := h.lookupSession(c, logger)
	if sess == nil {
		return
	}

	var req PrecheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	sess.Touch()

	kind := evidence.ActionKind(strings.ToUpper(strings.TrimSpace(req.Kind)))
	pre := sess.Gate.BeforeAction(kind, req.Query, req.Path)

	resp := PrecheckResponse{
		Proceed:    pre.Proceed,
		Confidence: pre.Confidence,
		Relevance:  pre.Relevance,
		Sufficient: pre.Sufficient,
		CacheHit:   pre.CacheHit,
		Reasoning:  pre.Reasoning,
		Phase:      sess.Store.Phase().String(),
	}
	if pre.CachedEntry != nil {
		resp.CachedPreview = pre.CachedEntry.Payload.Preview(cachedPreviewLen)
	}

	logger.Info("Precheck complete",
		"session_id", sess.ID,
		"kind", kind,
		"proceed", pre.Proceed,
		"cache_hit", pre.CacheHit)

	c.JSON(http.StatusOK, resp)
}

// HandleReflect handles POST /v1/scout/sessions/:id/gate/after.
//
// Description:
//
//	Folds a workspace action result into the evidence log. The result
//	is scored, insight tags are extracted, and the investigation phase
//	advances when the evidence thresholds are met.
//
// Request Body:
//
//	ReflectionRequest
//
// Response:
//
//	200 OK: ReflectionResponse
//	400 Bad Request: Validation error
//	404 Not Found: Session not found
func (h *Handlers) HandleReflect(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleReflect")

	sess := h.lookupSession(c, logger)
	if sess == nil {
		return
	}

	var req ReflectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	sess.Touch()

	kind := evidence.ActionKind(strings.ToUpper(strings.TrimSpace(req.Kind)))
	payload := evidence.TextPayload(req.Output)
	if len(req.Record) > 0 {
		payload = evidence.RecordPayload(req.Record)
	}

	ref := sess.Gate.AfterResult(kind, req.Query, req.Path, payload)

	logger.Info("Reflection recorded",
		"session_id", sess.ID,
		"kind", kind,
		"confidence", ref.Entry.Confidence,
		"transitioned", ref.Transitioned)

	c.JSON(http.StatusOK, ReflectionResponse{
		Confidence:   ref.Entry.Confidence,
		Insights:     ref.Insights,
		PhaseBefore:  ref.PhaseBefore.String(),
		PhaseAfter:   ref.PhaseAfter.String(),
		Transitioned: ref.Transitioned,
		NextActions:  ref.NextActions,
		EntryCount:   sess.Store.Len(),
	})
}

// HandleRegisterResult handles POST /v1/scout/sessions/:id/results.
//
// Description:
//
//	Hands an external action result to the reasoning loop. The next
//	loop iteration reflects on it. Registering again before that
//	overwrites the unreflected value.
//
// Request Body:
//
//	ResultRequest
//
// Response:
//
//	200 OK: Success message
//	400 Bad Request: Validation error
//	404 Not Found: Session not found
func (h *Handlers) HandleRegisterResult(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleRegisterResult")

	sess := h.lookupSession(c, logger)
	if sess == nil {
		return
	}

	var req ResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	sess.Touch()

	sess.Controller.RegisterActionResult(req.Result)

	logger.Info("Action result registered",
		"session_id", sess.ID,
		"result_len", len(req.Result))

	c.JSON(http.StatusOK, gin.H{
		"message":    "Result registered for the next iteration",
		"session_id": sess.ID,
	})
}

// HandleDecide handles POST /v1/scout/sessions/:id/decision.
//
// Description:
//
//	Produces the session's verdict through its decision authority.
//	Gate authority answers immediately; controller authority runs the
//	reasoning loop first and reports its iteration count.
//
// Request Body:
//
//	DecisionRequest (optional)
//
// Response:
//
//	200 OK: DecisionResponse
//	400 Bad Request: Malformed body
//	404 Not Found: Session not found
//	409 Conflict: Session busy with another exclusive operation
//	500 Internal Server Error: Reasoning loop interrupted
func (h *Handlers) HandleDecide(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleDecide")

	sess := h.lookupSession(c, logger)
	if sess == nil {
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	if !sess.TryAcquire() {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: ErrSessionBusy.Error(),
			Code:  "SESSION_BUSY",
		})
		return
	}
	defer sess.Release()
	sess.Touch()

	resp, err := sess.Decide(c.Request.Context(), req.MaxIterations)
	if err != nil {
		logger.Error("Decision failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "DECISION_FAILED",
		})
		return
	}

	logger.Info("Decision produced",
		"session_id", sess.ID,
		"authority", resp.Authority,
		"confidence", resp.Confidence,
		"iterations", resp.Iterations)

	c.JSON(http.StatusOK, resp)
}

// HandleEvents handles GET /v1/scout/sessions/:id/events.
//
// Description:
//
//	Returns the session's buffered events, oldest first. The buffer is
//	bounded, so long sessions only retain the most recent events.
//
// Query Parameters:
//
//	type: Filter to one event type (optional)
//	since_ms: Only events after this Unix-millisecond time (optional)
//
// Response:
//
//	200 OK: EventsResponse
//	404 Not Found: Session not found
func (h *Handlers) HandleEvents(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleEvents")

	sess := h.lookupSession(c, logger)
	if sess == nil {
		return
	}

	var buffered []events.Event
	if typeFilter := c.Query("type"); typeFilter != "" {
		buffered = sess.Emitter.GetBufferByType(events.Type(typeFilter))
	} else {
		buffered = sess.Emitter.GetBuffer()
	}

	if sinceParam := c.Query("since_ms"); sinceParam != "" {
		ms, err := strconv.ParseInt(sinceParam, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "since_ms must be a Unix-millisecond integer",
				Code:  "INVALID_PARAMETER",
			})
			return
		}
		since := time.UnixMilli(ms)
		filtered := buffered[:0]
		for _, ev := range buffered {
			if ev.Timestamp.After(since) {
				filtered = append(filtered, ev)
			}
		}
		buffered = filtered
	}

	c.JSON(http.StatusOK, EventsResponse{
		Events: buffered,
		Count:  len(buffered),
	})
}

// lookupSession resolves the :id path parameter, writing the error
// response itself when the session cannot be served.
func (h *Handlers) lookupSession(c *gin.Context, logger *slog.Logger) *Session {
	sessionID := c.Param("id")
	if sessionID == "" {
		logger.Warn("Missing session id")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "session id is required",
			Code:  "MISSING_PARAMETER",
		})
		return nil
	}

	sess, err := h.svc.GetSession(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: err.Error(),
			Code:  "SESSION_NOT_FOUND",
		})
		return nil
	}
	return sess
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
