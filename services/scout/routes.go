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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all Scout routes with the router.
//
// Description:
//
//	Registers all /v1/scout/* endpoints with the given Gin router
//	group. The router group should already have any required
//	middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	GET  /v1/scout/health - Health check
//	POST /v1/scout/sessions - Create an investigation session
//	GET  /v1/scout/sessions - List sessions
//	GET  /v1/scout/sessions/:id - Get session state
//	DELETE /v1/scout/sessions/:id - Delete a session
//	GET  /v1/scout/sessions/:id/operations - List dispatchable operations
//	POST /v1/scout/sessions/:id/operations/:name - Dispatch an operation
//	POST /v1/scout/sessions/:id/gate/before - Precheck a proposed action
//	POST /v1/scout/sessions/:id/gate/after - Reflect on an action result
//	POST /v1/scout/sessions/:id/results - Register a result for the loop
//	POST /v1/scout/sessions/:id/decision - Produce the final decision
//	GET  /v1/scout/sessions/:id/events - List buffered events
//	GET  /v1/scout/sessions/:id/events/stream - Stream events (WebSocket)
//
// Example:
//
//	service := scout.NewService(scout.DefaultServiceConfig())
//	handlers := scout.NewHandlers(service)
//
//	v1 := router.Group("/v1")
//	scout.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	sc := rg.Group("/scout")
	{
		// Health check
		sc.GET("/health", handlers.HandleHealth)

		// Session lifecycle
		sc.POST("/sessions", handlers.HandleCreateSession)
		sc.GET("/sessions", handlers.HandleListSessions)
		sc.GET("/sessions/:id", handlers.HandleGetSession)
		sc.DELETE("/sessions/:id", handlers.HandleDeleteSession)

		// Operation dispatch
		sc.GET("/sessions/:id/operations", handlers.HandleListOperations)
		sc.POST("/sessions/:id/operations/:name", handlers.HandleRunOperation)

		// Gate checks
		sc.POST("/sessions/:id/gate/before", handlers.HandlePrecheck)
		sc.POST("/sessions/:id/gate/after", handlers.HandleReflect)

		// Reasoning loop
		sc.POST("/sessions/:id/results", handlers.HandleRegisterResult)
		sc.POST("/sessions/:id/decision", handlers.HandleDecide)

		// Event observation
		sc.GET("/sessions/:id/events", handlers.HandleEvents)
		sc.GET("/sessions/:id/events/stream", handlers.HandleEventStream)
	}
}
