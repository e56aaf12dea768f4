// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan creates a new span from the context using the global tracer.
//
// Description:
//
//	Convenience wrapper that uses otel.Tracer() so callers do not
//	manage tracer instances. Tracer names follow the package path
//	("scout.ops", "scout.service"); span names follow
//	"package.Type.Method" or the operation name.
//
// Inputs:
//
//	ctx        - Parent context. May contain an existing span context.
//	tracerName - Tracer name.
//	spanName   - Span name.
//	opts       - Optional span start options.
//
// Outputs:
//
//	context.Context - Context with the new span attached.
//	trace.Span      - The created span. Caller must call span.End().
//
// Thread Safety: Safe for concurrent use.
func StartSpan(ctx context.Context, tracerName, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName, opts...)
}

// RecordError marks the span as failed and records the error on it.
//
// A nil error is a no-op, so callers can defer unconditionally.
//
// Thread Safety: Safe for concurrent use.
func RecordError(span trace.Span, err error) {
	if err == nil || span == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
