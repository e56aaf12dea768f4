// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianScout/services/scout/events"
	"github.com/AleutianAI/AleutianScout/services/scout/telemetry"
)

// tracerName identifies dispatcher spans.
const tracerName = "scout.ops"

// Dispatcher routes operation calls by name with uniform limits.
//
// Description:
//
//	Every call gets a per-call timeout, a parameter size check, panic
//	containment, and output truncation. Failures of any kind come back
//	as an error Result; Dispatch never panics and never returns nil.
//
// Thread Safety: Dispatcher is safe for concurrent use.
type Dispatcher struct {
	registry *Registry
	timeout  time.Duration
	emitter  *events.Emitter
	metrics  *telemetry.Metrics
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithTimeout sets the per-call execution timeout.
func WithTimeout(d time.Duration) DispatcherOption {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.timeout = d
		}
	}
}

// WithEmitter attaches an event emitter for operation telemetry.
func WithEmitter(em *events.Emitter) DispatcherOption {
	return func(dp *Dispatcher) {
		dp.emitter = em
	}
}

// WithMetrics attaches operation metrics.
func WithMetrics(m *telemetry.Metrics) DispatcherOption {
	return func(dp *Dispatcher) {
		dp.metrics = m
	}
}

// NewDispatcher creates a dispatcher over the given registry.
//
// Outputs:
//
//	*Dispatcher - Configured dispatcher, or nil if registry is nil.
func NewDispatcher(registry *Registry, opts ...DispatcherOption) *Dispatcher {
	if registry == nil {
		return nil
	}
	d := &Dispatcher{
		registry: registry,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the registry behind this dispatcher.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch runs the named operation and returns its result.
//
// Description:
//
//	An unknown name, oversized parameters, an execution error, a
//	panic, or a timeout all produce a Result with Success false and
//	the failure message in Error. No session state is touched before
//	the operation itself runs.
//
// Inputs:
//
//	ctx    - Cancellation context. Nil is treated as background.
//	name   - Operation dispatch name.
//	params - Loosely typed parameters. May be nil.
//
// Outputs:
//
//	*Result - Always non-nil, with Duration stamped.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, params map[string]any) *Result {
	start := time.Now()
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := telemetry.StartSpan(ctx, tracerName, "ops.Dispatch",
		trace.WithAttributes(attribute.String("scout.operation", name)),
	)
	defer span.End()

	res := d.dispatch(ctx, name, params)
	res.Duration = time.Since(start)

	span.SetAttributes(attribute.Bool("scout.success", res.Success))
	if !res.Success {
		span.SetStatus(codes.Error, res.Error)
	}

	d.observe(ctx, res)
	return res
}

// dispatch resolves and runs the operation inside the limits.
func (d *Dispatcher) dispatch(ctx context.Context, name string, params map[string]any) *Result {
	op, ok := d.registry.Get(name)
	if !ok {
		return errorResult(name, fmt.Errorf("%w: %s", ErrUnknownOperation, name))
	}

	if err := checkParamsSize(params); err != nil {
		return errorResult(name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	res, err := d.execute(ctx, op, params)
	if err != nil {
		return errorResult(name, err)
	}
	if res == nil {
		return errorResult(name, fmt.Errorf("operation %s returned no result", name))
	}

	truncateOutput(res)
	return res
}

// execute runs the operation with panic containment. A panicking
// operation must not take the dispatcher down with it.
func (d *Dispatcher) execute(ctx context.Context, op Operation, params map[string]any) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("operation %s panicked: %v", op.Name(), r)
		}
	}()
	return op.Execute(ctx, params)
}

// observe records the dispatch outcome in metrics, events, and logs.
func (d *Dispatcher) observe(ctx context.Context, res *Result) {
	if d.metrics != nil {
		d.metrics.RecordOperation(ctx, res.Operation, res.Success, res.Duration.Seconds())
	}
	if d.emitter != nil {
		d.emitter.Emit(events.TypeOperation, events.OperationData{
			Name:     res.Operation,
			Success:  res.Success,
			Duration: res.Duration,
			Error:    res.Error,
		})
	}
	slog.Debug("operation dispatched",
		slog.String("operation", res.Operation),
		slog.Bool("success", res.Success),
		slog.Duration("duration", res.Duration))
}

// checkParamsSize rejects parameter payloads over MaxParamsSize when
// serialized.
func checkParamsSize(params map[string]any) error {
	if len(params) == 0 {
		return nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}
	if len(raw) > MaxParamsSize {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrParamsTooLarge, len(raw), MaxParamsSize)
	}
	return nil
}

// truncateOutput enforces MaxOutputSize on the formatted output.
func truncateOutput(res *Result) {
	if len(res.Output) <= MaxOutputSize {
		return
	}
	res.Output = res.Output[:MaxOutputSize] + "\n\n[output truncated]"
	res.Truncated = true
}
