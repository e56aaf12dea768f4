// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package loop

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer controls the delay between loop iterations.
//
// A pacer lets deployments throttle investigation loops that would
// otherwise spin as fast as the evidence math allows, for example to
// stay under an upstream rate limit.
type Pacer interface {
	// Pause blocks until the next iteration may start or the context
	// is cancelled.
	Pause(ctx context.Context) error
}

// NopPacer never pauses. It is the default.
type NopPacer struct{}

var _ Pacer = NopPacer{}

// Pause implements Pacer.
func (NopPacer) Pause(context.Context) error {
	return nil
}

// DelayPacer waits a fixed delay before every iteration.
type DelayPacer struct {
	// Delay is the pause between iterations. Zero or negative means
	// no pause.
	Delay time.Duration
}

var _ Pacer = DelayPacer{}

// Pause implements Pacer.
func (p DelayPacer) Pause(ctx context.Context) error {
	if p.Delay <= 0 {
		return nil
	}

	timer := time.NewTimer(p.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RatePacer bounds iteration throughput with a token bucket.
type RatePacer struct {
	limiter *rate.Limiter
}

var _ Pacer = (*RatePacer)(nil)

// NewRatePacer creates a pacer allowing perSecond iterations with the
// given burst.
//
// Inputs:
//
//	perSecond - Sustained iterations per second. Must be positive.
//	burst     - Iterations that may run back to back. Floored at 1.
func NewRatePacer(perSecond float64, burst int) *RatePacer {
	if burst < 1 {
		burst = 1
	}
	return &RatePacer{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Pause implements Pacer.
func (p *RatePacer) Pause(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
