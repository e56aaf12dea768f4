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
	"errors"
	"testing"
	"time"
)

func TestNopPacer(t *testing.T) {
	if err := (NopPacer{}).Pause(context.Background()); err != nil {
		t.Errorf("Pause: %v, want nil", err)
	}
}

func TestDelayPacer(t *testing.T) {
	t.Run("zero delay returns immediately", func(t *testing.T) {
		if err := (DelayPacer{}).Pause(context.Background()); err != nil {
			t.Errorf("Pause: %v, want nil", err)
		}
	})

	t.Run("cancellation interrupts the wait", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		err := DelayPacer{Delay: time.Hour}.Pause(ctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Pause: %v, want deadline exceeded", err)
		}
	})
}

func TestRatePacer(t *testing.T) {
	t.Run("burst capacity passes without waiting", func(t *testing.T) {
		p := NewRatePacer(1.0, 1)

		start := time.Now()
		if err := p.Pause(context.Background()); err != nil {
			t.Fatalf("Pause: %v", err)
		}
		if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
			t.Errorf("first Pause took %v, want immediate", elapsed)
		}
	})

	t.Run("burst is floored at one", func(t *testing.T) {
		p := NewRatePacer(10.0, 0)
		if err := p.Pause(context.Background()); err != nil {
			t.Errorf("Pause: %v, want nil", err)
		}
	})
}
