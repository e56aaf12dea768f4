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

import "errors"

var (
	// ErrEmptyTask is returned when a session is created without a task.
	ErrEmptyTask = errors.New("task must not be empty")

	// ErrSessionNotFound is returned when a session ID is unknown.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTooManySessions is returned when the session registry is full.
	ErrTooManySessions = errors.New("session limit reached")

	// ErrSessionBusy is returned when a session is already running an
	// exclusive operation.
	ErrSessionBusy = errors.New("session is busy with another operation")

	// ErrInvalidAuthority is returned for a decision authority other
	// than "gate" or "controller".
	ErrInvalidAuthority = errors.New("decision authority must be \"gate\" or \"controller\"")
)
