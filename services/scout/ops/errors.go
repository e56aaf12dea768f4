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

import "errors"

var (
	// ErrUnknownOperation indicates a dispatch name with no
	// registered operation.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrNilOperation indicates an attempt to register a nil operation.
	ErrNilOperation = errors.New("operation is nil")

	// ErrDuplicateOperation indicates a name registered twice.
	ErrDuplicateOperation = errors.New("operation already registered")

	// ErrNilComponent indicates a registry built without a required
	// session component.
	ErrNilComponent = errors.New("required component is nil")

	// ErrParamsTooLarge indicates a parameter payload over the size
	// limit.
	ErrParamsTooLarge = errors.New("parameters exceed size limit")
)
