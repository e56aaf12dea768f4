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
	"fmt"
	"strings"
	"time"
)

// timeRounding keeps rendered durations readable.
const timeRounding = time.Millisecond

// Parameter accessors. JSON decoding hands numbers over as float64, so
// each accessor tolerates the types a decoded payload can carry and
// falls back to the default on anything else.

// stringParam returns the string parameter or fallback.
func stringParam(params map[string]any, key, fallback string) string {
	if params == nil {
		return fallback
	}
	if s, ok := params[key].(string); ok {
		return s
	}
	return fallback
}

// intParam returns the integer parameter or fallback.
func intParam(params map[string]any, key string, fallback int) int {
	if params == nil {
		return fallback
	}
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	default:
		return fallback
	}
}

// floatParam returns the float parameter or fallback.
func floatParam(params map[string]any, key string, fallback float64) float64 {
	if params == nil {
		return fallback
	}
	switch v := params[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return fallback
	}
}

// Output formatting. Operations render markdown-flavored text with
// "## " section headers so results read well in terminals and chat
// surfaces alike.

func writeHeader(b *strings.Builder, title string) {
	fmt.Fprintf(b, "## %s\n\n", title)
}

func writeSubheader(b *strings.Builder, title string) {
	fmt.Fprintf(b, "### %s\n\n", title)
}

// percent renders a 0..1 score as a whole percentage.
func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

// successResult builds a successful Result. The dispatcher stamps
// Duration afterwards.
func successResult(name, output string, data any) *Result {
	return &Result{
		Operation: name,
		Success:   true,
		Output:    output,
		Data:      data,
	}
}

// errorResult builds a failed Result carrying the error message.
func errorResult(name string, err error) *Result {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Result{
		Operation: name,
		Success:   false,
		Error:     msg,
	}
}
