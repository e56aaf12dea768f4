// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package evidence

import "strings"

// Key builds the normalized cache key for an action.
//
// Description:
//
//	Keys are the lowercased concatenation of kind and query, joined by
//	":". When path is non-empty it is appended as a third segment. Two
//	actions that differ only in letter case share a key, so repeat
//	lookups hit the cache regardless of how callers spell the query.
//
// Inputs:
//
//	kind - The action kind
//	query - What the action looked for
//	path - Optional location qualifier ("" omits the segment)
//
// Outputs:
//
//	string - The normalized key (e.g., "search:auth:internal/auth")
func Key(kind ActionKind, query, path string) string {
	var b strings.Builder
	b.Grow(len(kind) + len(query) + len(path) + 2)
	b.WriteString(string(kind))
	b.WriteByte(':')
	b.WriteString(query)
	if path != "" {
		b.WriteByte(':')
		b.WriteString(path)
	}
	return strings.ToLower(b.String())
}
