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
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianScout/services/scout/evidence"
)

// cachePreviewLen caps the payload preview in cache check output.
const cachePreviewLen = 100

// CheckCacheOp reports whether an action's result is already cached,
// with a short preview and cache-wide statistics.
type CheckCacheOp struct {
	store *evidence.Store
}

// NewCheckCacheOp returns the check_cache operation.
func NewCheckCacheOp(store *evidence.Store) *CheckCacheOp {
	return &CheckCacheOp{store: store}
}

// Name returns the dispatch name.
func (o *CheckCacheOp) Name() string { return OpCheckCache }

// Definition returns the operation schema.
func (o *CheckCacheOp) Definition() Definition {
	return Definition{
		Name:        OpCheckCache,
		Description: "Check whether an action's result is already cached before repeating it.",
		Params: map[string]ParamDef{
			"action_kind": {
				Type:        "string",
				Description: "Action kind (READ_FILE, SEARCH, LIST_DIR, ...).",
				Required:    true,
			},
			"query": {
				Type:        "string",
				Description: "The query the action would run.",
				Required:    true,
			},
			"path": {
				Type:        "string",
				Description: "Optional path scoping the query.",
			},
		},
		Guidance: &Guidance{
			Keywords: []string{"cache", "duplicate", "repeat", "already"},
			UseWhen:  "You are about to repeat an action and want the earlier result instead.",
		},
	}
}

// Execute looks the key up and renders hit or miss.
//
// A blank or unrecognized action_kind is looked up as given; the
// normalized key simply will not match anything, which reads as a
// miss rather than an error.
func (o *CheckCacheOp) Execute(_ context.Context, params map[string]any) (*Result, error) {
	kind := evidence.ActionKind(strings.ToUpper(stringParam(params, "action_kind", "")))
	query := stringParam(params, "query", "")
	path := stringParam(params, "path", "")

	key := evidence.Key(kind, query, path)
	entry, hit := o.store.Cached(kind, query, path)
	stats := o.store.Stats()

	check := CacheCheck{
		Hit:   hit,
		Key:   key,
		Stats: stats,
	}

	var b strings.Builder
	writeHeader(&b, "Cache Check")
	fmt.Fprintf(&b, "Key: %s\n", key)
	if hit {
		check.Entry = &entry
		check.Preview = entry.Payload.Preview(cachePreviewLen)
		b.WriteString("Status: HIT\n")
		fmt.Fprintf(&b, "Confidence: %s\n", percent(entry.Confidence))
		fmt.Fprintf(&b, "Recorded at: entry #%d\n", entry.Timestamp)
		if check.Preview != "" {
			fmt.Fprintf(&b, "Preview: %s\n", check.Preview)
		}
	} else {
		b.WriteString("Status: MISS\n")
	}

	b.WriteString("\n")
	writeSubheader(&b, "Cache Stats")
	fmt.Fprintf(&b, "Size: %d, Hits: %d, Misses: %d, Hit rate: %s\n",
		stats.Size, stats.Hits, stats.Misses, percent(stats.HitRate))

	return successResult(OpCheckCache, b.String(), check), nil
}

var _ Operation = (*CheckCacheOp)(nil)
