// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package evidence provides the evidence log, answer cache, and phase
// tracking that drive Scout's investigation loop.
//
// The store accumulates observations (file reads, searches, directory
// listings, command output) as immutable entries, serves repeat lookups
// from a normalized cache, and tracks the investigation phase: EXPLORE,
// THINK, or EXECUTE. Entries are ordered by a logical counter so the
// log stays deterministic regardless of wall-clock resolution.
//
// Thread Safety:
//
//	All exported types in this package are designed for concurrent use.
//	The store is protected by internal synchronization.
package evidence

import "fmt"

// =============================================================================
// Phases
// =============================================================================

// Phase represents a stage of the investigation loop.
//
// Phases only advance forward: EXPLORE -> THINK -> EXECUTE. EXECUTE is
// absorbing; requesting a transition from it is a no-op.
type Phase string

const (
	// PhaseExplore is the initial phase where evidence is gathered broadly.
	PhaseExplore Phase = "EXPLORE"

	// PhaseThink is the analysis phase where gathered evidence is weighed.
	PhaseThink Phase = "THINK"

	// PhaseExecute is the final phase where conclusions are acted on.
	PhaseExecute Phase = "EXECUTE"
)

// String returns the string representation of the phase.
//
// Outputs:
//
//	string - The phase as a string (e.g., "EXPLORE", "EXECUTE")
func (p Phase) String() string {
	return string(p)
}

// Next returns the phase that follows this one.
//
// EXECUTE is absorbing, so Next returns EXECUTE for EXECUTE. Unknown
// phases map to EXPLORE so a zero value degrades to the start of the
// progression rather than an invalid state.
//
// Outputs:
//
//	Phase - The successor phase
func (p Phase) Next() Phase {
	switch p {
	case PhaseExplore:
		return PhaseThink
	case PhaseThink:
		return PhaseExecute
	case PhaseExecute:
		return PhaseExecute
	default:
		return PhaseExplore
	}
}

// IsTerminal returns true if the phase has no successor.
//
// Outputs:
//
//	bool - True if phase is EXECUTE
func (p Phase) IsTerminal() bool {
	return p == PhaseExecute
}

// Valid returns true if the phase is one of the three known phases.
//
// Outputs:
//
//	bool - True if phase is EXPLORE, THINK, or EXECUTE
func (p Phase) Valid() bool {
	switch p {
	case PhaseExplore, PhaseThink, PhaseExecute:
		return true
	default:
		return false
	}
}

// AllPhases returns all valid phases in progression order.
//
// Outputs:
//
//	[]Phase - Slice containing EXPLORE, THINK, EXECUTE
func AllPhases() []Phase {
	return []Phase{PhaseExplore, PhaseThink, PhaseExecute}
}

// =============================================================================
// Action Kinds
// =============================================================================

// ActionKind identifies the kind of action that produced (or would
// produce) a piece of evidence.
//
// Kinds are grouped into exploratory actions (read-only observation),
// mutating actions (workspace changes), and deep reasoning (internal
// analysis passes). The grouping drives gate relevance scoring and
// summary category counts.
type ActionKind string

const (
	// KindReadFile reads a file's contents.
	KindReadFile ActionKind = "READ_FILE"

	// KindSearch searches for a pattern across the workspace.
	KindSearch ActionKind = "SEARCH"

	// KindListDir lists the contents of a directory.
	KindListDir ActionKind = "LIST_DIR"

	// KindWriteFile creates or modifies a file.
	KindWriteFile ActionKind = "WRITE_FILE"

	// KindRunCommand executes a shell command.
	KindRunCommand ActionKind = "RUN_COMMAND"

	// KindDeepReason runs an internal multi-pass reasoning cycle.
	KindDeepReason ActionKind = "DEEP_REASON"
)

// String returns the string representation of the kind.
//
// Outputs:
//
//	string - The kind as a string (e.g., "READ_FILE", "SEARCH")
func (k ActionKind) String() string {
	return string(k)
}

// IsExploratory returns true for read-only observation actions.
//
// Outputs:
//
//	bool - True if kind is READ_FILE, SEARCH, or LIST_DIR
func (k ActionKind) IsExploratory() bool {
	switch k {
	case KindReadFile, KindSearch, KindListDir:
		return true
	default:
		return false
	}
}

// IsMutating returns true for actions that change the workspace.
//
// Outputs:
//
//	bool - True if kind is WRITE_FILE or RUN_COMMAND
func (k ActionKind) IsMutating() bool {
	switch k {
	case KindWriteFile, KindRunCommand:
		return true
	default:
		return false
	}
}

// IsDeepReasoning returns true for internal analysis actions.
//
// Outputs:
//
//	bool - True if kind is DEEP_REASON
func (k ActionKind) IsDeepReasoning() bool {
	return k == KindDeepReason
}

// Category returns the summary category this kind counts toward.
//
// File reads and writes both count as file activity. Kinds with no
// category (RUN_COMMAND, DEEP_REASON) return the empty string and are
// excluded from category counts.
//
// Outputs:
//
//	string - "files", "searches", "listings", or "" for uncategorized kinds
func (k ActionKind) Category() string {
	switch k {
	case KindReadFile, KindWriteFile:
		return "files"
	case KindSearch:
		return "searches"
	case KindListDir:
		return "listings"
	default:
		return ""
	}
}

// Valid returns true if the kind is one of the six known action kinds.
//
// Outputs:
//
//	bool - True for known kinds
func (k ActionKind) Valid() bool {
	switch k {
	case KindReadFile, KindSearch, KindListDir, KindWriteFile, KindRunCommand, KindDeepReason:
		return true
	default:
		return false
	}
}

// AllKinds returns all valid action kinds.
//
// Outputs:
//
//	[]ActionKind - Slice containing all 6 valid kinds
func AllKinds() []ActionKind {
	return []ActionKind{
		KindReadFile,
		KindSearch,
		KindListDir,
		KindWriteFile,
		KindRunCommand,
		KindDeepReason,
	}
}

// =============================================================================
// Payloads
// =============================================================================

// PayloadType discriminates the variants of a Payload.
type PayloadType string

const (
	// PayloadText is free-form text output (file contents, command output).
	PayloadText PayloadType = "text"

	// PayloadRecord is structured key-value output (parsed listings, metadata).
	PayloadRecord PayloadType = "record"
)

// Payload is the tagged content of an evidence entry.
//
// Exactly one of Text or Record is meaningful, selected by Type. Use
// the TextPayload and RecordPayload constructors rather than building
// the struct by hand so the tag stays consistent with the content.
type Payload struct {
	// Type selects which variant field is populated.
	Type PayloadType `json:"type"`

	// Text is the content for text payloads.
	Text string `json:"text,omitempty"`

	// Record is the content for structured payloads.
	Record map[string]any `json:"record,omitempty"`
}

// TextPayload creates a text payload.
//
// Inputs:
//
//	text - The free-form content
//
// Outputs:
//
//	Payload - A payload tagged as text
func TextPayload(text string) Payload {
	return Payload{Type: PayloadText, Text: text}
}

// RecordPayload creates a structured payload.
//
// Inputs:
//
//	record - The key-value content
//
// Outputs:
//
//	Payload - A payload tagged as record
func RecordPayload(record map[string]any) Payload {
	return Payload{Type: PayloadRecord, Record: record}
}

// IsText returns true if the payload carries free-form text.
//
// Outputs:
//
//	bool - True for text payloads
func (p Payload) IsText() bool {
	return p.Type == PayloadText
}

// Len returns the length of the text content in bytes.
//
// Record payloads have no text length and return 0.
//
// Outputs:
//
//	int - Byte length of the text, or 0 for record payloads
func (p Payload) Len() int {
	if p.Type != PayloadText {
		return 0
	}
	return len(p.Text)
}

// Preview returns the text content truncated to at most max bytes.
//
// Truncated previews end with "..." and never exceed max bytes total.
// Record payloads preview as a fixed placeholder naming the field count.
//
// Inputs:
//
//	max - Maximum length of the returned string in bytes
//
// Outputs:
//
//	string - The (possibly truncated) preview
func (p Payload) Preview(max int) string {
	var text string
	switch p.Type {
	case PayloadRecord:
		text = recordPreview(len(p.Record))
	default:
		text = p.Text
	}

	if max <= 0 {
		return ""
	}
	if len(text) <= max {
		return text
	}
	if max <= len(previewEllipsis) {
		return text[:max]
	}
	return text[:max-len(previewEllipsis)] + previewEllipsis
}

const previewEllipsis = "..."

// recordPreview renders the placeholder preview for record payloads.
func recordPreview(fields int) string {
	if fields == 1 {
		return "[structured record: 1 field]"
	}
	return fmt.Sprintf("[structured record: %d fields]", fields)
}

// =============================================================================
// Entries and Summaries
// =============================================================================

// Entry records a single piece of evidence in the investigation log.
//
// Entries are immutable after insertion. The store assigns Timestamp
// and CreatedAt; callers populate the remaining fields.
type Entry struct {
	// Timestamp is the logical insertion counter (1-indexed, assigned
	// by the store). Ordering and identity use this, never wall time.
	Timestamp int64 `json:"timestamp"`

	// Kind is the action that produced this evidence.
	Kind ActionKind `json:"kind"`

	// Query is what the action looked for (path, pattern, or command).
	Query string `json:"query"`

	// Path optionally narrows the query to a workspace location.
	Path string `json:"path,omitempty"`

	// Payload is the observed content.
	Payload Payload `json:"payload"`

	// Confidence is the scored reliability of this evidence (0.0-1.0).
	Confidence float64 `json:"confidence"`

	// Relevance is how relevant the producing action was to the current
	// phase when it ran (0.0-1.0).
	Relevance float64 `json:"relevance"`

	// Insights are tags derived from content markers (e.g., "errors-present").
	Insights []string `json:"insights,omitempty"`

	// CreatedAt is when the entry was inserted (Unix milliseconds UTC).
	// Display only; ordering uses Timestamp.
	CreatedAt int64 `json:"created_at"`
}

// Summary is a pure aggregation over the current evidence log.
//
// Generating a summary never mutates the store; calling it repeatedly
// on an unchanged store yields identical results.
type Summary struct {
	// TotalEntries is the number of entries in the log.
	TotalEntries int `json:"total_entries"`

	// ConfidenceScore is the arithmetic mean of entry confidences,
	// or 0.0 for an empty log.
	ConfidenceScore float64 `json:"confidence_score"`

	// KeyFindings holds truncated content previews of high-confidence
	// entries (confidence above 0.8) in insertion order.
	KeyFindings []string `json:"key_findings"`

	// CountByCategory counts entries per activity category
	// ("files", "searches", "listings"). Uncategorized kinds are omitted.
	CountByCategory map[string]int `json:"count_by_category"`
}

// ReasoningResult is the outcome of a multi-pass reasoning cycle.
type ReasoningResult struct {
	// Conclusion is the last conclusion text produced.
	Conclusion string `json:"conclusion"`

	// Confidence is the confidence of the last pass (0.0-1.0).
	Confidence float64 `json:"confidence"`

	// Iterations is the number of passes executed (1 to maxIterations).
	Iterations int `json:"iterations"`

	// Steps holds each pass's conclusion line in pass order.
	Steps []string `json:"steps"`

	// MetThreshold is true if Confidence reached the requested minimum.
	MetThreshold bool `json:"met_threshold"`
}

// CacheStats reports answer cache usage.
type CacheStats struct {
	// Size is the number of distinct cached keys.
	Size int `json:"size"`

	// Hits is the number of successful cache lookups.
	Hits int64 `json:"hits"`

	// Misses is the number of failed cache lookups.
	Misses int64 `json:"misses"`

	// HitRate is Hits / (Hits + Misses), or 0.0 with no lookups.
	HitRate float64 `json:"hit_rate"`
}
