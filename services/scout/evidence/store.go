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

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Phase transition thresholds.
const (
	// exploreMinEntries is the evidence volume required to leave EXPLORE.
	exploreMinEntries = 5

	// exploreMinConfidence is the mean confidence required to leave EXPLORE.
	exploreMinConfidence = 0.7

	// thinkMinConfidence is the mean confidence required to leave THINK.
	thinkMinConfidence = 0.85
)

// Summary shaping.
const (
	// keyFindingMinConfidence is the confidence an entry needs to appear
	// in Summary.KeyFindings.
	keyFindingMinConfidence = 0.8

	// keyFindingPreviewLen caps the length of each key finding.
	keyFindingPreviewLen = 100
)

// Store accumulates evidence entries, serves repeat lookups from a
// normalized cache, and tracks the investigation phase.
//
// Description:
//
//	Entries are held newest-first; the logical Timestamp counter gives
//	total insertion order. Every insertion also writes the entry into
//	the cache under its normalized key, replacing any earlier entry for
//	the same key. Insertion always succeeds.
//
//	The store is ephemeral. Reset returns it to the empty EXPLORE state
//	and restarts the elapsed-time origin; nothing is persisted.
//
// Thread Safety: Store is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
	cache   map[string]Entry
	phase   Phase

	// clock is the logical timestamp counter. Monotonic per store.
	clock int64

	// started is the elapsed-time origin (construction or last Reset).
	started time.Time

	hits   atomic.Int64
	misses atomic.Int64

	now func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithNow overrides the store's wall-clock source.
//
// Only elapsed-time accounting and entry display timestamps use the
// clock; ordering always uses the logical counter.
func WithNow(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates an empty store in the EXPLORE phase.
//
// Inputs:
//
//	opts - Configuration options.
//
// Outputs:
//
//	*Store - The new store, ready for use.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		cache: make(map[string]Entry),
		phase: PhaseExplore,
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.started = s.now()
	return s
}

// AddEntry inserts a piece of evidence into the log.
//
// Description:
//
//	The store assigns the logical timestamp and creation time, prepends
//	the entry to the log (newest first), and writes it into the cache
//	under its normalized key. An entry for an already-cached key
//	replaces the earlier cache value; the log keeps both.
//
// Inputs:
//
//	e - The entry to insert. Timestamp and CreatedAt are overwritten.
//
// Outputs:
//
//	Entry - The stored entry with Timestamp and CreatedAt populated.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Store) AddEntry(e Entry) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clock++
	e.Timestamp = s.clock
	e.CreatedAt = s.now().UnixMilli()

	s.entries = append([]Entry{e}, s.entries...)
	s.cache[Key(e.Kind, e.Query, e.Path)] = e

	slog.Debug("evidence recorded",
		slog.Int64("timestamp", e.Timestamp),
		slog.String("kind", e.Kind.String()),
		slog.String("query", e.Query),
		slog.Float64("confidence", e.Confidence),
	)

	return e
}

// HasExplored reports whether an action with this key was already recorded.
//
// The lookup is O(1) and does not count toward cache hit/miss stats.
//
// Inputs:
//
//	kind - The action kind
//	query - The action's query
//	path - Optional location qualifier ("" if unused)
//
// Outputs:
//
//	bool - True if the normalized key is cached
func (s *Store) HasExplored(kind ActionKind, query, path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.cache[Key(kind, query, path)]
	return ok
}

// Cached returns the cached entry for an action, if any.
//
// Description:
//
//	The lookup is O(1). Unlike HasExplored, Cached counts toward the
//	hit/miss stats reported by Stats, so gate prechecks and the
//	check_cache operation contribute to the observed hit rate.
//
// Inputs:
//
//	kind - The action kind
//	query - The action's query
//	path - Optional location qualifier ("" if unused)
//
// Outputs:
//
//	Entry - The cached entry (zero value on miss)
//	bool - True on a cache hit
func (s *Store) Cached(kind ActionKind, query, path string) (Entry, bool) {
	s.mu.RLock()
	e, ok := s.cache[Key(kind, query, path)]
	s.mu.RUnlock()

	if ok {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
	return e, ok
}

// Entries returns a copy of the log, newest first.
//
// Outputs:
//
//	[]Entry - Copy of all entries; safe to retain and modify
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of entries in the log.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Phase returns the current investigation phase.
func (s *Store) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Elapsed returns the wall-clock time since construction or last Reset.
func (s *Store) Elapsed() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now().Sub(s.started)
}

// GenerateSummary aggregates the current log into a Summary.
//
// Description:
//
//	The summary is pure: it never mutates the store, and repeated calls
//	on an unchanged store return identical values. ConfidenceScore is
//	the mean entry confidence (0.0 when empty). KeyFindings holds
//	truncated previews of entries with confidence above 0.8, in
//	insertion order. CountByCategory buckets entries into files,
//	searches, and listings; kinds outside those categories are omitted.
//
// Outputs:
//
//	Summary - The aggregated view.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Store) GenerateSummary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summaryLocked()
}

// summaryLocked computes the summary. Caller must hold at least a read lock.
func (s *Store) summaryLocked() Summary {
	summary := Summary{
		TotalEntries:    len(s.entries),
		KeyFindings:     []string{},
		CountByCategory: make(map[string]int),
	}

	if len(s.entries) == 0 {
		return summary
	}

	var total float64
	// Entries are stored newest-first; walk backwards for insertion order.
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		total += e.Confidence

		if e.Confidence > keyFindingMinConfidence {
			summary.KeyFindings = append(summary.KeyFindings, e.Payload.Preview(keyFindingPreviewLen))
		}
		if cat := e.Kind.Category(); cat != "" {
			summary.CountByCategory[cat]++
		}
	}

	summary.ConfidenceScore = total / float64(len(s.entries))
	return summary
}

// ShouldTransition reports whether a summary justifies leaving a phase.
//
// Description:
//
//	EXPLORE advances once at least 5 entries exist and mean confidence
//	exceeds 0.7. THINK advances once mean confidence exceeds 0.85.
//	EXECUTE never advances. The function is pure; use
//	Store.ShouldTransitionPhase for the current store state.
//
// Inputs:
//
//	phase - The phase being evaluated
//	summary - The evidence summary to judge it against
//
// Outputs:
//
//	bool - True if a transition is justified.
func ShouldTransition(phase Phase, summary Summary) bool {
	switch phase {
	case PhaseExplore:
		return summary.TotalEntries >= exploreMinEntries &&
			summary.ConfidenceScore > exploreMinConfidence
	case PhaseThink:
		return summary.ConfidenceScore > thinkMinConfidence
	default:
		return false
	}
}

// ShouldTransitionPhase reports whether the current evidence justifies
// moving to the next phase.
//
// The check is read-only; use AdvancePhase to perform the transition.
//
// Outputs:
//
//	bool - True if a transition is justified.
func (s *Store) ShouldTransitionPhase() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ShouldTransition(s.phase, s.summaryLocked())
}

// AdvancePhase moves the store to the next phase.
//
// Description:
//
//	EXPLORE moves to THINK, THINK moves to EXECUTE, and EXECUTE stays
//	put. AdvancePhase applies no thresholds; callers decide when to
//	advance (typically after ShouldTransitionPhase returns true).
//
// Outputs:
//
//	Phase - The phase before the call.
//	Phase - The phase after the call.
//	bool - True if the phase changed.
func (s *Store) AdvancePhase() (Phase, Phase, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.phase
	to := from.Next()
	if to == from {
		return from, to, false
	}

	s.phase = to
	slog.Info("phase advanced",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.Int("entries", len(s.entries)),
	)
	return from, to, true
}

// Reset clears all state and restarts the elapsed-time origin.
//
// Description:
//
//	After Reset the store is indistinguishable from a freshly
//	constructed one: empty log, empty cache, EXPLORE phase, logical
//	clock at zero, and hit/miss counters cleared.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	s.cache = make(map[string]Entry)
	s.phase = PhaseExplore
	s.clock = 0
	s.started = s.now()
	s.hits.Store(0)
	s.misses.Store(0)
}

// Stats returns answer cache usage counters.
//
// Only Cached lookups count toward hits and misses; HasExplored is a
// pure existence probe.
//
// Outputs:
//
//	CacheStats - Current size, hit, and miss counts.
func (s *Store) Stats() CacheStats {
	s.mu.RLock()
	size := len(s.cache)
	s.mu.RUnlock()

	hits := s.hits.Load()
	misses := s.misses.Load()

	stats := CacheStats{Size: size, Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}
