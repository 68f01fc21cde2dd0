// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

package monitor

import "time"

// slidingWindow counts keyed occurrences inside a rolling time window.
// Each key holds its raw timestamps; entries older than the window are
// pruned on every access, so a key that goes quiet decays to zero without
// a background sweeper. Not safe for concurrent use: the Monitor's lock
// covers it.
type slidingWindow struct {
	window  time.Duration
	entries map[string][]time.Time
}

func newSlidingWindow(window time.Duration) *slidingWindow {
	return &slidingWindow{
		window:  window,
		entries: make(map[string][]time.Time),
	}
}

// record adds an occurrence for the key at time now and returns the count
// still inside the window.
func (s *slidingWindow) record(key string, now time.Time) int {
	pruned := prune(s.entries[key], now.Add(-s.window))
	pruned = append(pruned, now)
	s.entries[key] = pruned
	return len(pruned)
}

// count prunes and returns the number of occurrences inside the window,
// without recording a new one.
func (s *slidingWindow) count(key string, now time.Time) int {
	pruned := prune(s.entries[key], now.Add(-s.window))
	if len(pruned) == 0 {
		delete(s.entries, key)
		return 0
	}
	s.entries[key] = pruned
	return len(pruned)
}

// prune drops timestamps at or before the cutoff. Timestamps are appended
// in order, so the survivors are a suffix.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(stamps) && !stamps[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return stamps
	}
	return append(stamps[:0:0], stamps[idx:]...)
}
