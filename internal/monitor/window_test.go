// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

package monitor

import (
	"testing"
	"time"
)

func TestSlidingWindow_RecordAndPrune(t *testing.T) {
	w := newSlidingWindow(10 * time.Minute)
	base := time.Now().UTC()

	if got := w.record("k", base); got != 1 {
		t.Errorf("first record = %d, want 1", got)
	}
	if got := w.record("k", base.Add(time.Minute)); got != 2 {
		t.Errorf("second record = %d, want 2", got)
	}

	// Eleven minutes later the first entry has aged out.
	if got := w.record("k", base.Add(11*time.Minute)); got != 2 {
		t.Errorf("record after expiry = %d, want 2", got)
	}
}

func TestSlidingWindow_CountDoesNotRecord(t *testing.T) {
	w := newSlidingWindow(10 * time.Minute)
	base := time.Now().UTC()

	w.record("k", base)
	if got := w.count("k", base); got != 1 {
		t.Errorf("count = %d, want 1", got)
	}
	if got := w.count("k", base); got != 1 {
		t.Errorf("count should not add entries, got %d", got)
	}
}

func TestSlidingWindow_EmptyKeyDropped(t *testing.T) {
	w := newSlidingWindow(time.Minute)
	base := time.Now().UTC()

	w.record("k", base)
	if got := w.count("k", base.Add(2*time.Minute)); got != 0 {
		t.Errorf("expired key count = %d, want 0", got)
	}
	if _, ok := w.entries["k"]; ok {
		t.Error("fully expired key should be deleted from the map")
	}
}

func TestSlidingWindow_KeysIndependent(t *testing.T) {
	w := newSlidingWindow(time.Hour)
	base := time.Now().UTC()

	w.record("a", base)
	w.record("a", base)
	w.record("b", base)

	if got := w.count("a", base); got != 2 {
		t.Errorf("count(a) = %d, want 2", got)
	}
	if got := w.count("b", base); got != 1 {
		t.Errorf("count(b) = %d, want 1", got)
	}
}
