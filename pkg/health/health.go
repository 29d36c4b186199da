// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package health holds the JSON-safe health snapshots reported for chat
// providers on the status endpoint and by the doctor command.
package health

import (
	"sort"
	"time"
)

// Metrics is a point-in-time snapshot of one provider's circuit state.
// CooldownUntil is set while the provider is skipped after a failure.
type Metrics struct {
	FailureCount  int64      `json:"failure_count"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`
	CooldownUntil *time.Time `json:"cooldown_until,omitempty"`
	Available     bool       `json:"available"`
}

// Report maps provider names to their snapshots.
type Report map[string]Metrics

// Unavailable returns the sorted names of providers in cooldown.
func (r Report) Unavailable() []string {
	var names []string
	for name, m := range r {
		if !m.Available {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
