// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package provider_test

import (
	"context"
	"sync/atomic"

	"github.com/sigil-dev/docintel/internal/provider"
	"github.com/sigil-dev/docintel/pkg/health"
)

// mockProviderBase provides a reusable base implementation of provider.Provider
// for use in tests. Embed this in test-specific mocks and override methods as needed.
type mockProviderBase struct {
	name      string
	available bool
	closed    atomic.Bool
}

func newMockProviderBase(name string, available bool) *mockProviderBase {
	return &mockProviderBase{name: name, available: available}
}

func (m *mockProviderBase) Name() string {
	return m.name
}

func (m *mockProviderBase) Available(context.Context) bool {
	return m.available
}

func (m *mockProviderBase) Chat(_ context.Context, _ provider.ChatRequest) (<-chan provider.ChatEvent, error) {
	ch := make(chan provider.ChatEvent, 3)
	ch <- provider.ChatEvent{Type: provider.EventTypeTextDelta, Text: "hello"}
	ch <- provider.ChatEvent{Type: provider.EventTypeUsage, Usage: &provider.Usage{InputTokens: 10, OutputTokens: 5}}
	ch <- provider.ChatEvent{Type: provider.EventTypeDone}
	close(ch)
	return ch, nil
}

func (m *mockProviderBase) Close() error {
	m.closed.Store(true)
	return nil
}

// mockProviderWithHealth extends mockProviderBase with health tracking.
type mockProviderWithHealth struct {
	*mockProviderBase
	healthTracker *provider.HealthTracker
}

func (m *mockProviderWithHealth) RecordFailure() { m.healthTracker.RecordFailure() }
func (m *mockProviderWithHealth) RecordSuccess() { m.healthTracker.RecordSuccess() }

func (m *mockProviderWithHealth) HealthMetrics() health.Metrics {
	return m.healthTracker.HealthMetrics()
}

func (m *mockProviderWithHealth) Available(context.Context) bool {
	return m.healthTracker.IsHealthy()
}

var _ provider.HealthReporter = (*mockProviderWithHealth)(nil)
