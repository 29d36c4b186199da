// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package health_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sigil-dev/docintel/pkg/health"
)

func TestReport_Unavailable(t *testing.T) {
	r := health.Report{
		"openai":    {Available: false, FailureCount: 2},
		"google":    {Available: true},
		"anthropic": {Available: false, FailureCount: 1},
	}
	assert.Equal(t, []string{"anthropic", "openai"}, r.Unavailable())
	assert.Empty(t, health.Report{"google": {Available: true}}.Unavailable())
	assert.Empty(t, health.Report(nil).Unavailable())
}
