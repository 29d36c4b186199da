// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package scanner

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

// Mode defines how a detection is handled.
type Mode string

const (
	ModeOff    Mode = "off"
	ModeFlag   Mode = "flag"
	ModeRedact Mode = "redact"
	ModeBlock  Mode = "block"
)

// Modes lists the accepted modes.
var Modes = []string{string(ModeOff), string(ModeFlag), string(ModeRedact), string(ModeBlock)}

// ParseMode parses a mode string case-insensitively. Empty is ModeOff.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return ModeOff, nil
	}
	if !slices.Contains(Modes, string(m)) {
		return "", sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue, "invalid scanner mode: %q", s)
	}
	return m, nil
}

// Redacted replaces every matched region.
const Redacted = "[REDACTED]"

// Filter applies one Mode to content scanned at one Stage. A nil Filter
// passes content through.
type Filter struct {
	scanner Scanner
	stage   Stage
	mode    Mode
}

// NewFilter returns nil for ModeOff.
func NewFilter(s Scanner, stage Stage, mode Mode) *Filter {
	if mode == ModeOff || mode == "" || s == nil {
		return nil
	}
	return &Filter{scanner: s, stage: stage, mode: mode}
}

// Apply scans content and returns it flagged, redacted or refused
// according to the mode. label names the content in logs and errors.
func (f *Filter) Apply(ctx context.Context, label, content string) (string, error) {
	if f == nil {
		return content, nil
	}
	res, err := f.scanner.Scan(ctx, content, f.stage)
	if err != nil {
		return "", err
	}
	if !res.Threat {
		return content, nil
	}

	rules := ruleNames(res.Matches)
	switch f.mode {
	case ModeBlock:
		return "", sigilerr.New(sigilerr.CodeScannerContentBlocked,
			"content blocked by scanner: "+label,
			sigilerr.Field("stage", string(f.stage)),
			sigilerr.Field("rules", rules))
	case ModeRedact:
		slog.Warn("scanner redacted content", "stage", f.stage, "content", label, "rules", rules)
		return redact(res.Content, res.Matches), nil
	default:
		slog.Warn("scanner flagged content", "stage", f.stage, "content", label, "rules", rules)
		return content, nil
	}
}

func ruleNames(matches []Match) []string {
	var names []string
	for _, m := range matches {
		if !slices.Contains(names, m.Rule) {
			names = append(names, m.Rule)
		}
	}
	return names
}

// redact replaces matched regions of content with Redacted, merging
// overlapping matches first.
func redact(content string, matches []Match) string {
	if len(matches) == 0 {
		return content
	}
	sorted := slices.Clone(matches)
	slices.SortFunc(sorted, func(a, b Match) int { return a.Location - b.Location })

	type span struct{ start, end int }
	spans := []span{{sorted[0].Location, sorted[0].Location + sorted[0].Length}}
	for _, m := range sorted[1:] {
		last := &spans[len(spans)-1]
		end := m.Location + m.Length
		if m.Location <= last.end {
			last.end = max(last.end, end)
			continue
		}
		spans = append(spans, span{m.Location, end})
	}

	var b strings.Builder
	b.Grow(len(content))
	pos := 0
	for _, s := range spans {
		b.WriteString(content[pos:s.start])
		b.WriteString(Redacted)
		pos = min(s.end, len(content))
	}
	b.WriteString(content[pos:])
	return b.String()
}
