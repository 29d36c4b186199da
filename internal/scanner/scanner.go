// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package scanner finds credentials and prompt-injection text in document
// content so it can be redacted before indexing or flagged before it reaches
// a model.
package scanner

import (
	"context"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

// Stage identifies where in the pipeline content is scanned.
type Stage string

const (
	// StageDocument is chunk text at ingest time.
	StageDocument Stage = "document"
	// StagePassage is retrieved text about to be placed in a prompt.
	StagePassage Stage = "passage"
)

// Valid reports whether the stage is a known pipeline stage.
func (s Stage) Valid() bool {
	switch s {
	case StageDocument, StagePassage:
		return true
	default:
		return false
	}
}

// Severity indicates how critical a detection is.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

func (s Severity) Valid() bool {
	return s == SeverityHigh || s == SeverityMedium
}

// Result holds the outcome of a scan.
type Result struct {
	Threat  bool
	Matches []Match
	// Content is the normalized input (NFKC, invisible characters removed).
	// Match offsets index into it, so redaction must use it too.
	Content string
}

// Match describes a single pattern match. Location and Length are byte
// offsets into Result.Content and are never negative.
type Match struct {
	Rule     string
	Location int
	Length   int
	Severity Severity
}

// Scanner scans content for threats.
type Scanner interface {
	Scan(ctx context.Context, content string, stage Stage) (Result, error)
}

// Rule defines a detection pattern.
type Rule struct {
	// Stage is the only stage the rule is evaluated for.
	Stage    Stage
	Name     string
	Pattern  *regexp.Regexp
	Severity Severity
}

// DefaultMaxContentLength caps the content a RegexScanner accepts.
const DefaultMaxContentLength = 1 << 20

// RegexScanner implements Scanner using compiled regexes.
type RegexScanner struct {
	rules            []Rule
	maxContentLength int
}

// NewRegexScanner creates a scanner with the given rules.
func NewRegexScanner(rules []Rule) (*RegexScanner, error) {
	for i, r := range rules {
		if r.Pattern == nil {
			return nil, sigilerr.Errorf(sigilerr.CodeScannerRuleInvalid, "rule %d (%s) has nil pattern", i, r.Name)
		}
		if !r.Stage.Valid() {
			return nil, sigilerr.Errorf(sigilerr.CodeScannerRuleInvalid, "rule %d (%s) has invalid stage %q", i, r.Name, r.Stage)
		}
		if r.Name == "" {
			return nil, sigilerr.Errorf(sigilerr.CodeScannerRuleInvalid, "rule %d has empty name", i)
		}
		if !r.Severity.Valid() {
			return nil, sigilerr.Errorf(sigilerr.CodeScannerRuleInvalid, "rule %d (%s) has invalid severity %q", i, r.Name, r.Severity)
		}
	}
	return &RegexScanner{rules: rules, maxContentLength: DefaultMaxContentLength}, nil
}

// NewDefault creates a scanner with DefaultRules.
func NewDefault() *RegexScanner {
	s, err := NewRegexScanner(DefaultRules())
	if err != nil {
		panic(err) // built-in rules are static
	}
	return s
}

// invisibleCharReplacer strips zero-width and other invisible characters
// that would otherwise split a pattern.
var invisibleCharReplacer = strings.NewReplacer(
	"\u200B", "", // zero-width space
	"\u200C", "", // zero-width non-joiner
	"\u200D", "", // zero-width joiner
	"\uFEFF", "", // BOM
	"\u00AD", "", // soft hyphen
	"\u034F", "", // combining grapheme joiner
	"\u061C", "", // Arabic letter mark
	"\u180E", "", // Mongolian vowel separator
	"\u2060", "", // word joiner
	"\u2061", "",
	"\u2062", "",
	"\u2063", "",
	"\u2064", "",
)

func normalize(s string) string {
	return norm.NFKC.String(invisibleCharReplacer.Replace(s))
}

// Scan checks content against the rules for stage.
func (s *RegexScanner) Scan(_ context.Context, content string, stage Stage) (Result, error) {
	if !stage.Valid() {
		return Result{}, sigilerr.Errorf(sigilerr.CodeScannerRuleInvalid, "invalid scan stage %q", stage)
	}

	content = normalize(content)
	if len(content) > s.maxContentLength {
		return Result{Threat: true, Content: content, Matches: []Match{{
			Rule:     "content_too_large",
			Length:   len(content),
			Severity: SeverityHigh,
		}}}, nil
	}

	res := Result{Content: content}
	for _, rule := range s.rules {
		if rule.Stage != stage {
			continue
		}
		for _, loc := range rule.Pattern.FindAllStringIndex(content, -1) {
			res.Threat = true
			res.Matches = append(res.Matches, Match{
				Rule:     rule.Name,
				Location: loc[0],
				Length:   loc[1] - loc[0],
				Severity: rule.Severity,
			})
		}
	}
	return res, nil
}

// DefaultRules returns credential rules for documents and injection rules
// for passages.
func DefaultRules() []Rule {
	return slices.Concat(SecretRules(StageDocument), InjectionRules(StagePassage))
}

// InjectionRules returns patterns for text that tries to steer the model.
func InjectionRules(stage Stage) []Rule {
	return []Rule{
		{
			Name:     "instruction_override",
			Pattern:  regexp.MustCompile(`(?i)(ignore|disregard|override|forget|do\s+not\s+follow)\s+(all\s+)?(previous|prior|above)\s+(instructions|prompts|rules)`),
			Stage:    stage,
			Severity: SeverityHigh,
		},
		{
			Name:     "role_confusion",
			Pattern:  regexp.MustCompile(`(?i)you\s+are\s+now\s+\w+[,.]?\s*(do|ignore|forget|disregard)`),
			Stage:    stage,
			Severity: SeverityHigh,
		},
		{
			Name:     "system_block_injection",
			Pattern:  regexp.MustCompile(`(?i)(?:<\|?system\|?>|\[system\]|<<SYS>>|(?m:^SYSTEM:\s))`),
			Stage:    stage,
			Severity: SeverityHigh,
		},
		{
			Name:     "role_impersonation",
			Pattern:  regexp.MustCompile(`(?is)\[INST\].{0,1000}?\[/INST\]`),
			Stage:    stage,
			Severity: SeverityHigh,
		},
		{
			Name:     "new_task_injection",
			Pattern:  regexp.MustCompile(`(?i)(new\s+task:|from\s+now\s+on,?\s+you|pretend\s+(?:the\s+)?(?:above|previous)\s+(?:rules?|instructions?)\s+(?:do\s+not|don'?t)\s+exist)`),
			Stage:    stage,
			Severity: SeverityMedium,
		},
	}
}

// SecretRules returns credential patterns.
func SecretRules(stage Stage) []Rule {
	specs := []struct {
		name     string
		pattern  string
		severity Severity
	}{
		{"aws_access_key", `AKIA[0-9A-Z]{16}`, SeverityHigh},
		{"openai_api_key", `sk-proj-[A-Za-z0-9_-]{20,}`, SeverityHigh},
		{"openai_legacy_key", `sk-[A-Za-z0-9]{40,}`, SeverityMedium},
		{"anthropic_api_key", `sk-ant-api\d{2}-[A-Za-z0-9_-]{20,}`, SeverityHigh},
		{"google_api_key", `AIza[0-9A-Za-z_-]{35}`, SeverityHigh},
		{"github_pat", `ghp_[A-Za-z0-9]{36}`, SeverityHigh},
		{"github_fine_grained_pat", `github_pat_[A-Za-z0-9_]{22,}`, SeverityHigh},
		{"slack_token", `xox[bpas]-[A-Za-z0-9-]{10,}`, SeverityHigh},
		{"npm_token", `npm_[A-Za-z0-9]{36}`, SeverityHigh},
		{"vault_token", `hvs\.[A-Za-z0-9_-]{24,}`, SeverityHigh},
		{"bearer_token", `(?i)bearer\s+[A-Za-z0-9_\-.]{20,}`, SeverityHigh},
		{"pem_private_key", `-----BEGIN\s+(RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`, SeverityHigh},
		{"database_connection_string", `(?i)(postgres(?:ql)?|mysql|mongodb|redis|jdbc:[a-z]+)://[^\s:@]+:(?:[^@\s%]|%[0-9A-Fa-f]{2})+@(?:\[[0-9A-Fa-f:]+\]|[^\s/:]+)(?:[:/][^\s]*)?`, SeverityHigh},
		{"azure_connection_string", `(?i)AccountKey\s*=\s*[A-Za-z0-9+/=]{20,}`, SeverityHigh},
		{"keyring_uri", `keyring://[^\s]+`, SeverityMedium},
	}
	rules := make([]Rule, len(specs))
	for i, s := range specs {
		rules[i] = Rule{Name: s.name, Pattern: regexp.MustCompile(s.pattern), Stage: stage, Severity: s.severity}
	}
	return rules
}
