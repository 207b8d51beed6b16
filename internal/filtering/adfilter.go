// Package filtering implements the admission decision for incoming messages:
// a channel whitelist and a suppression rule list. Matchers are built once
// from a frozen rule snapshot and never mutated; configuration changes swap
// in a freshly built snapshot instead.
package filtering

import (
	"log/slog"
	"regexp"
	"strings"

	"feedmirror/internal/logging"
)

// Rule is a single suppression rule: a case-insensitive literal substring or
// a case-insensitive regular expression.
type Rule struct {
	Pattern string
	IsRegex bool
	Enabled bool
}

type matcher interface {
	matches(lowered string) bool
}

// literalMatcher holds the pattern pre-lowered; input arrives lowered too.
type literalMatcher string

func (m literalMatcher) matches(lowered string) bool {
	return strings.Contains(lowered, string(m))
}

type regexMatcher struct {
	re *regexp.Regexp
}

func (m regexMatcher) matches(lowered string) bool {
	return m.re.MatchString(lowered)
}

// AdFilter decides whether message text matches any enabled suppression rule.
type AdFilter struct {
	matchers []matcher
}

// NewAdFilter compiles enabled rules into matchers. Disabled rules are
// ignored entirely. An invalid regular expression is skipped with a single
// warning rather than failing the whole rule set.
func NewAdFilter(rules []Rule, logger *slog.Logger) *AdFilter {
	if logger == nil {
		logger = logging.NewNop()
	}
	matchers := make([]matcher, 0, len(rules))
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		pattern := strings.TrimSpace(rule.Pattern)
		if pattern == "" {
			continue
		}
		if rule.IsRegex {
			re, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				logger.Warn("skipping invalid suppression rule",
					logging.String("pattern", pattern),
					logging.Error(err),
					logging.String(logging.FieldEventType, "rule_compile_failed"),
				)
				continue
			}
			matchers = append(matchers, regexMatcher{re: re})
			continue
		}
		matchers = append(matchers, literalMatcher(strings.ToLower(pattern)))
	}
	return &AdFilter{matchers: matchers}
}

// IsSuppressed reports whether any enabled rule matches the combined text and
// caption. An empty rule set suppresses nothing. Matching short-circuits on
// the first hit.
func (f *AdFilter) IsSuppressed(text, caption string) bool {
	if f == nil || len(f.matchers) == 0 {
		return false
	}
	lowered := strings.ToLower(text + "\n" + caption)
	for _, m := range f.matchers {
		if m.matches(lowered) {
			return true
		}
	}
	return false
}

// RuleCount returns the number of compiled matchers.
func (f *AdFilter) RuleCount() int {
	if f == nil {
		return 0
	}
	return len(f.matchers)
}
