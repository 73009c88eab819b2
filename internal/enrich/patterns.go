package enrich

import (
	"context"
	"fmt"
	"regexp"

	"whatsthedamage/internal/core"
)

// CategoryPatterns is one named pattern list. Lists are matched in the order
// they appear in configuration, so they are slices, not maps.
type CategoryPatterns struct {
	Category string   `yaml:"category"`
	Patterns []string `yaml:"patterns"`
}

// PatternSets holds the configured pattern lists per matched row field.
type PatternSets struct {
	Type    []CategoryPatterns `yaml:"type"`
	Partner []CategoryPatterns `yaml:"partner"`
}

type compiledSet struct {
	category string
	patterns []*regexp.Regexp
}

// PatternMatcher categorizes rows by matching the type field first, then the
// partner field, against the configured pattern lists. First match wins.
type PatternMatcher struct {
	typeSets    []compiledSet
	partnerSets []compiledSet
}

var _ Categorizer = (*PatternMatcher)(nil)

// NewPatternMatcher compiles the configured patterns. Patterns are treated as
// case-insensitive regular expressions; a pattern that does not compile is a
// configuration error and fails fast, before any row processing.
func NewPatternMatcher(sets PatternSets) (*PatternMatcher, error) {
	typeSets, err := compileSets(sets.Type)
	if err != nil {
		return nil, fmt.Errorf("type patterns: %w", err)
	}
	partnerSets, err := compileSets(sets.Partner)
	if err != nil {
		return nil, fmt.Errorf("partner patterns: %w", err)
	}
	return &PatternMatcher{typeSets: typeSets, partnerSets: partnerSets}, nil
}

func compileSets(sets []CategoryPatterns) ([]compiledSet, error) {
	out := make([]compiledSet, 0, len(sets))
	for _, set := range sets {
		cs := compiledSet{category: set.Category}
		for _, p := range set.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("category %q pattern %q: %w", set.Category, p, err)
			}
			cs.patterns = append(cs.patterns, re)
		}
		out = append(out, cs)
	}
	return out, nil
}

// Categorize never fails after construction; it returns an empty label when
// nothing matches, leaving the fallback to the caller.
func (m *PatternMatcher) Categorize(_ context.Context, row core.Row) (string, error) {
	if label := match(m.typeSets, row.Type); label != "" {
		return label, nil
	}
	if label := match(m.partnerSets, row.Partner); label != "" {
		return label, nil
	}
	return "", nil
}

func match(sets []compiledSet, value string) string {
	if value == "" {
		return ""
	}
	for _, set := range sets {
		for _, re := range set.patterns {
			if re.MatchString(value) {
				return set.category
			}
		}
	}
	return ""
}
