// Package exclusion tracks which categories are left out of statistical
// analysis. Defaults come from configuration; user overrides replace them
// per algorithm at runtime. A missing or malformed exclusion source yields
// empty sets — this registry never blocks processing.
package exclusion

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrInvalidExclusions rejects malformed user exclusion input at assignment
// time; it is never silently coerced.
var ErrInvalidExclusions = errors.New("exclusions must be a list of non-empty category names")

// Registry holds default and user-set exclusion lists, optionally keyed by
// algorithm name. The "default" key is a plain list name: it participates in
// the no-algorithm union only, never in per-algorithm queries.
type Registry struct {
	mu       sync.RWMutex
	defaults map[string][]string
	user     map[string][]string
}

// NewRegistry builds a registry from the configured defaults. A nil map is
// fine and yields empty exclusion sets.
func NewRegistry(defaults map[string][]string) *Registry {
	normalized := make(map[string][]string, len(defaults))
	for algorithm, categories := range defaults {
		normalized[algorithm] = append([]string(nil), categories...)
	}
	return &Registry{
		defaults: normalized,
		user:     make(map[string][]string),
	}
}

// SetUserExclusions replaces the user exclusion list for one algorithm.
// Replace, not merge.
func (r *Registry) SetUserExclusions(algorithm string, categories []string) error {
	if strings.TrimSpace(algorithm) == "" {
		return ErrInvalidExclusions
	}
	if categories == nil {
		return ErrInvalidExclusions
	}
	for _, c := range categories {
		if strings.TrimSpace(c) == "" {
			return ErrInvalidExclusions
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.user[algorithm] = append([]string(nil), categories...)
	return nil
}

// ClearUserExclusions drops user overrides for one algorithm, or all of them
// when algorithm is empty.
func (r *Registry) ClearUserExclusions(algorithm string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if algorithm == "" {
		r.user = make(map[string][]string)
		return
	}
	delete(r.user, algorithm)
}

// Exclusions returns the combined exclusion set. With an algorithm name it is
// the union of that algorithm's default and user lists; with an empty name it
// is the union across every list, the "default" one included. The result is
// sorted and de-duplicated.
func (r *Registry) Exclusions(algorithm string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := make(map[string]struct{})
	collect := func(m map[string][]string) {
		for key, categories := range m {
			if algorithm != "" && key != algorithm {
				continue
			}
			for _, c := range categories {
				set[c] = struct{}{}
			}
		}
	}
	collect(r.defaults)
	collect(r.user)

	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// IsExcluded reports whether a category is in the combined exclusion set.
func (r *Registry) IsExcluded(category, algorithm string) bool {
	if category == "" {
		return false
	}
	for _, c := range r.Exclusions(algorithm) {
		if c == category {
			return true
		}
	}
	return false
}
