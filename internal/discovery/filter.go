package discovery

import (
	"path/filepath"
	"strings"
)

// Filter filters modules by name pattern
type Filter struct{}

// NewFilter creates a new Filter
func NewFilter() *Filter {
	return &Filter{}
}

// FilterByName filters module names by pattern using wildcard matching.
// Supports patterns like "io_*" or "*parallel*"; a pattern without wildcards
// matches as a substring.
func (f *Filter) FilterByName(modules []string, pattern string) []string {
	if pattern == "" {
		return modules
	}

	var filtered []string
	for _, module := range modules {
		if f.matches(filepath.Base(module), pattern) {
			filtered = append(filtered, module)
		}
	}
	return filtered
}

// FilterBySet keeps the modules present in keep, preserving order
func (f *Filter) FilterBySet(modules []string, keep map[string]struct{}) []string {
	var filtered []string
	for _, module := range modules {
		if _, ok := keep[module]; ok {
			filtered = append(filtered, module)
		}
	}
	return filtered
}

func (f *Filter) matches(name, pattern string) bool {
	if matched, err := filepath.Match(pattern, name); err == nil && matched {
		return true
	}

	if !strings.ContainsAny(pattern, "*?") {
		return strings.Contains(name, pattern)
	}

	// filepath.Match is anchored; fall back to "every literal part appears in order"
	if !strings.Contains(pattern, "*") {
		return false
	}
	rest := name
	matchedAny := false
	for _, part := range strings.Split(pattern, "*") {
		if part == "" {
			continue
		}
		i := strings.Index(rest, part)
		if i < 0 {
			return false
		}
		rest = rest[i+len(part):]
		matchedAny = true
	}
	return matchedAny
}
