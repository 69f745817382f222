package discovery

import (
	"path/filepath"
	"strings"
)

// Filter filters test classes by name pattern
type Filter struct{}

// NewFilter creates a new Filter
func NewFilter() *Filter {
	return &Filter{}
}

// FilterByName filters test classes by name pattern using wildcard matching.
// Supports patterns like "*AccountTest" or "*Payment*"; a pattern without wildcards matches
// names containing it. Matching ignores case, as Apex names do.
func (f *Filter) FilterByName(classes []TestClass, pattern string) []TestClass {
	if pattern == "" {
		return classes
	}

	pattern = strings.ToLower(pattern)
	hasWildcard := strings.ContainsAny(pattern, "*?")

	var filtered []TestClass
	for _, class := range classes {
		name := strings.ToLower(class.Name)

		if hasWildcard {
			if matched, err := filepath.Match(pattern, name); err == nil && matched {
				filtered = append(filtered, class)
			}
			continue
		}

		if strings.Contains(name, pattern) {
			filtered = append(filtered, class)
		}
	}

	return filtered
}
