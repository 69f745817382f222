// Package discovery finds Apex test classes in a source tree.
package discovery

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"apexci/internal/config"
	"apexci/internal/domain"
)

// ClassExtension is the file extension of Apex classes
const ClassExtension = ".cls"

// DefaultIncludes is used when a batch test declares no include pattern
var DefaultIncludes = []string{"**/*" + ClassExtension}

// TestClass is a test class found on disk
type TestClass struct {
	Name    string
	Path    string
	Methods []string
}

// Scanner scans a directory for test classes
type Scanner struct {
	fs     afero.Fs
	parser *Parser
}

// NewScanner creates a new Scanner reading from fs
func NewScanner(fs afero.Fs) *Scanner {
	return &Scanner{fs: fs, parser: NewParser()}
}

// Scan finds the test classes of a batch. Files matching an include pattern and no exclude
// pattern are read; only classes annotated as tests are returned, sorted by name.
func (s *Scanner) Scan(batch config.BatchTest) ([]TestClass, error) {
	root := filepath.Clean(batch.Dir)
	info, err := s.fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("test path does not exist: %s", root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("test path is not a directory: %s", root)
	}

	includes := batch.Includes
	if len(includes) == 0 {
		includes = DefaultIncludes
	}
	for _, pattern := range append(append([]string(nil), includes...), batch.Excludes...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid batch test pattern %q", pattern)
		}
	}

	var classes []TestClass
	err = afero.Walk(s.fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			// Skip hidden directories (starting with .)
			if p != root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(info.Name(), ClassExtension) {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !matchAny(includes, rel) || matchAny(batch.Excludes, rel) {
			return nil
		}

		content, err := afero.ReadFile(s.fs, p)
		if err != nil {
			return fmt.Errorf("error reading file %s: %w", p, err)
		}
		if !s.parser.IsTestClass(content) {
			return nil
		}

		classes = append(classes, TestClass{
			Name:    domain.QualifiedName(batch.Namespace, strings.TrimSuffix(path.Base(rel), ClassExtension)),
			Path:    p,
			Methods: s.parser.TestMethods(content),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })

	return classes, nil
}

// ScanAll scans every batch and returns the classes in batch order, dropping repeated names.
func (s *Scanner) ScanAll(batches []config.BatchTest) ([]TestClass, error) {
	var all []TestClass
	seen := make(map[string]bool)

	for _, batch := range batches {
		classes, err := s.Scan(batch)
		if err != nil {
			return nil, err
		}
		for _, class := range classes {
			key := strings.ToLower(class.Name)
			if seen[key] {
				continue
			}
			seen[key] = true
			all = append(all, class)
		}
	}

	return all, nil
}

// Names returns the class names of classes
func Names(classes []TestClass) []string {
	names := make([]string, 0, len(classes))
	for _, class := range classes {
		names = append(names, class.Name)
	}

	return names
}

func matchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}

	return false
}
