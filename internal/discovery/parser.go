package discovery

import (
	"regexp"
	"sort"
	"strings"
)

var (
	// blockComment and lineComment are stripped before matching so commented out tests are ignored
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineComment  = regexp.MustCompile(`(?m)//.*$`)
	// classAnnotation matches @IsTest on the class declaration, with optional parameters
	classAnnotation = regexp.MustCompile(`(?i)@istest(?:\s*\([^)]*\))?\s*(?:(?:public|private|global|virtual|abstract|with\s+sharing|without\s+sharing|inherited\s+sharing)\s+)*class\s+\w+`)
	// annotatedMethod matches methods annotated with @IsTest
	annotatedMethod = regexp.MustCompile(`(?i)@istest(?:\s*\([^)]*\))?\s*(?:(?:public|private|protected|global|static|override)\s+)*\w+(?:<[^>]*>)?\s+(\w+)\s*\(`)
	// testMethodKeyword matches the legacy testMethod modifier
	testMethodKeyword = regexp.MustCompile(`(?i)\btestmethod\s+\w+(?:<[^>]*>)?\s+(\w+)\s*\(`)
)

// Parser detects test classes and test methods in Apex sources
type Parser struct{}

// NewParser creates a new Parser
func NewParser() *Parser {
	return &Parser{}
}

// IsTestClass reports whether the source declares an @IsTest class
func (p *Parser) IsTestClass(content []byte) bool {
	return classAnnotation.Match(stripComments(content))
}

// TestMethods returns the test methods of a class in declaration order
func (p *Parser) TestMethods(content []byte) []string {
	src := stripComments(content)

	type match struct {
		pos  int
		name string
	}
	var matches []match
	seen := make(map[string]bool)

	for _, re := range []*regexp.Regexp{annotatedMethod, testMethodKeyword} {
		for _, m := range re.FindAllSubmatchIndex(src, -1) {
			name := string(src[m[2]:m[3]])
			key := strings.ToLower(name)
			if seen[key] {
				continue
			}
			seen[key] = true
			matches = append(matches, match{pos: m[0], name: name})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].pos < matches[j].pos })

	methods := make([]string, 0, len(matches))
	for _, m := range matches {
		methods = append(methods, m.name)
	}

	return methods
}

func stripComments(content []byte) []byte {
	return lineComment.ReplaceAll(blockComment.ReplaceAll(content, nil), nil)
}
