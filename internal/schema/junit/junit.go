// Package junit builds JUnit XML test reports on top of the tag model.
package junit

import (
	"sort"
	"time"

	"apexci/internal/tag"
)

// TimestampLayout is the ISO-8601 layout used by the testsuite timestamp attribute.
const TimestampLayout = "2006-01-02T15:04:05"

// Suite is a <testsuite> element.
type Suite struct {
	*tag.Element
}

// Case is a <testcase> element.
type Case struct {
	*tag.Element
}

// NewSuite returns a testsuite with every required attribute set. Times are in seconds.
func NewSuite(name string, tests, failures, errors int, seconds float64, timestamp time.Time) *Suite {
	el := tag.NewElement("testsuite").
		SetString("name", name).
		SetInt("tests", tests).
		SetInt("failures", failures).
		SetInt("errors", errors).
		SetFloat("time", seconds).
		SetString("timestamp", timestamp.UTC().Format(TimestampLayout))

	return &Suite{Element: el}
}

// Properties adds a <properties> block with one property per entry, sorted by name.
// An empty map adds nothing.
func (s *Suite) Properties(props map[string]string) {
	if len(props) == 0 {
		return
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	block := s.AddElement("properties")
	for _, name := range names {
		block.AddElement("property").
			SetString("name", name).
			SetString("value", props[name])
	}
}

// TestCase appends a testcase. Time is in seconds.
func (s *Suite) TestCase(classname, name string, seconds float64) *Case {
	el := s.AddElement("testcase").
		SetString("classname", classname).
		SetString("name", name).
		SetFloat("time", seconds)

	return &Case{Element: el}
}

// Failure marks the case as failed. The stack trace becomes the CDATA body.
func (c *Case) Failure(message, typ, stackTrace string) {
	c.AddElement("failure").
		SetString("message", message).
		SetString("type", typ).
		AddCDATA(stackTrace)
}

// Document wraps the suites in an XML document. A single suite is the root element,
// several are grouped under <testsuites>.
func Document(suites ...*Suite) *tag.Document {
	if len(suites) == 1 {
		return tag.NewXMLDocument(suites[0].Element)
	}

	root := tag.NewElement("testsuites")
	for _, s := range suites {
		root.Append(s.Element)
	}

	return tag.NewXMLDocument(root)
}
