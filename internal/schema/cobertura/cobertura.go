// Package cobertura builds Cobertura line-coverage XML on top of the tag model.
package cobertura

import (
	"strconv"

	"apexci/internal/tag"
)

// Doctype is the DOCTYPE declaration of the extended variant.
const Doctype = `<!DOCTYPE coverage SYSTEM "http://cobertura.sourceforge.net/xml/coverage-04.dtd">`

// Rates are the optional summary attributes of coverage, package and class elements.
type Rates struct {
	LineRate     float64
	LinesCovered int
	LinesValid   int
}

func (r Rates) apply(el *tag.Element, withCounts bool) {
	el.SetFloat("line-rate", r.LineRate)
	el.SetFloat("branch-rate", 0)
	if withCounts {
		el.SetInt("lines-covered", r.LinesCovered)
		el.SetInt("lines-valid", r.LinesValid)
		el.SetInt("branches-covered", 0)
		el.SetInt("branches-valid", 0)
	}
	el.SetFloat("complexity", 0)
}

// Coverage is the <coverage> root.
type Coverage struct {
	*tag.Element
	packages *tag.Element
}

// Package is a <package> element.
type Package struct {
	*tag.Element
	classes *tag.Element
}

// Class is a <class> element.
type Class struct {
	*tag.Element
	lines *tag.Element
}

// NewCoverage returns a coverage root with one source path and an empty packages block.
func NewCoverage(sourcePath string) *Coverage {
	el := tag.NewElement("coverage")
	el.AddElement("sources").AddElement("source").AddText(sourcePath)
	packages := el.AddElement("packages")

	return &Coverage{Element: el, packages: packages}
}

// SetRates adds line-rate and line counts to the root.
func (c *Coverage) SetRates(r Rates) *Coverage {
	r.apply(c.Element, true)
	return c
}

// SetVersion adds the version and timestamp (epoch milliseconds) attributes.
func (c *Coverage) SetVersion(version string, timestamp int64) *Coverage {
	c.SetString("version", version)
	c.SetString("timestamp", strconv.FormatInt(timestamp, 10))

	return c
}

// Package appends a package.
func (c *Coverage) Package(name string) *Package {
	el := c.packages.AddElement("package").SetString("name", name)
	classes := el.AddElement("classes")

	return &Package{Element: el, classes: classes}
}

// SetRates adds line-rate and branch-rate to the package.
func (p *Package) SetRates(r Rates) *Package {
	r.apply(p.Element, false)
	return p
}

// Class appends a class with its source file name.
func (p *Package) Class(name, filename string) *Class {
	el := p.classes.AddElement("class").
		SetString("name", name).
		SetString("filename", filename)
	lines := el.AddElement("lines")

	return &Class{Element: el, lines: lines}
}

// SetRates adds line-rate and branch-rate to the class.
func (c *Class) SetRates(r Rates) *Class {
	r.apply(c.Element, false)
	return c
}

// Line appends a line with its hit count.
func (c *Class) Line(number, hits int) {
	c.lines.AddElement("line").
		SetInt("number", number).
		SetInt("hits", hits)
}

// Document wraps the coverage root, with the Cobertura DOCTYPE when requested.
func Document(c *Coverage, withDoctype bool) *tag.Document {
	if withDoctype {
		return tag.NewXMLDocument(c.Element, Doctype)
	}

	return tag.NewXMLDocument(c.Element)
}
