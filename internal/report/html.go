package report

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"apexci/internal/coverage"
	"apexci/internal/domain"
	"apexci/internal/errors"
	"apexci/internal/schema/htmldoc"
	"apexci/internal/tag"
)

//go:embed assets/report.css
var reportCSS string

//go:embed assets/sort.js
var sortJS string

// IndexPage is the name of the summary page.
const IndexPage = "index.html"

// DefaultHTMLTitle is used when HTMLGenerator.Title is empty.
const DefaultHTMLTitle = "Apex Code Coverage"

const footerLayout = "2006-01-02 15:04:05 MST"

// Page is one generated HTML file.
type Page struct {
	Name string
	Doc  *tag.Document
}

// HTMLGenerator renders the coverage dashboard and, when sources can be read, one page per
// class or trigger.
type HTMLGenerator struct {
	FS afero.Fs
	// SourceDir is the package directory holding classes/ and triggers/. Empty disables
	// per-class pages.
	SourceDir     string
	PerClassPages bool
	Title         string
	Now           func() time.Time
}

// Generate builds the summary page first, followed by the per-class pages.
func (g *HTMLGenerator) Generate(result *domain.TestRunResult) ([]Page, error) {
	if result == nil {
		return nil, errors.New("html report: no test run result")
	}

	generated := now(g.Now)

	var classPages []Page
	links := map[string]string{}
	if g.PerClassPages && g.SourceDir != "" && g.FS != nil {
		for _, r := range result.CodeCoverage {
			page, err := g.classPage(r, generated)
			if err != nil {
				return nil, err
			}
			if page == nil {
				continue
			}
			links[r.QualifiedName()+"|"+r.Type] = page.Name
			classPages = append(classPages, *page)
		}
	}

	index := g.summaryPage(result, links, generated)

	return append([]Page{{Name: IndexPage, Doc: index}}, classPages...), nil
}

func (g *HTMLGenerator) title() string {
	if g.Title == "" {
		return DefaultHTMLTitle
	}

	return g.Title
}

func (g *HTMLGenerator) summaryPage(result *domain.TestRunResult, links map[string]string, generated time.Time) *tag.Document {
	summary := coverage.Summarize(result.CodeCoverage)

	page := htmldoc.New(g.title())
	page.StyleSheet(reportCSS)

	container := page.Body.Div().Class("container")
	container.H1().Text(g.title())

	cards := container.Div().Class("coverage-summary")
	summaryItem(cards, "Total coverage", "totalCoveragePercentage", percent(summary.Percentage))
	summaryItem(cards, "Lines covered", "totalLinesCoverage", fmt.Sprintf("%d / %d", summary.Covered, summary.Locations))
	summaryItem(cards, "Coverage warnings", "totalCoverageWarnings", strconv.Itoa(len(result.CodeCoverageWarnings)))

	container.Div().Class("chart").
		Div().Class("chart-bar", coverage.Level(summary.Percentage)).
		Style("width: " + percent(summary.Percentage))

	table := container.Table().ID("coverageTable").Class("sortable")
	head := table.Thead().Tr()
	head.Th().Set("data-sort", "string").Text("Name")
	head.Th().Set("data-sort", "string").Text("Type")
	head.Th().Set("data-sort", "number").Text("Lines")
	head.Th().Set("data-sort", "number").Text("Covered")
	head.Th().Set("data-sort", "number").Text("Coverage")

	body := table.Tbody()
	for _, r := range result.CodeCoverage {
		pct := coverage.Percentage(r)
		row := body.Tr().Class(coverage.Level(pct))

		name := row.Td().Class("name")
		if href, ok := links[r.QualifiedName()+"|"+r.Type]; ok {
			name.A(href).Text(r.QualifiedName())
		} else {
			name.Text(r.QualifiedName())
		}
		row.Td().Text(r.Type)
		row.Td().Class("number").Text(strconv.Itoa(r.NumLocations))
		row.Td().Class("number").Text(strconv.Itoa(coverage.Covered(r)))
		row.Td().Class("number", "percentage").
			Set("data-value", strconv.FormatFloat(pct, 'f', 2, 64)).
			Text(percent(pct))
	}

	if len(result.CodeCoverageWarnings) > 0 {
		section := container.Section().Class("warnings")
		section.H2().Text("Coverage warnings")
		list := section.Ul().ID("coverageWarningsList")
		for _, w := range result.CodeCoverageWarnings {
			item := list.Li()
			if name := w.QualifiedName(); name != "" {
				item.Strong().Text(name)
				item.Text(": " + w.Message)
			} else {
				item.Text(w.Message)
			}
		}
	}

	container.Footer().Text("Generated by apexci on " + generated.UTC().Format(footerLayout))
	page.Script(sortJS)

	return page.Document()
}

func summaryItem(parent htmldoc.Elem, label, id, value string) {
	item := parent.Div().Class("summary-item")
	item.Span().Class("label").Text(label)
	item.Span().Class("value").ID(id).Text(value)
}

// classPage returns nil when the result has no local source file.
func (g *HTMLGenerator) classPage(r domain.CoverageResult, generated time.Time) (*Page, error) {
	rel := coverage.ClassFilePath(r)
	if rel == "" {
		return nil, nil
	}

	src, err := afero.ReadFile(g.FS, filepath.Join(g.SourceDir, filepath.FromSlash(rel)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, errors.WithStackTrace(err)
	}

	// Lines reported as not covered but executed at least once are only partly covered.
	states := make(map[int]string, len(r.LocationsNotCovered))
	for _, loc := range r.LocationsNotCovered {
		if loc.NumExecutions == 0 {
			states[loc.Line] = "not-covered"
		} else if states[loc.Line] == "" {
			states[loc.Line] = "partial"
		}
	}

	pct := coverage.Percentage(r)
	page := htmldoc.New(r.Name + " - " + g.title())
	page.StyleSheet(reportCSS)

	container := page.Body.Div().Class("container")
	container.P().A(IndexPage).Text("Back to summary")
	container.H1().Text(r.Name)

	cards := container.Div().Class("coverage-summary")
	summaryItem(cards, "Coverage", "classCoveragePercentage", percent(pct))
	summaryItem(cards, "Lines covered", "classLinesCoverage", fmt.Sprintf("%d / %d", coverage.Covered(r), r.NumLocations))

	source := container.Table().Class("source").Tbody()
	lines := strings.Split(strings.TrimRight(strings.ReplaceAll(string(src), "\r\n", "\n"), "\n"), "\n")
	for i, line := range lines {
		number := i + 1
		row := source.Tr().Class("line", states[number]).ID("L" + strconv.Itoa(number))
		row.Td().Class("line-number").Text(strconv.Itoa(number))
		row.Td().Class("code").Text(line)
	}

	container.Footer().Text("Generated by apexci on " + generated.UTC().Format(footerLayout))

	return &Page{Name: ClassPageName(r), Doc: page.Document()}, nil
}

// ClassPageName returns the file name of the page of a class or trigger.
func ClassPageName(r domain.CoverageResult) string {
	prefix := "class"
	if r.Type == domain.KindTrigger {
		prefix = "trigger"
	}

	return prefix + "-" + r.Name + ".html"
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "%"
}
