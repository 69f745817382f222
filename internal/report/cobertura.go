package report

import (
	"time"

	"apexci/internal/coverage"
	"apexci/internal/domain"
	"apexci/internal/errors"
	"apexci/internal/schema/cobertura"
	"apexci/internal/tag"
)

// CoberturaVersion is written in the version attribute of extended reports.
const CoberturaVersion = "apexci"

// CoberturaGenerator turns the coverage of a test run into a Cobertura report, one package per
// entity kind.
type CoberturaGenerator struct {
	ProjectRoot string
	// Extended adds rates, version, timestamp and the DOCTYPE.
	Extended bool
	Now      func() time.Time
}

// Generate builds the report.
func (g *CoberturaGenerator) Generate(result *domain.TestRunResult) (*tag.Document, error) {
	if result == nil {
		return nil, errors.New("cobertura report: no test run result")
	}

	root := cobertura.NewCoverage(g.ProjectRoot)
	if g.Extended {
		root.SetRates(rates(coverage.Summarize(result.CodeCoverage)))
		root.SetVersion(CoberturaVersion, now(g.Now).UnixMilli())
	}

	for _, group := range groupByKind(result.CodeCoverage) {
		pkg := root.Package(group.kind)
		if g.Extended {
			pkg.SetRates(rates(coverage.Summarize(group.results)))
		}

		for _, r := range group.results {
			class := pkg.Class(r.QualifiedName(), coverage.ClassFilePath(r))
			if g.Extended {
				class.SetRates(rates(coverage.Summarize([]domain.CoverageResult{r})))
			}
			for _, line := range coverage.LineHits(r) {
				class.Line(line.Number, line.Hits)
			}
		}
	}

	return cobertura.Document(root, g.Extended), nil
}

type kindGroup struct {
	kind    string
	results []domain.CoverageResult
}

// groupByKind keeps the kinds in order of first appearance.
func groupByKind(results []domain.CoverageResult) []*kindGroup {
	var groups []*kindGroup
	index := map[string]*kindGroup{}
	for _, r := range results {
		g, ok := index[r.Type]
		if !ok {
			g = &kindGroup{kind: r.Type}
			index[r.Type] = g
			groups = append(groups, g)
		}
		g.results = append(g.results, r)
	}

	return groups
}

func rates(s coverage.Summary) cobertura.Rates {
	return cobertura.Rates{
		LineRate:     s.Percentage / 100,
		LinesCovered: s.Covered,
		LinesValid:   s.Locations,
	}
}
