package coverage

import (
	"apexci/internal/domain"
)

// Summary aggregates the locations of several coverage results.
type Summary struct {
	Locations  int
	Covered    int
	NotCovered int
	Percentage float64
	// Classes counts results; CoveredClasses those with at least one covered location.
	Classes        int
	CoveredClasses int
}

// Summarize totals the results. Without any location the percentage is 100.
func Summarize(results []domain.CoverageResult) Summary {
	var s Summary
	for _, r := range results {
		s.Locations += r.NumLocations
		s.NotCovered += r.NumLocationsNotCovered
		s.Covered += Covered(r)
		s.Classes++
		if Covered(r) > 0 {
			s.CoveredClasses++
		}
	}

	s.Percentage = 100.0
	if s.Locations > 0 {
		s.Percentage = float64(s.Covered) * 100 / float64(s.Locations)
	}

	return s
}

// BelowThreshold returns the results whose percentage is under min, in input order.
func BelowThreshold(results []domain.CoverageResult, min float64) []domain.CoverageResult {
	var out []domain.CoverageResult
	for _, r := range results {
		if Percentage(r) < min {
			out = append(out, r)
		}
	}

	return out
}
