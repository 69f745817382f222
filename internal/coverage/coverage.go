// Package coverage derives line and percentage coverage from the sparse results of a test run.
package coverage

import (
	"apexci/internal/domain"
)

// Threshold is the percentage at which a class counts as well covered (inclusive).
const Threshold = 75.0

// Coverage levels used to colour report rows.
const (
	LevelLow  = "low"
	LevelHigh = "high"
)

// LineHit is the hit count of one executable line.
type LineHit struct {
	Number int
	Hits   int
}

// Covered returns the number of covered locations.
func Covered(r domain.CoverageResult) int {
	return r.NumLocations - r.NumLocationsNotCovered
}

// Ratio returns covered/total. A result without locations counts as fully covered.
func Ratio(r domain.CoverageResult) float64 {
	if r.NumLocations == 0 {
		return 1.0
	}

	return float64(Covered(r)) / float64(r.NumLocations)
}

// Percentage returns Ratio as a percentage.
func Percentage(r domain.CoverageResult) float64 {
	return Ratio(r) * 100
}

// LineHits rebuilds the full line table 1..NumLocations in ascending order. Lines reported as
// not covered keep their recorded execution count; every other line is counted as hit once.
func LineHits(r domain.CoverageResult) []LineHit {
	if r.NumLocations <= 0 {
		return nil
	}

	notCovered := make(map[int]int, len(r.LocationsNotCovered))
	for _, loc := range r.LocationsNotCovered {
		notCovered[loc.Line] = loc.NumExecutions
	}

	hits := make([]LineHit, r.NumLocations)
	for i := range hits {
		line := i + 1
		count, ok := notCovered[line]
		if !ok {
			count = 1
		}
		hits[i] = LineHit{Number: line, Hits: count}
	}

	return hits
}

// ClassFilePath returns the package-relative source path of a class or trigger. Namespaced
// results belong to installed packages and have no local source, so they get an empty path.
func ClassFilePath(r domain.CoverageResult) string {
	if r.Name == "" || r.Namespace != "" {
		return ""
	}

	switch r.Type {
	case domain.KindClass:
		return "classes/" + r.Name + ".cls"
	case domain.KindTrigger:
		return "triggers/" + r.Name + ".trigger"
	}

	return ""
}

// Level returns LevelLow below Threshold and LevelHigh otherwise.
func Level(percentage float64) string {
	if percentage < Threshold {
		return LevelLow
	}

	return LevelHigh
}
