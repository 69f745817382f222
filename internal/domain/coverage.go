package domain

// Entity kinds that carry coverage data.
const (
	KindClass   = "Class"
	KindTrigger = "Trigger"
)

// CoverageResult is the coverage of one class or trigger. The server only lists the lines
// that were not covered; every other executable line is implied covered.
type CoverageResult struct {
	Namespace              string         `json:"namespace,omitempty"`
	Name                   string         `json:"name"`
	Type                   string         `json:"type"`
	NumLocations           int            `json:"numLocations"`
	NumLocationsNotCovered int            `json:"numLocationsNotCovered"`
	LocationsNotCovered    []CodeLocation `json:"locationsNotCovered,omitempty"`
}

// QualifiedName returns the namespace-qualified name.
func (c CoverageResult) QualifiedName() string {
	return QualifiedName(c.Namespace, c.Name)
}

// CodeLocation is a line reported by the server with its execution count.
type CodeLocation struct {
	Line          int `json:"line"`
	NumExecutions int `json:"numExecutions"`
}
