package domain

// TestRunResult is the server-side test run attached to a deploy.
type TestRunResult struct {
	NumTestsRun          int               `json:"numTestsRun"`
	NumFailures          int               `json:"numFailures"`
	TotalTime            float64           `json:"totalTime"` // milliseconds
	Successes            []Success         `json:"successes,omitempty"`
	Failures             []Failure         `json:"failures,omitempty"`
	CodeCoverage         []CoverageResult  `json:"codeCoverage,omitempty"`
	CodeCoverageWarnings []CoverageWarning `json:"codeCoverageWarnings,omitempty"`
}

// Success is a passed test method.
type Success struct {
	Namespace  string  `json:"namespace,omitempty"`
	Name       string  `json:"name"`
	MethodName string  `json:"methodName"`
	Time       float64 `json:"time"` // milliseconds
}

// QualifiedName returns the namespace-qualified class name.
func (s Success) QualifiedName() string {
	return QualifiedName(s.Namespace, s.Name)
}

// CoverageWarning reports a class or trigger that failed a server-side coverage check.
type CoverageWarning struct {
	Namespace string `json:"namespace,omitempty"`
	Name      string `json:"name,omitempty"`
	Message   string `json:"message"`
}

// QualifiedName returns the namespace-qualified name of the warned entity.
func (w CoverageWarning) QualifiedName() string {
	return QualifiedName(w.Namespace, w.Name)
}
