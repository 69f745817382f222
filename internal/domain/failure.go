package domain

// Failure is a failed test method.
type Failure struct {
	Namespace  string  `json:"namespace,omitempty"`
	Name       string  `json:"name"`
	MethodName string  `json:"methodName"`
	Time       float64 `json:"time"` // milliseconds
	Type       string  `json:"type"`
	Message    string  `json:"message"`
	StackTrace string  `json:"stackTrace"`
}

// QualifiedName returns the namespace-qualified class name.
func (f Failure) QualifiedName() string {
	return QualifiedName(f.Namespace, f.Name)
}

// ComponentFailure is a metadata component the server refused to deploy.
type ComponentFailure struct {
	ComponentType string `json:"componentType"`
	FullName      string `json:"fullName"`
	FileName      string `json:"fileName"`
	LineNumber    int    `json:"lineNumber,omitempty"`
	ColumnNumber  int    `json:"columnNumber,omitempty"`
	Problem       string `json:"problem"`
	ProblemType   string `json:"problemType"`
}
