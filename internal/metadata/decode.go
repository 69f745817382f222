package metadata

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"apexci/internal/domain"
	"apexci/internal/errors"
)

// Envelope is the JSON document printed by sf commands run with --json.
type Envelope struct {
	Status   int             `json:"status"`
	Name     string          `json:"name"`
	Message  string          `json:"message"`
	Result   json.RawMessage `json:"result"`
	Warnings []string        `json:"warnings"`
}

// Decode reads an sf envelope. A non-zero status becomes a *RemoteServiceError named after op.
func Decode(r io.Reader, op string) (*Envelope, error) {
	var env Envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, &RemoteServiceError{Op: op, Message: "unreadable sf output", Err: errors.WithStackTrace(err)}
	}
	if env.Status != 0 {
		return nil, &RemoteServiceError{Op: op, Name: env.Name, Message: env.Message}
	}

	return &env, nil
}

// DecodeDeployResult reads a deploy result, either wrapped in an sf envelope or bare.
func DecodeDeployResult(r io.Reader) (*domain.DeployResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WithStackTrace(err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.Errorf("decoding deploy result: %w", err)
	}

	raw := json.RawMessage(data)
	if _, wrapped := fields["result"]; wrapped {
		env, err := Decode(bytes.NewReader(data), "deploy report")
		if err != nil {
			return nil, err
		}
		raw = env.Result
	}

	return parseDeployResult(raw)
}

func parseDeployResult(raw json.RawMessage) (*domain.DeployResult, error) {
	var w wireDeployResult
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, errors.Errorf("decoding deploy result: %w", err)
	}

	return w.toDomain(), nil
}

// flexString accepts strings, numbers, booleans, and the {"$":{"xsi:nil":"true"}} objects the
// service uses for missing values.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || string(data) == "null" || data[0] == '{' || data[0] == '[':
		*s = ""
	case data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
	default:
		*s = flexString(data)
	}

	return nil
}

// flexInt accepts numbers and numeric strings.
type flexInt int

func (i *flexInt) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	if s == "" {
		*i = 0
		return nil
	}

	f, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return errors.Errorf("invalid number %q", string(s))
	}
	*i = flexInt(f)

	return nil
}

// flexFloat accepts numbers and numeric strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}

	v, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return errors.Errorf("invalid number %q", string(s))
	}
	*f = flexFloat(v)

	return nil
}

// flexBool accepts booleans and "true"/"false" strings.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	*b = flexBool(strings.EqualFold(string(s), "true"))

	return nil
}

// many accepts an array, a single object or null.
type many[T any] []T

func (m *many[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*m = nil
		return nil
	}
	if data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*m = items
		return nil
	}

	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	*m = []T{item}

	return nil
}

type wireDeployResult struct {
	ID                       flexString  `json:"id"`
	Done                     flexBool    `json:"done"`
	Status                   flexString  `json:"status"`
	Success                  flexBool    `json:"success"`
	CheckOnly                flexBool    `json:"checkOnly"`
	ErrorMessage             flexString  `json:"errorMessage"`
	NumberComponentsTotal    flexInt     `json:"numberComponentsTotal"`
	NumberComponentsDeployed flexInt     `json:"numberComponentsDeployed"`
	NumberComponentErrors    flexInt     `json:"numberComponentErrors"`
	NumberTestsTotal         flexInt     `json:"numberTestsTotal"`
	NumberTestsCompleted     flexInt     `json:"numberTestsCompleted"`
	NumberTestErrors         flexInt     `json:"numberTestErrors"`
	Details                  wireDetails `json:"details"`
}

type wireDetails struct {
	ComponentFailures many[wireComponentFailure] `json:"componentFailures"`
	RunTestResult     *wireTestRunResult         `json:"runTestResult"`
}

type wireComponentFailure struct {
	ComponentType flexString `json:"componentType"`
	FullName      flexString `json:"fullName"`
	FileName      flexString `json:"fileName"`
	LineNumber    flexInt    `json:"lineNumber"`
	ColumnNumber  flexInt    `json:"columnNumber"`
	Problem       flexString `json:"problem"`
	ProblemType   flexString `json:"problemType"`
}

type wireTestRunResult struct {
	NumTestsRun          flexInt                   `json:"numTestsRun"`
	NumFailures          flexInt                   `json:"numFailures"`
	TotalTime            flexFloat                 `json:"totalTime"`
	Successes            many[wireSuccess]         `json:"successes"`
	Failures             many[wireFailure]         `json:"failures"`
	CodeCoverage         many[wireCoverage]        `json:"codeCoverage"`
	CodeCoverageWarnings many[wireCoverageWarning] `json:"codeCoverageWarnings"`
}

type wireSuccess struct {
	Namespace  flexString `json:"namespace"`
	Name       flexString `json:"name"`
	MethodName flexString `json:"methodName"`
	Time       flexFloat  `json:"time"`
}

type wireFailure struct {
	Namespace  flexString `json:"namespace"`
	Name       flexString `json:"name"`
	MethodName flexString `json:"methodName"`
	Time       flexFloat  `json:"time"`
	Type       flexString `json:"type"`
	Message    flexString `json:"message"`
	StackTrace flexString `json:"stackTrace"`
}

type wireCoverage struct {
	Namespace              flexString         `json:"namespace"`
	Name                   flexString         `json:"name"`
	Type                   flexString         `json:"type"`
	NumLocations           flexInt            `json:"numLocations"`
	NumLocationsNotCovered flexInt            `json:"numLocationsNotCovered"`
	LocationsNotCovered    many[wireLocation] `json:"locationsNotCovered"`
}

type wireLocation struct {
	Line          flexInt `json:"line"`
	NumExecutions flexInt `json:"numExecutions"`
}

type wireCoverageWarning struct {
	Namespace flexString `json:"namespace"`
	Name      flexString `json:"name"`
	Message   flexString `json:"message"`
}

func (w *wireDeployResult) toDomain() *domain.DeployResult {
	r := &domain.DeployResult{
		ID:                       string(w.ID),
		Done:                     bool(w.Done),
		Status:                   string(w.Status),
		Success:                  bool(w.Success),
		CheckOnly:                bool(w.CheckOnly),
		ErrorMessage:             string(w.ErrorMessage),
		NumberComponentsTotal:    int(w.NumberComponentsTotal),
		NumberComponentsDeployed: int(w.NumberComponentsDeployed),
		NumberComponentErrors:    int(w.NumberComponentErrors),
		NumberTestsTotal:         int(w.NumberTestsTotal),
		NumberTestsCompleted:     int(w.NumberTestsCompleted),
		NumberTestErrors:         int(w.NumberTestErrors),
	}

	for _, f := range w.Details.ComponentFailures {
		r.Details.ComponentFailures = append(r.Details.ComponentFailures, domain.ComponentFailure{
			ComponentType: string(f.ComponentType),
			FullName:      string(f.FullName),
			FileName:      string(f.FileName),
			LineNumber:    int(f.LineNumber),
			ColumnNumber:  int(f.ColumnNumber),
			Problem:       string(f.Problem),
			ProblemType:   string(f.ProblemType),
		})
	}

	if t := w.Details.RunTestResult; t != nil {
		r.Details.RunTestResult = t.toDomain()
	}

	return r
}

func (t *wireTestRunResult) toDomain() *domain.TestRunResult {
	r := &domain.TestRunResult{
		NumTestsRun: int(t.NumTestsRun),
		NumFailures: int(t.NumFailures),
		TotalTime:   float64(t.TotalTime),
	}

	for _, s := range t.Successes {
		r.Successes = append(r.Successes, domain.Success{
			Namespace:  string(s.Namespace),
			Name:       string(s.Name),
			MethodName: string(s.MethodName),
			Time:       float64(s.Time),
		})
	}
	for _, f := range t.Failures {
		r.Failures = append(r.Failures, domain.Failure{
			Namespace:  string(f.Namespace),
			Name:       string(f.Name),
			MethodName: string(f.MethodName),
			Time:       float64(f.Time),
			Type:       string(f.Type),
			Message:    string(f.Message),
			StackTrace: string(f.StackTrace),
		})
	}
	for _, c := range t.CodeCoverage {
		cov := domain.CoverageResult{
			Namespace:              string(c.Namespace),
			Name:                   string(c.Name),
			Type:                   string(c.Type),
			NumLocations:           int(c.NumLocations),
			NumLocationsNotCovered: int(c.NumLocationsNotCovered),
		}
		for _, loc := range c.LocationsNotCovered {
			cov.LocationsNotCovered = append(cov.LocationsNotCovered, domain.CodeLocation{
				Line:          int(loc.Line),
				NumExecutions: int(loc.NumExecutions),
			})
		}
		r.CodeCoverage = append(r.CodeCoverage, cov)
	}
	for _, w := range t.CodeCoverageWarnings {
		r.CodeCoverageWarnings = append(r.CodeCoverageWarnings, domain.CoverageWarning{
			Namespace: string(w.Namespace),
			Name:      string(w.Name),
			Message:   string(w.Message),
		})
	}

	return r
}
