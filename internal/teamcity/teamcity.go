// Package teamcity writes test and coverage results as TeamCity service messages.
package teamcity

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"apexci/internal/coverage"
	"apexci/internal/domain"
)

// ProjectEnv is set by TeamCity agents. Without it the reporter writes nothing.
const ProjectEnv = "TEAMCITY_PROJECT_NAME"

// Coverage statistic keys understood by TeamCity.
const (
	StatLinesCovered   = "CodeCoverageAbsLCovered"
	StatLinesTotal     = "CodeCoverageAbsLTotal"
	StatLinesPercent   = "CodeCoverageL"
	StatClassesCovered = "CodeCoverageAbsCCovered"
	StatClassesTotal   = "CodeCoverageAbsCTotal"
)

const coverageBlock = "Code Coverage Summary"

var escaper = strings.NewReplacer(
	"|", "||",
	"\n", "|n",
	"\r", "|r",
	"'", "|'",
	"[", "|[",
	"]", "|]",
	"\u0085", "|x",
	"\u2028", "|l",
	"\u2029", "|p",
)

// Escape applies the service message escaping rules to a value.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Reporter emits service messages when running on a TeamCity agent.
type Reporter struct {
	// Getenv looks up environment variables, os.Getenv in production.
	Getenv    func(string) string
	Out       io.Writer
	SuiteName string
}

// Enabled reports whether the TeamCity project variable is present.
func (r *Reporter) Enabled() bool {
	return r.Getenv != nil && r.Getenv(ProjectEnv) != ""
}

// Report writes the test suite followed by the coverage statistics.
func (r *Reporter) Report(result *domain.TestRunResult) error {
	if !r.Enabled() || result == nil {
		return nil
	}

	w := bufio.NewWriter(r.Out)
	suite := r.SuiteName
	if suite == "" {
		suite = "Apex"
	}

	message(w, "testSuiteStarted", "name", suite)
	for _, s := range result.Successes {
		name := testName(s.QualifiedName(), s.MethodName)
		message(w, "testStarted", "name", name)
		message(w, "testFinished", "name", name, "duration", millis(s.Time))
	}
	for _, f := range result.Failures {
		name := testName(f.QualifiedName(), f.MethodName)
		message(w, "testStarted", "name", name)
		message(w, "testFailed", "name", name, "message", f.Message, "details", f.StackTrace, "type", f.Type)
		message(w, "testFinished", "name", name, "duration", millis(f.Time))
	}
	message(w, "testSuiteFinished", "name", suite, "duration", millis(result.TotalTime))

	summary := coverage.Summarize(result.CodeCoverage)
	message(w, "blockOpened", "name", coverageBlock)
	statistic(w, StatLinesCovered, strconv.Itoa(summary.Covered))
	statistic(w, StatLinesTotal, strconv.Itoa(summary.Locations))
	statistic(w, StatLinesPercent, strconv.FormatFloat(summary.Percentage, 'f', 2, 64))
	statistic(w, StatClassesCovered, strconv.Itoa(summary.CoveredClasses))
	statistic(w, StatClassesTotal, strconv.Itoa(summary.Classes))
	for _, warning := range result.CodeCoverageWarnings {
		text := warning.Message
		if name := warning.QualifiedName(); name != "" {
			text = name + ": " + text
		}
		message(w, "message", "text", text, "status", "WARNING")
	}
	message(w, "blockClosed", "name", coverageBlock)

	return w.Flush()
}

func statistic(w *bufio.Writer, key, value string) {
	message(w, "buildStatisticValue", "key", key, "value", value)
}

// message writes one ##teamcity line. Attributes are given as key, value pairs.
func message(w *bufio.Writer, name string, attrs ...string) {
	w.WriteString("##teamcity[" + name)
	for i := 0; i+1 < len(attrs); i += 2 {
		fmt.Fprintf(w, " %s='%s'", attrs[i], Escape(attrs[i+1]))
	}
	w.WriteString("]\n")
}

func testName(class, method string) string {
	if method == "" {
		return class
	}

	return class + "." + method
}

func millis(ms float64) string {
	return strconv.FormatInt(int64(ms), 10)
}
