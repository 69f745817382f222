package report

import (
	"time"

	"apexci/internal/domain"
	"apexci/internal/errors"
	"apexci/internal/schema/junit"
	"apexci/internal/tag"
)

// JUnitGenerator turns a test run into a JUnit testsuite.
type JUnitGenerator struct {
	SuiteName  string
	Properties map[string]string
	Now        func() time.Time
}

// Generate builds the report. The tests attribute counts executed tests that did not fail.
func (g *JUnitGenerator) Generate(result *domain.TestRunResult) (*tag.Document, error) {
	if result == nil {
		return nil, errors.New("junit report: no test run result")
	}

	suite := junit.NewSuite(
		g.SuiteName,
		result.NumTestsRun-result.NumFailures,
		result.NumFailures,
		0,
		seconds(result.TotalTime),
		now(g.Now),
	)
	suite.Properties(g.Properties)

	for _, s := range result.Successes {
		suite.TestCase(s.QualifiedName(), s.MethodName, seconds(s.Time))
	}
	for _, f := range result.Failures {
		suite.TestCase(f.QualifiedName(), f.MethodName, seconds(f.Time)).
			Failure(f.Message, f.Type, f.StackTrace)
	}

	if err := suite.Require("name", "tests", "failures", "errors", "time", "timestamp"); err != nil {
		return nil, err
	}

	return junit.Document(suite), nil
}

func seconds(ms float64) float64 {
	return ms / 1000
}

func now(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now()
	}

	return clock()
}
