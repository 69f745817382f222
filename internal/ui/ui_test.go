package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apexci/internal/config"
	"apexci/internal/discovery"
	"apexci/internal/domain"
	"apexci/internal/history"
	"apexci/internal/storage"
)

func init() {
	color.NoColor = true
}

func failedDeploy() *domain.DeployResult {
	return &domain.DeployResult{
		ID:                       "0Af1",
		Done:                     true,
		Status:                   domain.StatusFailed,
		NumberComponentsTotal:    3,
		NumberComponentsDeployed: 2,
		NumberComponentErrors:    1,
		Details: domain.DeployDetails{
			ComponentFailures: []domain.ComponentFailure{{
				ComponentType: "ApexClass",
				FullName:      "Broken",
				FileName:      "classes/Broken.cls",
				LineNumber:    4,
				ColumnNumber:  2,
				Problem:       "Unexpected token '['",
				ProblemType:   "Error",
			}},
			RunTestResult: &domain.TestRunResult{
				NumTestsRun: 3,
				NumFailures: 1,
				Failures: []domain.Failure{{
					Name:       "ContactTest",
					MethodName: "updates",
					Message:    "Assertion Failed",
					StackTrace: strings.Repeat("Class.ContactTest.updates: line 1\n", 12),
				}},
				CodeCoverage: []domain.CoverageResult{
					{Name: "Contact", Type: "Class", NumLocations: 4, NumLocationsNotCovered: 3},
				},
				CodeCoverageWarnings: []domain.CoverageWarning{{Message: "Average test coverage is 25%"}},
			},
		},
	}
}

func TestPrintSummary(t *testing.T) {
	var out bytes.Buffer
	cfg := config.New()
	cfg.TargetOrg = "ci"

	NewFormatterTo(cfg, &out).PrintSummary(&storage.Record{
		Meta:   storage.Meta{Duration: "42s", Timestamp: "2026-01-02T03:04:05Z"},
		Result: failedDeploy(),
	})

	s := out.String()
	assert.Contains(t, s, "Deploy Execution Statistics")
	assert.Contains(t, s, "Target Org")
	assert.Contains(t, s, "│ ci ")
	assert.Contains(t, s, "2/3")
	assert.Contains(t, s, "25.00% (1/4 lines)")
	assert.Contains(t, s, "✗ Deploy Failed with 1 component error(s) and 1 test failure(s)")
	assert.Contains(t, s, "ApexClass Broken (classes/Broken.cls:4)")
	assert.Contains(t, s, "└── ContactTest\n    └── updates Assertion Failed")
}

func TestPrintSummarySuccess(t *testing.T) {
	var out bytes.Buffer

	NewFormatterTo(config.New(), &out).PrintSummary(&storage.Record{
		Result: &domain.DeployResult{ID: "0Af2", Status: domain.StatusSucceeded, Success: true},
	})

	assert.Contains(t, out.String(), "✓ Deploy succeeded!")
	assert.NotContains(t, out.String(), "Tests Run")
}

func TestPrintCoverageTable(t *testing.T) {
	var out bytes.Buffer

	NewFormatterTo(config.New(), &out).PrintCoverageTable([]domain.CoverageResult{
		{Name: "Account", Type: "Class", NumLocations: 10, NumLocationsNotCovered: 1},
		{Namespace: "ns", Name: "OnLead", Type: "Trigger", NumLocations: 10, NumLocationsNotCovered: 10},
	})

	s := out.String()
	assert.Contains(t, s, "Code Coverage")
	assert.Contains(t, s, "Account")
	assert.Contains(t, s, "90.00%")
	assert.Contains(t, s, "ns.OnLead")
	assert.Contains(t, s, "45.00%")
}

func TestPrintTestList(t *testing.T) {
	var out bytes.Buffer
	classes := []discovery.TestClass{
		{Name: "AccountTest", Methods: []string{"creates", "updates"}},
		{Name: "LeadTest"},
	}

	NewFormatterTo(config.New(), &out).PrintTestList(classes, true, map[string]struct{}{"AccountTest": {}})

	expected := "Found 2 test class(es):\n\n" +
		"├── AccountTest [F]\n" +
		"│   ├── creates\n" +
		"│   └── updates\n" +
		"└── LeadTest\n" +
		"    └── (no test methods found)\n"
	assert.Equal(t, expected, out.String())
}

func TestPrintHistoryEmpty(t *testing.T) {
	var out bytes.Buffer
	NewFormatterTo(config.New(), &out).PrintHistory(nil)
	assert.Contains(t, out.String(), "No deploys recorded yet")

	out.Reset()
	NewFormatterTo(config.New(), &out).PrintHistory([]history.Run{{DeployID: "0Af1", Status: "Succeeded", Percentage: 80}})
	assert.Contains(t, out.String(), "0Af1")
	assert.Contains(t, out.String(), "80.00%")
}

func TestFailureViewerItems(t *testing.T) {
	fv := NewFailureViewer(config.New())

	items := fv.items(failedDeploy())
	require.Len(t, items, 3)
	assert.Equal(t, "component", items[0].kind)
	assert.Equal(t, "ApexClass Broken", items[0].title)
	assert.Contains(t, items[0].details, "classes/Broken.cls:4:2")
	assert.Contains(t, items[0].details, "Unexpected token")

	assert.Equal(t, "test", items[1].kind)
	assert.Equal(t, "ContactTest.updates", items[1].title)
	assert.Contains(t, items[1].details, "... and 2 more lines")

	assert.Equal(t, "coverage", items[2].kind)
	assert.Equal(t, "Coverage", items[2].title)

	assert.Empty(t, fv.items(&domain.DeployResult{}))
}

func TestPollProgress(t *testing.T) {
	var out bytes.Buffer
	p := NewPollProgressTo(&out, 10)

	p.Update(3, &domain.DeployResult{Status: domain.StatusInProgress, NumberComponentsTotal: 4, NumberComponentsDeployed: 2})
	p.Finish()

	assert.Contains(t, out.String(), "Deploying (InProgress)")
	assert.Contains(t, out.String(), "components: 2/4")
}
