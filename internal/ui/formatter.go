package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"apexci/internal/config"
	"apexci/internal/coverage"
	"apexci/internal/discovery"
	"apexci/internal/domain"
	"apexci/internal/history"
	"apexci/internal/storage"
)

var (
	cyan   = color.New(color.FgCyan)
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	white  = color.New(color.FgWhite)
)

// Formatter formats and displays output
type Formatter struct {
	config *config.Config
	out    io.Writer
}

// NewFormatter creates a new Formatter writing to stdout
func NewFormatter(cfg *config.Config) *Formatter {
	return NewFormatterTo(cfg, os.Stdout)
}

// NewFormatterTo creates a new Formatter writing to w
func NewFormatterTo(cfg *config.Config, w io.Writer) *Formatter {
	return &Formatter{config: cfg, out: w}
}

// PrintSummary displays the statistics of a stored deploy, followed by the failed tests
func (f *Formatter) PrintSummary(record *storage.Record) {
	r := record.Result

	fmt.Fprintln(f.out)
	cyan.Fprintln(f.out, "╔═══════════════════════════════════════════════════════════════╗")
	cyan.Fprintln(f.out, "║                   Deploy Execution Statistics                 ║")
	cyan.Fprintln(f.out, "╚═══════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(f.out)

	fmt.Fprintln(f.out, "┌─────────────────────────────────┬─────────────────────────────┐")

	statusColor := green
	if !r.Success {
		statusColor = red
	}
	f.row(white, "Deploy ID", r.ID)
	f.row(statusColor, "Status", r.Status)
	f.row(white, "Target Org", f.config.Endpoint())
	f.row(white, "Components", fmt.Sprintf("%d/%d", r.NumberComponentsDeployed, r.NumberComponentsTotal))
	f.row(red, "Component Errors", strconv.Itoa(r.NumberComponentErrors))

	if t := r.Details.RunTestResult; t != nil {
		summary := coverage.Summarize(t.CodeCoverage)
		f.row(white, "Tests Run", strconv.Itoa(t.NumTestsRun))
		f.row(green, "Passed Tests", strconv.Itoa(t.NumTestsRun-t.NumFailures))
		f.row(red, "Failed Tests", strconv.Itoa(t.NumFailures))

		coverageColor := green
		if coverage.Level(summary.Percentage) == coverage.LevelLow {
			coverageColor = red
		}
		f.row(coverageColor, "Coverage", fmt.Sprintf("%.2f%% (%d/%d lines)", summary.Percentage, summary.Covered, summary.Locations))
	}

	f.row(white, "Duration", record.Meta.Duration)
	f.last(white, "Timestamp", record.Meta.Timestamp)
	fmt.Fprintln(f.out, "└─────────────────────────────────┴─────────────────────────────┘")

	fmt.Fprintln(f.out)
	if t := r.Details.RunTestResult; r.Success && (t == nil || t.NumFailures == 0) {
		green.Fprintln(f.out, "✓ Deploy succeeded!")
		return
	}

	red.Fprintf(f.out, "✗ Deploy %s with %d component error(s) and %d test failure(s)\n",
		r.Status, len(r.Details.ComponentFailures), failureCount(r))
	fmt.Fprintln(f.out)
	f.printComponentFailures(r.Details.ComponentFailures)
	if r.Details.RunTestResult != nil {
		f.printFailedTestsTree(r.Details.RunTestResult.Failures)
	}
}

func (f *Formatter) row(c *color.Color, label, value string) {
	fmt.Fprintf(f.out, "│ %-31s │ ", label)
	c.Fprintf(f.out, "%-27s │\n", value)
	fmt.Fprintln(f.out, "├─────────────────────────────────┼─────────────────────────────┤")
}

func (f *Formatter) last(c *color.Color, label, value string) {
	fmt.Fprintf(f.out, "│ %-31s │ ", label)
	c.Fprintf(f.out, "%-27s │\n", value)
}

func failureCount(r *domain.DeployResult) int {
	if r.Details.RunTestResult == nil {
		return 0
	}

	return len(r.Details.RunTestResult.Failures)
}

func (f *Formatter) printComponentFailures(failures []domain.ComponentFailure) {
	for _, cf := range failures {
		location := cf.FileName
		if cf.LineNumber > 0 {
			location = fmt.Sprintf("%s:%d", cf.FileName, cf.LineNumber)
		}
		yellow.Fprintf(f.out, "%s %s", cf.ComponentType, cf.FullName)
		if location != "" {
			fmt.Fprintf(f.out, " (%s)", location)
		}
		fmt.Fprintln(f.out)
		red.Fprintf(f.out, "  |_%s\n", cf.Problem)
	}
	if len(failures) > 0 {
		fmt.Fprintln(f.out)
	}
}

// printFailedTestsTree prints the failed methods grouped by test class
func (f *Formatter) printFailedTestsTree(failures []domain.Failure) {
	if len(failures) == 0 {
		return
	}

	byClass := make(map[string][]domain.Failure)
	for _, failure := range failures {
		byClass[failure.QualifiedName()] = append(byClass[failure.QualifiedName()], failure)
	}

	classes := make([]string, 0, len(byClass))
	for class := range byClass {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	for i, class := range classes {
		isLastClass := i == len(classes)-1
		if isLastClass {
			cyan.Fprintf(f.out, "└── %s\n", class)
		} else {
			cyan.Fprintf(f.out, "├── %s\n", class)
		}

		methods := byClass[class]
		for j, failure := range methods {
			prefix := "│   "
			if isLastClass {
				prefix = "    "
			}
			if j == len(methods)-1 {
				prefix += "└── "
			} else {
				prefix += "├── "
			}
			fmt.Fprintf(f.out, "%s%s %s\n", prefix, red.Sprint(failure.MethodName), failure.Message)
		}
	}
}

// PrintCoverageTable prints one row per class or trigger with a total footer
func (f *Formatter) PrintCoverageTable(results []domain.CoverageResult) {
	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetTitle("Code Coverage")
	t.AppendHeader(table.Row{"Name", "Type", "Lines", "Covered", "Coverage"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Lines", Align: text.AlignRight},
		{Name: "Covered", Align: text.AlignRight},
		{Name: "Coverage", Align: text.AlignRight},
	})

	for _, r := range results {
		pct := coverage.Percentage(r)
		value := fmt.Sprintf("%.2f%%", pct)
		if coverage.Level(pct) == coverage.LevelLow {
			value = red.Sprint(value)
		} else {
			value = green.Sprint(value)
		}
		t.AppendRow(table.Row{r.QualifiedName(), r.Type, r.NumLocations, coverage.Covered(r), value})
	}

	summary := coverage.Summarize(results)
	t.AppendFooter(table.Row{"Total", "", summary.Locations, summary.Covered, fmt.Sprintf("%.2f%%", summary.Percentage)})
	t.SetStyle(table.StyleLight)
	t.Render()
}

// PrintTestList prints the test classes, optionally with their test methods.
// failed is optional; classes in this set are marked with [F] in red (from the last deploy).
func (f *Formatter) PrintTestList(classes []discovery.TestClass, showMethods bool, failed map[string]struct{}) {
	green.Fprintf(f.out, "Found %d test class(es):\n\n", len(classes))

	for i, class := range classes {
		failMarker := ""
		if _, ok := failed[class.Name]; ok {
			failMarker = " " + red.Sprint("[F]")
		}

		isLastClass := i == len(classes)-1
		if isLastClass {
			cyan.Fprintf(f.out, "└── %s%s\n", class.Name, failMarker)
		} else {
			cyan.Fprintf(f.out, "├── %s%s\n", class.Name, failMarker)
		}
		if !showMethods {
			continue
		}

		indent := "│   "
		if isLastClass {
			indent = "    "
		}
		if len(class.Methods) == 0 {
			fmt.Fprintf(f.out, "%s└── %s\n", indent, red.Sprint("(no test methods found)"))
		}
		for j, method := range class.Methods {
			connector := "├── "
			if j == len(class.Methods)-1 {
				connector = "└── "
			}
			fmt.Fprintf(f.out, "%s%s%s\n", indent, connector, yellow.Sprint(method))
		}
	}
}

// PrintHistory prints the recorded runs, newest first
func (f *Formatter) PrintHistory(runs []history.Run) {
	if len(runs) == 0 {
		yellow.Fprintln(f.out, "No deploys recorded yet")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetTitle("Deploy History")
	t.AppendHeader(table.Row{"Date", "Deploy ID", "Org", "Status", "Tests", "Failures", "Coverage"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Failures", Align: text.AlignRight},
		{Name: "Coverage", Align: text.AlignRight},
	})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.CreatedAt.Local().Format("2006-01-02 15:04"),
			run.DeployID,
			run.TargetOrg,
			run.Status,
			run.TestsRun,
			run.Failures,
			fmt.Sprintf("%.2f%%", run.Percentage),
		})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}
