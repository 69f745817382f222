package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"apexci/internal/domain"
	"apexci/internal/errors"
	"apexci/internal/metadata"
	"apexci/internal/report"
	"apexci/internal/storage"
	"apexci/internal/ui"
)

// ReportCommand handles the report command
type ReportCommand struct {
	env *Env
}

// NewReportCommand creates a new ReportCommand
func NewReportCommand(env *Env) *ReportCommand {
	return &ReportCommand{env: env}
}

// Execute runs the command
func (rc *ReportCommand) Execute(cmd *cobra.Command, args []string) error {
	cfg := rc.env.Config
	log := rc.env.logger()

	result, err := rc.load()
	if err != nil {
		return err
	}
	if !result.HasTestResult() {
		color.New(color.FgYellow).Fprintf(rc.env.Out, "Deploy %s has no test results to report\n", result.ID)
		return nil
	}

	reporter := report.NewReporterWithOutput(cfg, rc.env.FS, log, rc.env.Getenv, rc.env.Out)
	paths, err := reporter.Generate(result.Details.RunTestResult)
	for _, path := range paths {
		color.New(color.FgGreen).Fprintf(rc.env.Out, "✓ %s\n", path)
	}
	if hasCoverage(result) {
		ui.NewFormatterTo(cfg, rc.env.Out).PrintCoverageTable(result.Details.RunTestResult.CodeCoverage)
	}

	return err
}

// load reads the --result-file when given, the stored last deploy otherwise.
func (rc *ReportCommand) load() (*domain.DeployResult, error) {
	path := rc.env.Config.Flags.ResultFile
	if path == "" {
		record, err := storage.NewJSONStorage(rc.env.Config, rc.env.FS).Load()
		if err != nil {
			return nil, err
		}
		return record.Result, nil
	}

	f, err := rc.env.FS.Open(path)
	if err != nil {
		return nil, errors.Errorf("failed to open result file: %w", err)
	}
	defer f.Close()

	return metadata.DecodeDeployResult(f)
}
