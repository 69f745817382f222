package commands

import (
	"time"

	"github.com/spf13/cobra"

	"apexci/internal/deploy"
	"apexci/internal/domain"
	"apexci/internal/history"
	"apexci/internal/storage"
	"apexci/internal/ui"
)

// DeployCommand handles the deploy command
type DeployCommand struct {
	env *Env
}

// NewDeployCommand creates a new DeployCommand
func NewDeployCommand(env *Env) *DeployCommand {
	return &DeployCommand{env: env}
}

// Execute runs the command
func (dc *DeployCommand) Execute(cmd *cobra.Command, args []string) error {
	cfg := dc.env.Config
	log := dc.env.logger()

	task := deploy.NewTask(cfg, dc.env.FS, dc.env.NewClient(cfg, dc.env.FS, log), log)
	task.Progress = ui.NewPollProgressTo(dc.env.ErrOut, cfg.MaxPolls)

	if cfg.HistoryDSN != "" {
		store, err := history.Open(cfg.HistoryDSN, log)
		if err != nil {
			return err
		}
		defer store.Close()
		task.History = store
	}

	start := time.Now()
	result, err := task.Execute(contextOf(cmd))
	if result == nil {
		return err
	}

	record := summaryRecord(task.Storage, storage.NewRecord(result, cfg.TargetOrg, task.ClassName(), time.Since(start), time.Now()))
	dc.print(record)

	if err != nil && cfg.Flags.OpenFailures {
		if viewErr := ui.NewFailureViewer(cfg).View(record); viewErr != nil {
			log.Warnf("Could not open the failures viewer: %v", viewErr)
		}
	}

	return err
}

// summaryRecord prefers the stored record of this deploy. A stored record of an earlier deploy
// is left when saving fails, so it is used only when the deploy IDs match.
func summaryRecord(store storage.Storage, built *storage.Record) *storage.Record {
	if store == nil {
		return built
	}

	stored, err := store.Load()
	if err != nil || stored == nil || stored.Result == nil || stored.Result.ID != built.Result.ID {
		return built
	}

	return stored
}

func (dc *DeployCommand) print(record *storage.Record) {
	formatter := ui.NewFormatterTo(dc.env.Config, dc.env.Out)
	formatter.PrintSummary(record)

	if hasCoverage(record.Result) {
		formatter.PrintCoverageTable(record.Result.Details.RunTestResult.CodeCoverage)
	}
}

func hasCoverage(result *domain.DeployResult) bool {
	return result.HasTestResult() && len(result.Details.RunTestResult.CodeCoverage) > 0
}
