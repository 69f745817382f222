package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"apexci/internal/config"
	"apexci/internal/discovery"
	"apexci/internal/errors"
	"apexci/internal/storage"
	"apexci/internal/ui"
)

// ListCommand handles the list command
type ListCommand struct {
	env    *Env
	filter *discovery.Filter
}

// NewListCommand creates a new ListCommand
func NewListCommand(env *Env) *ListCommand {
	return &ListCommand{env: env, filter: discovery.NewFilter()}
}

// Execute runs the command
func (lc *ListCommand) Execute(cmd *cobra.Command, args []string) error {
	cfg := lc.env.Config

	batches := cfg.GetBatchTests()
	if len(batches) == 0 {
		if cfg.DeployRoot == "" {
			return errors.New("list needs batchTests or a deploy root")
		}
		batches = []config.BatchTest{{Dir: cfg.GetDeployRoot()}}
	}

	classes, err := discovery.NewScanner(lc.env.FS).ScanAll(batches)
	if err != nil {
		return err
	}

	classes = lc.filter.FilterByName(classes, cfg.Flags.NameFilter)
	if len(classes) == 0 {
		color.New(color.FgYellow).Fprintln(lc.env.Out, "No test classes found")
		return nil
	}

	ui.NewFormatterTo(cfg, lc.env.Out).PrintTestList(classes, cfg.Flags.TestMethods, lc.failedClasses())
	return nil
}

// failedClasses returns the test classes that failed in the last deploy, if one was stored.
func (lc *ListCommand) failedClasses() map[string]struct{} {
	record, err := storage.NewJSONStorage(lc.env.Config, lc.env.FS).Load()
	if err != nil || !record.Result.HasTestResult() {
		return nil
	}

	failed := make(map[string]struct{})
	for _, f := range record.Result.Details.RunTestResult.Failures {
		failed[f.QualifiedName()] = struct{}{}
	}

	return failed
}
