package commands

import (
	"github.com/spf13/cobra"

	"apexci/internal/config"
	"apexci/internal/history"
	"apexci/internal/ui"
)

// DefaultHistoryLimit is the number of deploys the history command shows
const DefaultHistoryLimit = 20

// HistoryCommand handles the history command
type HistoryCommand struct {
	env *Env
}

// NewHistoryCommand creates a new HistoryCommand
func NewHistoryCommand(env *Env) *HistoryCommand {
	return &HistoryCommand{env: env}
}

// Execute runs the command
func (hc *HistoryCommand) Execute(cmd *cobra.Command, args []string) error {
	cfg := hc.env.Config
	if cfg.HistoryDSN == "" {
		return &config.ConfigurationError{Field: "historyDSN", Reason: "required by the history command"}
	}

	store, err := history.Open(cfg.HistoryDSN, hc.env.logger())
	if err != nil {
		return err
	}
	defer store.Close()

	limit := cfg.Flags.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	runs, err := store.Recent(contextOf(cmd), limit)
	if err != nil {
		return err
	}

	ui.NewFormatterTo(cfg, hc.env.Out).PrintHistory(runs)
	return nil
}
