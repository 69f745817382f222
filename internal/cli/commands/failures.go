package commands

import (
	"github.com/spf13/cobra"

	"apexci/internal/storage"
	"apexci/internal/ui"
)

// FailuresCommand handles the failures command
type FailuresCommand struct {
	env *Env
}

// NewFailuresCommand creates a new FailuresCommand
func NewFailuresCommand(env *Env) *FailuresCommand {
	return &FailuresCommand{env: env}
}

// Execute runs the command
func (fc *FailuresCommand) Execute(cmd *cobra.Command, args []string) error {
	record, err := storage.NewJSONStorage(fc.env.Config, fc.env.FS).Load()
	if err != nil {
		return err
	}

	var viewer ui.Viewer = ui.NewFailureViewer(fc.env.Config)
	return viewer.View(record)
}
