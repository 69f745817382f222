package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"apexci/internal/config"
	"apexci/internal/errors"
	"apexci/internal/metadata"
	"apexci/internal/packaging"
)

// DefaultDestructiveFile is where the destroy command writes the zip
const DefaultDestructiveFile = "destructive.zip"

// DestroyCommand handles the destroy command
type DestroyCommand struct {
	env *Env
}

// NewDestroyCommand creates a new DestroyCommand
func NewDestroyCommand(env *Env) *DestroyCommand {
	return &DestroyCommand{env: env}
}

// Execute runs the command
func (dc *DestroyCommand) Execute(cmd *cobra.Command, args []string) error {
	cfg := dc.env.Config
	className := args[0]

	zip, err := packaging.DestructivePackage(className, cfg.APIVersion)
	if err != nil {
		return err
	}

	output := cfg.Flags.Output
	if output == "" && !cfg.Flags.Submit {
		output = DefaultDestructiveFile
	}
	if output != "" {
		if err := afero.WriteFile(dc.env.FS, output, zip, 0644); err != nil {
			return errors.Errorf("failed to write destructive package: %w", err)
		}
		color.New(color.FgGreen).Fprintf(dc.env.Out, "✓ Destructive package for %s written to %s\n", className, output)
	}

	if !cfg.Flags.Submit {
		return nil
	}

	log := dc.env.logger()
	client := dc.env.NewClient(cfg, dc.env.FS, log)
	async, err := client.Deploy(contextOf(cmd), zip, metadata.DeployOptions{
		TestLevel:      config.TestLevelNoTestRun,
		SinglePackage:  true,
		IgnoreWarnings: true,
	})
	if err != nil {
		log.Error("Request status: Failed")
		return err
	}
	color.New(color.FgGreen).Fprintf(dc.env.Out, "✓ Removal of %s submitted to %s as deploy %s\n", className, cfg.Endpoint(), async.ID)

	return nil
}
