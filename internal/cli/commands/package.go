package commands

import (
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"apexci/internal/errors"
	"apexci/internal/packaging"
)

// DefaultPackageFile is where the package command writes the zip
const DefaultPackageFile = "deploy.zip"

// PackageCommand handles the package command
type PackageCommand struct {
	env *Env
}

// NewPackageCommand creates a new PackageCommand
func NewPackageCommand(env *Env) *PackageCommand {
	return &PackageCommand{env: env}
}

// Execute runs the command
func (pc *PackageCommand) Execute(cmd *cobra.Command, args []string) error {
	cfg := pc.env.Config

	transformer := packaging.NewTransformer(pc.env.FS, pc.env.logger())
	res, err := transformer.Transform(packaging.SourceFromConfig(cfg), packaging.Options{
		TestLevel:       cfg.TestLevel,
		EnforceCoverage: cfg.EnforceCoverage,
		RunTests:        cfg.RunTests,
		APIVersion:      cfg.APIVersion,
	})
	if err != nil {
		return err
	}

	output := cfg.Flags.Output
	if output == "" {
		output = DefaultPackageFile
	}
	if dir := filepath.Dir(output); dir != "." {
		if err := pc.env.FS.MkdirAll(dir, 0755); err != nil {
			return errors.WithStackTrace(err)
		}
	}
	if err := afero.WriteFile(pc.env.FS, output, res.Zip, 0644); err != nil {
		return errors.Errorf("failed to write package: %w", err)
	}

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Fprintf(pc.env.Out, "✓ Package written to %s (%s)\n", output, res.State)
	if res.ClassName != "" {
		yellow.Fprintf(pc.env.Out, "  Test class: %s\n", res.ClassName)
	}
	if res.SkipReason != "" {
		yellow.Fprintf(pc.env.Out, "  Left unmodified: %s\n", res.SkipReason)
	}
	if len(res.RunTests) > 0 {
		yellow.Fprintf(pc.env.Out, "  Tests: %s\n", strings.Join(res.RunTests, ", "))
	}

	return nil
}
