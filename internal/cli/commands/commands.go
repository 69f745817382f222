package commands

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"apexci/internal/cli"
	"apexci/internal/config"
	"apexci/internal/logging"
	"apexci/internal/metadata"
)

// Env is shared by every command. Log is set once the configuration is loaded.
type Env struct {
	Config *config.Config
	FS     afero.Fs
	Out    io.Writer
	ErrOut io.Writer
	Getenv func(string) string
	Log    *logrus.Entry
	// NewClient builds the metadata client of deploy and destroy.
	NewClient func(cfg *config.Config, fs afero.Fs, log *logrus.Entry) metadata.Client
}

// NewEnv returns the environment of a real run: the OS file system, stdout and the sf CLI.
func NewEnv(cfg *config.Config) *Env {
	return &Env{
		Config: cfg,
		FS:     afero.NewOsFs(),
		Out:    os.Stdout,
		ErrOut: os.Stderr,
		Getenv: os.Getenv,
		NewClient: func(cfg *config.Config, fs afero.Fs, log *logrus.Entry) metadata.Client {
			return metadata.NewSFClient(cfg, fs, log)
		},
	}
}

func (e *Env) logger() *logrus.Entry {
	if e.Log == nil {
		e.Log = logging.NewWithWriter(e.ErrOut, e.Config.LogLevel, e.Config.LogFormat)
	}

	return e.Log
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}

// Commands holds all CLI commands
type Commands struct {
	env *Env

	Deploy   *DeployCommand
	Package  *PackageCommand
	Report   *ReportCommand
	Destroy  *DestroyCommand
	List     *ListCommand
	Failures *FailuresCommand
	History  *HistoryCommand
}

// NewCommands creates all commands sharing env
func NewCommands(env *Env) *Commands {
	return &Commands{
		env:      env,
		Deploy:   NewDeployCommand(env),
		Package:  NewPackageCommand(env),
		Report:   NewReportCommand(env),
		Destroy:  NewDestroyCommand(env),
		List:     NewListCommand(env),
		Failures: NewFailuresCommand(env),
		History:  NewHistoryCommand(env),
	}
}

// prepare loads the configuration with the parsed flags applied. validate is set for the
// commands that build or submit a deploy.
func (c *Commands) prepare(flags *cli.Flags, validate bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(flags.ToConfigFlags())
		if err != nil {
			return err
		}
		*c.env.Config = *loaded
		c.env.logger()

		if validate {
			return c.env.Config.Validate()
		}
		return nil
	}
}

// Register registers all commands with cobra
func (c *Commands) Register(rootCmd *cobra.Command, flags *cli.Flags) {
	rootCmd.PersistentFlags().StringVarP(&flags.ConfigFile, "config", "c", "", "Path to the configuration file (default ./apexci.yaml)")
	rootCmd.PersistentFlags().StringVarP(&flags.TargetOrg, "target-org", "o", "", "Username or alias of the target org")

	packageFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVarP(&flags.DeployRoot, "deploy-root", "d", "", "Directory of the metadata package")
		cmd.Flags().StringVarP(&flags.ZipFile, "zip-file", "z", "", "Zipped metadata package, instead of a directory")
		cmd.Flags().StringVarP(&flags.TestLevel, "test-level", "l", "", "Deploy test level (NoTestRun, RunSpecifiedTests, RunLocalTests, RunAllTestsInOrg)")
		cmd.Flags().StringSliceVarP(&flags.RunTests, "tests", "t", nil, "Test classes to run with RunSpecifiedTests")
	}

	// Deploy command
	deployCmd := &cobra.Command{
		Use:     "deploy",
		Short:   "Deploy the package and report on its tests",
		Long:    "Deploy the metadata package, wait for the server-side test run and write JUnit, Cobertura and HTML reports",
		RunE:    c.Deploy.Execute,
		PreRunE: c.prepare(flags, true),
	}
	packageFlags(deployCmd)
	deployCmd.Flags().BoolVar(&flags.CheckOnly, "check-only", false, "Validate the deploy without saving the components")
	deployCmd.Flags().StringVarP(&flags.ReportsDir, "reports-dir", "r", "", "Directory the reports are written to")
	deployCmd.Flags().BoolVar(&flags.OpenFailures, "open-failures", false, "Open the failures viewer when the deploy fails")
	rootCmd.AddCommand(deployCmd)

	// Package command
	packageCmd := &cobra.Command{
		Use:     "package",
		Short:   "Build the deploy package without deploying it",
		Long:    "Zip the metadata package as deploy would send it, including the generated coverage test class",
		RunE:    c.Package.Execute,
		PreRunE: c.prepare(flags, true),
	}
	packageFlags(packageCmd)
	packageCmd.Flags().StringVar(&flags.Output, "output", DefaultPackageFile, "Path of the written zip")
	rootCmd.AddCommand(packageCmd)

	// Report command
	reportCmd := &cobra.Command{
		Use:     "report",
		Short:   "Write the reports of the last deploy",
		Long:    "Generate the reports from the stored last deploy, or from the JSON output of 'sf project deploy report --json'",
		RunE:    c.Report.Execute,
		PreRunE: c.prepare(flags, false),
	}
	reportCmd.Flags().StringVarP(&flags.ResultFile, "result-file", "f", "", "sf JSON deploy result to read instead of the last deploy")
	reportCmd.Flags().StringVarP(&flags.ReportsDir, "reports-dir", "r", "", "Directory the reports are written to")
	rootCmd.AddCommand(reportCmd)

	// Destroy command
	destroyCmd := &cobra.Command{
		Use:     "destroy <class>",
		Short:   "Remove a generated test class",
		Long:    "Build the destructive package deleting a test class left behind by an interrupted deploy, and optionally submit it",
		Args:    cobra.ExactArgs(1),
		RunE:    c.Destroy.Execute,
		PreRunE: c.prepare(flags, false),
	}
	destroyCmd.Flags().StringVar(&flags.Output, "output", "", "Path of the written zip (default "+DefaultDestructiveFile+" unless --submit)")
	destroyCmd.Flags().BoolVar(&flags.Submit, "submit", false, "Deploy the destructive package to the target org")
	rootCmd.AddCommand(destroyCmd)

	// List command
	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List test classes",
		Long:    "Scan the batch test directories, or the deploy root, and list the test classes",
		RunE:    c.List.Execute,
		PreRunE: c.prepare(flags, false),
	}
	listCmd.Flags().StringVarP(&flags.DeployRoot, "deploy-root", "d", "", "Directory of the metadata package")
	listCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter classes by name pattern (supports wildcards, e.g., '*AccountTest' or '*Payment*')")
	listCmd.Flags().BoolVarP(&flags.TestMethods, "methods", "m", false, "List the test methods of each class")
	rootCmd.AddCommand(listCmd)

	// Failures command
	failuresCmd := &cobra.Command{
		Use:     "failures",
		Short:   "View deploy failures interactively",
		Long:    "Display component errors, test failures and coverage warnings of the last deploy in an interactive viewer",
		RunE:    c.Failures.Execute,
		PreRunE: c.prepare(flags, false),
	}
	rootCmd.AddCommand(failuresCmd)

	// History command
	historyCmd := &cobra.Command{
		Use:     "history",
		Short:   "Show recent deploys",
		Long:    "List the deploys recorded in the history database with their test and coverage totals",
		RunE:    c.History.Execute,
		PreRunE: c.prepare(flags, false),
	}
	historyCmd.Flags().IntVarP(&flags.Limit, "limit", "n", DefaultHistoryLimit, "Number of deploys to show")
	rootCmd.AddCommand(historyCmd)
}
