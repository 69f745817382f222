package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"apexci/internal/errors"
)

// Config holds all configuration for the application
type Config struct {
	// Project settings
	ProjectPath string `yaml:"projectPath"`
	TargetOrg   string `yaml:"targetOrg"`

	// Package settings: exactly one of DeployRoot and ZipFile
	DeployRoot string `yaml:"deployRoot"`
	ZipFile    string `yaml:"zipFile"`
	APIVersion string `yaml:"apiVersion"`

	// Test settings
	TestLevel        string      `yaml:"testLevel"`
	RunTests         []string    `yaml:"runTests"`
	BatchTests       []BatchTest `yaml:"batchTests"`
	EnforceCoverage  bool        `yaml:"enforceCoverage"`
	MinClassCoverage float64     `yaml:"minClassCoverage"`

	// Deploy settings
	CheckOnly      bool          `yaml:"checkOnly"`
	IgnoreWarnings bool          `yaml:"ignoreWarnings"`
	SinglePackage  bool          `yaml:"singlePackage"`
	PollInterval   time.Duration `yaml:"pollInterval"`
	MaxPolls       int           `yaml:"maxPolls"`
	SFPath         string        `yaml:"sfPath"`

	Reports Reports `yaml:"reports"`

	// Output settings
	StateDir   string `yaml:"stateDir"`
	HistoryDSN string `yaml:"historyDSN"`
	LogLevel   string `yaml:"logLevel"`
	LogFormat  string `yaml:"logFormat"`

	// Command flags
	Flags Flags `yaml:"-"`
}

// BatchTest selects test classes from a directory by glob patterns.
type BatchTest struct {
	Dir       string   `yaml:"dir"`
	Includes  []string `yaml:"includes"`
	Excludes  []string `yaml:"excludes"`
	Namespace string   `yaml:"namespace"`
}

// Reports configures the generated reports.
type Reports struct {
	Dir       string          `yaml:"dir"`
	JUnit     JUnitReport     `yaml:"junit"`
	Cobertura CoberturaReport `yaml:"cobertura"`
	HTML      HTMLReport      `yaml:"html"`
}

// JUnitReport configures the JUnit XML report.
type JUnitReport struct {
	Enabled    bool              `yaml:"enabled"`
	File       string            `yaml:"file"`
	SuiteName  string            `yaml:"suiteName"`
	Properties map[string]string `yaml:"properties"`
}

// CoberturaReport configures the Cobertura XML report.
type CoberturaReport struct {
	Enabled     bool   `yaml:"enabled"`
	File        string `yaml:"file"`
	ProjectRoot string `yaml:"projectRoot"`
	Extended    bool   `yaml:"extended"`
}

// HTMLReport configures the HTML coverage report.
type HTMLReport struct {
	Enabled       bool   `yaml:"enabled"`
	Dir           string `yaml:"dir"`
	SourceDir     string `yaml:"sourceDir"`
	PerClassPages bool   `yaml:"perClassPages"`
}

// Flags holds command-line flags
type Flags struct {
	ConfigFile   string
	TargetOrg    string
	DeployRoot   string
	ZipFile      string
	TestLevel    string
	RunTests     []string
	CheckOnly    bool
	ReportsDir   string
	Output       string
	ResultFile   string
	Submit       bool
	NameFilter   string
	TestMethods  bool
	OpenFailures bool
	Limit        int
}

// New creates a new Config with defaults
func New() *Config {
	return &Config{
		ProjectPath:     DefaultProjectPath,
		DeployRoot:      DefaultDeployRoot,
		APIVersion:      DefaultAPIVersion,
		TestLevel:       DefaultTestLevel,
		EnforceCoverage: true,
		SinglePackage:   true,
		PollInterval:    DefaultPollInterval,
		MaxPolls:        DefaultMaxPolls,
		SFPath:          DefaultSFPath,
		StateDir:        DefaultStateDir,
		LogLevel:        "info",
		LogFormat:       "text",
		Reports: Reports{
			Dir:       DefaultReportsDir,
			JUnit:     JUnitReport{Enabled: true, File: DefaultJUnitFile, SuiteName: DefaultSuiteName},
			Cobertura: CoberturaReport{Enabled: true, File: DefaultCoberturaFile, Extended: true},
			HTML:      HTMLReport{Enabled: true, Dir: DefaultHTMLDir, PerClassPages: true},
		},
	}
}

// Load builds the configuration: defaults, then the YAML file, then .env and APEXCI_*
// environment variables, then flags.
func Load(flags Flags) (*Config, error) {
	cfg := New()

	path := flags.ConfigFile
	explicit := path != ""
	if !explicit {
		path = filepath.Join(cfg.ProjectPath, DefaultConfigFile)
	}
	if err := cfg.LoadFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	// .env is optional, a missing file keeps the process environment as is
	_ = godotenv.Load(filepath.Join(cfg.ProjectPath, ".env"))
	cfg.ApplyEnv(os.Getenv)
	cfg.ApplyFlags(flags)

	return cfg, nil
}

// LoadFile merges a YAML file over the current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.WithStackTrace(err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return &ConfigurationError{Field: path, Reason: err.Error()}
	}

	return nil
}

// ApplyEnv overrides settings from APEXCI_* variables. SF_TARGET_ORG is honoured as a
// fallback for the target org.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("SF_TARGET_ORG"); v != "" && c.TargetOrg == "" {
		c.TargetOrg = v
	}
	if v := getenv("APEXCI_TARGET_ORG"); v != "" {
		c.TargetOrg = v
	}
	if v := getenv("APEXCI_SF_PATH"); v != "" {
		c.SFPath = v
	}
	if v := getenv("APEXCI_HISTORY_DSN"); v != "" {
		c.HistoryDSN = v
	}
	if v := getenv("APEXCI_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("APEXCI_MAX_POLLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxPolls = n
		}
	}
	if v := getenv("APEXCI_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.PollInterval = d
		}
	}
}

// ApplyFlags copies the flags that were set over the configuration
func (c *Config) ApplyFlags(flags Flags) {
	c.Flags = flags

	if flags.TargetOrg != "" {
		c.TargetOrg = flags.TargetOrg
	}
	if flags.DeployRoot != "" {
		c.DeployRoot = flags.DeployRoot
		c.ZipFile = ""
	}
	if flags.ZipFile != "" {
		c.ZipFile = flags.ZipFile
		c.DeployRoot = ""
	}
	if flags.TestLevel != "" {
		c.TestLevel = flags.TestLevel
	}
	if len(flags.RunTests) > 0 {
		c.RunTests = flags.RunTests
	}
	if flags.CheckOnly {
		c.CheckOnly = true
	}
	if flags.ReportsDir != "" {
		c.Reports.Dir = flags.ReportsDir
	}
}

// GetDeployRoot returns the package directory, relative to the project path unless absolute
func (c *Config) GetDeployRoot() string {
	return c.resolve(c.DeployRoot)
}

// GetZipFile returns the package zip path, or "" when deploying a directory
func (c *Config) GetZipFile() string {
	return c.resolve(c.ZipFile)
}

// GetReportsDir returns the reports directory
func (c *Config) GetReportsDir() string {
	return c.resolve(c.Reports.Dir)
}

// GetHTMLDir returns the HTML report directory, below the reports directory unless absolute
func (c *Config) GetHTMLDir() string {
	if filepath.IsAbs(c.Reports.HTML.Dir) {
		return c.Reports.HTML.Dir
	}

	return filepath.Join(c.GetReportsDir(), c.Reports.HTML.Dir)
}

// GetSourceDir returns where class sources are read for the HTML report. It defaults to the
// deploy root.
func (c *Config) GetSourceDir() string {
	if c.Reports.HTML.SourceDir != "" {
		return c.resolve(c.Reports.HTML.SourceDir)
	}
	if c.DeployRoot != "" {
		return c.GetDeployRoot()
	}

	return ""
}

// GetBatchTests returns the batch tests with their directories resolved against the project path
func (c *Config) GetBatchTests() []BatchTest {
	batches := make([]BatchTest, 0, len(c.BatchTests))
	for _, bt := range c.BatchTests {
		bt.Dir = c.resolve(bt.Dir)
		batches = append(batches, bt)
	}

	return batches
}

// GetProjectRoot returns the source path written in the Cobertura report
func (c *Config) GetProjectRoot() string {
	if c.Reports.Cobertura.ProjectRoot != "" {
		return c.Reports.Cobertura.ProjectRoot
	}
	if c.DeployRoot != "" {
		return c.GetDeployRoot()
	}

	return c.ProjectPath
}

// GetOutputPath returns the path of the stored last deploy result.
// Resolves to an absolute path so every command reads the same file regardless of cwd.
func (c *Config) GetOutputPath() string {
	p := filepath.Join(c.resolve(c.StateDir), "last-deploy.json")
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}

	return p
}

// Endpoint names the target org in log messages.
func (c *Config) Endpoint() string {
	if c.TargetOrg == "" {
		return "the default org"
	}

	return c.TargetOrg
}

// TestLevelRequestsSpecifiedTests reports whether the deploy runs an explicit list of tests.
func (c *Config) TestLevelRequestsSpecifiedTests() bool {
	return strings.EqualFold(c.TestLevel, TestLevelRunSpecifiedTests)
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(c.ProjectPath, path)
}
