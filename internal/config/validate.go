package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-version"
)

// Validate checks the settings a deploy depends on. The first problem is returned as a
// *ConfigurationError.
func (c *Config) Validate() error {
	if !isTestLevel(c.TestLevel) {
		return &ConfigurationError{Field: "testLevel", Reason: fmt.Sprintf("%q is not one of %s", c.TestLevel, strings.Join(TestLevels, ", "))}
	}

	if c.DeployRoot == "" && c.ZipFile == "" {
		return &ConfigurationError{Field: "deployRoot", Reason: "either deployRoot or zipFile is required"}
	}
	if c.DeployRoot != "" && c.ZipFile != "" {
		return &ConfigurationError{Field: "zipFile", Reason: "deployRoot and zipFile are mutually exclusive"}
	}

	seen := make(map[string]bool, len(c.RunTests))
	for _, name := range c.RunTests {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			return &ConfigurationError{Field: "runTests", Reason: "empty test name"}
		}
		if seen[key] {
			return &ConfigurationError{Field: "runTests", Reason: fmt.Sprintf("duplicate test %q", name)}
		}
		seen[key] = true
	}

	if c.TestLevelRequestsSpecifiedTests() && len(c.RunTests) == 0 && len(c.BatchTests) == 0 && !c.EnforceCoverage {
		return &ConfigurationError{Field: "runTests", Reason: "RunSpecifiedTests needs runTests, batchTests or enforceCoverage"}
	}

	for i, bt := range c.BatchTests {
		if bt.Dir == "" {
			return &ConfigurationError{Field: fmt.Sprintf("batchTests[%d].dir", i), Reason: "directory is required"}
		}
	}

	if c.PollInterval <= 0 {
		return &ConfigurationError{Field: "pollInterval", Reason: "must be positive"}
	}
	if c.MaxPolls <= 0 {
		return &ConfigurationError{Field: "maxPolls", Reason: "must be positive"}
	}

	if err := ValidateAPIVersion(c.APIVersion); err != nil {
		return err
	}

	if c.MinClassCoverage < 0 || c.MinClassCoverage > 100 {
		return &ConfigurationError{Field: "minClassCoverage", Reason: "must be between 0 and 100"}
	}

	if c.Reports.JUnit.Enabled && c.Reports.JUnit.SuiteName == "" {
		return &ConfigurationError{Field: "reports.junit.suiteName", Reason: "required when the JUnit report is enabled"}
	}

	return nil
}

// ValidateAPIVersion accepts versions of the form major.minor, such as 59.0.
func ValidateAPIVersion(v string) error {
	parsed, err := version.NewVersion(v)
	if err != nil || strings.Count(v, ".") != 1 || !strings.ContainsAny(v[:1], "0123456789") ||
		parsed.Prerelease() != "" || parsed.Metadata() != "" {
		return &ConfigurationError{Field: "apiVersion", Reason: fmt.Sprintf("%q is not a major.minor API version", v)}
	}

	return nil
}

func isTestLevel(level string) bool {
	for _, l := range TestLevels {
		if strings.EqualFold(l, level) {
			return true
		}
	}

	return false
}
