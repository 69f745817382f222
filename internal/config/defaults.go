package config

import "time"

const (
	// DefaultProjectPath is the default project path
	DefaultProjectPath = "."
	// DefaultConfigFile is looked up in the project path when no --config flag is given
	DefaultConfigFile = "apexci.yaml"
	// DefaultDeployRoot is the default metadata package directory
	DefaultDeployRoot = "src"
	// DefaultTestLevel is the default deploy test level
	DefaultTestLevel = TestLevelRunSpecifiedTests
	// DefaultAPIVersion is used when the package manifest declares no version
	DefaultAPIVersion = "59.0"
	// DefaultPollInterval is the wait between two deploy status checks
	DefaultPollInterval = 10 * time.Second
	// DefaultMaxPolls bounds the number of status checks
	DefaultMaxPolls = 200
	// DefaultSFPath is the Salesforce CLI binary
	DefaultSFPath = "sf"
	// DefaultStateDir keeps the last deploy result
	DefaultStateDir = ".apexci"
	// DefaultReportsDir is where reports are written
	DefaultReportsDir = "reports"
	// DefaultJUnitFile is the JUnit report file name
	DefaultJUnitFile = "TEST-Apex.xml"
	// DefaultCoberturaFile is the Cobertura report file name
	DefaultCoberturaFile = "coverage.xml"
	// DefaultHTMLDir is the HTML report directory, relative to the reports dir
	DefaultHTMLDir = "coverage"
	// DefaultSuiteName names the JUnit test suite
	DefaultSuiteName = "Apex"
)

// Test levels accepted by the metadata deploy.
const (
	TestLevelNoTestRun         = "NoTestRun"
	TestLevelRunSpecifiedTests = "RunSpecifiedTests"
	TestLevelRunLocalTests     = "RunLocalTests"
	TestLevelRunAllTestsInOrg  = "RunAllTestsInOrg"
)

// TestLevels lists every valid test level.
var TestLevels = []string{
	TestLevelNoTestRun,
	TestLevelRunSpecifiedTests,
	TestLevelRunLocalTests,
	TestLevelRunAllTestsInOrg,
}
