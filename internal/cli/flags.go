package cli

import "apexci/internal/config"

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

// ToConfigFlags converts CLI flags to config flags
func (f *Flags) ToConfigFlags() config.Flags {
	return config.Flags{
		ConfigFile:   f.ConfigFile,
		TargetOrg:    f.TargetOrg,
		DeployRoot:   f.DeployRoot,
		ZipFile:      f.ZipFile,
		TestLevel:    f.TestLevel,
		RunTests:     f.RunTests,
		CheckOnly:    f.CheckOnly,
		ReportsDir:   f.ReportsDir,
		Output:       f.Output,
		ResultFile:   f.ResultFile,
		Submit:       f.Submit,
		NameFilter:   f.NameFilter,
		TestMethods:  f.TestMethods,
		OpenFailures: f.OpenFailures,
		Limit:        f.Limit,
	}
}
