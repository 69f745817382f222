// Package packaging prepares metadata packages for deploy: it injects a generated test class
// that touches every class of the package, and builds the destructive package removing it again.
package packaging

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"apexci/internal/config"
	"apexci/internal/tag"
)

// State is the outcome of a transformation.
type State int

const (
	StateUnmodified State = iota
	StateCandidate
	StateModified
	StateSkipped
)

func (s State) String() string {
	switch s {
	case StateCandidate:
		return "candidate"
	case StateModified:
		return "modified"
	case StateSkipped:
		return "skipped"
	}

	return "unmodified"
}

// Source is a package directory or a zip file.
type Source struct {
	Path string
	Zip  bool
}

// DirSource returns a directory package source.
func DirSource(path string) Source {
	return Source{Path: path}
}

// ZipSource returns a zip package source.
func ZipSource(path string) Source {
	return Source{Path: path, Zip: true}
}

// SourceFromConfig picks the zip file when configured, the deploy root otherwise.
func SourceFromConfig(cfg *config.Config) Source {
	if cfg.ZipFile != "" {
		return ZipSource(cfg.GetZipFile())
	}

	return DirSource(cfg.GetDeployRoot())
}

// Options are the test settings of the deploy the package is prepared for.
type Options struct {
	TestLevel       string
	EnforceCoverage bool
	RunTests        []string
	// APIVersion is used when the manifest declares no version.
	APIVersion string
}

// Result is a package ready for deploy.
type Result struct {
	State State
	Zip   []byte
	// ClassName is the generated test class, empty unless the package was modified.
	ClassName string
	// RunTests are the tests to request, including ClassName when set.
	RunTests []string
	// APIVersion is the version written in the generated class metadata.
	APIVersion string
	// SkipReason explains why a package was left unmodified.
	SkipReason string
}

// Transformer rewrites packages read from FS.
type Transformer struct {
	FS afero.Fs
	// NewName returns candidate class names. Collisions are retried.
	NewName func() string
	Log     *logrus.Entry
}

// NewTransformer returns a transformer generating random class names.
func NewTransformer(fs afero.Fs, log *logrus.Entry) *Transformer {
	return &Transformer{FS: fs, NewName: RandomClassName, Log: log}
}

// Transform zips the package, adding the generated test class when the deploy runs specified
// tests with coverage enforcement and the manifest lists Apex classes. Packaging is attempted
// once; any read or write failure is returned as a *PackagingError.
func (t *Transformer) Transform(src Source, opts Options) (*Result, error) {
	a, err := t.load(src)
	if err != nil {
		return nil, err
	}

	res := &Result{State: StateUnmodified, RunTests: append([]string(nil), opts.RunTests...)}

	m, types, reason, err := t.candidate(a, opts)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		return t.skip(a, res, reason)
	}
	res.State = StateCandidate

	classes := a.classNames()
	name := t.uniqueName(classes)

	version := m.version()
	if version == "" {
		version = opts.APIVersion
	}

	m.addClass(types, name, classes)

	zip, err := a.write(
		map[string][]byte{a.prefix + ManifestFile: m.bytes()},
		[]entry{
			{name: a.prefix + "classes/" + name + ".cls", data: []byte(testClassBody(name, classes))},
			{name: a.prefix + "classes/" + name + ".cls-meta.xml", data: classMeta(version)},
		},
	)
	if err != nil {
		return nil, &PackagingError{Op: "write", Path: src.Path, Err: err}
	}

	res.State = StateModified
	res.Zip = zip
	res.ClassName = name
	res.APIVersion = version
	res.RunTests = append(res.RunTests, name)
	t.log().Infof("Added test class %s covering %d classes", name, len(classes))

	return res, nil
}

func (t *Transformer) load(src Source) (*archive, error) {
	if src.Zip {
		return loadZip(t.FS, src.Path)
	}

	return loadDir(t.FS, src.Path)
}

// candidate checks the preconditions. A non-empty reason means the package is left as is.
func (t *Transformer) candidate(a *archive, opts Options) (*manifest, *tag.Element, string, error) {
	if !strings.EqualFold(opts.TestLevel, config.TestLevelRunSpecifiedTests) {
		return nil, nil, "test level " + opts.TestLevel + " does not run specified tests", nil
	}
	if !opts.EnforceCoverage {
		return nil, nil, "coverage enforcement is off", nil
	}

	e := a.find(ManifestFile)
	if e == nil {
		return nil, nil, "no " + ManifestFile + " in package", nil
	}
	data, err := a.read(e)
	if err != nil {
		return nil, nil, "", err
	}
	m, err := parseManifest(data)
	if err != nil {
		return nil, nil, "", &PackagingError{Op: "parse", Path: a.path + "!" + e.name, Err: err}
	}

	types := m.types(ApexClassType)
	if types == nil {
		return nil, nil, "manifest lists no " + ApexClassType, nil
	}
	if a.zipped && !a.hasClassesFolder() {
		return nil, nil, "no classes folder in archive", nil
	}

	return m, types, "", nil
}

func (t *Transformer) skip(a *archive, res *Result, reason string) (*Result, error) {
	res.State = StateSkipped
	res.SkipReason = reason
	t.log().Debugf("Package left unmodified: %s", reason)

	if a.zipped {
		res.Zip = a.raw
		return res, nil
	}

	zip, err := a.write(nil, nil)
	if err != nil {
		return nil, &PackagingError{Op: "zip", Path: a.path, Err: err}
	}
	res.Zip = zip

	return res, nil
}

// uniqueName draws names until one matches no existing class, ignoring case.
func (t *Transformer) uniqueName(classes []string) string {
	taken := make(map[string]bool, len(classes))
	for _, c := range classes {
		taken[strings.ToLower(c)] = true
	}

	newName := t.NewName
	if newName == nil {
		newName = RandomClassName
	}

	for {
		name := newName()
		if !taken[strings.ToLower(name)] {
			return name
		}
		t.log().Debugf("Generated class name %s is taken, retrying", name)
	}
}

func (t *Transformer) log() *logrus.Entry {
	if t.Log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}

	return t.Log
}
