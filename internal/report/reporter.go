// Package report generates the JUnit, Cobertura and HTML reports of a deploy test run.
package report

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"apexci/internal/config"
	"apexci/internal/domain"
	"apexci/internal/errors"
	"apexci/internal/teamcity"
)

// Reporter runs every enabled report for a test run.
type Reporter struct {
	fs  afero.Fs
	log *logrus.Entry

	dir           string
	htmlDir       string
	junitFile     string
	coberturaFile string

	JUnit     *JUnitGenerator
	Cobertura *CoberturaGenerator
	HTML      *HTMLGenerator
	TeamCity  *teamcity.Reporter
}

// NewReporter creates a reporter from the report configuration. Disabled reports are nil.
func NewReporter(cfg *config.Config, fs afero.Fs, log *logrus.Entry) *Reporter {
	return NewReporterWithOutput(cfg, fs, log, os.Getenv, os.Stdout)
}

// NewReporterWithOutput is NewReporter with an explicit environment and TeamCity output.
func NewReporterWithOutput(cfg *config.Config, fs afero.Fs, log *logrus.Entry, getenv func(string) string, out io.Writer) *Reporter {
	r := &Reporter{
		fs:            fs,
		log:           log,
		dir:           cfg.GetReportsDir(),
		htmlDir:       cfg.GetHTMLDir(),
		junitFile:     cfg.Reports.JUnit.File,
		coberturaFile: cfg.Reports.Cobertura.File,
		TeamCity: &teamcity.Reporter{
			Getenv:    getenv,
			Out:       out,
			SuiteName: cfg.Reports.JUnit.SuiteName,
		},
	}

	if cfg.Reports.JUnit.Enabled {
		r.JUnit = &JUnitGenerator{
			SuiteName:  cfg.Reports.JUnit.SuiteName,
			Properties: cfg.Reports.JUnit.Properties,
		}
	}
	if cfg.Reports.Cobertura.Enabled {
		r.Cobertura = &CoberturaGenerator{
			ProjectRoot: cfg.GetProjectRoot(),
			Extended:    cfg.Reports.Cobertura.Extended,
		}
	}
	if cfg.Reports.HTML.Enabled {
		r.HTML = &HTMLGenerator{
			FS:            fs,
			SourceDir:     cfg.GetSourceDir(),
			PerClassPages: cfg.Reports.HTML.PerClassPages,
		}
	}

	return r
}

// SetClock fixes the timestamp of every generator.
func (r *Reporter) SetClock(now func() time.Time) {
	if r.JUnit != nil {
		r.JUnit.Now = now
	}
	if r.Cobertura != nil {
		r.Cobertura.Now = now
	}
	if r.HTML != nil {
		r.HTML.Now = now
	}
}

// Generate writes every enabled report. A failing report does not stop the others; the
// failures are returned together.
func (r *Reporter) Generate(result *domain.TestRunResult) ([]string, error) {
	var (
		written []string
		errs    *errors.MultiError
	)

	if r.JUnit != nil {
		path, err := r.save(r.dir, r.junitFile, func() ([]Page, error) {
			doc, err := r.JUnit.Generate(result)
			return []Page{{Doc: doc}}, err
		})
		written = append(written, path...)
		errs = errs.Append(err)
	}

	if r.Cobertura != nil {
		path, err := r.save(r.dir, r.coberturaFile, func() ([]Page, error) {
			doc, err := r.Cobertura.Generate(result)
			return []Page{{Doc: doc}}, err
		})
		written = append(written, path...)
		errs = errs.Append(err)
	}

	if r.HTML != nil {
		paths, err := r.save(r.htmlDir, "", func() ([]Page, error) {
			return r.HTML.Generate(result)
		})
		written = append(written, paths...)
		errs = errs.Append(err)
	}

	if r.TeamCity != nil {
		errs = errs.Append(r.TeamCity.Report(result))
	}

	for _, path := range written {
		r.log.Infof("Report written to %s", path)
	}

	return written, errs.ErrorOrNil()
}

// save builds the pages, then writes them. name overrides the name of a single unnamed page.
func (r *Reporter) save(dir, name string, build func() ([]Page, error)) ([]string, error) {
	pages, err := build()
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, page := range pages {
		if page.Name == "" {
			page.Name = name
		}
		path, err := Save(r.fs, dir, page.Name, page.Doc)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	return paths, nil
}
