// Package deploy runs a metadata deploy end to end: it prepares the package, submits it, polls
// until the service is done and turns the test run into reports.
package deploy

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"apexci/internal/config"
	"apexci/internal/coverage"
	"apexci/internal/discovery"
	"apexci/internal/domain"
	"apexci/internal/errors"
	"apexci/internal/history"
	"apexci/internal/metadata"
	"apexci/internal/packaging"
	"apexci/internal/report"
	"apexci/internal/storage"
)

// Progress follows the polling of a deploy.
type Progress interface {
	Update(poll int, result *domain.DeployResult)
	Finish()
}

// Recorder keeps finished deploys, such as the history store.
type Recorder interface {
	Record(ctx context.Context, targetOrg, testClass string, result *domain.DeployResult) (*history.Run, error)
}

// Task deploys the configured package. Reporter, Storage, History and Progress are optional.
type Task struct {
	Reporter *report.Reporter
	Storage  storage.Storage
	History  Recorder
	Progress Progress

	// Sleep waits between two polls. It returns early with the context error.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time

	cfg         *config.Config
	fs          afero.Fs
	client      metadata.Client
	transformer *packaging.Transformer
	log         *logrus.Entry

	// set once the package is transformed
	className  string
	apiVersion string
}

// NewTask creates a Task writing reports and the result file through fs
func NewTask(cfg *config.Config, fs afero.Fs, client metadata.Client, log *logrus.Entry) *Task {
	return &Task{
		Reporter:    report.NewReporter(cfg, fs, log),
		Storage:     storage.NewJSONStorage(cfg, fs),
		Sleep:       sleep,
		Now:         time.Now,
		cfg:         cfg,
		fs:          fs,
		client:      client,
		transformer: packaging.NewTransformer(fs, log),
		log:         log,
	}
}

// ClassName returns the generated test class of the last Execute, if any.
func (t *Task) ClassName() string {
	return t.className
}

// Execute deploys the package and returns the last known status of the deploy.
//
// Remote failures are returned as *metadata.RemoteServiceError. A deploy that finished without
// success returns *DeployFailedError once the reports are written. The generated test class is
// removed afterwards in every case; a failed removal is only logged.
func (t *Task) Execute(ctx context.Context) (*domain.DeployResult, error) {
	start := t.Now()
	t.className, t.apiVersion = "", ""

	runTests, err := t.runTests()
	if err != nil {
		return nil, err
	}

	pkg, err := t.transformer.Transform(packaging.SourceFromConfig(t.cfg), packaging.Options{
		TestLevel:       t.cfg.TestLevel,
		EnforceCoverage: t.cfg.EnforceCoverage,
		RunTests:        runTests,
		APIVersion:      t.cfg.APIVersion,
	})
	if err != nil {
		return nil, err
	}
	t.className, t.apiVersion = pkg.ClassName, pkg.APIVersion
	defer t.RemoveSynthesizedClass(ctx)

	result, err := t.deploy(ctx, pkg)
	if err != nil {
		t.log.Error("Request status: Failed")
		return nil, err
	}
	t.log.Infof("Request status: %s", result.Status)

	return result, t.handle(ctx, result, t.Now().Sub(start))
}

func (t *Task) runTests() ([]string, error) {
	tests := append([]string(nil), t.cfg.RunTests...)
	if len(t.cfg.BatchTests) == 0 || !t.cfg.TestLevelRequestsSpecifiedTests() {
		return tests, nil
	}

	classes, err := discovery.NewScanner(t.fs).ScanAll(t.cfg.GetBatchTests())
	if err != nil {
		return nil, errors.Errorf("batch tests: %w", err)
	}

	seen := make(map[string]bool, len(tests))
	for _, name := range tests {
		seen[strings.ToLower(name)] = true
	}
	for _, name := range discovery.Names(classes) {
		if !seen[strings.ToLower(name)] {
			seen[strings.ToLower(name)] = true
			tests = append(tests, name)
		}
	}
	t.log.Debugf("Batch tests added %d test class(es)", len(classes))

	return tests, nil
}

// deploy submits the package and polls until the deploy finishes or the poll budget is spent.
func (t *Task) deploy(ctx context.Context, pkg *packaging.Result) (*domain.DeployResult, error) {
	async, err := t.client.Deploy(ctx, pkg.Zip, metadata.DeployOptions{
		TestLevel:      t.cfg.TestLevel,
		RunTests:       pkg.RunTests,
		CheckOnly:      t.cfg.CheckOnly,
		SinglePackage:  t.cfg.SinglePackage,
		IgnoreWarnings: t.cfg.IgnoreWarnings,
	})
	if err != nil {
		return nil, err
	}
	t.log.Infof("Deploy %s submitted to %s", async.ID, t.cfg.Endpoint())

	if t.Progress != nil {
		defer t.Progress.Finish()
	}

	result := &domain.DeployResult{ID: async.ID, Done: async.Done, Status: async.Status}
	for poll := 1; poll <= t.cfg.MaxPolls; poll++ {
		if err := t.Sleep(ctx, t.cfg.PollInterval); err != nil {
			return nil, errors.WithStackTrace(err)
		}

		result, err = t.client.CheckDeployStatus(ctx, async.ID, true)
		if err != nil {
			return nil, err
		}
		if t.Progress != nil {
			t.Progress.Update(poll, result)
		}
		t.log.Debugf("Poll %d: deploy %s is %s", poll, result.ID, result.Status)

		if result.Finished() {
			return result, nil
		}
	}

	t.log.Warnf("Deploy %s is still %s after %d polls, giving up waiting", async.ID, result.Status, t.cfg.MaxPolls)

	return result, nil
}

// handle writes the reports, stores the result and checks the outcome.
func (t *Task) handle(ctx context.Context, result *domain.DeployResult, duration time.Duration) error {
	var errs *errors.MultiError

	if result.HasTestResult() && t.Reporter != nil {
		if _, err := t.Reporter.Generate(result.Details.RunTestResult); err != nil {
			errs = errs.Append(errors.Errorf("reports: %w", err))
		}
	}

	if t.Storage != nil {
		record := storage.NewRecord(result, t.cfg.TargetOrg, t.className, duration, t.Now())
		if err := t.Storage.Save(record); err != nil {
			t.log.Warnf("Could not save the deploy result: %v", err)
		}
	}

	if t.History != nil && result.Finished() {
		if _, err := t.History.Record(ctx, t.cfg.TargetOrg, t.className, result); err != nil {
			t.log.Warnf("Could not record the deploy in history: %v", err)
		}
	}

	if result.Finished() && !result.Success {
		errs = errs.Append(newDeployFailedError(result))
	}

	if t.cfg.MinClassCoverage > 0 && result.HasTestResult() {
		below := coverage.BelowThreshold(result.Details.RunTestResult.CodeCoverage, t.cfg.MinClassCoverage)
		if len(below) > 0 {
			errs = errs.Append(&CoverageError{Min: t.cfg.MinClassCoverage, Classes: below})
		}
	}

	return errs.ErrorOrNil()
}

// RemoveSynthesizedClass deletes the generated test class from the org. Nothing happens when
// no class was generated. Failures are logged as warnings and never returned.
func (t *Task) RemoveSynthesizedClass(ctx context.Context) {
	if t.className == "" {
		return
	}

	if err := t.removeClass(context.WithoutCancel(ctx)); err != nil {
		t.log.Warn((&CleanupError{ClassName: t.className, Endpoint: t.cfg.Endpoint(), Err: err}).Error())
		return
	}
	t.log.Infof("Removal of test class %s requested", t.className)
}

func (t *Task) removeClass(ctx context.Context) error {
	version := t.apiVersion
	if version == "" {
		version = t.cfg.APIVersion
	}

	zip, err := packaging.DestructivePackage(t.className, version)
	if err != nil {
		return err
	}

	_, err = t.client.Deploy(ctx, zip, metadata.DeployOptions{
		TestLevel:      config.TestLevelNoTestRun,
		SinglePackage:  true,
		IgnoreWarnings: true,
	})

	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
