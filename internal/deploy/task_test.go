package deploy

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apexci/internal/config"
	"apexci/internal/domain"
	"apexci/internal/history"
	"apexci/internal/logging"
	"apexci/internal/metadata"
	"apexci/internal/report"
	"apexci/internal/storage"
)

const manifest = `<?xml version="1.0" encoding="UTF-8"?>
<Package xmlns="http://soap.sforce.com/2006/04/metadata">
    <types>
        <members>Foo</members>
        <members>FooTest</members>
        <name>ApexClass</name>
    </types>
    <version>60.0</version>
</Package>
`

const fooTest = `@IsTest
private class FooTest {
    @IsTest
    static void works() {}
}
`

type deployCall struct {
	zip  []byte
	opts metadata.DeployOptions
}

type fakeClient struct {
	deploys    []deployCall
	deployErrs []error
	statuses   []*domain.DeployResult
	statusErr  error
	checks     int
}

func (f *fakeClient) Deploy(_ context.Context, zip []byte, opts metadata.DeployOptions) (*metadata.AsyncResult, error) {
	i := len(f.deploys)
	f.deploys = append(f.deploys, deployCall{zip: zip, opts: opts})
	if i < len(f.deployErrs) && f.deployErrs[i] != nil {
		return nil, f.deployErrs[i]
	}

	return &metadata.AsyncResult{ID: "0Af000000000001", Status: domain.StatusPending}, nil
}

func (f *fakeClient) CheckDeployStatus(_ context.Context, id string, includeDetails bool) (*domain.DeployResult, error) {
	f.checks++
	if f.statusErr != nil {
		return nil, f.statusErr
	}

	i := f.checks - 1
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	r := *f.statuses[i]
	r.ID = id

	return &r, nil
}

type fakeProgress struct {
	polls    []int
	finished bool
}

func (p *fakeProgress) Update(poll int, _ *domain.DeployResult) { p.polls = append(p.polls, poll) }
func (p *fakeProgress) Finish()                                 { p.finished = true }

type fakeRecorder struct {
	recorded []*domain.DeployResult
	err      error
}

func (r *fakeRecorder) Record(_ context.Context, _, _ string, result *domain.DeployResult) (*history.Run, error) {
	r.recorded = append(r.recorded, result)
	return &history.Run{DeployID: result.ID}, r.err
}

func testRun(notCovered int) *domain.TestRunResult {
	var locations []domain.CodeLocation
	for i := 1; i <= notCovered; i++ {
		locations = append(locations, domain.CodeLocation{Line: i})
	}

	return &domain.TestRunResult{
		NumTestsRun: 1,
		TotalTime:   120,
		Successes:   []domain.Success{{Name: "FooTest", MethodName: "works", Time: 120}},
		CodeCoverage: []domain.CoverageResult{{
			Name:                   "Foo",
			Type:                   domain.KindClass,
			NumLocations:           4,
			NumLocationsNotCovered: notCovered,
			LocationsNotCovered:    locations,
		}},
	}
}

func succeeded(run *domain.TestRunResult) *domain.DeployResult {
	return &domain.DeployResult{
		Done:    true,
		Status:  domain.StatusSucceeded,
		Success: true,
		Details: domain.DeployDetails{RunTestResult: run},
	}
}

type fixture struct {
	task     *Task
	client   *fakeClient
	fs       afero.Fs
	cfg      *config.Config
	logs     *bytes.Buffer
	progress *fakeProgress
	sleeps   int
}

func newFixture(t *testing.T, client *fakeClient) *fixture {
	t.Helper()

	fs := afero.NewMemMapFs()
	files := map[string]string{
		"src/package.xml":                  manifest,
		"src/classes/Foo.cls":              "public class Foo {\n    public Integer a() {\n        return 1;\n    }\n}\n",
		"src/classes/Foo.cls-meta.xml":     "<ApexClass/>",
		"src/classes/FooTest.cls":          fooTest,
		"src/classes/FooTest.cls-meta.xml": "<ApexClass/>",
	}
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}

	cfg := config.New()
	cfg.TargetOrg = "ci-org"
	cfg.StateDir = "/state"
	cfg.PollInterval = time.Second
	cfg.MaxPolls = 5

	logs := &bytes.Buffer{}
	log := logging.NewWithWriter(logs, "debug", "text")

	f := &fixture{client: client, fs: fs, cfg: cfg, logs: logs, progress: &fakeProgress{}}
	f.task = NewTask(cfg, fs, client, log)
	f.task.Reporter = report.NewReporterWithOutput(cfg, fs, log, func(string) string { return "" }, io.Discard)
	f.task.Progress = f.progress
	f.task.Sleep = func(context.Context, time.Duration) error {
		f.sleeps++
		return nil
	}
	f.task.transformer.NewName = func() string { return "ApexciCoverageFixed" }

	return f
}

func zipNames(t *testing.T, data []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}

	return names
}

func TestExecuteSuccess(t *testing.T) {
	client := &fakeClient{statuses: []*domain.DeployResult{
		{Status: domain.StatusInProgress, NumberComponentsTotal: 4},
		succeeded(testRun(2)),
	}}
	f := newFixture(t, client)

	result, err := f.task.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, result.Status)
	assert.Equal(t, "ApexciCoverageFixed", f.task.ClassName())

	require.Len(t, client.deploys, 2)
	main := client.deploys[0]
	assert.Equal(t, config.TestLevelRunSpecifiedTests, main.opts.TestLevel)
	assert.Equal(t, []string{"ApexciCoverageFixed"}, main.opts.RunTests)
	assert.True(t, main.opts.SinglePackage)
	assert.Contains(t, zipNames(t, main.zip), "classes/ApexciCoverageFixed.cls")

	cleanup := client.deploys[1]
	assert.ElementsMatch(t, []string{"package.xml", "destructiveChanges.xml"}, zipNames(t, cleanup.zip))
	assert.True(t, cleanup.opts.SinglePackage)
	assert.True(t, cleanup.opts.IgnoreWarnings)
	assert.Equal(t, config.TestLevelNoTestRun, cleanup.opts.TestLevel)

	assert.Equal(t, 2, f.sleeps)
	assert.Equal(t, []int{1, 2}, f.progress.polls)
	assert.True(t, f.progress.finished)
	assert.Contains(t, f.logs.String(), "Request status: Succeeded")

	for _, path := range []string{"reports/TEST-Apex.xml", "reports/coverage.xml", "reports/coverage/index.html", "reports/coverage/class-Foo.html"} {
		exists, err := afero.Exists(f.fs, path)
		require.NoError(t, err)
		assert.True(t, exists, path)
	}

	record, err := storage.NewJSONStorage(f.cfg, f.fs).Load()
	require.NoError(t, err)
	assert.Equal(t, "ApexciCoverageFixed", record.Meta.TestClass)
	assert.Equal(t, "ci-org", record.Meta.TargetOrg)
	assert.Equal(t, domain.StatusSucceeded, record.Result.Status)
}

func TestExecuteDeployFailed(t *testing.T) {
	failed := succeeded(testRun(0))
	failed.Status = domain.StatusFailed
	failed.Success = false
	failed.NumberComponentErrors = 1
	failed.Details.ComponentFailures = []domain.ComponentFailure{{ComponentType: "ApexClass", FullName: "Foo", Problem: "boom"}}
	failed.Details.RunTestResult.NumFailures = 1
	client := &fakeClient{statuses: []*domain.DeployResult{failed}}
	f := newFixture(t, client)

	result, err := f.task.Execute(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.StatusFailed, result.Status)

	var failedErr *DeployFailedError
	require.ErrorAs(t, err, &failedErr)
	assert.Equal(t, 1, failedErr.ComponentErrors)
	assert.Equal(t, 1, failedErr.TestFailures)

	exists, _ := afero.Exists(f.fs, "reports/TEST-Apex.xml")
	assert.True(t, exists, "reports are written for failed deploys")
	assert.Len(t, client.deploys, 2, "the generated class is still removed")
}

func TestExecuteRemoteErrors(t *testing.T) {
	remote := &metadata.RemoteServiceError{Op: "deploy", Message: "INVALID_SESSION_ID"}

	t.Run("submit", func(t *testing.T) {
		client := &fakeClient{deployErrs: []error{remote}}
		f := newFixture(t, client)

		result, err := f.task.Execute(context.Background())
		assert.Nil(t, result)
		var remoteErr *metadata.RemoteServiceError
		require.ErrorAs(t, err, &remoteErr)
		assert.Contains(t, f.logs.String(), "Request status: Failed")
		assert.Len(t, client.deploys, 2, "cleanup is attempted after a failed submit")
		assert.Zero(t, client.checks)
	})

	t.Run("status", func(t *testing.T) {
		client := &fakeClient{statusErr: remote}
		f := newFixture(t, client)

		_, err := f.task.Execute(context.Background())
		var remoteErr *metadata.RemoteServiceError
		require.ErrorAs(t, err, &remoteErr)
		assert.Contains(t, f.logs.String(), "Request status: Failed")
		assert.True(t, f.progress.finished)
	})
}

func TestExecuteCleanupFailureIsOnlyLogged(t *testing.T) {
	client := &fakeClient{
		statuses:   []*domain.DeployResult{succeeded(testRun(0))},
		deployErrs: []error{nil, errors.New("connection reset")},
	}
	f := newFixture(t, client)

	_, err := f.task.Execute(context.Background())
	require.NoError(t, err)
	assert.Contains(t, f.logs.String(), "could not remove test class ApexciCoverageFixed from ci-org")
	assert.Contains(t, f.logs.String(), "connection reset")
}

func TestExecutePollBudgetExhausted(t *testing.T) {
	client := &fakeClient{statuses: []*domain.DeployResult{{Status: domain.StatusInProgress}}}
	f := newFixture(t, client)
	f.cfg.MaxPolls = 3

	result, err := f.task.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, result.Status)
	assert.Equal(t, 3, client.checks)
	assert.Contains(t, f.logs.String(), "still InProgress after 3 polls")
	assert.Contains(t, f.logs.String(), "Request status: InProgress")
}

func TestExecuteCancelledWhilePolling(t *testing.T) {
	client := &fakeClient{statuses: []*domain.DeployResult{succeeded(nil)}}
	f := newFixture(t, client)
	f.task.Sleep = sleep
	f.cfg.PollInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.task.Execute(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, client.checks)
	assert.Len(t, client.deploys, 2, "cleanup ignores the cancelled context")
}

func TestExecuteMinClassCoverage(t *testing.T) {
	client := &fakeClient{statuses: []*domain.DeployResult{succeeded(testRun(3))}}
	f := newFixture(t, client)
	f.cfg.MinClassCoverage = 75

	_, err := f.task.Execute(context.Background())
	var coverageErr *CoverageError
	require.ErrorAs(t, err, &coverageErr)
	require.Len(t, coverageErr.Classes, 1)
	assert.Equal(t, "Foo", coverageErr.Classes[0].Name)
	assert.Contains(t, err.Error(), "Foo (25.00%)")
}

func TestExecuteWithoutGeneratedClass(t *testing.T) {
	client := &fakeClient{statuses: []*domain.DeployResult{succeeded(nil)}}
	f := newFixture(t, client)
	f.cfg.TestLevel = config.TestLevelRunLocalTests

	_, err := f.task.Execute(context.Background())
	require.NoError(t, err)
	assert.Empty(t, f.task.ClassName())
	require.Len(t, client.deploys, 1)
	assert.Empty(t, client.deploys[0].opts.RunTests)
}

func TestExecuteBatchTestsAndHistory(t *testing.T) {
	client := &fakeClient{statuses: []*domain.DeployResult{succeeded(testRun(0))}}
	f := newFixture(t, client)
	f.cfg.RunTests = []string{"footest"}
	f.cfg.BatchTests = []config.BatchTest{{Dir: "src", Includes: []string{"classes/*.cls"}}}
	f.cfg.EnforceCoverage = false
	recorder := &fakeRecorder{err: errors.New("database is locked")}
	f.task.History = recorder

	_, err := f.task.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"footest"}, client.deploys[0].opts.RunTests, "batch classes are merged ignoring case")
	require.Len(t, recorder.recorded, 1)
	assert.Contains(t, f.logs.String(), "Could not record the deploy in history")
}

func TestErrorMessages(t *testing.T) {
	err := &DeployFailedError{ID: "0Af1", Status: domain.StatusFailed, ComponentErrors: 2, Message: "bad"}
	assert.Equal(t, "deploy 0Af1 failed with 2 component error(s) and 0 test failure(s): bad", err.Error())

	cause := errors.New("timeout")
	cleanup := &CleanupError{ClassName: "X", Endpoint: "org", Err: cause}
	assert.ErrorIs(t, cleanup, cause)
}
