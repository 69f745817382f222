package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apexci/internal/domain"
	"apexci/internal/logging"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(SchemeSQLite+":memory:", logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func deploy(id string, notCovered int) *domain.DeployResult {
	return &domain.DeployResult{
		ID:      id,
		Done:    true,
		Status:  domain.StatusSucceeded,
		Success: true,
		Details: domain.DeployDetails{RunTestResult: &domain.TestRunResult{
			NumTestsRun: 4,
			NumFailures: 1,
			TotalTime:   250,
			CodeCoverage: []domain.CoverageResult{
				{Name: "Account", Type: "Class", NumLocations: 10, NumLocationsNotCovered: notCovered},
				{Namespace: "ns", Name: "OnLead", Type: "Trigger", NumLocations: 10},
			},
		}},
	}
}

func TestRecordAndRecent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first, err := store.Record(ctx, "ci", "GeneratedTest", deploy("0Af1", 5))
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.Equal(t, 20, first.Lines)
	assert.Equal(t, 15, first.LinesCovered)
	assert.Equal(t, 75.0, first.Percentage)

	_, err = store.Record(ctx, "ci", "", deploy("0Af2", 0))
	require.NoError(t, err)

	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "0Af2", runs[0].DeployID)
	assert.Equal(t, 100.0, runs[0].Percentage)
	assert.Equal(t, "0Af1", runs[1].DeployID)

	require.Len(t, runs[1].Classes, 2)
	names := []string{runs[1].Classes[0].Name, runs[1].Classes[1].Name}
	assert.ElementsMatch(t, []string{"Account", "ns.OnLead"}, names)

	limited, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecordWithoutTests(t *testing.T) {
	store := setupTestStore(t)

	run, err := store.Record(context.Background(), "ci", "", &domain.DeployResult{ID: "0Af3", Status: domain.StatusFailed})
	require.NoError(t, err)
	assert.Zero(t, run.TestsRun)
	assert.Empty(t, run.Classes)
}

func TestDialectorFor(t *testing.T) {
	_, err := dialectorFor("")
	assert.Error(t, err)

	_, err = dialectorFor(SchemeMySQL + "not a dsn")
	assert.Error(t, err)

	d, err := dialectorFor(SchemeMySQL + "user:secret@tcp(127.0.0.1:3306)/apexci")
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.Name())

	d, err = dialectorFor("history.db")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())
}
