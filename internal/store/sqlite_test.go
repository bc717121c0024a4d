package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geosample-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

var testParams = model.RunParams{
	NCities:       3,
	MinDistanceKm: 500,
	PopulationMin: 100000,
	Catalog:       "worldcities.csv",
}

var testCities = model.Selection{
	{ID: 1, Name: "Tokyo", Lat: 35.6897, Lng: 139.6922, Population: 37977000},
	{ID: 6, Name: "Paris", Lat: 48.8567, Lng: 2.3522, Population: 11020000},
}

func TestSQLite_CreateRun_And_GetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testParams, testCities, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusComplete, run.Status)

	fetched, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, fetched.ID)
	assert.Equal(t, "worldcities.csv", fetched.Params.Catalog)
	require.Len(t, fetched.Cities, 2)
	assert.Equal(t, "Tokyo", fetched.Cities[0].Name)
	assert.Equal(t, int64(6), fetched.Cities[1].ID)
	assert.Empty(t, fetched.Warnings)
}

func TestSQLite_CreateRun_WithWarnings_IsDegraded(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	warnings := []model.Warning{
		{Kind: model.WarnUnresolvedViolation, Message: "closest pair below minimum"},
	}
	run, err := st.CreateRun(ctx, testParams, testCities, warnings)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusDegraded, run.Status)

	fetched, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusDegraded, fetched.Status)
	require.Len(t, fetched.Warnings, 1)
	assert.Equal(t, model.WarnUnresolvedViolation, fetched.Warnings[0].Kind)
}

func TestSQLite_GetRun_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.CreateRun(ctx, testParams, testCities, nil)
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, testParams, testCities, nil)
	require.NoError(t, err)

	runs, err := st.ListRuns(ctx, RunFilter{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSQLite_ListRuns_FilterByStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	clean, err := st.CreateRun(ctx, testParams, testCities, nil)
	require.NoError(t, err)

	warnings := []model.Warning{{Kind: model.WarnInsufficientCandidates, Message: "pool exhausted"}}
	_, err = st.CreateRun(ctx, testParams, testCities, warnings)
	require.NoError(t, err)

	runs, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete, Limit: 10})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, clean.ID, runs[0].ID)
}

func TestSQLite_ListRuns_CreatedAfter(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.CreateRun(ctx, testParams, testCities, nil)
	require.NoError(t, err)

	runs, err := st.ListRuns(ctx, RunFilter{CreatedAfter: time.Now().Add(time.Hour), Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, runs)

	runs, err = st.ListRuns(ctx, RunFilter{CreatedAfter: time.Now().Add(-time.Hour), Limit: 10})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)

	// Migrate was already called in newTestSQLiteStore; calling again should not error.
	require.NoError(t, st.Migrate(context.Background()))
}
