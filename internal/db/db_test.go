package db

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/low-sky/cygrid/internal/grid"
	"github.com/low-sky/cygrid/internal/gridder"
	"github.com/low-sky/cygrid/internal/kernel"
	"github.com/low-sky/cygrid/internal/monitoring"
)

func init() {
	monitoring.SetLogger(nil)
}

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testRun(t *testing.T) *Run {
	t.Helper()
	tg, err := grid.NewSightlines([]float64{10, 20, 30}, []float64{0, 0, 0}, 2)
	require.NoError(t, err)
	s, err := gridder.NewSamples([]float64{10.01, 20.02}, []float64{0, 0}, [][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	params := kernel.Params{Kind: kernel.Gaussian1D, Shape: []float64{0.05}, SupportRadius: 0.15}
	res, err := gridder.Grid(s, tg, params, gridder.Options{Workers: 1})
	require.NoError(t, err)

	run, err := RunFromResult(res, string(params.Kind), params)
	require.NoError(t, err)
	return run
}

func TestNewDBMigratesToLatest(t *testing.T) {
	db := newTestDB(t)
	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	latest, err := LatestMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, latest, version)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), latest)

	// Reopening an up-to-date database is a no-op.
	require.NoError(t, db.MigrateUp())
}

func TestMigrateDownAndUp(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.MigrateDown())
	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	// Version 1 has no description column.
	assert.Error(t, db.InsertRun(testRun(t)))

	require.NoError(t, db.MigrateUp())
	assert.NoError(t, db.InsertRun(testRun(t)))
}

func TestInsertAndGetRun(t *testing.T) {
	db := newTestDB(t)
	run := testRun(t)
	run.Description = "three sight lines"
	require.NoError(t, db.InsertRun(run))
	require.NotEmpty(t, run.RunID)
	require.NotZero(t, run.CreatedAtNs)

	got, err := db.GetRun(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.RunID, got.RunID)
	assert.Equal(t, "gaussian1d", got.KernelKind)
	assert.Equal(t, "three sight lines", got.Description)
	assert.JSONEq(t, string(run.ParamsJSON), string(got.ParamsJSON))
	assert.Equal(t, 3, got.Ncols)
	assert.Equal(t, 1, got.Nrows)
	assert.Equal(t, 2, got.Nchannels)
	assert.Equal(t, 2, got.SamplesUsed)
	assert.Equal(t, 2, got.PixelsWithData)

	// The third sight line has no data; NaN must survive storage.
	require.Len(t, got.Cube, 6)
	assert.InDelta(t, 1, got.Cube[0], 1e-12)
	assert.InDelta(t, 4, got.Cube[3], 1e-12)
	assert.True(t, math.IsNaN(got.Cube[4]))
	assert.True(t, math.IsNaN(got.Cube[5]))
	assert.Equal(t, run.Weights, got.Weights)
}

func TestInsertRunRejectsShapeMismatch(t *testing.T) {
	db := newTestDB(t)
	run := testRun(t)
	run.Cube = run.Cube[:3]
	assert.Error(t, db.InsertRun(run))
}

func TestListRunsNewestFirst(t *testing.T) {
	db := newTestDB(t)
	for i, ts := range []int64{100, 300, 200} {
		run := testRun(t)
		run.CreatedAtNs = ts
		run.RunID = []string{"a", "b", "c"}[i]
		require.NoError(t, db.InsertRun(run))
	}

	runs, err := db.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{runs[0].RunID, runs[1].RunID, runs[2].RunID})
	assert.Nil(t, runs[0].Cube, "summaries carry no cube")

	runs, err = db.ListRuns(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestDeleteRun(t *testing.T) {
	db := newTestDB(t)
	run := testRun(t)
	require.NoError(t, db.InsertRun(run))
	require.NoError(t, db.DeleteRun(run.RunID))

	_, err := db.GetRun(run.RunID)
	assert.True(t, errors.Is(err, ErrRunNotFound))
	assert.ErrorIs(t, db.DeleteRun(run.RunID), ErrRunNotFound)
}

func TestCubeBlobRoundTrip(t *testing.T) {
	in := []float64{0, -1.5, math.NaN(), math.Inf(1), 1e-300}
	blob, err := encodeCube(in)
	require.NoError(t, err)
	out, err := decodeCube(blob)
	require.NoError(t, err)
	require.Len(t, out, len(in))
	for i := range in {
		if math.IsNaN(in[i]) {
			assert.True(t, math.IsNaN(out[i]))
			continue
		}
		assert.Equal(t, in[i], out[i])
	}

	_, err = decodeCube(nil)
	assert.Error(t, err)
	_, err = decodeCube([]byte("not gzip"))
	assert.Error(t, err)
}
