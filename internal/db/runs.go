package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/low-sky/cygrid/internal/gridder"
)

// ErrRunNotFound is returned when a run ID has no row.
var ErrRunNotFound = errors.New("gridding run not found")

// Run is one stored gridding result. Cube and Weights are nil in the
// summaries returned by ListRuns.
type Run struct {
	RunID       string          `json:"run_id"`
	CreatedAtNs int64           `json:"created_at_ns"`
	KernelKind  string          `json:"kernel_kind"`
	ParamsJSON  json.RawMessage `json:"params_json,omitempty"`
	Description string          `json:"description,omitempty"`

	Ncols     int `json:"ncols"`
	Nrows     int `json:"nrows"`
	Nchannels int `json:"nchannels"`

	SamplesUsed     int `json:"samples_used"`
	SamplesExcluded int `json:"samples_excluded"`
	PixelsWithData  int `json:"pixels_with_data"`

	Cube    []float64 `json:"-"`
	Weights []float64 `json:"-"`
}

// RunFromResult builds a Run from an engine result. params is marshalled
// to JSON and kept alongside so the run can be reproduced.
func RunFromResult(res *gridder.Result, kernelKind string, params interface{}) (*Run, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	return &Run{
		KernelKind:      kernelKind,
		ParamsJSON:      raw,
		Ncols:           res.Ncols,
		Nrows:           res.Nrows,
		Nchannels:       res.Nchan,
		SamplesUsed:     res.Stats.SamplesUsed,
		SamplesExcluded: res.Stats.SamplesExcluded,
		PixelsWithData:  res.Stats.PixelsWithData,
		Cube:            res.Cube,
		Weights:         res.Weights,
	}, nil
}

// InsertRun stores run. If run.RunID is empty, a new UUID is generated.
func (db *DB) InsertRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAtNs == 0 {
		run.CreatedAtNs = time.Now().UnixNano()
	}
	if want := run.Ncols * run.Nrows; len(run.Weights) != want || len(run.Cube) != want*run.Nchannels {
		return fmt.Errorf("insert run: cube shape %dx%dx%d does not match %d values and %d weights",
			run.Ncols, run.Nrows, run.Nchannels, len(run.Cube), len(run.Weights))
	}

	cubeBlob, err := encodeCube(run.Cube)
	if err != nil {
		return fmt.Errorf("encode cube: %w", err)
	}
	weightsBlob, err := encodeCube(run.Weights)
	if err != nil {
		return fmt.Errorf("encode weights: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO gridding_runs (
			run_id, created_at_ns, kernel_kind, params_json, description,
			ncols, nrows, nchannels,
			samples_used, samples_excluded, pixels_with_data,
			cube_blob, weights_blob
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.CreatedAtNs, run.KernelKind, nullString(string(run.ParamsJSON)), nullString(run.Description),
		run.Ncols, run.Nrows, run.Nchannels,
		run.SamplesUsed, run.SamplesExcluded, run.PixelsWithData,
		cubeBlob, weightsBlob,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

const runColumns = `run_id, created_at_ns, kernel_kind, params_json, description,
	ncols, nrows, nchannels, samples_used, samples_excluded, pixels_with_data`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner, extra ...interface{}) (*Run, error) {
	var run Run
	var params, description sql.NullString
	dest := []interface{}{
		&run.RunID, &run.CreatedAtNs, &run.KernelKind, &params, &description,
		&run.Ncols, &run.Nrows, &run.Nchannels,
		&run.SamplesUsed, &run.SamplesExcluded, &run.PixelsWithData,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if params.Valid && params.String != "" {
		run.ParamsJSON = json.RawMessage(params.String)
	}
	if description.Valid {
		run.Description = description.String
	}
	return &run, nil
}

// GetRun returns the run with its cubes decoded.
func (db *DB) GetRun(runID string) (*Run, error) {
	var cubeBlob, weightsBlob []byte
	row := db.QueryRow(`SELECT `+runColumns+`, cube_blob, weights_blob FROM gridding_runs WHERE run_id = ?`, runID)
	run, err := scanRun(row, &cubeBlob, &weightsBlob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	if run.Cube, err = decodeCube(cubeBlob); err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	if run.Weights, err = decodeCube(weightsBlob); err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns run summaries, newest first. limit <= 0 means no limit.
func (db *DB) ListRuns(limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM gridding_runs ORDER BY created_at_ns DESC, run_id`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run.
func (db *DB) DeleteRun(runID string) error {
	res, err := db.Exec(`DELETE FROM gridding_runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
