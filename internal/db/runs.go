package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/channelkde/internal/kde"
)

// ErrRunNotFound is returned by GetRun for an unknown run id.
var ErrRunNotFound = errors.New("density run not found")

// Sample extraction modes recorded with a run.
const (
	ModeMask      = "mask"
	ModeScribbles = "scribbles"
)

// Run is one invocation of the channel density pipeline over an image.
type Run struct {
	RunID     string          `json:"run_id"`
	Source    string          `json:"source"`
	Mode      string          `json:"mode"`
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	Config    json.RawMessage `json:"config"`
	CreatedAt time.Time       `json:"created_at"`
	Channels  []ChannelRecord `json:"channels,omitempty"`
}

// ChannelRecord is a stored channel density, with the exact-vs-fast
// comparison when one was computed.
type ChannelRecord struct {
	kde.ChannelDensity
	Comparison *kde.Comparison `json:"comparison,omitempty"`
}

// RecordRun stores run and its channels in one transaction. An empty RunID
// is replaced with a new UUID and a zero CreatedAt with the current time.
func (db *DB) RecordRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	cfg := run.Config
	if len(cfg) == 0 {
		cfg = json.RawMessage("{}")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO density_runs (run_id, source, mode, width, height, config_json, created_unix_nanos)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Source, run.Mode, run.Width, run.Height, string(cfg), run.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.RunID, err)
	}

	for _, ch := range run.Channels {
		density, err := json.Marshal(ch.Density)
		if err != nil {
			return fmt.Errorf("failed to encode %s/%s density: %w", ch.Channel, ch.Label, err)
		}
		var maxAbs, maxRel, tol sql.NullFloat64
		if c := ch.Comparison; c != nil {
			maxAbs = sql.NullFloat64{Float64: c.MaxAbsDiff, Valid: true}
			maxRel = sql.NullFloat64{Float64: c.MaxRelDiff, Valid: true}
			tol = sql.NullFloat64{Float64: c.Tolerance, Valid: true}
		}
		_, err = tx.Exec(`
			INSERT INTO channel_densities (
				run_id, channel, label, sample_count, mean, std_dev, density_json,
				max_abs_diff, max_rel_diff, tolerance
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, ch.Channel, ch.Label, ch.SampleCount, ch.Mean, ch.StdDev, string(density),
			maxAbs, maxRel, tol,
		)
		if err != nil {
			return fmt.Errorf("failed to insert %s/%s density: %w", ch.Channel, ch.Label, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first, without channels.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`
		SELECT run_id, source, mode, width, height, config_json, created_unix_nanos
		FROM density_runs ORDER BY created_unix_nanos DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// GetRun returns a run with its channels in channel, label order.
func (db *DB) GetRun(runID string) (*Run, error) {
	row := db.QueryRow(`
		SELECT run_id, source, mode, width, height, config_json, created_unix_nanos
		FROM density_runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT channel, label, sample_count, mean, std_dev, density_json,
			max_abs_diff, max_rel_diff, tolerance
		FROM channel_densities WHERE run_id = ? ORDER BY channel, label`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ch                  ChannelRecord
			density             string
			maxAbs, maxRel, tol sql.NullFloat64
		)
		if err := rows.Scan(&ch.Channel, &ch.Label, &ch.SampleCount, &ch.Mean, &ch.StdDev, &density,
			&maxAbs, &maxRel, &tol); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(density), &ch.Density); err != nil {
			return nil, fmt.Errorf("failed to decode %s/%s density: %w", ch.Channel, ch.Label, err)
		}
		if maxAbs.Valid {
			ch.Comparison = &kde.Comparison{
				MaxAbsDiff: maxAbs.Float64,
				MaxRelDiff: maxRel.Float64,
				Tolerance:  tol.Float64,
				Within:     maxAbs.Float64 <= 2*tol.Float64,
			}
		}
		run.Channels = append(run.Channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &run, nil
}

// DeleteRun removes a run and its channels.
func (db *DB) DeleteRun(runID string) error {
	res, err := db.Exec(`DELETE FROM density_runs WHERE run_id = ?`, runID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (Run, error) {
	var (
		run     Run
		cfg     string
		created int64
	)
	if err := s.Scan(&run.RunID, &run.Source, &run.Mode, &run.Width, &run.Height, &cfg, &created); err != nil {
		return Run{}, err
	}
	run.Config = json.RawMessage(cfg)
	run.CreatedAt = time.Unix(0, created)
	return run, nil
}
