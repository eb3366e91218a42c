// Package history persists probe runs to a local SQLite database so past
// runs can be listed, inspected, and compared.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/binprobe/packages/probe"
	"github.com/google/uuid"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at TIMESTAMP NOT NULL,
	base_url TEXT NOT NULL,
	profiles TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	passed INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	skipped INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	scenario_id TEXT NOT NULL,
	profile TEXT NOT NULL,
	passed INTEGER NOT NULL,
	skipped INTEGER NOT NULL,
	attempts INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	error TEXT,
	PRIMARY KEY (run_id, scenario_id, profile)
);

CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id);
`

// Store persists and loads probe runs.
type Store struct {
	db *sql.DB
}

// RunRecord is one persisted run.
type RunRecord struct {
	ID        string
	StartedAt time.Time
	BaseURL   string
	Profiles  []string
	Duration  time.Duration
	Passed    int
	Failed    int
	Skipped   int
}

// ResultRecord is one persisted scenario result.
type ResultRecord struct {
	RunID      string
	ScenarioID string
	Profile    string
	Passed     bool
	Skipped    bool
	Attempts   int
	Duration   time.Duration
	Error      string
}

// DefaultPath returns the default database location under the user home.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".binprobe", "history.db"), nil
}

// Open opens (and creates if needed) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to history database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save persists a finished run and returns its generated ID.
func (s *Store) Save(ctx context.Context, result *probe.RunResult) (string, error) {
	id := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, base_url, profiles, duration_ms, passed, failed, skipped)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, time.Now().UTC(), result.BaseURL, strings.Join(result.Profiles, ","),
		result.Duration.Milliseconds(), result.Passed, result.Failed, result.Skipped)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (run_id, scenario_id, profile, passed, skipped, attempts, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range result.Results {
		errText := ""
		if err := r.Err(); err != nil {
			errText = err.Error()
		}
		_, err = stmt.ExecContext(ctx,
			id, r.Scenario.ID, r.Profile, r.Passed, r.Skipped,
			len(r.Attempts), r.Duration().Milliseconds(), errText)
		if err != nil {
			return "", fmt.Errorf("inserting result %s: %w", r.Scenario.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}

	return id, nil
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, base_url, profiles, duration_ms, passed, failed, skipped
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var records []*RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Get returns one run by ID. A unique ID prefix is accepted.
func (s *Store) Get(ctx context.Context, id string) (*RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, base_url, profiles, duration_ms, passed, failed, skipped
		 FROM runs WHERE id LIKE ? ORDER BY started_at DESC`, id+"%")
	if err != nil {
		return nil, fmt.Errorf("loading run: %w", err)
	}
	defer rows.Close()

	var matches []*RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("run %q not found", id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("run ID %q is ambiguous (%d matches)", id, len(matches))
	}
}

// Latest returns the most recent run.
func (s *Store) Latest(ctx context.Context) (*RunRecord, error) {
	runs, err := s.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no runs recorded")
	}
	return runs[0], nil
}

// Resolve looks up a run by ID prefix; the ref "latest" resolves to the most
// recent run.
func (s *Store) Resolve(ctx context.Context, ref string) (*RunRecord, error) {
	if ref == "latest" {
		return s.Latest(ctx)
	}
	return s.Get(ctx, ref)
}

// Results returns the scenario results of a run.
func (s *Store) Results(ctx context.Context, runID string) ([]*ResultRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, scenario_id, profile, passed, skipped, attempts, duration_ms, error
		 FROM results WHERE run_id = ? ORDER BY scenario_id, profile`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading results: %w", err)
	}
	defer rows.Close()

	var records []*ResultRecord
	for rows.Next() {
		var rec ResultRecord
		var durationMs int64
		if err := rows.Scan(&rec.RunID, &rec.ScenarioID, &rec.Profile,
			&rec.Passed, &rec.Skipped, &rec.Attempts, &durationMs, &rec.Error); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// Delta describes how one scenario changed between two runs.
type Delta struct {
	ScenarioID string
	Profile    string
	Before     *ResultRecord // nil when only in the second run
	After      *ResultRecord // nil when only in the first run
	DurationMs int64         // after minus before, meaningless when either is nil
	Regressed  bool          // passed before, failing now
	Fixed      bool          // failing before, passing now
}

// Compare diffs two runs scenario by scenario.
func (s *Store) Compare(ctx context.Context, beforeID, afterID string) ([]*Delta, error) {
	before, err := s.Results(ctx, beforeID)
	if err != nil {
		return nil, err
	}
	after, err := s.Results(ctx, afterID)
	if err != nil {
		return nil, err
	}

	type key struct{ scenario, profile string }

	beforeByKey := make(map[key]*ResultRecord, len(before))
	for _, r := range before {
		beforeByKey[key{r.ScenarioID, r.Profile}] = r
	}

	var deltas []*Delta
	seen := make(map[key]bool, len(after))
	for _, a := range after {
		k := key{a.ScenarioID, a.Profile}
		seen[k] = true
		b := beforeByKey[k]

		d := &Delta{
			ScenarioID: a.ScenarioID,
			Profile:    a.Profile,
			Before:     b,
			After:      a,
		}
		if b != nil {
			d.DurationMs = a.Duration.Milliseconds() - b.Duration.Milliseconds()
			d.Regressed = b.Passed && !a.Passed && !a.Skipped
			d.Fixed = !b.Passed && !b.Skipped && a.Passed
		}
		deltas = append(deltas, d)
	}

	for _, b := range before {
		k := key{b.ScenarioID, b.Profile}
		if !seen[k] {
			deltas = append(deltas, &Delta{
				ScenarioID: b.ScenarioID,
				Profile:    b.Profile,
				Before:     b,
			})
		}
	}

	return deltas, nil
}

func scanRun(rows *sql.Rows) (*RunRecord, error) {
	var rec RunRecord
	var profiles string
	var durationMs int64
	if err := rows.Scan(&rec.ID, &rec.StartedAt, &rec.BaseURL, &profiles,
		&durationMs, &rec.Passed, &rec.Failed, &rec.Skipped); err != nil {
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	rec.Duration = time.Duration(durationMs) * time.Millisecond
	if profiles != "" {
		rec.Profiles = strings.Split(profiles, ",")
	}
	return &rec, nil
}
