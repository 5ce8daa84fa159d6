// Package storage provides SQLite run storage.
//
// Information Hiding:
// - SQLite connection management hidden behind interface
// - Schema and migration details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/richinex/cair/cost"
)

// SqliteStore implements RunStore using SQLite.
// Thread-safe: sql.DB handles connection pooling and concurrent access.
type SqliteStore struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	return newSqliteStore(db)
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	return newSqliteStore(db)
}

func newSqliteStore(db *sql.DB) (*SqliteStore, error) {
	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			initial_prompt TEXT NOT NULL,
			final_output TEXT NOT NULL,
			quality_score REAL NOT NULL,
			iteration_count INTEGER NOT NULL,
			metadata TEXT,
			started_at INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_runs_started
		ON runs(started_at DESC);

		CREATE TABLE IF NOT EXISTS drafts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			draft_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			score REAL,
			FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
			UNIQUE(run_id, draft_index)
		);

		CREATE INDEX IF NOT EXISTS idx_drafts_run
		ON drafts(run_id, draft_index);

		CREATE TABLE IF NOT EXISTS calls (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			model TEXT NOT NULL,
			input_tokens INTEGER NOT NULL,
			output_tokens INTEGER NOT NULL,
			cost_usd REAL NOT NULL,
			recorded_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_calls_run
		ON calls(run_id, id);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveRun stores a run and its drafts, replacing any previous copy.
func (s *SqliteStore) SaveRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("run ID is required")
	}

	var metadata any
	if len(run.Metadata) > 0 {
		encoded, err := json.Marshal(run.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode run metadata: %w", err)
		}
		metadata = string(encoded)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// defer tx.Rollback() is safe even after Commit() - it becomes a no-op
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
		(run_id, initial_prompt, final_output, quality_score, iteration_count, metadata, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.InitialPrompt,
		run.FinalOutput,
		run.QualityScore,
		run.IterationCount,
		metadata,
		run.StartedAt.UnixNano(),
		run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM drafts WHERE run_id = ?", run.ID); err != nil {
		return fmt.Errorf("failed to clear old drafts: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO drafts (run_id, draft_index, content, score) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	// Draft 0 is the generation and has no score; draft i was scored Scores[i-1].
	for i, draft := range run.History {
		var score any
		if i > 0 && i-1 < len(run.Scores) {
			score = run.Scores[i-1]
		}
		if _, err = stmt.ExecContext(ctx, run.ID, i, draft, score); err != nil {
			return fmt.Errorf("failed to insert draft: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadRun returns the run with the given ID.
func (s *SqliteStore) LoadRun(ctx context.Context, id string) (Run, error) {
	var (
		run        Run
		metadata   sql.NullString
		startedAt  int64
		durationMs int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, initial_prompt, final_output, quality_score, iteration_count, metadata, started_at, duration_ms
		FROM runs WHERE run_id = ?`, id).
		Scan(&run.ID, &run.InitialPrompt, &run.FinalOutput, &run.QualityScore, &run.IterationCount,
			&metadata, &startedAt, &durationMs)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to query run: %w", err)
	}

	run.StartedAt = time.Unix(0, startedAt)
	run.Duration = time.Duration(durationMs) * time.Millisecond
	run.Metadata = map[string]any{}
	if metadata.Valid {
		if err := json.Unmarshal([]byte(metadata.String), &run.Metadata); err != nil {
			return Run{}, fmt.Errorf("failed to decode run metadata: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT content, score FROM drafts WHERE run_id = ? ORDER BY draft_index ASC", id)
	if err != nil {
		return Run{}, fmt.Errorf("failed to query drafts: %w", err)
	}
	defer rows.Close()

	run.History = []string{}
	run.Scores = []float64{}
	for rows.Next() {
		var (
			content string
			score   sql.NullFloat64
		)
		if err := rows.Scan(&content, &score); err != nil {
			return Run{}, fmt.Errorf("failed to scan draft: %w", err)
		}
		run.History = append(run.History, content)
		if score.Valid {
			run.Scores = append(run.Scores, score.Float64)
		}
	}
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("error iterating drafts: %w", err)
	}

	return run, nil
}

// ListRuns returns runs newest first.
func (s *SqliteStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
		SELECT run_id, initial_prompt, quality_score, iteration_count, started_at
		FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	summaries := []RunSummary{} // Start with empty slice, not nil
	for rows.Next() {
		var (
			summary   RunSummary
			startedAt int64
		)
		if err := rows.Scan(&summary.ID, &summary.InitialPrompt, &summary.QualityScore,
			&summary.IterationCount, &startedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		summary.StartedAt = time.Unix(0, startedAt)
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return summaries, nil
}

// DeleteRun removes a run, its drafts and its calls.
func (s *SqliteStore) DeleteRun(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"drafts", "calls", "runs"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SaveCalls appends ledger calls to a run.
func (s *SqliteStore) SaveCalls(ctx context.Context, runID string, calls []cost.Call) error {
	if len(calls) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO calls (run_id, model, input_tokens, output_tokens, cost_usd, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range calls {
		if _, err := stmt.ExecContext(ctx, runID, c.Model, c.InputTokens, c.OutputTokens, c.CostUSD,
			c.RecordedAt.UnixNano()); err != nil {
			return fmt.Errorf("failed to insert call: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadCalls returns a run's calls in record order.
func (s *SqliteStore) LoadCalls(ctx context.Context, runID string) ([]cost.Call, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT model, input_tokens, output_tokens, cost_usd, recorded_at
		FROM calls WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query calls: %w", err)
	}
	defer rows.Close()

	calls := []cost.Call{}
	for rows.Next() {
		var (
			c          cost.Call
			recordedAt int64
		)
		if err := rows.Scan(&c.Model, &c.InputTokens, &c.OutputTokens, &c.CostUSD, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}
		c.RecordedAt = time.Unix(0, recordedAt)
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating calls: %w", err)
	}

	return calls, nil
}

// Verify SqliteStore implements RunStore
var _ RunStore = (*SqliteStore)(nil)
