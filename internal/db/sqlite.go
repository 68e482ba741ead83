package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLiteStore keeps runs in a single SQLite file for local CLI use.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		path = "plateplan.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	conn, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	conn.SetMaxOpenConns(1)
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}
	return &SQLiteStore{db: conn}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

// EnsureSchema creates the plan_runs and artifacts tables if missing.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// timeLayout is fixed width so text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func now() string { return time.Now().UTC().Format(timeLayout) }

// CreateRun creates a new plan run record and returns its ID
func (s *SQLiteStore) CreateRun(ctx context.Context, in RunInput) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO plan_runs (id, project, plate_id, technique, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id.String(), in.Project, in.PlateID, in.Technique, RunStatusRunning, now(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun marks a plan run as finished with the given status
func (s *SQLiteStore) CompleteRun(ctx context.Context, runID uuid.UUID, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE plan_runs SET status = ?, completed_at = ? WHERE id = ?`,
		status, now(), runID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(r rowScanner) (*Run, error) {
	var (
		run           Run
		id, createdAt string
		completedAt   sql.NullString
	)
	if err := r.Scan(&id, &run.Project, &run.PlateID, &run.Technique, &run.Status, &createdAt, &completedAt); err != nil {
		return nil, err
	}
	var err error
	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", id, err)
	}
	if run.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	if completedAt.Valid {
		t, err := time.Parse(timeLayout, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("invalid completed_at %q: %w", completedAt.String, err)
		}
		run.CompletedAt = &t
	}
	return &run, nil
}

// GetRun retrieves a plan run by ID
func (s *SQLiteStore) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project, plate_id, technique, status, created_at, completed_at
		 FROM plan_runs WHERE id = ?`,
		runID.String(),
	)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves recent runs with optional filters
func (s *SQLiteStore) ListRuns(ctx context.Context, filters RunFilters) ([]Run, error) {
	if filters.Limit <= 0 {
		filters.Limit = defaultListLimit
	}

	query := `SELECT id, project, plate_id, technique, status, created_at, completed_at
		FROM plan_runs WHERE 1=1`
	args := []any{}

	if filters.Project != "" {
		query += " AND project LIKE ?"
		args = append(args, "%"+filters.Project+"%")
	}
	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, filters.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// DeleteRun deletes a plan run and its artifacts
func (s *SQLiteStore) DeleteRun(ctx context.Context, runID uuid.UUID) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM artifacts WHERE run_id = ?`, runID.String()); err != nil {
		return fmt.Errorf("failed to delete artifacts: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM plan_runs WHERE id = ?`, runID.String())
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return tx.Commit()
}

// SaveArtifact stores a JSON artifact for a plan run
func (s *SQLiteStore) SaveArtifact(ctx context.Context, runID uuid.UUID, step, category string, content any) error {
	jsonBytes, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO artifacts (id, run_id, step, category, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, step) DO UPDATE SET category = excluded.category, content = excluded.content, created_at = excluded.created_at`,
		uuid.New().String(), runID.String(), step, category, jsonBytes, now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save artifact %s: %w", step, err)
	}
	return nil
}

// SaveTextArtifact stores a text artifact (CSV or TSV exports) for a plan run
func (s *SQLiteStore) SaveTextArtifact(ctx context.Context, runID uuid.UUID, step, category, text string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (id, run_id, step, category, text_content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, step) DO UPDATE SET category = excluded.category, text_content = excluded.text_content, created_at = excluded.created_at`,
		uuid.New().String(), runID.String(), step, category, text, now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save text artifact %s: %w", step, err)
	}
	return nil
}

// GetArtifact retrieves a JSON artifact by run ID and step
func (s *SQLiteStore) GetArtifact(ctx context.Context, runID uuid.UUID, step string) ([]byte, error) {
	var content []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM artifacts WHERE run_id = ? AND step = ?`,
		runID.String(), step,
	).Scan(&content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get artifact %s: %w", step, err)
	}
	return content, nil
}

// GetTextArtifact retrieves a text artifact by run ID and step
func (s *SQLiteStore) GetTextArtifact(ctx context.Context, runID uuid.UUID, step string) (string, error) {
	var text sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT text_content FROM artifacts WHERE run_id = ? AND step = ?`,
		runID.String(), step,
	).Scan(&text)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get text artifact %s: %w", step, err)
	}
	return text.String, nil
}

// ListArtifacts lists the artifacts of a run in creation order
func (s *SQLiteStore) ListArtifacts(ctx context.Context, runID uuid.UUID) ([]ArtifactSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, step, COALESCE(category, ''), created_at,
		        content IS NOT NULL, text_content IS NOT NULL
		 FROM artifacts WHERE run_id = ? ORDER BY created_at ASC, step ASC`,
		runID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var artifacts []ArtifactSummary
	for rows.Next() {
		var (
			a             ArtifactSummary
			id, createdAt string
		)
		if err := rows.Scan(&id, &a.Step, &a.Category, &createdAt, &a.HasJSON, &a.HasText); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		if a.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid artifact id %q: %w", id, err)
		}
		if a.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}
