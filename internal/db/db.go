// Package db persists plan runs and their artifacts in PostgreSQL or SQLite.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned by DeleteRun for an unknown run.
var ErrRunNotFound = errors.New("run not found")

// Store is implemented by PostgresStore and SQLiteStore.
//
// Getters return nil (and a nil error) when the record does not exist.
type Store interface {
	EnsureSchema(ctx context.Context) error

	CreateRun(ctx context.Context, in RunInput) (uuid.UUID, error)
	CompleteRun(ctx context.Context, runID uuid.UUID, status string) error
	GetRun(ctx context.Context, runID uuid.UUID) (*Run, error)
	ListRuns(ctx context.Context, filters RunFilters) ([]Run, error)
	DeleteRun(ctx context.Context, runID uuid.UUID) error

	SaveArtifact(ctx context.Context, runID uuid.UUID, step, category string, content any) error
	SaveTextArtifact(ctx context.Context, runID uuid.UUID, step, category, text string) error
	GetArtifact(ctx context.Context, runID uuid.UUID, step string) ([]byte, error)
	GetTextArtifact(ctx context.Context, runID uuid.UUID, step string) (string, error)
	ListArtifacts(ctx context.Context, runID uuid.UUID) ([]ArtifactSummary, error)

	Close()
}

// Backend names accepted by Open.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendNone     = "none"
)

// Open connects to the selected backend and ensures its schema. It returns
// a nil Store for BackendNone and the empty string.
func Open(ctx context.Context, backend, databaseURL, sqlitePath string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch backend {
	case "", BackendNone:
		return nil, nil
	case BackendPostgres:
		s, err = Connect(ctx, databaseURL)
	case BackendSQLite:
		s, err = OpenSQLite(ctx, sqlitePath)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
	if err != nil {
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
