package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// LoadArtifact loads the JSON artifact of a run step into a new T.
// Returns nil when the artifact does not exist.
func LoadArtifact[T any](ctx context.Context, s Store, runID uuid.UUID, step string) (*T, error) {
	content, err := s.GetArtifact(ctx, runID, step)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, nil
	}

	var v T
	if err := json.Unmarshal(content, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", step, err)
	}
	return &v, nil
}
