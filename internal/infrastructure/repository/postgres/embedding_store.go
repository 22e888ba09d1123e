package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// EmbeddingStore is the durable tier behind the in-memory embedding cache,
// keyed by the content hash of the embedded text.
type EmbeddingStore struct {
	db *sql.DB
}

func NewEmbeddingStore(db *sql.DB) *EmbeddingStore {
	return &EmbeddingStore{db: db}
}

func (s *EmbeddingStore) Load(ctx context.Context, hash string) ([]float32, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT vector
FROM embeddings
WHERE hash = $1
`, hash)

	var raw []byte
	if err := row.Scan(&raw); err != nil {
		// A miss is a normal outcome, not an error.
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan embedding: %w", err)
	}

	var vector []float32
	if err := json.Unmarshal(raw, &vector); err != nil {
		return nil, fmt.Errorf("unmarshal embedding: %w", err)
	}
	return vector, nil
}

func (s *EmbeddingStore) Save(ctx context.Context, hash string, vector []float32) error {
	raw, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO embeddings (hash, vector)
VALUES ($1, $2)
ON CONFLICT (hash) DO NOTHING
`, hash, raw)
	if err != nil {
		return fmt.Errorf("insert embedding: %w", err)
	}
	return nil
}
