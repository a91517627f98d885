package accountdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists global account data in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgreSQL-backed Store. The table is
// created on first use by EnsureSchema.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the backing table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS gatekeeper_account_data (
			user_id   TEXT NOT NULL,
			data_type TEXT NOT NULL,
			content   JSONB NOT NULL,
			PRIMARY KEY (user_id, data_type)
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure account data schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetGlobal(ctx context.Context, userID, dataType string) (json.RawMessage, error) {
	var content json.RawMessage
	err := s.pool.QueryRow(ctx, `
		SELECT content FROM gatekeeper_account_data
		WHERE user_id = $1 AND data_type = $2
	`, userID, dataType).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account data: %w", err)
	}
	return content, nil
}

func (s *PostgresStore) PutGlobal(ctx context.Context, userID, dataType string, content json.RawMessage) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO gatekeeper_account_data (user_id, data_type, content)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, data_type) DO UPDATE SET content = EXCLUDED.content
	`, userID, dataType, content)
	if err != nil {
		return fmt.Errorf("put account data: %w", err)
	}
	return nil
}
