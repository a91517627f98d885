package contacts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists contact lists in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgreSQL-backed Store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the backing table and indexes if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS gatekeeper_contacts (
			owner        TEXT NOT NULL,
			display_name TEXT NOT NULL,
			mxid         TEXT NOT NULL,
			invite_start BIGINT NOT NULL,
			invite_end   BIGINT,
			PRIMARY KEY (owner, mxid)
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure contacts schema: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS gatekeeper_contacts_owner
		ON gatekeeper_contacts (owner)
	`)
	if err != nil {
		return fmt.Errorf("ensure contacts index: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, owner string) (Contacts, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT display_name, mxid, invite_start, invite_end
		FROM gatekeeper_contacts
		WHERE owner = $1
		ORDER BY mxid
	`, owner)
	if err != nil {
		return Contacts{}, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	out := Contacts{Contacts: []Contact{}}
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.DisplayName, &c.MXID, &c.InviteSettings.Start, &c.InviteSettings.End); err != nil {
			return Contacts{}, fmt.Errorf("scan contact: %w", err)
		}
		out.Contacts = append(out.Contacts, c)
	}
	if err := rows.Err(); err != nil {
		return Contacts{}, fmt.Errorf("list contacts: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, owner, mxid string) (*Contact, error) {
	var c Contact
	err := s.pool.QueryRow(ctx, `
		SELECT display_name, mxid, invite_start, invite_end
		FROM gatekeeper_contacts
		WHERE owner = $1 AND mxid = $2
	`, owner, mxid).Scan(&c.DisplayName, &c.MXID, &c.InviteSettings.Start, &c.InviteSettings.End)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, owner string, contact Contact) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO gatekeeper_contacts (owner, display_name, mxid, invite_start, invite_end)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner, mxid) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			invite_start = EXCLUDED.invite_start,
			invite_end   = EXCLUDED.invite_end
	`, owner, contact.DisplayName, contact.MXID, contact.InviteSettings.Start, contact.InviteSettings.End)
	if err != nil {
		return fmt.Errorf("upsert contact: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, owner, mxid string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM gatekeeper_contacts WHERE owner = $1 AND mxid = $2
	`, owner, mxid)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	return nil
}
