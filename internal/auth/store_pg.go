package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	createSessionTableSQL = `CREATE TABLE IF NOT EXISTS operator_sessions (
	session_key TEXT PRIMARY KEY,
	payload JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	upsertSessionSQL = `INSERT INTO operator_sessions (session_key, payload, updated_at) VALUES ($1, $2, NOW())
ON CONFLICT (session_key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`
	selectSessionSQL = `SELECT payload FROM operator_sessions WHERE session_key = $1`
	deleteSessionSQL = `DELETE FROM operator_sessions WHERE session_key = $1`
)

// pgQuerier is the subset of *pgxpool.Pool used by PGStore.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore persists the identity as one row of operator_sessions.
type PGStore struct {
	db  pgQuerier
	key string
}

// NewPGStore constructs a PGStore. Pass a *pgxpool.Pool as db.
func NewPGStore(db pgQuerier, key string) *PGStore {
	return &PGStore{db: db, key: key}
}

// EnsureSchema creates the backing table when missing.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createSessionTableSQL); err != nil {
		return fmt.Errorf("auth: pg store schema: %w", err)
	}
	return nil
}

// Save implements Store with a single upsert statement.
func (s *PGStore) Save(ctx context.Context, identity Identity) error {
	data, err := encodeIdentity(identity)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, upsertSessionSQL, s.key, data); err != nil {
		return fmt.Errorf("auth: pg store upsert: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *PGStore) Load(ctx context.Context) (Identity, bool, error) {
	var payload []byte
	if err := s.db.QueryRow(ctx, selectSessionSQL, s.key).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Identity{}, false, nil
		}
		return Identity{}, false, fmt.Errorf("auth: pg store select: %w", err)
	}
	identity, ok := decodeIdentity(payload)
	return identity, ok, nil
}

// Clear implements Store.
func (s *PGStore) Clear(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, deleteSessionSQL, s.key); err != nil {
		return fmt.Errorf("auth: pg store delete: %w", err)
	}
	return nil
}
