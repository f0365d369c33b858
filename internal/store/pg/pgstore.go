package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"hostelpass.org/internal/store"
)

// Store keeps each collection as a single jsonb document, preserving the
// whole-collection replace semantics of the file backend: the row is the unit
// of write, last writer wins.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Modest pool; the model assumes a single active writer anyway.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle (used by tests).
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Bootstrap creates the backing table if it does not exist yet.
func (s *Store) Bootstrap(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		create table if not exists collections (
			name       text primary key,
			data       jsonb not null,
			updated_at timestamptz not null default now()
		)
	`)
	return err
}

func (s *Store) ReadAll(ctx context.Context, col store.Collection) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`select data from collections where name=$1`, string(col)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Store) ReplaceAll(ctx context.Context, col store.Collection, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		insert into collections(name, data, updated_at)
		values ($1, $2, now())
		on conflict (name) do update
		set data = excluded.data, updated_at = now()
	`, string(col), data)
	return err
}
