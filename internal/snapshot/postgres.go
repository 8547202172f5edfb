package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/postgres"
)

const createSnapshotsTable = `
CREATE TABLE IF NOT EXISTS index_snapshots (
	name       TEXT PRIMARY KEY,
	doc_count  INTEGER NOT NULL,
	term_count INTEGER NOT NULL,
	data       BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore keeps one row per snapshot name in index_snapshots.
type PostgresStore struct {
	client *postgres.Client
}

func NewPostgresStore(client *postgres.Client) *PostgresStore {
	return &PostgresStore{client: client}
}

func (s *PostgresStore) Backend() string { return "postgres" }

// Ping reports whether the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	return s.client.Close()
}

// Migrate creates the snapshots table if needed.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if err := s.client.Migrate(ctx, createSnapshotsTable); err != nil {
		return fmt.Errorf("creating index_snapshots table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, name string, img *Image) error {
	data, err := Marshal(img)
	if err != nil {
		return err
	}
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO index_snapshots (name, doc_count, term_count, data, updated_at)
			 VALUES ($1, $2, $3, $4, NOW())
			 ON CONFLICT (name) DO UPDATE
			 SET doc_count = EXCLUDED.doc_count,
			     term_count = EXCLUDED.term_count,
			     data = EXCLUDED.data,
			     updated_at = NOW()`,
			name, len(img.Documents), len(img.Terms), data,
		)
		if err != nil {
			return fmt.Errorf("upserting snapshot %q: %w", name, err)
		}
		return nil
	})
}

func (s *PostgresStore) Load(ctx context.Context, name string) (*Image, error) {
	var data []byte
	err := s.client.DB.QueryRowContext(ctx,
		`SELECT data FROM index_snapshots WHERE name = $1`, name,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying snapshot %q: %w", name, err)
	}
	return Unmarshal(data)
}
