package snapshot

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/postgres"
)

// Store saves and loads named images.
type Store interface {
	Save(ctx context.Context, name string, img *Image) error
	// Load returns ErrNotFound when nothing was saved under name.
	Load(ctx context.Context, name string) (*Image, error)
	Backend() string
	Close() error
}

// Open builds the Store selected by cfg.Backend. It returns nil, nil when
// snapshots are disabled.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Snapshot.Backend {
	case "":
		return nil, nil
	case "file":
		return NewFileStore(cfg.Snapshot.Path), nil
	case "badger":
		return OpenBadgerStore(cfg.Snapshot.Path)
	case "postgres":
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, err
		}
		st := NewPostgresStore(client)
		if err := st.Migrate(context.Background()); err != nil {
			client.Close()
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("snapshot backend %q: %w", cfg.Snapshot.Backend, apperrors.ErrInvalidInput)
	}
}
