package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
)

const badgerKeyPrefix = "snapshot/"

// BadgerStore keeps snapshots as values in an embedded Badger database.
type BadgerStore struct {
	db *badger.DB
}

func OpenBadgerStore(dir string) (*BadgerStore, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("creating badger directory: %w", err)
	}
	opts := badger.DefaultOptions(dir).
		WithNumVersionsToKeep(1).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Backend() string { return "badger" }

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) Save(ctx context.Context, name string, img *Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Marshal(img)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerKeyPrefix+name), data)
	})
}

func (s *BadgerStore) Load(ctx context.Context, name string) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + name))
		if err != nil {
			return err
		}
		// item.Value is only valid inside the transaction.
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("snapshot %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %q: %w", name, err)
	}
	return Unmarshal(data)
}
