package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileStore keeps one file per snapshot name in a directory. Writers go
// through a temp file and rename; a file lock serialises processes sharing
// the directory.
type FileStore struct {
	dir    string
	create func(path string) (tempFile, error)
}

// tempFile is the part of *os.File a save needs.
type tempFile interface {
	io.Writer
	Sync() error
	Close() error
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir: dir,
		create: func(path string) (tempFile, error) {
			return os.Create(path)
		},
	}
}

func (s *FileStore) Backend() string { return "file" }

func (s *FileStore) Close() error { return nil }

// Path returns the file holding the named snapshot.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.dir, name+".snap")
}

func (s *FileStore) Save(ctx context.Context, name string, img *Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	lock := flock.New(s.Path(name) + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquiring snapshot lock: %w", err)
	}
	defer lock.Unlock()

	finalPath := s.Path(name)
	tmpPath := finalPath + ".tmp"
	if err := s.writeTemp(tmpPath, img); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming snapshot file: %w", err)
	}
	return nil
}

// writeTemp encodes img to path and makes it durable. The file is closed on
// every path; a close failure after a clean sync still fails the save.
func (s *FileStore) writeTemp(path string, img *Image) (err error) {
	f, err := s.create(path)
	if err != nil {
		return fmt.Errorf("creating temp snapshot file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing snapshot file: %w", closeErr)
		}
	}()
	if err := Encode(f, img); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing snapshot file: %w", err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, name string) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lock := flock.New(s.Path(name) + ".lock")
	if _, err := os.Stat(s.dir); err == nil {
		if err := lock.RLock(); err != nil {
			return nil, fmt.Errorf("acquiring snapshot lock: %w", err)
		}
		defer lock.Unlock()
	}
	f, err := os.Open(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("snapshot %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("opening snapshot file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
