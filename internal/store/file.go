package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps each collection in its own JSON file under a data
// directory. Writes go through a temp file plus rename so a crash mid-write
// never leaves a half-written collection behind.
type FileStore struct {
	dir string
}

var _ Store = (*FileStore)(nil)

// OpenFile prepares the data directory and returns a file-backed store.
func OpenFile(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(col Collection) (string, error) {
	switch col {
	case Passes, Notifications:
		return filepath.Join(s.dir, string(col)+".json"), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCollection, col)
	}
}

func (s *FileStore) ReadAll(ctx context.Context, col Collection) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(col)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// Validate eagerly so a corrupt file is reported on read instead of being
	// clobbered by the next replace.
	if !json.Valid(data) {
		return nil, fmt.Errorf("collection %s: corrupt stored data", col)
	}
	return data, nil
}

func (s *FileStore) ReplaceAll(ctx context.Context, col Collection, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(col)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, string(col)+"-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
