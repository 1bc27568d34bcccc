package file

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/langowen/currency/internal/entities"
	"github.com/pkg/errors"
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Storage keeps one JSON file per key under dir.
type Storage struct {
	dir string
	mu  sync.Mutex
}

func InitStorage(dir string) (*Storage, error) {
	const op = "storage.file.InitStorage"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, op)
	}

	return &Storage{dir: dir}, nil
}

func (s *Storage) Get(_ context.Context, key string) ([]byte, error) {
	const op = "storage.file.Get"

	path, err := s.path(key)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, entities.ErrNotFound
		}
		return nil, errors.Wrap(err, op)
	}

	return b, nil
}

// Set writes through a temp file and rename so a crash never leaves a
// half-written value behind.
func (s *Storage) Set(_ context.Context, key string, value []byte) error {
	const op = "storage.file.Set"

	path, err := s.path(key)
	if err != nil {
		return errors.Wrap(err, op)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return errors.Wrap(err, op)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return errors.Wrap(err, op)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, op)
	}

	return errors.Wrap(os.Rename(tmp.Name(), path), op)
}

func (s *Storage) path(key string) (string, error) {
	if !keyPattern.MatchString(key) {
		return "", errors.Errorf("invalid key %q", key)
	}

	return filepath.Join(s.dir, key+".json"), nil
}
