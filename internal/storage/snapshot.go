package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

var snapshotKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// SnapshotStore is a device-scoped key/value store keeping one YAML file
// per key in a directory. Writes replace the file atomically and all
// access is serialized across processes by a lock file.
type SnapshotStore struct {
	dir string
}

// NewSnapshotStore creates a SnapshotStore rooted at dir. The directory
// is created on first write.
func NewSnapshotStore(dir string) *SnapshotStore {
	return &SnapshotStore{dir: dir}
}

// Get decodes the value stored under key into out. It reports false when
// nothing is stored.
func (s *SnapshotStore) Get(key string, out any) (bool, error) {
	path, err := s.path(key)
	if err != nil {
		return false, err
	}
	unlock, err := s.lock()
	if err != nil {
		return false, err
	}
	defer unlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading snapshot %s: %w", key, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decoding snapshot %s: %w", key, err)
	}
	return true, nil
}

// Put stores value under key, replacing any previous value.
func (s *SnapshotStore) Put(key string, value any) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", key, err)
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	tmp, err := os.CreateTemp(s.dir, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing snapshot %s: %w", key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing snapshot %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing snapshot %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing snapshot %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *SnapshotStore) Delete(key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if _, err := os.Stat(s.dir); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting snapshot %s: %w", key, err)
	}
	return nil
}

func (s *SnapshotStore) path(key string) (string, error) {
	if !snapshotKeyPattern.MatchString(key) {
		return "", fmt.Errorf("invalid snapshot key %q", key)
	}
	return filepath.Join(s.dir, key+".yaml"), nil
}

func (s *SnapshotStore) lock() (func() error, error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating snapshot dir: %w", err)
	}
	unlock, err := lockFile(filepath.Join(s.dir, ".lock"))
	if err != nil {
		return nil, fmt.Errorf("locking snapshot dir: %w", err)
	}
	return unlock, nil
}
