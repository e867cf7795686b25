package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"picstore_backend/internal/pathresolver"
	"picstore_backend/pkg/apperrors"
)

// LocalStore implements ArtifactStore on the local filesystem.
type LocalStore struct {
	resolver *pathresolver.Resolver
}

// NewLocalStore creates a local store rooted at the resolver's root,
// creating the root directory if needed.
func NewLocalStore(resolver *pathresolver.Resolver) (*LocalStore, error) {
	if err := os.MkdirAll(resolver.Root(), 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStore{resolver: resolver}, nil
}

func (s *LocalStore) EnsureDir(path string) error {
	if err := s.resolver.ValidateWithinRoot(path); err != nil {
		return err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return apperrors.ErrStorageIO(err)
	}
	return nil
}

func (s *LocalStore) WriteFile(path string, data []byte) error {
	if err := s.resolver.ValidateWithinRoot(path); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.ErrStorageIO(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.ErrStorageIO(err)
	}
	return nil
}

func (s *LocalStore) ReadFile(path string) ([]byte, error) {
	if err := s.resolver.ValidateWithinRoot(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.ErrStorageIO(err)
	}
	return data, nil
}

func (s *LocalStore) DeleteDirRecursive(path string) error {
	if err := s.resolver.ValidateWithinRoot(path); err != nil {
		return err
	}
	// RemoveAll succeeds on a missing path, which is exactly the
	// idempotency the callers need.
	if err := os.RemoveAll(path); err != nil {
		return apperrors.ErrStorageIO(err)
	}
	return nil
}

func (s *LocalStore) Exists(path string) (bool, error) {
	if err := s.resolver.ValidateWithinRoot(path); err != nil {
		return false, err
	}
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, apperrors.ErrStorageIO(err)
	}
	return true, nil
}

func (s *LocalStore) ListChildDirNames(path string) ([]string, error) {
	if err := s.resolver.ValidateWithinRoot(path); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, apperrors.ErrStorageIO(err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
