package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage implements BlobStorage on the local filesystem.
// All operations are confined to baseDir to prevent path traversal.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage creates a filesystem blob store rooted at baseDir.
// The directory is resolved to an absolute path and created if absent.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		return nil, ErrInvalidConfig
	}

	absBaseDir, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve base directory: %v", ErrInvalidConfig, err)
	}

	if err := os.MkdirAll(absBaseDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	return &LocalStorage{baseDir: absBaseDir}, nil
}

// Put writes data at the given path, creating parent directories as needed.
// A failed write removes the partial file.
func (s *LocalStorage) Put(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	absPath, err := s.resolvePath(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	if err := os.WriteFile(absPath, data, 0644); err != nil {
		_ = os.Remove(absPath) // Clean up partial file
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return nil
}

// Get returns the content stored at the given path.
func (s *LocalStorage) Get(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	absPath, err := s.resolvePath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrContentNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return data, nil
}

// Delete removes a single file.
func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	absPath, err := s.resolvePath(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrContentNotFound, path)
		}
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory, use DeleteDir", ErrInvalidPath, path)
	}

	if err := os.Remove(absPath); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return nil
}

// DeleteDir recursively removes a directory and its contents.
func (s *LocalStorage) DeleteDir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	absPath, err := s.resolvePath(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrContentNotFound, path)
		}
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidPath, path)
	}

	if err := os.RemoveAll(absPath); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return nil
}

// Exists checks if a file or directory exists at the given path.
func (s *LocalStorage) Exists(ctx context.Context, path string) bool {
	if ctx.Err() != nil {
		return false
	}

	absPath, err := s.resolvePath(path)
	if err != nil {
		return false
	}

	_, err = os.Stat(absPath)
	return err == nil
}

// List returns all entries in a directory (non-recursive).
func (s *LocalStorage) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	absPath, err := s.resolvePath(dir)
	if err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrContentNotFound, dir)
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			continue // Skip entries we can't read
		}
		entry := Entry{
			Name:  de.Name(),
			Path:  filepath.ToSlash(filepath.Join(dir, de.Name())),
			IsDir: de.IsDir(),
		}
		if !de.IsDir() {
			entry.Size = info.Size()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// resolvePath validates and resolves a path within the base directory.
// Prevents traversal by ensuring the resolved path stays inside baseDir.
func (s *LocalStorage) resolvePath(path string) (string, error) {
	path = filepath.Clean(path)
	absPath, err := filepath.Abs(filepath.Join(s.baseDir, path))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}

	if !strings.HasPrefix(absPath, s.baseDir+string(filepath.Separator)) && absPath != s.baseDir {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}
	return absPath, nil
}
