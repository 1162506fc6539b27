package deployment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Store loads and saves the deployment document.
type Store interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
}

// FileStore persists the document as a YAML file. Decoding is strict:
// unknown fields are rejected rather than silently dropped, so a typo in
// a hand-edited document fails loudly instead of losing configuration.
// Saves go through a temp file and rename so readers never observe a
// partially written document.
type FileStore struct {
	path string
	log  *slog.Logger
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithFileStoreLogger sets the structured logger. Defaults to slog.Default().
func WithFileStoreLogger(log *slog.Logger) FileStoreOption {
	return func(s *FileStore) {
		if log != nil {
			s.log = log
		}
	}
}

// NewFileStore creates a store backed by the YAML file at path.
func NewFileStore(path string, opts ...FileStoreOption) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: path cannot be empty", ErrInvalidConfig)
	}

	s := &FileStore{
		path: path,
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Load reads and strictly decodes the document. Returns
// ErrDocumentNotFound when no file exists at the path.
func (s *FileStore) Load(ctx context.Context) (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, s.path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &Document{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	return &doc, nil
}

// Save writes the document atomically via a temp file and rename.
func (s *FileStore) Save(ctx context.Context, doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document cannot be nil", ErrInvalidConfig)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return errors.Join(ErrPersistFailed, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Join(ErrPersistFailed, err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return errors.Join(ErrPersistFailed, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Join(ErrPersistFailed, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Join(ErrPersistFailed, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return errors.Join(ErrPersistFailed, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		s.log.ErrorContext(ctx, "failed to persist deployment document",
			slog.String("path", s.path),
			slog.Any("error", err),
		)
		return errors.Join(ErrPersistFailed, err)
	}

	return nil
}
