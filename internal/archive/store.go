package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ObjectStore is the storage boundary for archival records. Both operations
// are atomic single-object calls; the store never inspects record contents.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// FSStore implements ObjectStore on the local filesystem. Puts write to a
// temp file and rename so readers never observe a partial object.
type FSStore struct {
	root   string
	logger *slog.Logger
}

// NewFSStore creates the root directory if needed.
func NewFSStore(root string, logger *slog.Logger) (*FSStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create archive root: %w", err)
	}
	return &FSStore{root: root, logger: logger}, nil
}

// keyPath maps an object key to a file path, refusing traversal.
func (s *FSStore) keyPath(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty object key")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *FSStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.keyPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return fmt.Errorf("create temp object: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publish object: %w", err)
	}

	s.logger.Debug("stored archive object", "key", key, "bytes", len(data))
	return nil
}

func (s *FSStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.keyPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open object %q: %w", key, err)
	}
	return f, nil
}

// Archiver encodes chunk sets and moves them through an ObjectStore.
type Archiver struct {
	store  ObjectStore
	logger *slog.Logger
}

func NewArchiver(store ObjectStore, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{store: store, logger: logger}
}

// Archive encodes the record and writes it under key, returning the
// encoded size in bytes.
func (a *Archiver) Archive(ctx context.Context, key string, data ContentChunks) (int, error) {
	encoded := Encode(data)
	if err := a.store.Put(ctx, key, encoded); err != nil {
		return 0, fmt.Errorf("archive %q: %w", key, err)
	}
	a.logger.Info("archived chunk set", "key", key, "chunks", len(data.Chunks), "bytes", len(encoded))
	return len(encoded), nil
}

// Load reads and decodes the record stored under key.
func (a *Archiver) Load(ctx context.Context, key string) (ContentChunks, error) {
	rc, err := a.store.Get(ctx, key)
	if err != nil {
		return ContentChunks{}, fmt.Errorf("load %q: %w", key, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return ContentChunks{}, fmt.Errorf("read %q: %w", key, err)
	}
	return Decode(raw)
}
