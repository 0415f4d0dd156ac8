package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrOutsideRoot is returned when a key would resolve outside the store directory.
var ErrOutsideRoot = errors.New("storage: key escapes root directory")

// ErrTooLarge is returned by PutLimited when the stream exceeds the limit.
var ErrTooLarge = errors.New("storage: object exceeds size limit")

// BlobStore keeps opaque objects on the local filesystem. Keys are slash separated
// paths relative to the root, e.g. "complaints/3f2a...pdf".
type BlobStore struct {
	root string
}

// NewBlobStore creates root when missing.
func NewBlobStore(root string) (*BlobStore, error) {
	if root == "" {
		return nil, errors.New("storage: root directory required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &BlobStore{root: root}, nil
}

// Root returns the directory served by the store.
func (s *BlobStore) Root() string {
	return s.root
}

// NewKey builds a collision free key under prefix keeping the original extension.
func NewKey(prefix, originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if len(ext) > 10 {
		ext = ""
	}
	name := uuid.NewString() + ext
	if prefix == "" {
		return name
	}
	return strings.Trim(prefix, "/") + "/" + name
}

// Put writes data under key, replacing any previous object.
func (s *BlobStore) Put(key string, data []byte) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare object directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write object: %w", err)
	}
	return nil
}

// PutLimited streams r into key and fails with ErrTooLarge once more than limit bytes arrive.
// A partially written object is removed on failure.
func (s *BlobStore) PutLimited(key string, r io.Reader, limit int64) (int64, error) {
	path, err := s.resolve(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("prepare object directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create object: %w", err)
	}

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	n, copyErr := io.Copy(file, src)
	closeErr := file.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(path)
		return n, fmt.Errorf("write object stream: %w", copyErr)
	case limit > 0 && n > limit:
		_ = os.Remove(path)
		return n, ErrTooLarge
	case closeErr != nil:
		_ = os.Remove(path)
		return n, fmt.Errorf("close object: %w", closeErr)
	}
	return n, nil
}

// Open returns a read handle for key.
func (s *BlobStore) Open(key string) (*os.File, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open object: %w", err)
	}
	return file, nil
}

// Delete removes key; a missing object is not an error.
func (s *BlobStore) Delete(key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// Sweep removes objects under prefix last modified before now-ttl and returns their keys.
func (s *BlobStore) Sweep(prefix string, ttl time.Duration) ([]string, error) {
	dir, err := s.resolve(prefix)
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-ttl)
	removed := make([]string, 0)
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			rel = path
		}
		removed = append(removed, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sweep %s: %w", prefix, err)
	}
	return removed, nil
}

func (s *BlobStore) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	path := filepath.Join(s.root, clean)
	root := filepath.Clean(s.root)
	if path != root && !strings.HasPrefix(path, root+string(os.PathSeparator)) {
		return "", ErrOutsideRoot
	}
	return path, nil
}
