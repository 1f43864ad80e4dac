// Package blobstore persists export artifacts on disk under
// content-addressed keys. Writes are write-once: a key that already
// exists is never rewritten, and concurrent identical writes are safe
// because the content for a given key is always byte-identical.
package blobstore

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"stackhub/internal/models"
)

// Store is a durable, write-once blob store rooted at a directory.
type Store struct {
	root string
}

// New creates the store, ensuring the exports directory exists.
func New(root string) (*Store, error) {
	exportsDir := filepath.Join(root, "exports")
	if err := os.MkdirAll(exportsDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create blob directory: %v", models.ErrStorage, err)
	}
	return &Store{root: root}, nil
}

// Key builds the storage key for a digest and extension.
func Key(digest, ext string) string {
	return "exports/" + digest + "." + ext
}

// Exists reports whether a blob is already stored under the key.
func (s *Store) Exists(key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("%w: stat %s: %v", models.ErrStorage, key, err)
}

// Put stores content under the key unless it already exists. The write
// goes to a temp file first and is renamed into place so readers never
// observe a partial blob.
func (s *Store) Put(key string, content []byte) error {
	path := s.path(key)

	if ok, err := s.Exists(key); err != nil {
		return err
	} else if ok {
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %v", models.ErrStorage, key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", models.ErrStorage, key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close %s: %v", models.ErrStorage, key, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename %s: %v", models.ErrStorage, key, err)
	}

	log.Printf("📦 [BLOB] Stored %s (%d bytes)", key, len(content))
	return nil
}

// Get retrieves a blob by key. Missing keys map to ErrNotFound.
func (s *Store) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: blob %s", models.ErrNotFound, key)
		}
		return nil, fmt.Errorf("%w: read %s: %v", models.ErrStorage, key, err)
	}
	return data, nil
}

// path maps a key to a filesystem path, refusing traversal outside root.
func (s *Store) path(key string) string {
	clean := filepath.Clean(strings.ReplaceAll(key, "/", string(filepath.Separator)))
	return filepath.Join(s.root, clean)
}
