// Package blob stores uploaded document payloads on disk, addressed by
// content hash. Two uploads of the same bytes share one file, which is what
// makes re-adding a document deduplicate instead of duplicating.
package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Storage manages blob filesystem operations. Thread-safe for concurrent
// operations.
type Storage struct {
	basePath string
	mu       sync.RWMutex // Protects file operations
}

// NewStorage creates a Storage rooted at {basePath}/blobs/.
func NewStorage(basePath string) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	storagePath := filepath.Join(basePath, "blobs")
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blobs directory: %w", err)
	}

	return &Storage{
		basePath: storagePath,
	}, nil
}

// Put streams r into the store and returns the hex SHA-256 hash of its
// contents along with the byte count. Writing is hash-then-rename: the data
// lands in a temp file first, so a crash never leaves a partial blob under
// a valid hash, and re-putting existing content is a no-op.
func (s *Storage) Put(r io.Reader) (hash string, size int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.basePath, "incoming-*")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	hasher := sha256.New()
	size, err = io.Copy(io.MultiWriter(tmp, hasher), r)
	if err != nil {
		return "", 0, fmt.Errorf("failed to write blob: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to close temp file: %w", err)
	}

	hash = hex.EncodeToString(hasher.Sum(nil))
	path := s.path(hash)

	if _, statErr := os.Stat(path); statErr == nil {
		// Same content already stored.
		_ = os.Remove(tmpPath)
		return hash, size, nil
	}

	if err = os.Rename(tmpPath, path); err != nil {
		return "", 0, fmt.Errorf("failed to finalize blob: %w", err)
	}
	return hash, size, nil
}

// Open returns a reader over the blob with the given hash. The caller
// closes it.
func (s *Storage) Open(hash string) (io.ReadCloser, error) {
	if hash == "" {
		return nil, fmt.Errorf("hash cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.path(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("blob not found for %s: %w", hash, err)
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

// Exists checks if a blob with the given hash is stored.
func (s *Storage) Exists(hash string) bool {
	if hash == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.path(hash))
	return err == nil
}

// Delete removes the blob with the given hash. Deleting a missing blob is
// not an error.
func (s *Storage) Delete(hash string) error {
	if hash == "" {
		return fmt.Errorf("hash cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(hash)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

func (s *Storage) path(hash string) string {
	return filepath.Join(s.basePath, hash)
}

// HashBytes returns the hex SHA-256 of data. Used to check for an existing
// document before paying for a Put.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
