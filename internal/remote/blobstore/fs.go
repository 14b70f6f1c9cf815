package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// validHash matches a lowercase hex-encoded SHA256 hash (64 characters).
var validHash = regexp.MustCompile(`^[0-9a-f]{64}$`)

// HashBlob returns the content hash used to address a blob.
func HashBlob(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FSStore implements BlobStore using the local filesystem.
// Blobs are stored in a two-level directory structure using the first two
// characters of the hash as a prefix directory.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem-backed blob store rooted at the given directory.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FSStore{root: root}, nil
}

// Has checks whether a blob exists.
func (s *FSStore) Has(_ context.Context, hash string) (bool, error) {
	if !validHash.MatchString(hash) {
		return false, nil
	}
	_, err := os.Stat(s.blobPath(hash))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat blob %s: %w", hash, err)
	}
	return true, nil
}

// Get opens a blob for reading.
// Returns ErrBlobNotFound if the blob does not exist.
func (s *FSStore) Get(_ context.Context, hash string) (io.ReadCloser, error) {
	if !validHash.MatchString(hash) {
		return nil, ErrBlobNotFound
	}
	f, err := os.Open(s.blobPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("open blob %s: %w", hash, err)
	}
	return f, nil
}

// Put stores a blob. The data is read from r and verified against the hash.
// Idempotent: if the blob exists, this is a no-op.
func (s *FSStore) Put(_ context.Context, hash string, r io.Reader) error {
	if !validHash.MatchString(hash) {
		return fmt.Errorf("invalid blob hash: %q", hash)
	}
	blobPath := s.blobPath(hash)

	// Check if already exists
	if _, err := os.Stat(blobPath); err == nil {
		return nil // idempotent
	}

	// Create directory
	dir := filepath.Dir(blobPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}

	// Write to temp file, verify hash, rename
	tmpFile, err := os.CreateTemp(dir, ".blob-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Hash data as we write
	hasher := sha256.New()
	writer := io.MultiWriter(tmpFile, hasher)

	if _, err := io.Copy(writer, r); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write blob data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	// Verify hash
	computedHash := hex.EncodeToString(hasher.Sum(nil))
	if computedHash != hash {
		os.Remove(tmpPath)
		return fmt.Errorf("expected %s, got %s: %w", hash, computedHash, ErrHashMismatch)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, blobPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename blob: %w", err)
	}

	return nil
}

// Delete removes a blob.
func (s *FSStore) Delete(_ context.Context, hash string) error {
	if !validHash.MatchString(hash) {
		return nil
	}
	os.Remove(s.blobPath(hash))
	return nil
}

// TotalCount returns the number of stored blobs by scanning the directory tree.
func (s *FSStore) TotalCount(_ context.Context) (int, error) {
	var count int

	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && !strings.HasPrefix(info.Name(), ".") {
			count++
		}
		return nil
	})

	return count, err
}

// blobPath returns the filesystem path for a blob.
func (s *FSStore) blobPath(hash string) string {
	return filepath.Join(s.root, hash[:2], hash[2:])
}
