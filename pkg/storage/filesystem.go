package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kestrelhealth/radpoint/pkg/apperr"
)

// FilesystemStore keeps blobs under a root directory. The content type is
// stored in a sidecar file next to each blob.
type FilesystemStore struct {
	root string
}

// NewFilesystemStore creates the root directory if needed.
func NewFilesystemStore(root string) (*FilesystemStore, error) {
	if root == "" {
		return nil, fmt.Errorf("filesystem storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &FilesystemStore{root: root}, nil
}

// path maps a key to a file under the root, rejecting traversal outside it.
func (s *FilesystemStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.Join(s.root, filepath.FromSlash(key)))
	if clean != s.root && !strings.HasPrefix(clean, s.root+string(filepath.Separator)) {
		return "", apperr.New(apperr.KindInvalidArgument, "invalid blob key")
	}
	return clean, nil
}

// Put writes the blob and its content type sidecar.
func (s *FilesystemStore) Put(ctx context.Context, key string, content io.Reader, contentType string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create blob: %w", err)
	}
	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write blob: %w", err)
	}

	if err := os.WriteFile(path+".type", []byte(contentType), 0o644); err != nil {
		return fmt.Errorf("failed to write blob content type: %w", err)
	}
	return nil
}

// Get opens the blob and returns its content type.
func (s *FilesystemStore) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, "", apperr.New(apperr.KindNotFound, "blob not found")
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to open blob: %w", err)
	}

	contentType := "application/octet-stream"
	if b, err := os.ReadFile(path + ".type"); err == nil {
		contentType = string(b)
	}
	return f, contentType, nil
}

// Delete removes the blob and its sidecar.
func (s *FilesystemStore) Delete(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	err = os.Remove(path)
	if os.IsNotExist(err) {
		return apperr.New(apperr.KindNotFound, "blob not found")
	}
	if err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	os.Remove(path + ".type")
	return nil
}

// Exists reports whether a blob is stored under the key.
func (s *FilesystemStore) Exists(ctx context.Context, key string) (bool, error) {
	path, err := s.path(key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat blob: %w", err)
	}
	return true, nil
}
