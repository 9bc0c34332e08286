// Package blob stores rendered documents.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"clinibill/internal/domain/billing"
)

// FilesystemStorage writes documents under a base directory, sharded by the
// first path segment of the suggested name (typically the invoice year).
// Implements billing.BlobStorage.
type FilesystemStorage struct {
	baseDir string
}

var _ billing.BlobStorage = (*FilesystemStorage)(nil)

// NewFilesystemStorage creates a filesystem-backed document store.
func NewFilesystemStorage(baseDir string) (*FilesystemStorage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &FilesystemStorage{baseDir: baseDir}, nil
}

// Store writes data and returns the stored path relative to the base
// directory. The suggested name is sanitized; path traversal segments are
// rejected.
func (s *FilesystemStorage) Store(_ context.Context, data []byte, suggestedName string) (string, error) {
	name := sanitize(suggestedName)
	if name == "" {
		return "", fmt.Errorf("empty document name")
	}

	full := filepath.Join(s.baseDir, name)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create document directory: %w", err)
	}

	// Write-then-rename so a crashed write never leaves a half document
	// behind a final name.
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("finalize document: %w", err)
	}

	return name, nil
}

func sanitize(name string) string {
	parts := strings.Split(filepath.ToSlash(name), "/")
	clean := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || p == "." || p == ".." {
			continue
		}
		clean = append(clean, p)
	}
	return filepath.Join(clean...)
}
