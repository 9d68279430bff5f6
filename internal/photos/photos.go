// Package photos implements the blob-storage collaborator: uploaded
// proof photos land on local disk and are served back under a public
// URL prefix.
package photos

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"goalbingo/pkg/utils"
)

// Store writes photos into a directory with atomic renames so a
// crashed upload never leaves a partial file behind a live URL.
type Store struct {
	dir     string
	baseURL string
}

// NewStore creates the photo directory if needed. baseURL is the URL
// prefix the directory is served under.
func NewStore(dir, baseURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create photo dir: %w", err)
	}
	return &Store{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Dir returns the directory photos are stored in.
func (s *Store) Dir() string { return s.dir }

// Upload stores one photo and returns its public URL. The original
// filename only contributes its extension; the stored name is random.
func (s *Store) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
	default:
		ext = ".jpg"
	}
	fname := utils.RandomHex(16) + ext
	if err := atomic.WriteFile(filepath.Join(s.dir, fname), r); err != nil {
		return "", fmt.Errorf("write photo: %w", err)
	}
	return s.baseURL + "/" + fname, nil
}
