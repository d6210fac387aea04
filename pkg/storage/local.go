package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local persists uploaded artifacts on the local filesystem under a single
// base directory. Returned references are paths relative to that directory.
type Local struct {
	baseDir string
}

// NewLocal creates the base directory if needed and returns a Local store.
func NewLocal(baseDir string) (*Local, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("storage directory must not be empty")
	}

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create storage directory: %w", err)
	}

	return &Local{baseDir: baseDir}, nil
}

// Upload writes the stream to disk under the given name and returns the
// stored relative path. Name must not escape the base directory.
func (l *Local) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clean := filepath.Base(filepath.Clean(name))
	if clean == "" || clean == "." || clean == string(filepath.Separator) {
		return "", fmt.Errorf("invalid file name %q", name)
	}

	target := filepath.Join(l.baseDir, clean)
	file, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("unable to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("unable to write file: %w", err)
	}

	return clean, nil
}

// Open returns a reader for a previously stored artifact.
func (l *Local) Open(name string) (io.ReadCloser, error) {
	clean := filepath.Base(filepath.Clean(name))
	file, err := os.Open(filepath.Join(l.baseDir, clean))
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	return file, nil
}
