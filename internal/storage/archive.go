package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReportArchive keeps a copy of every exported report.
type ReportArchive interface {
	// Store saves data under name and returns where it went.
	Store(ctx context.Context, name string, data []byte) (string, error)
}

// LocalArchive writes reports into a directory.
type LocalArchive struct {
	dir string
}

// NewLocalArchive creates dir if needed.
func NewLocalArchive(dir string) (*LocalArchive, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &LocalArchive{dir: dir}, nil
}

func (a *LocalArchive) Store(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := safeName(name)
	if err != nil {
		return "", err
	}

	dst := filepath.Join(a.dir, clean)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename report: %w", err)
	}
	return dst, nil
}

// safeName rejects names that would escape the archive root.
func safeName(name string) (string, error) {
	base := filepath.Base(name)
	if name == "" || base != name || strings.HasPrefix(base, ".") {
		return "", fmt.Errorf("invalid report name %q", name)
	}
	return base, nil
}
