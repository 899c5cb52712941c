// Package home resolves the docextract home directory and the fixed layout
// beneath it.
package home

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultDirName = ".docextract"

	// EnvVar overrides the default location when no path is given.
	EnvVar = "DOCEXTRACT_HOME"

	ConfigFileName = "config.yaml"
)

// Layout beneath the home directory.
const (
	archiveDir = "archive" // file archive backend root
	minioDir   = "minio"   // managed MinIO data volume
	tmpDir     = "tmp"     // PDF render scratch space
)

// Dir is a resolved home directory. It does not create anything until one
// of the Ensure methods is called.
type Dir struct {
	path string
}

// New resolves path, falling back to $DOCEXTRACT_HOME and then ~/.docextract.
func New(path string) (*Dir, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(userHome, DefaultDirName)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home %q: %w", path, err)
	}
	return &Dir{path: abs}, nil
}

func (d *Dir) Path() string          { return d.path }
func (d *Dir) ConfigPath() string    { return filepath.Join(d.path, ConfigFileName) }
func (d *Dir) ArchivePath() string   { return filepath.Join(d.path, archiveDir) }
func (d *Dir) MinioDataPath() string { return filepath.Join(d.path, minioDir) }
func (d *Dir) TmpPath() string       { return filepath.Join(d.path, tmpDir) }

// EnsureExists creates the home directory and its scratch directory.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.TmpPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create home directory: %w", err)
	}
	return nil
}

// EnsureMinioDir creates the managed MinIO data directory.
func (d *Dir) EnsureMinioDir() error {
	return os.MkdirAll(d.MinioDataPath(), 0o755)
}

// SweepTmp removes scratch entries last modified before maxAge ago. Render
// directories are normally removed by the rasterizer; this catches the ones
// left behind by a crash. A missing scratch directory is not an error.
func (d *Dir) SweepTmp(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(d.TmpPath())
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	var removed int
	var errs []error
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(d.TmpPath(), e.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
