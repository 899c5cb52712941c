package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileConfig configures the local filesystem sink.
type FileConfig struct {
	// Dir is the archive root, usually ~/.docextract/archive.
	Dir string
}

// FileSink writes records under a local directory using the object key layout.
type FileSink struct {
	dir string
}

// NewFileSink creates the archive root if needed.
func NewFileSink(cfg FileConfig) (*FileSink, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("file archive: dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("file archive: create %s: %w", cfg.Dir, err)
	}
	return &FileSink{dir: cfg.Dir}, nil
}

func (s *FileSink) Name() string { return "file" }

// Store writes the upload and its record. Existing files are not overwritten.
func (s *FileSink) Store(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("file archive: marshal record: %w", err)
	}

	if len(rec.Upload) > 0 {
		if err := s.writeNew(rec.UploadKey(), rec.Upload); err != nil {
			return err
		}
	}
	return s.writeNew(rec.RecordKey(), body)
}

func (s *FileSink) writeNew(key string, data []byte) error {
	full := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("file archive: %w", err)
	}
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("file archive: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("file archive: write %s: %w", key, err)
	}
	return f.Close()
}

// Path returns where a key is stored on disk.
func (s *FileSink) Path(key string) string {
	return filepath.Join(s.dir, filepath.FromSlash(key))
}

func (s *FileSink) Close() error { return nil }
