package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GCSConfig configures the Cloud Storage sink. Credentials come from
// Application Default Credentials.
type GCSConfig struct {
	Bucket string
	Prefix string
}

// GCSSink writes records to a Cloud Storage bucket.
type GCSSink struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

// NewGCSSink opens a storage client for the bucket.
func NewGCSSink(ctx context.Context, cfg GCSConfig) (*GCSSink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs archive: bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs archive: storage.NewClient: %w", err)
	}
	return &GCSSink{
		client: client,
		bucket: client.Bucket(cfg.Bucket),
		prefix: cfg.Prefix,
	}, nil
}

func (s *GCSSink) Name() string { return "gcs" }

// Store writes the upload and record. Objects are created only if absent.
func (s *GCSSink) Store(ctx context.Context, rec *Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("gcs archive: marshal record: %w", err)
	}
	if len(rec.Upload) > 0 {
		if err := s.writeNew(ctx, path.Join(s.prefix, rec.UploadKey()), rec.ContentType, rec.Upload); err != nil {
			return err
		}
	}
	return s.writeNew(ctx, path.Join(s.prefix, rec.RecordKey()), "application/json", body)
}

func (s *GCSSink) writeNew(ctx context.Context, name, contentType string, data []byte) error {
	w := s.bucket.Object(name).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		if alreadyExists(err) {
			return nil
		}
		return fmt.Errorf("gcs archive: write %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		if alreadyExists(err) {
			return nil
		}
		return fmt.Errorf("gcs archive: finalize %s: %w", name, err)
	}
	return nil
}

// alreadyExists reports a failed DoesNotExist precondition.
func alreadyExists(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

func (s *GCSSink) Close() error { return s.client.Close() }
