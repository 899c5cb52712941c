// Package archive stores processed uploads and their outcomes. Archiving is
// best effort: a failed store is logged by the caller and never changes the
// response.
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownBackend is returned by Open for an unrecognised backend name.
var ErrUnknownBackend = errors.New("unknown archive backend")

// Record is one processed upload.
type Record struct {
	ID          string    `json:"id" firestore:"id"`
	ReceivedAt  time.Time `json:"received_at" firestore:"receivedAt"`
	Filename    string    `json:"filename" firestore:"filename"`
	ContentType string    `json:"content_type" firestore:"contentType"`
	Size        int       `json:"size" firestore:"size"`
	SHA256      string    `json:"sha256" firestore:"sha256"`

	Kind         string           `json:"kind,omitempty" firestore:"kind,omitempty"`
	DocumentType string           `json:"document_type,omitempty" firestore:"documentType,omitempty"`
	State        string           `json:"state" firestore:"state"`
	Status       int              `json:"status" firestore:"status"`
	Error        string           `json:"error,omitempty" firestore:"error,omitempty"`
	Data         map[string]any   `json:"data,omitempty" firestore:"data,omitempty"`
	StageMillis  map[string]int64 `json:"stage_ms,omitempty" firestore:"stageMs,omitempty"`

	// Upload is the original document. Object stores keep it next to the
	// record; Firestore stores metadata only.
	Upload []byte `json:"-" firestore:"-"`
}

// NewRecord starts a record for an upload.
func NewRecord(filename string, data []byte) *Record {
	sum := sha256.Sum256(data)
	return &Record{
		ID:          uuid.NewString(),
		ReceivedAt:  time.Now().UTC(),
		Filename:    filename,
		ContentType: http.DetectContentType(data),
		Size:        len(data),
		SHA256:      hex.EncodeToString(sum[:]),
		Upload:      data,
	}
}

// prefix is the object key directory: yyyy/mm/dd/<id>.
func (r *Record) prefix() string {
	return path.Join(r.ReceivedAt.Format("2006/01/02"), r.ID)
}

// UploadKey is the object key for the original document.
func (r *Record) UploadKey() string {
	ext := strings.ToLower(path.Ext(r.Filename))
	if ext == "" || len(ext) > 6 {
		ext = ".bin"
	}
	return path.Join(r.prefix(), "upload"+ext)
}

// RecordKey is the object key for the JSON record.
func (r *Record) RecordKey() string {
	return path.Join(r.prefix(), "record.json")
}

// Sink persists records.
type Sink interface {
	Name() string
	Store(ctx context.Context, rec *Record) error
	Close() error
}

// Config selects and configures archive backends.
type Config struct {
	// Backends lists sinks to write to; empty disables archiving.
	Backends    []string
	Concurrency int

	File      FileConfig
	GCS       GCSConfig
	Minio     MinioConfig
	Firestore FirestoreConfig
}

// Open builds the configured sinks. It returns (nil, nil) when archiving is
// disabled, a single sink for one backend, and a Multi otherwise.
func Open(ctx context.Context, cfg Config) (Sink, error) {
	var sinks []Sink
	closeAll := func() {
		for _, s := range sinks {
			s.Close()
		}
	}

	for _, name := range cfg.Backends {
		var (
			s   Sink
			err error
		)
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "", "none":
			continue
		case "file":
			s, err = NewFileSink(cfg.File)
		case "gcs":
			s, err = NewGCSSink(ctx, cfg.GCS)
		case "minio":
			s, err = NewMinioSink(ctx, cfg.Minio)
		case "firestore":
			s, err = NewFirestoreSink(ctx, cfg.Firestore)
		default:
			err = fmt.Errorf("%w: %s", ErrUnknownBackend, name)
		}
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, s)
	}

	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	}
	return NewMulti(cfg.Concurrency, sinks...), nil
}
