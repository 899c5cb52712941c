package archive

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
)

const defaultCollection = "extractions"

// FirestoreConfig configures the Firestore sink.
type FirestoreConfig struct {
	ProjectID  string
	Collection string
}

// FirestoreSink stores record metadata and extracted fields as documents
// keyed by record ID. The upload itself is not stored.
type FirestoreSink struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreSink opens a Firestore client for the project.
func NewFirestoreSink(ctx context.Context, cfg FirestoreConfig) (*FirestoreSink, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firestore archive: project_id is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = defaultCollection
	}
	client, err := firestore.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("firestore archive: failed to create client: %w", err)
	}
	return &FirestoreSink{client: client, collection: cfg.Collection}, nil
}

func (s *FirestoreSink) Name() string { return "firestore" }

// Store upserts the record document.
func (s *FirestoreSink) Store(ctx context.Context, rec *Record) error {
	if _, err := s.client.Collection(s.collection).Doc(rec.ID).Set(ctx, rec); err != nil {
		return fmt.Errorf("firestore archive: set %s: %w", rec.ID, err)
	}
	return nil
}

func (s *FirestoreSink) Close() error { return s.client.Close() }
