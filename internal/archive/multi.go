package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Multi writes each record to several sinks concurrently.
type Multi struct {
	sinks []Sink
	limit int
}

// NewMulti fans out to sinks with at most limit concurrent writes
// (limit <= 0 means one goroutine per sink).
func NewMulti(limit int, sinks ...Sink) *Multi {
	return &Multi{sinks: sinks, limit: limit}
}

func (m *Multi) Name() string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return strings.Join(names, ",")
}

// Store writes to every sink. All sinks are attempted even when one fails;
// the returned error joins every failure.
func (m *Multi) Store(ctx context.Context, rec *Record) error {
	var g errgroup.Group
	if m.limit > 0 {
		g.SetLimit(m.limit)
	}

	errs := make([]error, len(m.sinks))
	for i, s := range m.sinks {
		g.Go(func() error {
			if err := s.Store(ctx, rec); err != nil {
				errs[i] = fmt.Errorf("%s: %w", s.Name(), err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
