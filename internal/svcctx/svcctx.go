// Package svcctx carries the server's services through request contexts.
// It is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/docextract/internal/archive"
	"github.com/jackzampolin/docextract/internal/config"
	"github.com/jackzampolin/docextract/internal/metrics"
	"github.com/jackzampolin/docextract/internal/pipeline"
	"github.com/jackzampolin/docextract/internal/providers"
	"github.com/jackzampolin/docextract/internal/schema"
)

// Services is the snapshot the server builds on start. Endpoints read it
// through the accessors below, which return zero values when no snapshot
// is attached.
type Services struct {
	Pipeline  *pipeline.Pipeline
	Registry  *providers.Registry
	Schemas   *schema.Registry
	Archive   archive.Sink // nil when archiving is disabled
	Managed   *archive.DockerManager
	Metrics   *metrics.Store
	Config    *config.Manager
	Logger    *slog.Logger
	MaxUpload int64 // bytes, 0 for no limit
}

type servicesKey struct{}

func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom returns nil if no services are attached.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

func get[T any](ctx context.Context, field func(*Services) T) T {
	if s := ServicesFrom(ctx); s != nil {
		return field(s)
	}
	var zero T
	return zero
}

func PipelineFrom(ctx context.Context) *pipeline.Pipeline {
	return get(ctx, func(s *Services) *pipeline.Pipeline { return s.Pipeline })
}

func RegistryFrom(ctx context.Context) *providers.Registry {
	return get(ctx, func(s *Services) *providers.Registry { return s.Registry })
}

func SchemasFrom(ctx context.Context) *schema.Registry {
	return get(ctx, func(s *Services) *schema.Registry { return s.Schemas })
}

func ArchiveFrom(ctx context.Context) archive.Sink {
	return get(ctx, func(s *Services) archive.Sink { return s.Archive })
}

func ManagedFrom(ctx context.Context) *archive.DockerManager {
	return get(ctx, func(s *Services) *archive.DockerManager { return s.Managed })
}

func MetricsFrom(ctx context.Context) *metrics.Store {
	return get(ctx, func(s *Services) *metrics.Store { return s.Metrics })
}

func ConfigFrom(ctx context.Context) *config.Manager {
	return get(ctx, func(s *Services) *config.Manager { return s.Config })
}

func MaxUploadFrom(ctx context.Context) int64 {
	return get(ctx, func(s *Services) int64 { return s.MaxUpload })
}

// LoggerFrom falls back to slog.Default.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if l := get(ctx, func(s *Services) *slog.Logger { return s.Logger }); l != nil {
		return l
	}
	return slog.Default()
}
