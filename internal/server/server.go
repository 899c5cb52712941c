package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackzampolin/docextract/internal/api"
	"github.com/jackzampolin/docextract/internal/archive"
	"github.com/jackzampolin/docextract/internal/config"
	"github.com/jackzampolin/docextract/internal/document"
	"github.com/jackzampolin/docextract/internal/home"
	"github.com/jackzampolin/docextract/internal/metrics"
	"github.com/jackzampolin/docextract/internal/pipeline"
	"github.com/jackzampolin/docextract/internal/providers"
	"github.com/jackzampolin/docextract/internal/schema"
	"github.com/jackzampolin/docextract/internal/server/endpoints"
	"github.com/jackzampolin/docextract/internal/svcctx"
)

const (
	// managedReadyTimeout bounds the wait for the managed MinIO container.
	managedReadyTimeout = 60 * time.Second

	// staleScratchAge is well past any render timeout.
	staleScratchAge = time.Hour
)

// Server is the docextract HTTP server. When ManageArchive is set it also
// owns the MinIO container lifecycle, starting it on server start and
// stopping it on shutdown.
type Server struct {
	httpServer *http.Server
	managed    *archive.DockerManager
	registry   *providers.Registry
	schemas    *schema.Registry
	configMgr  *config.Manager
	home       *home.Dir
	logger     *slog.Logger
	metrics    *metrics.Store

	// services is nil until Start has built the pipeline.
	services atomic.Pointer[svcctx.Services]
	sink     archive.Sink

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host and Port override server.host and server.port.
	Host string
	Port string
	// ConfigManager provides configuration with hot-reload support.
	// Defaults are used when nil.
	ConfigManager *config.Manager
	// Home is the docextract home directory for scratch files, the file
	// archive and managed MinIO data.
	Home *home.Dir
	// Registry replaces the registry built from configuration.
	Registry *providers.Registry
	// ManageArchive starts a MinIO container for the minio archive backend.
	ManageArchive bool
	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := config.DefaultConfig()
	if cfg.ConfigManager != nil {
		c = cfg.ConfigManager.Get()
	}
	if cfg.Host == "" {
		cfg.Host = c.Server.Host
	}
	if cfg.Port == "" {
		cfg.Port = c.Server.Port
	}

	schemas, err := schema.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to build schema registry: %w", err)
	}

	registry := cfg.Registry
	if registry == nil {
		registry = providers.NewRegistry()
		registry.SetLogger(cfg.Logger)
		registry.Reload(c.ToProviderRegistryConfig())

		if cfg.ConfigManager != nil {
			cfg.ConfigManager.OnChange(func(c *config.Config) {
				registry.Reload(c.ToProviderRegistryConfig())
				cfg.Logger.Info("provider registry reloaded from config")
			})
		}
	}

	s := &Server{
		registry:  registry,
		schemas:   schemas,
		configMgr: cfg.ConfigManager,
		home:      cfg.Home,
		logger:    cfg.Logger,
		metrics:   metrics.NewStore(c.Pipeline.MetricsCapacity),
	}

	if cfg.ManageArchive {
		homePath, dataPath := "", ""
		if cfg.Home != nil {
			homePath, dataPath = cfg.Home.Path(), cfg.Home.MinioDataPath()
		}
		s.managed, err = archive.NewDockerManager(c.ToDockerConfig(homePath, dataPath))
		if err != nil {
			return nil, fmt.Errorf("failed to create minio manager: %w", err)
		}
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		if err := s.endpointRegistry.Register(ep); err != nil {
			return nil, err
		}
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	// A request may spend both inference timeouts before it writes a byte.
	pc := c.ToPipelineConfig()
	writeTimeout := pc.ProbeTimeout + pc.ExtractTimeout + 30*time.Second

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}

	return s, nil
}

// Start brings up the archive and pipeline, then serves HTTP.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.init(ctx); err != nil {
		_ = s.shutdown()
		return err
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// init starts the managed container, opens the archive and builds the
// pipeline. Requests that need the pipeline get 503 until it returns.
func (s *Server) init(ctx context.Context) error {
	c := config.DefaultConfig()
	if s.configMgr != nil {
		c = s.configMgr.Get()
	}

	tmpDir, archiveDir := os.TempDir(), ""
	if s.home != nil {
		if err := s.home.EnsureExists(); err != nil {
			return fmt.Errorf("failed to create home directory: %w", err)
		}
		if n, err := s.home.SweepTmp(staleScratchAge); err != nil {
			s.logger.Warn("failed to clear stale render scratch", "error", err)
		} else if n > 0 {
			s.logger.Info("cleared stale render scratch", "entries", n)
		}
		tmpDir, archiveDir = s.home.TmpPath(), s.home.ArchivePath()
	}
	archiveCfg := c.ToArchiveConfig(archiveDir)

	if s.managed != nil {
		if s.home != nil {
			if err := s.home.EnsureMinioDir(); err != nil {
				return fmt.Errorf("failed to create minio data directory: %w", err)
			}
		}
		s.logger.Info("starting MinIO", "container", s.managed.ContainerName())
		if err := s.managed.Start(ctx); err != nil {
			return fmt.Errorf("failed to start MinIO: %w", err)
		}
		if err := s.managed.WaitReady(ctx, managedReadyTimeout); err != nil {
			return fmt.Errorf("MinIO health check failed: %w", err)
		}
		s.logger.Info("MinIO is ready", "url", s.managed.URL())
		archiveCfg.Minio.Endpoint = s.managed.Endpoint()
		archiveCfg.Minio.UseSSL = false
	}

	sink, err := archive.Open(ctx, archiveCfg)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	s.sink = sink
	if sink != nil {
		s.logger.Info("archive enabled", "backend", sink.Name())
	}

	pc := c.ToPipelineConfig()
	pc.Rasterizer = document.NewRasterizer(c.ToRasterizerConfig(tmpDir, s.logger))
	pc.Schemas = s.schemas
	pc.Providers = s.registry
	pc.Archive = sink
	pc.Metrics = metrics.NewRecorder(s.metrics)
	pc.Logger = s.logger

	p, err := pipeline.New(pc)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	if !p.Ready() {
		s.logger.Warn("extraction provider not registered", "provider", p.ExtractProvider())
	}

	s.services.Store(&svcctx.Services{
		Pipeline:  p,
		Registry:  s.registry,
		Schemas:   s.schemas,
		Archive:   sink,
		Managed:   s.managed,
		Metrics:   s.metrics,
		Config:    s.configMgr,
		Logger:    s.logger,
		MaxUpload: c.Pipeline.MaxUploadBytes,
	})
	return nil
}

// shutdown stops the HTTP server, then closes the archive and the managed
// container.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if s.sink != nil {
		if err := s.sink.Close(); err != nil {
			s.logger.Error("archive close error", "error", err)
		}
		s.sink = nil
	}

	if s.managed != nil {
		s.logger.Info("stopping MinIO")
		if err := s.managed.Stop(shutdownCtx); err != nil {
			s.logger.Error("MinIO stop error", "error", err)
		}
		if err := s.managed.Close(); err != nil {
			s.logger.Error("MinIO manager close error", "error", err)
		}
	}

	s.services.Store(nil)
	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// Pipeline returns nil until the server has started.
func (s *Server) Pipeline() *pipeline.Pipeline {
	if svc := s.services.Load(); svc != nil {
		return svc.Pipeline
	}
	return nil
}

// Routes lists the registered "METHOD /path" patterns.
func (s *Server) Routes() []string {
	var routes []string
	for _, r := range s.endpointRegistry.Routes() {
		routes = append(routes, r.Pattern())
	}
	return routes
}

// requireInit is middleware that ensures the pipeline is built.
// Returns 503 Service Unavailable until Start has initialized it.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.services.Load() == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
