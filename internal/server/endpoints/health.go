package endpoints

import (
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docextract/internal/api"
	"github.com/jackzampolin/docextract/internal/archive"
	"github.com/jackzampolin/docextract/internal/providers"
	"github.com/jackzampolin/docextract/internal/svcctx"
	"github.com/jackzampolin/docextract/version"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status          string `json:"status"`
	ExtractProvider string `json:"extract_provider,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

var _ api.Endpoint = (*HealthEndpoint)(nil)

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Liveness check
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Router		/health [get]
func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fetch[HealthResponse](cmd.Context(), getServerURL(), "/health", nil)
		},
	}
}

// ReadyEndpoint handles GET /ready.
type ReadyEndpoint struct{}

var _ api.Endpoint = (*ReadyEndpoint)(nil)

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Readiness check
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Failure	503	{object}	HealthResponse
//	@Router		/ready [get]
func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	p := svcctx.PipelineFrom(r.Context())
	if p == nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "not_initialized"})
		return
	}

	resp := HealthResponse{Status: "ok", ExtractProvider: p.ExtractProvider()}
	if !p.Ready() {
		resp.Status = "degraded"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (extraction backend registered)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fetch[HealthResponse](cmd.Context(), getServerURL(), "/ready", nil)
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server    string          `json:"server"`
	Version   version.Info    `json:"version"`
	Providers ProvidersStatus `json:"providers"`
	Pipeline  PipelineStatus  `json:"pipeline"`
	Archive   ArchiveStatus   `json:"archive"`

	RateLimits map[string]providers.RateLimiterStatus `json:"rate_limits,omitempty"`
}

// ProvidersStatus shows registered OCR and LLM providers.
type ProvidersStatus struct {
	OCR []string `json:"ocr"`
	LLM []string `json:"llm"`
}

// PipelineStatus names the probe and extraction backends.
type PipelineStatus struct {
	ProbeProvider   string `json:"probe_provider"`
	ExtractProvider string `json:"extract_provider"`
}

// ArchiveStatus shows the archive backend and the managed MinIO container.
type ArchiveStatus struct {
	Backend   string `json:"backend"`
	Container string `json:"container,omitempty"`
	URL       string `json:"url,omitempty"`
}

// StatusEndpoint handles GET /api/status.
type StatusEndpoint struct{}

var _ api.Endpoint = (*StatusEndpoint)(nil)

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Server status
//	@Description	Registered providers, pipeline backends and archive state
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Router			/api/status [get]
func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := StatusResponse{
		Server:  "running",
		Version: version.Get(),
		Archive: ArchiveStatus{Backend: "none"},
	}

	if registry := svcctx.RegistryFrom(ctx); registry != nil {
		resp.Providers = ProvidersStatus{LLM: registry.ListLLM(), OCR: registry.ListOCR()}
		if limits := registry.RateLimits(); len(limits) > 0 {
			resp.RateLimits = limits
		}
	}

	if p := svcctx.PipelineFrom(ctx); p != nil {
		resp.Pipeline.ProbeProvider = p.ProbeProvider()
		resp.Pipeline.ExtractProvider = p.ExtractProvider()
	} else {
		resp.Server = "initializing"
	}

	if sink := svcctx.ArchiveFrom(ctx); sink != nil {
		resp.Archive.Backend = sink.Name()
	}

	if m := svcctx.ManagedFrom(ctx); m != nil {
		switch status, err := m.Status(ctx); {
		case err != nil:
			resp.Archive.Container = "error"
		case status == archive.StatusRunning:
			resp.Archive.URL = m.URL()
			fallthrough
		default:
			resp.Archive.Container = string(status)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func printStatus(s StatusResponse) {
	fmt.Printf("Server:   %s (%s)\n", s.Server, s.Version.Release)
	fmt.Printf("Pipeline: probe=%s extract=%s\n", s.Pipeline.ProbeProvider, s.Pipeline.ExtractProvider)
	fmt.Printf("Archive:  %s", s.Archive.Backend)
	if s.Archive.Container != "" {
		fmt.Printf(" (container %s)", s.Archive.Container)
	}
	fmt.Println()
	fmt.Printf("LLM:      %s\n", strings.Join(s.Providers.LLM, ", "))
	fmt.Printf("OCR:      %s\n", strings.Join(s.Providers.OCR, ", "))
	for _, name := range slices.Sorted(maps.Keys(s.RateLimits)) {
		st := s.RateLimits[name]
		fmt.Printf("  %-20s %d/min, %d available, %d waiting, %d rejected\n",
			name, st.PerMinute, st.TokensAvailable, st.Waiting, st.Rejected)
	}
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fetch(cmd.Context(), getServerURL(), "/api/status", printStatus)
		},
	}
}
