package providers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"
)

// ErrNotRegistered is returned when a lookup names no registered provider.
var ErrNotRegistered = errors.New("provider not registered")

// Registry holds the named LLM clients and OCR providers. It is safe for
// concurrent use and can be reloaded from config while serving.
type Registry struct {
	mu     sync.RWMutex
	llm    *clientSet[LLMClient, LLMProviderConfig]
	ocr    *clientSet[OCRProvider, OCRProviderConfig]
	logger *slog.Logger
}

func NewRegistry() *Registry {
	return &Registry{
		llm:    newClientSet[LLMClient, LLMProviderConfig]("LLM client"),
		ocr:    newClientSet[OCRProvider, OCRProviderConfig]("OCR provider"),
		logger: slog.Default(),
	}
}

// NewRegistryFromConfig registers every enabled provider whose credentials
// are present.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.Reload(cfg)
	return r
}

func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterLLM adds or replaces a client outside of config. A later Reload
// drops it unless config names it too.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm.put(name, client)
	r.logger.Info("registered LLM client", "name", name)
}

func (r *Registry) RegisterOCR(name string, provider OCRProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ocr.put(name, provider)
	r.logger.Info("registered OCR provider", "name", name)
}

func (r *Registry) GetLLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.llm.get(name)
}

func (r *Registry) GetOCR(name string) (OCRProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ocr.get(name)
}

// ListLLM returns the registered LLM client names, sorted.
func (r *Registry) ListLLM() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.llm.names()
}

// ListOCR returns the registered OCR provider names, sorted.
func (r *Registry) ListOCR() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ocr.names()
}

func (r *Registry) HasLLM(name string) bool {
	_, err := r.GetLLM(name)
	return err == nil
}

func (r *Registry) HasOCR(name string) bool {
	_, err := r.GetOCR(name)
	return err == nil
}

// RateLimits reports the limiter state of every registered provider that
// throttles its calls, keyed "llm/<name>" or "ocr/<name>".
func (r *Registry) RateLimits() map[string]RateLimiterStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]RateLimiterStatus)
	for name, c := range r.llm.clients {
		if l, ok := c.(Limited); ok && l.RateLimiter() != nil {
			out["llm/"+name] = l.RateLimiter().Status()
		}
	}
	for name, p := range r.ocr.clients {
		if l, ok := p.(Limited); ok && l.RateLimiter() != nil {
			out["ocr/"+name] = l.RateLimiter().Status()
		}
	}
	return out
}

// Reload brings the registry in line with cfg. Unchanged entries keep their
// client (and its rate limiter state), changed entries are rebuilt and
// entries no longer configured are closed and removed.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm.reload(r.logger, cfg.LLMProviders, LLMProviderConfig.usable, createLLMClient)
	r.ocr.reload(r.logger, cfg.OCRProviders, OCRProviderConfig.usable, createOCRProvider)
}

// Close releases clients that hold connections.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm.closeAll()
	r.ocr.closeAll()
}

// clientSet is one kind of named client plus the config each was built
// from. Entries added with put have no config.
type clientSet[C any, K comparable] struct {
	kind    string
	clients map[string]C
	configs map[string]K
}

func newClientSet[C any, K comparable](kind string) *clientSet[C, K] {
	return &clientSet[C, K]{
		kind:    kind,
		clients: make(map[string]C),
		configs: make(map[string]K),
	}
}

func (s *clientSet[C, K]) get(name string) (C, error) {
	c, ok := s.clients[name]
	if !ok {
		var zero C
		return zero, fmt.Errorf("%s %q: %w", s.kind, name, ErrNotRegistered)
	}
	return c, nil
}

func (s *clientSet[C, K]) names() []string {
	return slices.Sorted(maps.Keys(s.clients))
}

func (s *clientSet[C, K]) put(name string, c C) {
	if prev, ok := s.clients[name]; ok {
		closeIfCloser(prev)
	}
	s.clients[name] = c
	delete(s.configs, name)
}

func (s *clientSet[C, K]) reload(logger *slog.Logger, want map[string]K, usable func(K) bool, build func(K) (C, bool)) {
	keep := make(map[string]bool, len(want))
	for name, cfg := range want {
		if !usable(cfg) {
			continue
		}
		keep[name] = true

		prev, built := s.configs[name]
		if built && prev == cfg {
			continue
		}
		c, ok := build(cfg)
		if !ok {
			logger.Warn("unknown provider type", "kind", s.kind, "name", name)
			delete(keep, name)
			continue
		}
		s.put(name, c)
		s.configs[name] = cfg
		if built {
			logger.Info("updated "+s.kind, "name", name)
		} else {
			logger.Info("registered "+s.kind, "name", name)
		}
	}

	for name, c := range s.clients {
		if keep[name] {
			continue
		}
		closeIfCloser(c)
		delete(s.clients, name)
		delete(s.configs, name)
		logger.Info("unregistered "+s.kind, "name", name)
	}
}

func (s *clientSet[C, K]) closeAll() {
	for _, c := range s.clients {
		closeIfCloser(c)
	}
}

func closeIfCloser(v any) {
	if c, ok := v.(io.Closer); ok {
		c.Close()
	}
}

// RegistryConfig defines the providers to instantiate from config.
type RegistryConfig struct {
	OCRProviders map[string]OCRProviderConfig
	LLMProviders map[string]LLMProviderConfig
}

// OCRProviderConfig is an OCR provider entry with its API key resolved.
type OCRProviderConfig struct {
	Type      string // "mistral-ocr", "mock"
	Model     string
	APIKey    string
	BaseURL   string
	RateLimit int // Requests per minute
	Timeout   time.Duration
	Enabled   bool
}

// LLMProviderConfig is a vision LLM entry with its API key resolved.
type LLMProviderConfig struct {
	Type      string // "openrouter", "openai", "gemini", "mock"
	Model     string
	APIKey    string
	BaseURL   string
	ProjectID string // gemini
	Region    string // gemini
	RateLimit int    // Requests per minute
	Timeout   time.Duration
	Enabled   bool
}

// usable reports whether the entry has the credentials its type needs.
func (c LLMProviderConfig) usable() bool {
	if !c.Enabled {
		return false
	}
	switch c.Type {
	case "mock":
		return true
	case "gemini":
		return c.ProjectID != ""
	}
	return c.APIKey != ""
}

func (c OCRProviderConfig) usable() bool {
	return c.Enabled && (c.Type == "mock" || c.APIKey != "")
}

func createLLMClient(cfg LLMProviderConfig) (LLMClient, bool) {
	switch cfg.Type {
	case "openrouter":
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
		}), true
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
		}), true
	case "gemini":
		return NewGeminiClient(GeminiConfig{
			ProjectID:    cfg.ProjectID,
			Region:       cfg.Region,
			DefaultModel: cfg.Model,
			RateLimit:    cfg.RateLimit,
		}), true
	case "mock":
		return NewMockClient(), true
	}
	return nil, false
}

func createOCRProvider(cfg OCRProviderConfig) (OCRProvider, bool) {
	switch cfg.Type {
	case "mistral-ocr":
		return NewMistralOCRClient(MistralOCRConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
		}), true
	case "mock":
		return NewMockOCRProvider(), true
	}
	return nil, false
}
