package config

// Config holds docextract configuration.
// Stored at: ~/.docextract/config.yaml
type Config struct {
	Server       ServerConfig              `mapstructure:"server" yaml:"server"`
	Log          LogConfig                 `mapstructure:"log" yaml:"log"`
	OCRProviders map[string]OCRProviderCfg `mapstructure:"ocr_providers" yaml:"ocr_providers"`
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Pipeline     PipelineCfg               `mapstructure:"pipeline" yaml:"pipeline"`
	Render       RenderCfg                 `mapstructure:"render" yaml:"render"`
	Archive      ArchiveCfg                `mapstructure:"archive" yaml:"archive"`
}

// ServerConfig is the HTTP listener.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text, json
}

// OCRProviderCfg configures an OCR provider.
type OCRProviderCfg struct {
	Type           string `mapstructure:"type" yaml:"type"`             // "mistral-ocr", "mock"
	Model          string `mapstructure:"model" yaml:"model"`           // Model name
	APIKey         string `mapstructure:"api_key" yaml:"api_key"`       // API key (supports ${ENV_VAR} syntax)
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`     // Override endpoint
	RateLimit      int    `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per minute
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
}

// LLMProviderCfg configures a vision LLM provider.
type LLMProviderCfg struct {
	Type           string `mapstructure:"type" yaml:"type"`             // "openrouter", "openai", "gemini", "mock"
	Model          string `mapstructure:"model" yaml:"model"`           // Model name
	APIKey         string `mapstructure:"api_key" yaml:"api_key"`       // API key (supports ${ENV_VAR} syntax)
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`     // Override endpoint
	ProjectID      string `mapstructure:"project_id" yaml:"project_id"` // gemini (supports ${ENV_VAR} syntax)
	Region         string `mapstructure:"region" yaml:"region"`         // gemini
	RateLimit      int    `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per minute
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
}

// PipelineCfg selects the backends used by each inference stage.
type PipelineCfg struct {
	// ProbeProvider names an OCR or LLM provider used for classification text.
	ProbeProvider         string `mapstructure:"probe_provider" yaml:"probe_provider"`
	ProbeModel            string `mapstructure:"probe_model" yaml:"probe_model"`
	ProbeTimeoutSeconds   int    `mapstructure:"probe_timeout_seconds" yaml:"probe_timeout_seconds"`
	ExtractProvider       string `mapstructure:"extract_provider" yaml:"extract_provider"`
	ExtractModel          string `mapstructure:"extract_model" yaml:"extract_model"`
	ExtractTimeoutSeconds int    `mapstructure:"extract_timeout_seconds" yaml:"extract_timeout_seconds"`
	MaxUploadBytes        int64  `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`
	// MetricsCapacity is how many backend call metrics are kept in memory.
	MetricsCapacity int `mapstructure:"metrics_capacity" yaml:"metrics_capacity"`
}

// RenderCfg configures PDF rasterization.
type RenderCfg struct {
	PdftoppmPath string `mapstructure:"pdftoppm_path" yaml:"pdftoppm_path"`
	// TempDir defaults to <home>/tmp.
	TempDir string `mapstructure:"temp_dir" yaml:"temp_dir"`
}

// ArchiveCfg selects where processed uploads are kept.
type ArchiveCfg struct {
	// Backends is any of file, gcs, minio, firestore. Empty disables archiving.
	Backends    []string     `mapstructure:"backends" yaml:"backends"`
	Concurrency int          `mapstructure:"concurrency" yaml:"concurrency"`
	File        FileCfg      `mapstructure:"file" yaml:"file"`
	GCS         GCSCfg       `mapstructure:"gcs" yaml:"gcs"`
	Minio       MinioCfg     `mapstructure:"minio" yaml:"minio"`
	Firestore   FirestoreCfg `mapstructure:"firestore" yaml:"firestore"`
	Managed     ManagedCfg   `mapstructure:"managed" yaml:"managed"`
}

// FileCfg is the local archive. Dir defaults to <home>/archive.
type FileCfg struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// GCSCfg is the Cloud Storage archive.
type GCSCfg struct {
	Bucket string `mapstructure:"bucket" yaml:"bucket"`
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
}

// MinioCfg is an S3-compatible archive.
type MinioCfg struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"` // supports ${ENV_VAR} syntax
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"` // supports ${ENV_VAR} syntax
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
}

// FirestoreCfg stores records as Firestore documents.
type FirestoreCfg struct {
	ProjectID  string `mapstructure:"project_id" yaml:"project_id"` // supports ${ENV_VAR} syntax
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// ManagedCfg holds the MinIO container started by `docextract archive start`.
type ManagedCfg struct {
	// ContainerName defaults to a name derived from the home path.
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	// Image is the Docker image to use (default: minio/minio:latest)
	Image       string `mapstructure:"image" yaml:"image"`
	Port        string `mapstructure:"port" yaml:"port"`
	ConsolePort string `mapstructure:"console_port" yaml:"console_port"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: "8000",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		OCRProviders: map[string]OCRProviderCfg{
			"mistral": {
				Type:           "mistral-ocr",
				Model:          "mistral-ocr-latest",
				APIKey:         "${MISTRAL_API_KEY}",
				RateLimit:      360,
				TimeoutSeconds: 60,
				Enabled:        true,
			},
		},
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {
				Type:           "openrouter",
				Model:          "google/gemini-2.0-flash-001",
				APIKey:         "${OPENROUTER_API_KEY}",
				RateLimit:      150,
				TimeoutSeconds: 120,
				Enabled:        true,
			},
			"openai": {
				Type:           "openai",
				Model:          "gpt-4o-mini",
				APIKey:         "${OPENAI_API_KEY}",
				RateLimit:      60,
				TimeoutSeconds: 120,
				Enabled:        true,
			},
			"gemini": {
				Type:      "gemini",
				Model:     "gemini-2.0-flash-001",
				ProjectID: "${GOOGLE_CLOUD_PROJECT}",
				Region:    "us-central1",
				RateLimit: 60,
				Enabled:   true,
			},
		},
		Pipeline: PipelineCfg{
			ProbeProvider:         "openrouter",
			ProbeTimeoutSeconds:   30,
			ExtractProvider:       "openrouter",
			ExtractTimeoutSeconds: 60,
			MaxUploadBytes:        20 << 20,
			MetricsCapacity:       10000,
		},
		Render: RenderCfg{
			PdftoppmPath: "pdftoppm",
		},
		Archive: ArchiveCfg{
			Concurrency: 4,
			Minio: MinioCfg{
				Endpoint:  "localhost:9000",
				AccessKey: "${MINIO_ROOT_USER}",
				SecretKey: "${MINIO_ROOT_PASSWORD}",
				Bucket:    "docextract",
			},
			Firestore: FirestoreCfg{
				ProjectID:  "${GOOGLE_CLOUD_PROJECT}",
				Collection: "extractions",
			},
			Managed: ManagedCfg{
				Image:       "minio/minio:latest",
				Port:        "9000",
				ConsolePort: "9001",
			},
		},
	}
}

// GetOCRProvider returns an OCR provider config by name.
func (c *Config) GetOCRProvider(name string) (OCRProviderCfg, bool) {
	cfg, ok := c.OCRProviders[name]
	return cfg, ok
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledOCRProviders returns all enabled OCR providers.
func (c *Config) EnabledOCRProviders() map[string]OCRProviderCfg {
	result := make(map[string]OCRProviderCfg)
	for name, cfg := range c.OCRProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
