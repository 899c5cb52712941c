package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/jackzampolin/docextract/internal/archive"
	"github.com/jackzampolin/docextract/internal/document"
	"github.com/jackzampolin/docextract/internal/pipeline"
	"github.com/jackzampolin/docextract/internal/providers"
)

// EnvPrefix is prepended to environment overrides, e.g. DOCEXTRACT_SERVER_PORT.
const EnvPrefix = "DOCEXTRACT"

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	config    *Config
	callbacks []func(*Config)
	logger    *slog.Logger
}

// NewManager creates a new config manager and loads initial config.
// Without cfgFile, config.yaml is looked up in searchPaths, then "." and
// ~/.docextract.
func NewManager(cfgFile string, searchPaths ...string) (*Manager, error) {
	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
		logger:    slog.Default(),
	}

	if err := cm.initViper(cfgFile, searchPaths); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// SetLogger sets the logger used for reload messages.
func (cm *Manager) SetLogger(logger *slog.Logger) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.logger = logger
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string, searchPaths []string) error {
	v := cm.v
	setDefaults(v, DefaultConfig())

	// Environment variables with DOCEXTRACT_ prefix; nested keys use "_".
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range searchPaths {
			if p != "" {
				v.AddConfigPath(p)
			}
		}
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.docextract")
	}

	// Try to read config file (not required)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("ocr_providers", d.OCRProviders)
	v.SetDefault("llm_providers", d.LLMProviders)

	v.SetDefault("pipeline.probe_provider", d.Pipeline.ProbeProvider)
	v.SetDefault("pipeline.probe_model", d.Pipeline.ProbeModel)
	v.SetDefault("pipeline.probe_timeout_seconds", d.Pipeline.ProbeTimeoutSeconds)
	v.SetDefault("pipeline.extract_provider", d.Pipeline.ExtractProvider)
	v.SetDefault("pipeline.extract_model", d.Pipeline.ExtractModel)
	v.SetDefault("pipeline.extract_timeout_seconds", d.Pipeline.ExtractTimeoutSeconds)
	v.SetDefault("pipeline.max_upload_bytes", d.Pipeline.MaxUploadBytes)
	v.SetDefault("pipeline.metrics_capacity", d.Pipeline.MetricsCapacity)

	v.SetDefault("render.pdftoppm_path", d.Render.PdftoppmPath)
	v.SetDefault("render.temp_dir", d.Render.TempDir)

	v.SetDefault("archive.backends", d.Archive.Backends)
	v.SetDefault("archive.concurrency", d.Archive.Concurrency)
	v.SetDefault("archive.file.dir", d.Archive.File.Dir)
	v.SetDefault("archive.gcs.bucket", d.Archive.GCS.Bucket)
	v.SetDefault("archive.gcs.prefix", d.Archive.GCS.Prefix)
	v.SetDefault("archive.minio.endpoint", d.Archive.Minio.Endpoint)
	v.SetDefault("archive.minio.access_key", d.Archive.Minio.AccessKey)
	v.SetDefault("archive.minio.secret_key", d.Archive.Minio.SecretKey)
	v.SetDefault("archive.minio.bucket", d.Archive.Minio.Bucket)
	v.SetDefault("archive.minio.prefix", d.Archive.Minio.Prefix)
	v.SetDefault("archive.minio.use_ssl", d.Archive.Minio.UseSSL)
	v.SetDefault("archive.firestore.project_id", d.Archive.Firestore.ProjectID)
	v.SetDefault("archive.firestore.collection", d.Archive.Firestore.Collection)
	v.SetDefault("archive.managed.container_name", d.Archive.Managed.ContainerName)
	v.SetDefault("archive.managed.image", d.Archive.Managed.Image)
	v.SetDefault("archive.managed.port", d.Archive.Managed.Port)
	v.SetDefault("archive.managed.console_port", d.Archive.Managed.ConsolePort)
}

// load parses the current viper state into a validated Config.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigFile returns the file the configuration was read from, if any.
func (cm *Manager) ConfigFile() string {
	return cm.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration. An invalid edit is
// logged and the previous configuration stays in effect.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			cm.mu.RLock()
			logger := cm.logger
			cm.mu.RUnlock()
			logger.Warn("ignoring invalid config change", "file", e.Name, "error", err)
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		logger := cm.logger
		cm.mu.Unlock()

		logger.Info("config reloaded", "file", e.Name)
		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

var knownBackends = map[string]bool{"none": true, "file": true, "gcs": true, "minio": true, "firestore": true}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if p, err := strconv.Atoi(c.Server.Port); err != nil || p < 0 || p > 65535 {
		bad("server.port %q is not a port number", c.Server.Port)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		bad("log.level %q must be debug, info, warn or error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		bad("log.format %q must be text or json", c.Log.Format)
	}
	if c.Pipeline.MaxUploadBytes <= 0 {
		bad("pipeline.max_upload_bytes must be positive")
	}
	if c.Pipeline.MetricsCapacity < 0 {
		bad("pipeline.metrics_capacity must not be negative")
	}
	if c.Pipeline.ProbeTimeoutSeconds < 0 || c.Pipeline.ExtractTimeoutSeconds < 0 {
		bad("pipeline timeouts must not be negative")
	}
	for _, b := range c.Archive.Backends {
		if !knownBackends[strings.ToLower(strings.TrimSpace(b))] {
			bad("archive.backends: unknown backend %q", b)
		}
	}
	return errors.Join(errs...)
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envPattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

// ToProviderRegistryConfig converts the config to a format suitable for providers.Registry.
// It resolves all ${ENV_VAR} references in credentials.
func (c *Config) ToProviderRegistryConfig() providers.RegistryConfig {
	cfg := providers.RegistryConfig{
		OCRProviders: make(map[string]providers.OCRProviderConfig),
		LLMProviders: make(map[string]providers.LLMProviderConfig),
	}

	for name, ocr := range c.OCRProviders {
		cfg.OCRProviders[name] = providers.OCRProviderConfig{
			Type:      ocr.Type,
			Model:     ocr.Model,
			APIKey:    ResolveEnvVars(ocr.APIKey),
			BaseURL:   ocr.BaseURL,
			RateLimit: ocr.RateLimit,
			Timeout:   seconds(ocr.TimeoutSeconds),
			Enabled:   ocr.Enabled,
		}
	}

	for name, llm := range c.LLMProviders {
		cfg.LLMProviders[name] = providers.LLMProviderConfig{
			Type:      llm.Type,
			Model:     llm.Model,
			APIKey:    ResolveEnvVars(llm.APIKey),
			BaseURL:   llm.BaseURL,
			ProjectID: ResolveEnvVars(llm.ProjectID),
			Region:    llm.Region,
			RateLimit: llm.RateLimit,
			Timeout:   seconds(llm.TimeoutSeconds),
			Enabled:   llm.Enabled,
		}
	}

	return cfg
}

// ToPipelineConfig returns the backend selection and timeouts. The caller
// supplies the rasterizer, schema registry, provider source and archive.
func (c *Config) ToPipelineConfig() pipeline.Config {
	return pipeline.Config{
		ProbeProvider:   c.Pipeline.ProbeProvider,
		ProbeModel:      c.Pipeline.ProbeModel,
		ProbeTimeout:    seconds(c.Pipeline.ProbeTimeoutSeconds),
		ExtractProvider: c.Pipeline.ExtractProvider,
		ExtractModel:    c.Pipeline.ExtractModel,
		ExtractTimeout:  seconds(c.Pipeline.ExtractTimeoutSeconds),
	}
}

// ToRasterizerConfig uses defaultTempDir when render.temp_dir is unset.
func (c *Config) ToRasterizerConfig(defaultTempDir string, logger *slog.Logger) document.RasterizerConfig {
	tmp := c.Render.TempDir
	if tmp == "" {
		tmp = defaultTempDir
	}
	return document.RasterizerConfig{
		PdftoppmPath: c.Render.PdftoppmPath,
		TempDir:      tmp,
		Logger:       logger,
	}
}

// ToArchiveConfig resolves credentials; defaultDir is used for the file
// backend when archive.file.dir is unset.
func (c *Config) ToArchiveConfig(defaultDir string) archive.Config {
	a := c.Archive
	dir := a.File.Dir
	if dir == "" {
		dir = defaultDir
	}
	return archive.Config{
		Backends:    a.Backends,
		Concurrency: a.Concurrency,
		File:        archive.FileConfig{Dir: dir},
		GCS:         archive.GCSConfig{Bucket: ResolveEnvVars(a.GCS.Bucket), Prefix: a.GCS.Prefix},
		Minio: archive.MinioConfig{
			Endpoint:  a.Minio.Endpoint,
			AccessKey: ResolveEnvVars(a.Minio.AccessKey),
			SecretKey: ResolveEnvVars(a.Minio.SecretKey),
			Bucket:    a.Minio.Bucket,
			Prefix:    a.Minio.Prefix,
			UseSSL:    a.Minio.UseSSL,
		},
		Firestore: archive.FirestoreConfig{
			ProjectID:  ResolveEnvVars(a.Firestore.ProjectID),
			Collection: a.Firestore.Collection,
		},
	}
}

// ToDockerConfig configures the managed MinIO container with the same
// credentials the minio archive backend uses.
func (c *Config) ToDockerConfig(homePath, dataPath string) archive.DockerConfig {
	m := c.Archive.Managed
	return archive.DockerConfig{
		ContainerName: m.ContainerName,
		HomePath:      homePath,
		Image:         m.Image,
		DataPath:      dataPath,
		HostPort:      m.Port,
		ConsolePort:   m.ConsolePort,
		RootUser:      ResolveEnvVars(c.Archive.Minio.AccessKey),
		RootPassword:  ResolveEnvVars(c.Archive.Minio.SecretKey),
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Redacted returns a copy safe to print: literal credentials are masked,
// ${ENV_VAR} references are kept.
func (c *Config) Redacted() *Config {
	out := *c
	mask := func(s string) string {
		if s == "" || envPattern.MatchString(s) {
			return s
		}
		return "********"
	}

	out.OCRProviders = make(map[string]OCRProviderCfg, len(c.OCRProviders))
	for name, p := range c.OCRProviders {
		p.APIKey = mask(p.APIKey)
		out.OCRProviders[name] = p
	}
	out.LLMProviders = make(map[string]LLMProviderCfg, len(c.LLMProviders))
	for name, p := range c.LLMProviders {
		p.APIKey = mask(p.APIKey)
		out.LLMProviders[name] = p
	}
	out.Archive.Minio.AccessKey = mask(c.Archive.Minio.AccessKey)
	out.Archive.Minio.SecretKey = mask(c.Archive.Minio.SecretKey)
	return &out
}

// YAML renders c in config file form.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	data, err := DefaultConfig().YAML()
	if err != nil {
		return err
	}

	header := []byte(`# docextract configuration
# Credentials use ${ENV_VAR} syntax to reference environment variables.
# Set these in your shell: export OPENROUTER_API_KEY=xxx MISTRAL_API_KEY=xxx OPENAI_API_KEY=xxx
# Any key can be overridden with DOCEXTRACT_<SECTION>_<KEY>, e.g. DOCEXTRACT_SERVER_PORT=9000

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
