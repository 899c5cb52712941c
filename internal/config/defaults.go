package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// ErrInvalidKey is returned when a config key contains invalid characters.
var ErrInvalidKey = errors.New("invalid config key")

// ErrUnknownKey is returned for keys that are neither set nor defaulted.
var ErrUnknownKey = errors.New("unknown config key")

// Entry is a single configuration key with its value and meaning.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// ValidateKey checks if a config key contains only allowed characters.
// Valid keys contain: letters, digits, dots, underscores, and hyphens.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' && r != '-' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	if key[0] == '.' || key[len(key)-1] == '.' {
		return fmt.Errorf("%w: key cannot start or end with a dot", ErrInvalidKey)
	}
	return nil
}

// DefaultEntries documents the scalar settings and their defaults.
// Provider maps are listed per provider name.
func DefaultEntries() []Entry {
	d := DefaultConfig()
	entries := []Entry{
		// ===================
		// Server
		// ===================
		{Key: "server.host", Value: d.Server.Host, Description: "Address the HTTP server binds to"},
		{Key: "server.port", Value: d.Server.Port, Description: "Port the HTTP server listens on"},
		{Key: "log.level", Value: d.Log.Level, Description: "Log level: debug, info, warn or error"},
		{Key: "log.format", Value: d.Log.Format, Description: "Log format: text or json"},

		// ===================
		// Pipeline
		// ===================
		{Key: "pipeline.probe_provider", Value: d.Pipeline.ProbeProvider, Description: "OCR or LLM provider used to transcribe text for classification"},
		{Key: "pipeline.probe_model", Value: d.Pipeline.ProbeModel, Description: "Model override for the text probe (empty uses the provider default)"},
		{Key: "pipeline.probe_timeout_seconds", Value: d.Pipeline.ProbeTimeoutSeconds, Description: "Timeout for the text probe; a timeout yields empty text"},
		{Key: "pipeline.extract_provider", Value: d.Pipeline.ExtractProvider, Description: "LLM provider used for field extraction"},
		{Key: "pipeline.extract_model", Value: d.Pipeline.ExtractModel, Description: "Model override for extraction (empty uses the provider default)"},
		{Key: "pipeline.extract_timeout_seconds", Value: d.Pipeline.ExtractTimeoutSeconds, Description: "Timeout for extraction; a timeout fails the request"},
		{Key: "pipeline.max_upload_bytes", Value: d.Pipeline.MaxUploadBytes, Description: "Largest accepted upload"},
		{Key: "pipeline.metrics_capacity", Value: d.Pipeline.MetricsCapacity, Description: "Backend call metrics kept in memory for /api/metrics"},

		// ===================
		// Rendering
		// ===================
		{Key: "render.pdftoppm_path", Value: d.Render.PdftoppmPath, Description: "Path to poppler's pdftoppm"},
		{Key: "render.temp_dir", Value: d.Render.TempDir, Description: "Scratch directory for rendering (empty uses <home>/tmp)"},

		// ===================
		// Archive
		// ===================
		{Key: "archive.backends", Value: d.Archive.Backends, Description: "Archive backends: file, gcs, minio, firestore (empty disables)"},
		{Key: "archive.concurrency", Value: d.Archive.Concurrency, Description: "Concurrent writes when several backends are configured"},
		{Key: "archive.file.dir", Value: d.Archive.File.Dir, Description: "File archive root (empty uses <home>/archive)"},
		{Key: "archive.gcs.bucket", Value: d.Archive.GCS.Bucket, Description: "Cloud Storage bucket"},
		{Key: "archive.gcs.prefix", Value: d.Archive.GCS.Prefix, Description: "Object prefix within the bucket"},
		{Key: "archive.minio.endpoint", Value: d.Archive.Minio.Endpoint, Description: "S3-compatible endpoint (host:port)"},
		{Key: "archive.minio.access_key", Value: d.Archive.Minio.AccessKey, Description: "Access key (uses environment variable)"},
		{Key: "archive.minio.secret_key", Value: d.Archive.Minio.SecretKey, Description: "Secret key (uses environment variable)"},
		{Key: "archive.minio.bucket", Value: d.Archive.Minio.Bucket, Description: "Bucket, created if missing"},
		{Key: "archive.minio.prefix", Value: d.Archive.Minio.Prefix, Description: "Object prefix within the bucket"},
		{Key: "archive.minio.use_ssl", Value: d.Archive.Minio.UseSSL, Description: "Use HTTPS for the S3 endpoint"},
		{Key: "archive.firestore.project_id", Value: d.Archive.Firestore.ProjectID, Description: "Google Cloud project (uses environment variable)"},
		{Key: "archive.firestore.collection", Value: d.Archive.Firestore.Collection, Description: "Collection for extraction records"},
		{Key: "archive.managed.container_name", Value: d.Archive.Managed.ContainerName, Description: "Managed MinIO container name (empty derives one from the home path)"},
		{Key: "archive.managed.image", Value: d.Archive.Managed.Image, Description: "Managed MinIO image"},
		{Key: "archive.managed.port", Value: d.Archive.Managed.Port, Description: "Host port for the MinIO API"},
		{Key: "archive.managed.console_port", Value: d.Archive.Managed.ConsolePort, Description: "Host port for the MinIO console"},
	}

	// ===================
	// Providers
	// ===================
	for _, name := range sortedKeys(d.OCRProviders) {
		p := d.OCRProviders[name]
		entries = append(entries,
			Entry{Key: "ocr_providers." + name + ".type", Value: p.Type, Description: "OCR provider type for " + name},
			Entry{Key: "ocr_providers." + name + ".api_key", Value: p.APIKey, Description: name + " API key (uses environment variable)"},
			Entry{Key: "ocr_providers." + name + ".enabled", Value: p.Enabled, Description: "Whether " + name + " OCR is enabled"},
		)
	}
	for _, name := range sortedKeys(d.LLMProviders) {
		p := d.LLMProviders[name]
		entries = append(entries,
			Entry{Key: "llm_providers." + name + ".type", Value: p.Type, Description: "LLM provider type for " + name},
			Entry{Key: "llm_providers." + name + ".model", Value: p.Model, Description: "Default model for " + name},
			Entry{Key: "llm_providers." + name + ".enabled", Value: p.Enabled, Description: "Whether " + name + " is enabled"},
		)
	}
	return entries
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetDefault returns the default entry for a config key.
// Returns nil if no default exists for the key.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}

// Value returns the effective value of a key, including environment overrides.
func (cm *Manager) Value(key string) (Entry, error) {
	if err := ValidateKey(key); err != nil {
		return Entry{}, err
	}
	entry := Entry{Key: key}
	if def := GetDefault(key); def != nil {
		entry.Description = def.Description
	}
	if !cm.v.IsSet(key) {
		if entry.Description == "" {
			return Entry{}, fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
		return entry, nil
	}
	entry.Value = redactValue(key, cm.v.Get(key))
	return entry, nil
}

// Values returns the current value of every documented key.
func (cm *Manager) Values() []Entry {
	defaults := DefaultEntries()
	out := make([]Entry, 0, len(defaults))
	for _, d := range defaults {
		e, err := cm.Value(d.Key)
		if err != nil {
			continue
		}
		out = append(out, e)
	}
	return out
}

var secretSuffixes = []string{"api_key", "access_key", "secret_key"}

func redactValue(key string, v any) any {
	s, ok := v.(string)
	if !ok || s == "" || envPattern.MatchString(s) {
		return v
	}
	for _, suffix := range secretSuffixes {
		if strings.HasSuffix(key, suffix) {
			return "********"
		}
	}
	return v
}
