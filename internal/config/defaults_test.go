package config

import (
	"errors"
	"testing"
)

func TestDefaultEntries(t *testing.T) {
	entries := DefaultEntries()

	if len(entries) == 0 {
		t.Fatal("DefaultEntries() returned empty slice")
	}

	requiredKeys := []string{
		"server.host",
		"server.port",
		"pipeline.probe_provider",
		"pipeline.extract_provider",
		"pipeline.max_upload_bytes",
		"render.pdftoppm_path",
		"archive.backends",
		"ocr_providers.mistral.type",
		"llm_providers.openrouter.model",
		"llm_providers.gemini.type",
	}

	keys := make(map[string]bool)
	for _, e := range entries {
		if keys[e.Key] {
			t.Errorf("duplicate key %s", e.Key)
		}
		keys[e.Key] = true
		if e.Description == "" {
			t.Errorf("%s has no description", e.Key)
		}
		if err := ValidateKey(e.Key); err != nil {
			t.Errorf("%s: %v", e.Key, err)
		}
	}

	for _, key := range requiredKeys {
		if !keys[key] {
			t.Errorf("DefaultEntries() missing required key: %s", key)
		}
	}
}

func TestGetDefault(t *testing.T) {
	t.Run("existing_key", func(t *testing.T) {
		entry := GetDefault("ocr_providers.mistral.type")
		if entry == nil {
			t.Fatal("GetDefault() returned nil for existing key")
		}
		if entry.Value != "mistral-ocr" {
			t.Errorf("GetDefault() Value = %v, want %q", entry.Value, "mistral-ocr")
		}
	})

	t.Run("non_existent_key", func(t *testing.T) {
		entry := GetDefault("does.not.exist")
		if entry != nil {
			t.Errorf("GetDefault() = %v, want nil for non-existent key", entry)
		}
	})
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"server.port", false},
		{"llm_providers.open-router.model", false},
		{"", true},
		{".server", true},
		{"server.", true},
		{"server port", true},
		{"server/port", true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidKey) {
				t.Errorf("error should wrap ErrInvalidKey, got %v", err)
			}
		})
	}
}

func TestManager_Value(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "server:\n  port: \"9300\"\n"))
	if err != nil {
		t.Fatal(err)
	}

	entry, err := mgr.Value("server.port")
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if entry.Value != "9300" || entry.Description == "" {
		t.Errorf("entry = %+v", entry)
	}

	entry, err = mgr.Value("server.host")
	if err != nil || entry.Value != "127.0.0.1" {
		t.Errorf("default value = %+v, %v", entry, err)
	}

	if _, err := mgr.Value("nope.nothing"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}
	if _, err := mgr.Value("bad key"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

func TestManager_ValueRedactsLiteralSecrets(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, `llm_providers:
  openai:
    type: openai
    api_key: sk-literal
  openrouter:
    type: openrouter
    api_key: ${OPENROUTER_API_KEY}
`))
	if err != nil {
		t.Fatal(err)
	}

	entry, err := mgr.Value("llm_providers.openai.api_key")
	if err != nil {
		t.Fatal(err)
	}
	if entry.Value != "********" {
		t.Errorf("literal key value = %v, want masked", entry.Value)
	}

	entry, err = mgr.Value("llm_providers.openrouter.api_key")
	if err != nil {
		t.Fatal(err)
	}
	if entry.Value != "${OPENROUTER_API_KEY}" {
		t.Errorf("env reference value = %v, want it unchanged", entry.Value)
	}

	for _, e := range mgr.Values() {
		if e.Value == "sk-literal" {
			t.Errorf("Values() leaked %s", e.Key)
		}
	}
}
