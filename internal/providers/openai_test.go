package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOpenAIClient_Chat(t *testing.T) {
	t.Run("vision request with json schema", func(t *testing.T) {
		var received map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}
			json.NewDecoder(r.Body).Decode(&received)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(chatCompletion("gpt-4o-mini", `{"name":"Asha"}`))
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})

		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "extract", Images: [][]byte{testPNG}}},
			ResponseFormat: &ResponseFormat{
				Type:       "json_schema",
				JSONSchema: json.RawMessage(`{"name":"aadhaar_extraction","strict":true,"schema":{"type":"object","properties":{"name":{"type":["string","null"]}},"required":["name"],"additionalProperties":false}}`),
			},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if result.Content != `{"name":"Asha"}` || result.TotalTokens != 18 {
			t.Errorf("unexpected result: %+v", result)
		}

		if received["model"] != openAIDefaultModel {
			t.Errorf("model = %v", received["model"])
		}
		if received["temperature"] != float64(0) {
			t.Errorf("temperature = %v, want 0", received["temperature"])
		}
		rf, _ := received["response_format"].(map[string]any)
		if rf["type"] != "json_schema" {
			t.Errorf("response_format = %v", rf)
		}
		js, _ := rf["json_schema"].(map[string]any)
		if js["name"] != "aadhaar_extraction" || js["strict"] != true {
			t.Errorf("json_schema = %v", js)
		}

		msgs := received["messages"].([]any)
		parts := msgs[0].(map[string]any)["content"].([]any)
		if len(parts) != 2 {
			t.Fatalf("expected 2 content parts, got %d", len(parts))
		}
		url := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
		if !strings.HasPrefix(url, "data:image/png;base64,") {
			t.Errorf("unexpected image URL prefix: %.40s", url)
		}
	})

	t.Run("declared image type is sent as-is", func(t *testing.T) {
		var received map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&received)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(chatCompletion("gpt-4o-mini", `{}`))
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})

		_, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "x", Images: [][]byte{testPNG}, ImageMIMEType: "image/webp"}},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		msgs := received["messages"].([]any)
		parts := msgs[0].(map[string]any)["content"].([]any)
		url := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
		if !strings.HasPrefix(url, "data:image/webp;base64,") {
			t.Errorf("image URL prefix = %.40s, want declared webp", url)
		}
	})

	t.Run("server error is unavailable and not retried", func(t *testing.T) {
		var calls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})

		_, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected one request, got %d", calls)
		}
	})

	t.Run("bad request maps to APIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"invalid image","type":"invalid_request_error"}}`))
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})

		_, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 APIError, got %v", err)
		}
		if errors.Is(err, ErrUnavailable) {
			t.Error("400 should not be unavailable")
		}
	})

	t.Run("deadline is not unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := client.Chat(ctx, &ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})
		if err == nil || errors.Is(err, ErrUnavailable) {
			t.Errorf("expected non-unavailable timeout error, got %v", err)
		}
	})
}

func TestOpenAIResponseFormat(t *testing.T) {
	rf, err := openAIResponseFormat(&ResponseFormat{Type: "json_object"})
	if err != nil {
		t.Fatal(err)
	}
	if rf.OfJSONObject == nil || rf.OfJSONSchema != nil {
		t.Errorf("expected json_object format, got %+v", rf)
	}

	if _, err := openAIResponseFormat(&ResponseFormat{Type: "json_schema", JSONSchema: json.RawMessage(`[1,2]`)}); err == nil {
		t.Error("expected error for malformed wrapper")
	}
}
