package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	OpenRouterName         = "openrouter"
	OpenRouterBaseURL      = "https://openrouter.ai/api/v1"
	openRouterDefaultModel = "google/gemini-2.0-flash-001"
)

// OpenRouterConfig holds configuration for the OpenRouter client.
type OpenRouterConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	RateLimit    int // Requests per minute (0 = unlimited)
}

// OpenRouterClient implements LLMClient against OpenRouter's chat completions
// API. Any OpenAI-compatible gateway works by overriding BaseURL.
type OpenRouterClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	client       *http.Client
	limiter      *RateLimiter
}

func NewOpenRouterClient(cfg OpenRouterConfig) *OpenRouterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = OpenRouterBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = openRouterDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	c := &OpenRouterClient{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		defaultModel: cfg.DefaultModel,
		client:       &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.RateLimit > 0 {
		c.limiter = NewRateLimiter(cfg.RateLimit)
	}
	return c
}

func (c *OpenRouterClient) Name() string {
	return OpenRouterName
}

// RateLimiter returns the client's limiter, or nil when unlimited.
func (c *OpenRouterClient) RateLimiter() *RateLimiter {
	return c.limiter
}

// Chat makes one completion request. The result is returned on failure too,
// carrying whatever usage and timing were known.
func (c *OpenRouterClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	result := &ChatResult{
		RequestID: req.RequestID,
		Provider:  OpenRouterName,
	}
	if result.RequestID == "" {
		result.RequestID = uuid.New().String()
	}

	body := openRouterRequest{
		Model:       model,
		Messages:    openRouterMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Usage:       &openRouterUsageOption{Include: true},
	}
	if req.ResponseFormat != nil {
		rf, err := openRouterFormat(model, req.ResponseFormat)
		if err != nil {
			return result.fail("schema_error", err, start)
		}
		body.ResponseFormat = rf
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return result.fail("rate_limit", err, start)
		}
	}

	resp, err := c.post(ctx, &body)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests && c.limiter != nil {
			c.limiter.Record429()
		}
		return result.fail("http_error", err, start)
	}

	result.ModelUsed = resp.Model
	result.PromptTokens = resp.Usage.PromptTokens
	result.CompletionTokens = resp.Usage.CompletionTokens
	result.TotalTokens = resp.Usage.TotalTokens
	result.CostUSD = resp.Usage.Cost

	// OpenRouter reports upstream model failures inside a 200 body.
	if resp.Error != nil {
		return result.fail("api_error", &APIError{
			Provider:   OpenRouterName,
			StatusCode: openRouterErrorStatus(resp.Error.Code),
			Message:    resp.Error.Message,
		}, start)
	}
	if len(resp.Choices) == 0 {
		return result.fail("empty_response", errors.New("no choices in response"), start)
	}

	result.Success = true
	result.Content = messageText(resp.Choices[0].Message.Content)
	result.ExecutionTime = time.Since(start)
	return result, nil
}

func (c *OpenRouterClient) post(ctx context.Context, body *openRouterRequest) (*openRouterResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", "https://github.com/jackzampolin/docextract")
	req.Header.Set("X-Title", "docextract")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s request failed: %w", OpenRouterName, ctxErr)
		}
		return nil, unavailable(OpenRouterName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s request failed: %w", OpenRouterName, ctxErr)
		}
		return nil, unavailable(OpenRouterName, err)
	}

	var out openRouterResponse
	decodeErr := json.Unmarshal(raw, &out)
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return nil, &APIError{Provider: OpenRouterName, StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%s: malformed response: %w", OpenRouterName, decodeErr)
	}
	return &out, nil
}

// openRouterMessages sends image-bearing messages as a text part followed by
// one data URL part per image.
func openRouterMessages(msgs []Message) []openRouterMessage {
	out := make([]openRouterMessage, 0, len(msgs))
	for _, m := range msgs {
		if len(m.Images) == 0 {
			out = append(out, openRouterMessage{Role: m.Role, Content: m.Content})
			continue
		}
		parts := make([]openRouterPart, 0, len(m.Images)+1)
		parts = append(parts, openRouterPart{Type: "text", Text: m.Content})
		for _, img := range m.Images {
			parts = append(parts, openRouterPart{
				Type: "image_url",
				ImageURL: &struct {
					URL string `json:"url"`
				}{URL: imageDataURL(img, m.ImageMIMEType)},
			})
		}
		out = append(out, openRouterMessage{Role: m.Role, Content: parts})
	}
	return out
}

// messageText accepts a plain string or a list of content parts.
func messageText(content json.RawMessage) string {
	if len(content) == 0 || string(content) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(content, &s); err == nil {
		return s
	}
	var parts []openRouterPart
	if err := json.Unmarshal(content, &parts); err != nil {
		return string(content)
	}
	var b strings.Builder
	for _, p := range parts {
		if p.Type == "text" {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// openRouterErrorStatus maps an in-body error code, numeric or symbolic, to
// the HTTP status it stands for.
func openRouterErrorStatus(code any) int {
	switch v := code.(type) {
	case float64:
		return int(v)
	case string:
		switch v {
		case "overloaded":
			return http.StatusServiceUnavailable
		case "rate_limit_exceeded":
			return http.StatusTooManyRequests
		}
	}
	return http.StatusBadGateway
}

type openRouterRequest struct {
	Model          string                    `json:"model"`
	Messages       []openRouterMessage       `json:"messages"`
	Temperature    float64                   `json:"temperature"`
	MaxTokens      int                       `json:"max_tokens,omitempty"`
	ResponseFormat *openRouterResponseFormat `json:"response_format,omitempty"`
	Usage          *openRouterUsageOption    `json:"usage,omitempty"`
}

// openRouterUsageOption asks for cost accounting in the response.
type openRouterUsageOption struct {
	Include bool `json:"include"`
}

type openRouterMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openRouterPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

type openRouterResponseFormat struct {
	Type       string          `json:"type"`
	JSONSchema json.RawMessage `json:"json_schema,omitempty"`
}

type openRouterResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int     `json:"prompt_tokens"`
		CompletionTokens int     `json:"completion_tokens"`
		TotalTokens      int     `json:"total_tokens"`
		Cost             float64 `json:"cost"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

var (
	_ LLMClient = (*OpenRouterClient)(nil)
	_ Limited   = (*OpenRouterClient)(nil)
)
