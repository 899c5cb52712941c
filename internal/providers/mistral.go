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
)

const (
	MistralOCRName    = "mistral-ocr"
	MistralOCRBaseURL = "https://api.mistral.ai/v1"
	MistralOCRModel   = "mistral-ocr-latest"

	// Billed per processed page.
	MistralOCRCostPerPage = 0.001
)

// MistralOCRConfig holds configuration for the Mistral OCR client.
type MistralOCRConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	RateLimit int // Requests per minute (0 = unlimited)
}

// MistralOCRClient implements OCRProvider using the Mistral OCR API. Each
// ProcessImage call posts one page image and makes exactly one request.
type MistralOCRClient struct {
	apiKey  string
	baseURL string
	model   string
	limiter *RateLimiter
	client  *http.Client
}

func NewMistralOCRClient(cfg MistralOCRConfig) *MistralOCRClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = MistralOCRBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = MistralOCRModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	c := &MistralOCRClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.RateLimit > 0 {
		c.limiter = NewRateLimiter(cfg.RateLimit)
	}
	return c
}

func (c *MistralOCRClient) Name() string {
	return MistralOCRName
}

// RateLimiter returns the client's limiter, or nil when unlimited.
func (c *MistralOCRClient) RateLimiter() *RateLimiter {
	return c.limiter
}

// ProcessImage recognizes the text of a single page image. The returned
// result is never nil, so callers can record timing on failure too.
func (c *MistralOCRClient) ProcessImage(ctx context.Context, image []byte, mimeType string) (*OCRResult, error) {
	start := time.Now()
	result := &OCRResult{Model: c.model}
	fail := func(err error) (*OCRResult, error) {
		result.ErrorMessage = err.Error()
		result.ExecutionTime = time.Since(start)
		return result, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fail(err)
		}
	}

	resp, err := c.ocr(ctx, mistralOCRRequest{
		Model: c.model,
		Document: mistralDocument{
			Type:     "image_url",
			ImageURL: imageDataURL(image, mimeType),
		},
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests && c.limiter != nil {
			c.limiter.Record429()
		}
		return fail(err)
	}
	if len(resp.Pages) == 0 {
		return fail(fmt.Errorf("%s: no pages in OCR response", MistralOCRName))
	}

	page := resp.Pages[0]
	if resp.Model != "" {
		result.Model = resp.Model
	}
	result.Pages = 1
	if resp.UsageInfo != nil && resp.UsageInfo.PagesProcessed > 0 {
		result.Pages = resp.UsageInfo.PagesProcessed
	}
	result.Width = page.Dimensions.Width
	result.Height = page.Dimensions.Height
	result.DPI = page.Dimensions.DPI

	result.Success = true
	result.Text = page.Markdown
	result.CostUSD = float64(result.Pages) * MistralOCRCostPerPage
	result.ExecutionTime = time.Since(start)
	return result, nil
}

func (c *MistralOCRClient) ocr(ctx context.Context, body mistralOCRRequest) (*mistralOCRResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ocr", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s request failed: %w", MistralOCRName, ctxErr)
		}
		return nil, unavailable(MistralOCRName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable(MistralOCRName, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, mistralAPIError(resp.StatusCode, raw)
	}

	var out mistralOCRResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%s: malformed response: %w", MistralOCRName, err)
	}
	return &out, nil
}

// mistralAPIError prefers the message from the JSON error envelope and falls
// back to the raw body.
func mistralAPIError(status int, body []byte) *APIError {
	msg := strings.TrimSpace(string(body))
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &env) == nil {
		switch {
		case env.Error.Message != "":
			msg = env.Error.Message
		case env.Message != "":
			msg = env.Message
		}
	}
	return &APIError{Provider: MistralOCRName, StatusCode: status, Message: msg}
}

type mistralOCRRequest struct {
	Model    string          `json:"model"`
	Document mistralDocument `json:"document"`
}

type mistralDocument struct {
	Type     string `json:"type"`
	ImageURL string `json:"image_url,omitempty"`
}

type mistralOCRResponse struct {
	Model     string            `json:"model"`
	Pages     []mistralOCRPage  `json:"pages"`
	UsageInfo *mistralUsageInfo `json:"usage_info,omitempty"`
}

type mistralOCRPage struct {
	Index      int    `json:"index"`
	Markdown   string `json:"markdown"`
	Dimensions struct {
		Width  int `json:"width"`
		Height int `json:"height"`
		DPI    int `json:"dpi"`
	} `json:"dimensions"`
}

type mistralUsageInfo struct {
	PagesProcessed int `json:"pages_processed"`
}

var _ OCRProvider = (*MistralOCRClient)(nil)
var _ Limited = (*MistralOCRClient)(nil)
