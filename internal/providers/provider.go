// Package providers talks to the vision LLMs and OCR services the pipeline
// uses for probing and extraction.
package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// LLMClient sends chat requests to a vision-capable model. Chat makes one
// upstream call and never retries; retry policy belongs to the caller.
type LLMClient interface {
	Name() string
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)
}

// OCRProvider turns a page image into markdown text.
type OCRProvider interface {
	Name() string
	// mimeType may be empty, in which case the image is sniffed.
	ProcessImage(ctx context.Context, image []byte, mimeType string) (*OCRResult, error)
}

// ErrUnavailable marks calls the backend refused or never received:
// transport errors, bad credentials, throttling and 5xx responses.
var ErrUnavailable = errors.New("provider unavailable")

// APIError is a non-2xx provider response.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Is matches ErrUnavailable for statuses that say nothing about the input.
func (e *APIError) Is(target error) bool {
	if target != ErrUnavailable {
		return false
	}
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusTooManyRequests:
		return true
	}
	return e.StatusCode >= http.StatusInternalServerError
}

// unavailable wraps a transport error. Context errors stay unmarked so a
// timeout is not reported as an outage.
func unavailable(provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s request failed: %w", provider, err)
	}
	return fmt.Errorf("%s request failed: %w: %w", provider, ErrUnavailable, err)
}

// Message is one chat turn. Images are raw bytes; each client encodes them.
type Message struct {
	Role    string // system, user or assistant
	Content string
	Images  [][]byte
	// ImageMIMEType is the media type of every entry in Images. Empty means
	// each image is sniffed.
	ImageMIMEType string
}

// ResponseFormat asks for JSON output. JSONSchema is the OpenAI-style
// {"name","strict","schema"} wrapper and is only read for "json_schema".
type ResponseFormat struct {
	Type       string // json_schema or json_object
	JSONSchema json.RawMessage
}

type ChatRequest struct {
	Messages       []Message
	Model          string // client default when empty
	Temperature    float64
	MaxTokens      int
	ResponseFormat *ResponseFormat
	RequestID      string // generated by the client when empty
}

// ChatResult is returned on failure too, carrying whatever usage and timing
// the provider reported before the error.
type ChatResult struct {
	Success   bool
	Content   string
	Provider  string
	ModelUsed string
	RequestID string

	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CostUSD          float64
	ExecutionTime    time.Duration

	ErrorType    string
	ErrorMessage string
}

func (r *ChatResult) fail(errType string, err error, start time.Time) (*ChatResult, error) {
	r.Success = false
	r.ErrorType = errType
	r.ErrorMessage = err.Error()
	r.ExecutionTime = time.Since(start)
	return r, err
}

type OCRResult struct {
	Success bool
	Text    string // markdown
	Model   string
	Pages   int // pages billed

	// Page size as reported by the provider, zero when unknown.
	Width, Height, DPI int

	CostUSD       float64
	ExecutionTime time.Duration
	ErrorMessage  string
}

// imageDataURL encodes img as a data URL, preferring the declared type.
func imageDataURL(img []byte, mimeType string) string {
	if mimeType == "" {
		mimeType = imageMIMEType(img)
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(img)
}

// imageMIMEType sniffs an image for a data URL, defaulting to PNG.
func imageMIMEType(img []byte) string {
	switch ct := http.DetectContentType(img); ct {
	case "image/png", "image/jpeg", "image/gif", "image/webp", "image/bmp":
		return ct
	}
	return "image/png"
}
