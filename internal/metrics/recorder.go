package metrics

import (
	"context"
	"errors"

	"github.com/jackzampolin/docextract/internal/providers"
)

// Recorder turns provider results into metrics. A nil Recorder drops everything.
type Recorder struct {
	store *Store
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store *Store) *Recorder {
	if store == nil {
		return nil
	}
	return &Recorder{store: store}
}

// RecordOpts provides attribution for a metric.
type RecordOpts struct {
	RequestID string
	Stage     string
	Schema    string
}

// Record stores a single metric.
func (r *Recorder) Record(m Metric) string {
	if r == nil {
		return ""
	}
	return r.store.Add(m)
}

// RecordLLMCall records metrics from an LLM chat result.
func (r *Recorder) RecordLLMCall(opts RecordOpts, result *providers.ChatResult) string {
	if r == nil || result == nil {
		return ""
	}
	return r.Record(Metric{
		RequestID:        opts.RequestID,
		Stage:            opts.Stage,
		Schema:           opts.Schema,
		Provider:         result.Provider,
		Model:            result.ModelUsed,
		CostUSD:          result.CostUSD,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		TotalTokens:      result.TotalTokens,
		ExecutionSeconds: result.ExecutionTime.Seconds(),
		Success:          result.Success,
		ErrorType:        result.ErrorType,
	})
}

// RecordChat records a chat call that may have failed. Providers often return
// a partial result alongside the error; its usage is kept when present.
func (r *Recorder) RecordChat(opts RecordOpts, provider, model string, result *providers.ChatResult, err error) string {
	if r == nil {
		return ""
	}
	if result == nil {
		if err == nil {
			return ""
		}
		return r.RecordError(opts, provider, model, err)
	}
	if err == nil {
		return r.RecordLLMCall(opts, result)
	}
	failed := *result
	failed.Success = false
	failed.ErrorType = ErrorType(err)
	if failed.Provider == "" {
		failed.Provider = provider
	}
	return r.RecordLLMCall(opts, &failed)
}

// RecordOCRCall records metrics from an OCR result.
func (r *Recorder) RecordOCRCall(opts RecordOpts, provider string, result *providers.OCRResult) string {
	if r == nil || result == nil {
		return ""
	}
	m := Metric{
		RequestID:        opts.RequestID,
		Stage:            opts.Stage,
		Schema:           opts.Schema,
		Provider:         provider,
		CostUSD:          result.CostUSD,
		ExecutionSeconds: result.ExecutionTime.Seconds(),
		Success:          result.Success,
	}
	if !result.Success {
		m.ErrorType = "ocr_error"
	}
	return r.Record(m)
}

// RecordError records a call that produced no result.
func (r *Recorder) RecordError(opts RecordOpts, provider, model string, err error) string {
	if r == nil {
		return ""
	}
	return r.Record(Metric{
		RequestID: opts.RequestID,
		Stage:     opts.Stage,
		Schema:    opts.Schema,
		Provider:  provider,
		Model:     model,
		Success:   false,
		ErrorType: ErrorType(err),
	})
}

// ErrorType classifies err for aggregation.
func ErrorType(err error) string {
	var apiErr *providers.APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, providers.ErrUnavailable):
		return "unavailable"
	case errors.As(err, &apiErr):
		return "api_error"
	default:
		return "error"
	}
}
