// Package metrics provides cost and usage tracking for OCR and LLM calls.
package metrics

import "time"

// Stages a call can be attributed to.
const (
	StageProbe   = "probe"
	StageExtract = "extract"
)

// Metric is a single recorded OCR or LLM call. Metrics are append-only.
type Metric struct {
	ID string `json:"id"`

	// Attribution
	RequestID string `json:"request_id,omitempty"`
	Stage     string `json:"stage,omitempty"`
	Schema    string `json:"schema,omitempty"`

	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	CostUSD          float64 `json:"cost_usd,omitempty"`
	PromptTokens     int     `json:"prompt_tokens,omitempty"`
	CompletionTokens int     `json:"completion_tokens,omitempty"`
	TotalTokens      int     `json:"total_tokens,omitempty"`

	ExecutionSeconds float64 `json:"execution_seconds,omitempty"`

	Success   bool   `json:"success"`
	ErrorType string `json:"error_type,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
