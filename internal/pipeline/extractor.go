package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackzampolin/docextract/internal/document"
	"github.com/jackzampolin/docextract/internal/metrics"
	"github.com/jackzampolin/docextract/internal/providers"
	"github.com/jackzampolin/docextract/internal/schema"
)

// ExtractorConfig selects the extraction backend.
type ExtractorConfig struct {
	Provider string
	Model    string
	Timeout  time.Duration
	Logger   *slog.Logger
	Metrics  *metrics.Recorder
}

// Extractor asks a vision model for a category's fields.
type Extractor struct {
	source   ProviderSource
	provider string
	model    string
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *metrics.Recorder
}

func NewExtractor(source ProviderSource, cfg ExtractorConfig) *Extractor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		source:   source,
		provider: cfg.Provider,
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		logger:   logger,
		metrics:  cfg.Metrics,
	}
}

// Extract makes exactly one model call and returns the validated result.
//
// A backend that is missing or unavailable is ErrInternal. Any other call
// error, a timeout, or a response that is not a JSON object carrying at least
// one declared field is ErrExtractionFailed.
func (e *Extractor) Extract(ctx context.Context, r *document.Raster, s *schema.Schema) (schema.Result, error) {
	llm, err := e.source.GetLLM(e.provider)
	if err != nil {
		return schema.Result{}, fmt.Errorf("%w: extraction backend: %w", ErrInternal, err)
	}
	if r == nil || len(r.Data) == 0 {
		return schema.Result{}, fmt.Errorf("%w: no image to extract from", ErrExtractionFailed)
	}

	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()

	res, err := llm.Chat(ctx, &providers.ChatRequest{
		Model: e.model,
		Messages: []providers.Message{{
			Role:          "user",
			Content:       s.Prompt,
			Images:        [][]byte{r.Data},
			ImageMIMEType: r.MIMEType,
		}},
		Temperature: 0,
		ResponseFormat: &providers.ResponseFormat{
			Type:       "json_schema",
			JSONSchema: s.ResponseSchema(),
		},
	})
	opts := metrics.RecordOpts{RequestID: RequestIDFrom(ctx), Stage: metrics.StageExtract, Schema: s.Name}
	e.metrics.RecordChat(opts, llm.Name(), e.model, res, err)
	if err != nil {
		if errors.Is(err, providers.ErrUnavailable) {
			return schema.Result{}, fmt.Errorf("%w: %w", ErrInternal, err)
		}
		return schema.Result{}, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	if res == nil {
		return schema.Result{}, fmt.Errorf("%w: %s returned no result", ErrExtractionFailed, llm.Name())
	}

	result, report, err := Parse(res.Content, s)
	if err != nil {
		return schema.Result{}, err
	}
	if len(report.Missing) > 0 || len(report.Extra) > 0 || len(report.Rejected) > 0 {
		e.logger.Debug("extraction response differs from schema",
			"schema", s.Name,
			"missing", report.Missing,
			"extra", report.Extra,
			"rejected", report.Rejected)
	}
	return result, nil
}

// Parse turns a raw model response into a Result for s. Whitespace and a
// surrounding code fence are stripped; nothing else is repaired.
func Parse(content string, s *schema.Schema) (schema.Result, schema.Report, error) {
	doc, err := providers.ParseStructuredJSON(content)
	if err != nil {
		return schema.Result{}, schema.Report{}, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	if err := s.Validate(doc); err != nil {
		return schema.Result{}, schema.Report{}, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	result, report := s.Project(doc)
	if report.Empty() {
		return schema.Result{}, report, fmt.Errorf("%w: response has none of the %s fields", ErrExtractionFailed, s.Name)
	}
	return result, report, nil
}
