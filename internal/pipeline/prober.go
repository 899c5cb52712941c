package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackzampolin/docextract/internal/document"
	"github.com/jackzampolin/docextract/internal/metrics"
	"github.com/jackzampolin/docextract/internal/providers"
)

// ProbePrompt asks for a plain transcription used only for classification.
const ProbePrompt = "Extract all readable text from this image."

// ProviderSource resolves configured backends by name.
// *providers.Registry satisfies it.
type ProviderSource interface {
	GetLLM(name string) (providers.LLMClient, error)
	GetOCR(name string) (providers.OCRProvider, error)
}

// ProberConfig selects the transcription backend.
type ProberConfig struct {
	// Provider names an OCR provider or an LLM client. OCR wins when both exist.
	Provider string
	Model    string
	Timeout  time.Duration
	Logger   *slog.Logger
	// Metrics is optional.
	Metrics *metrics.Recorder
}

// Prober transcribes a raster to text. It never fails: any problem is logged
// and yields an empty string.
type Prober struct {
	source   ProviderSource
	provider string
	model    string
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *metrics.Recorder
}

func NewProber(source ProviderSource, cfg ProberConfig) *Prober {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		source:   source,
		provider: cfg.Provider,
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		logger:   logger,
		metrics:  cfg.Metrics,
	}
}

// Probe makes one transcription call and returns the trimmed text.
func (p *Prober) Probe(ctx context.Context, r *document.Raster) string {
	if r == nil || len(r.Data) == 0 {
		p.logger.Warn("text probe skipped", "reason", "empty raster")
		return ""
	}

	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	text, err := p.transcribe(ctx, r)
	if err != nil {
		p.logger.Warn("text probe failed",
			"provider", p.provider,
			"elapsed_ms", time.Since(start).Milliseconds(),
			"error", err)
		return ""
	}
	return strings.TrimSpace(text)
}

func (p *Prober) transcribe(ctx context.Context, r *document.Raster) (string, error) {
	opts := metrics.RecordOpts{RequestID: RequestIDFrom(ctx), Stage: metrics.StageProbe}

	if ocr, err := p.source.GetOCR(p.provider); err == nil {
		res, err := ocr.ProcessImage(ctx, r.Data, r.MIMEType)
		if err != nil {
			p.metrics.RecordError(opts, ocr.Name(), "", err)
			return "", err
		}
		p.metrics.RecordOCRCall(opts, ocr.Name(), res)
		if res == nil {
			return "", fmt.Errorf("%s returned no result", ocr.Name())
		}
		return res.Text, nil
	}

	llm, err := p.source.GetLLM(p.provider)
	if err != nil {
		return "", err
	}
	res, err := llm.Chat(ctx, &providers.ChatRequest{
		Model: p.model,
		Messages: []providers.Message{{
			Role:          "user",
			Content:       ProbePrompt,
			Images:        [][]byte{r.Data},
			ImageMIMEType: r.MIMEType,
		}},
	})
	p.metrics.RecordChat(opts, llm.Name(), p.model, res, err)
	if err != nil {
		return "", err
	}
	if res == nil {
		return "", fmt.Errorf("%s returned no result", llm.Name())
	}
	return res.Content, nil
}

// withTimeout bounds ctx when d is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
