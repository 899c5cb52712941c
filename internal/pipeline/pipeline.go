// Package pipeline turns an uploaded document into a structured extraction:
// format check, rasterization, text probe, classification, schema selection
// and extraction, in that order.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackzampolin/docextract/internal/archive"
	"github.com/jackzampolin/docextract/internal/classify"
	"github.com/jackzampolin/docextract/internal/document"
	"github.com/jackzampolin/docextract/internal/metrics"
	"github.com/jackzampolin/docextract/internal/schema"
)

const (
	DefaultProbeTimeout   = 30 * time.Second
	DefaultExtractTimeout = 60 * time.Second
	// DefaultArchiveTimeout bounds the best-effort archive write.
	DefaultArchiveTimeout = 15 * time.Second
)

// Config holds everything a Pipeline needs. It is built once at startup.
type Config struct {
	Rasterizer *document.Rasterizer
	Schemas    *schema.Registry
	Providers  ProviderSource

	ProbeProvider   string
	ProbeModel      string
	ProbeTimeout    time.Duration
	ExtractProvider string
	ExtractModel    string
	ExtractTimeout  time.Duration

	// Archive is optional. Store failures are logged and never change the outcome.
	Archive        archive.Sink
	ArchiveTimeout time.Duration

	// Metrics records one entry per backend call when set.
	Metrics *metrics.Recorder

	Logger *slog.Logger
}

// Pipeline runs uploads through the extraction state machine. It holds no
// per-request state and is safe for concurrent use.
type Pipeline struct {
	rasterizer *document.Rasterizer
	schemas    *schema.Registry
	prober     *Prober
	extractor  *Extractor
	archive    archive.Sink

	archiveTimeout time.Duration
	logger         *slog.Logger
}

// New validates cfg and builds a Pipeline. Provider names are resolved per
// request so a hot-reloaded registry takes effect without a restart.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Rasterizer == nil {
		return nil, errors.New("pipeline: rasterizer is required")
	}
	if cfg.Schemas == nil {
		return nil, errors.New("pipeline: schema registry is required")
	}
	if cfg.Providers == nil {
		return nil, errors.New("pipeline: provider source is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.ExtractTimeout <= 0 {
		cfg.ExtractTimeout = DefaultExtractTimeout
	}
	if cfg.ArchiveTimeout <= 0 {
		cfg.ArchiveTimeout = DefaultArchiveTimeout
	}
	if cfg.ProbeProvider == "" {
		cfg.ProbeProvider = cfg.ExtractProvider
		if cfg.ProbeModel == "" {
			cfg.ProbeModel = cfg.ExtractModel
		}
	}

	return &Pipeline{
		rasterizer: cfg.Rasterizer,
		schemas:    cfg.Schemas,
		prober: NewProber(cfg.Providers, ProberConfig{
			Provider: cfg.ProbeProvider,
			Model:    cfg.ProbeModel,
			Timeout:  cfg.ProbeTimeout,
			Logger:   cfg.Logger,
			Metrics:  cfg.Metrics,
		}),
		extractor: NewExtractor(cfg.Providers, ExtractorConfig{
			Provider: cfg.ExtractProvider,
			Model:    cfg.ExtractModel,
			Timeout:  cfg.ExtractTimeout,
			Logger:   cfg.Logger,
			Metrics:  cfg.Metrics,
		}),
		archive:        cfg.Archive,
		archiveTimeout: cfg.ArchiveTimeout,
		logger:         cfg.Logger,
	}, nil
}

// Outcome is the result of one run. Exactly one of Result and Failure is set.
type Outcome struct {
	// State is StateDone or StateFailed.
	State State
	// Reached is the last state entered successfully.
	Reached  State
	Filename string
	Kind     document.Kind
	Category classify.Category
	Result   schema.Result
	Failure  *Failure
	// Err is the stage error behind Failure.
	Err     error
	Stages  map[State]time.Duration
	Elapsed time.Duration
}

// SuccessBody is the response for a completed extraction.
type SuccessBody struct {
	DocumentType string        `json:"document_type"`
	Data         schema.Result `json:"data"`
}

// ErrorBody is the response for a failed run.
type ErrorBody struct {
	Error string `json:"error"`
}

// OK reports whether the run completed.
func (o Outcome) OK() bool { return o.State == StateDone }

// Status is the HTTP status for the outcome.
func (o Outcome) Status() int {
	if o.Failure != nil {
		return o.Failure.Status
	}
	return http.StatusOK
}

// Body is the JSON response body for the outcome.
func (o Outcome) Body() any {
	if o.Failure != nil {
		return ErrorBody{Error: o.Failure.Reason}
	}
	return SuccessBody{DocumentType: o.Category.String(), Data: o.Result}
}

// StageMillis reports stage durations keyed by state name.
func (o Outcome) StageMillis() map[string]int64 {
	out := make(map[string]int64, len(o.Stages))
	for s, d := range o.Stages {
		out[s.String()] = d.Milliseconds()
	}
	return out
}

// Handle runs one upload through the state machine. It never panics on bad
// input and always returns an Outcome.
func (p *Pipeline) Handle(ctx context.Context, up document.Upload) Outcome {
	start := time.Now()
	logger := p.logger.With("filename", up.Filename, "size", len(up.Data))
	if id := RequestIDFrom(ctx); id != "" {
		logger = logger.With("request_id", id)
	}

	r := &run{
		logger: logger,
		out: Outcome{
			Reached:  StateReceived,
			Filename: up.Filename,
			Kind:     document.KindUnknown,
			Category: classify.Unknown,
			Stages:   make(map[State]time.Duration, len(States)),
		},
	}

	var raster *document.Raster
	defer func() { raster.Release() }()

	err := p.steps(ctx, r, up, &raster)
	if err != nil {
		r.out.State = StateFailed
		r.out.Err = err
		r.out.Failure = Classify(err, up.Filename)
	} else {
		r.out.State = StateDone
	}
	r.out.Elapsed = time.Since(start)

	attrs := []any{
		"state", r.out.State,
		"document_type", r.out.Category,
		"elapsed_ms", r.out.Elapsed.Milliseconds(),
	}
	if r.out.Failure != nil {
		attrs = append(attrs, "reached", r.out.Reached, "failure", r.out.Failure.Kind, "error", err)
	}
	logger.Info("extraction finished", attrs...)

	if p.archive != nil {
		p.store(ctx, logger, up, r.out)
	}
	return r.out
}

type run struct {
	logger *slog.Logger
	out    Outcome
}

// enter records a successful transition into s.
func (r *run) enter(s State, began time.Time, attrs ...any) {
	r.out.Stages[s] = time.Since(began)
	r.out.Reached = s
	r.logger.Debug("pipeline transition", append([]any{"state", s, "ms", r.out.Stages[s].Milliseconds()}, attrs...)...)
}

func (p *Pipeline) steps(ctx context.Context, r *run, up document.Upload, raster **document.Raster) error {
	// RECEIVED -> FORMAT_CHECKED
	began := time.Now()
	kind := document.Detect(up.Data, up.Filename)
	r.out.Kind = kind
	if kind == document.KindUnknown {
		return &Error{Class: ErrUnsupportedFormat, Stage: StateFormatChecked}
	}
	if document.HintMismatch(kind, up.Filename) {
		r.logger.Debug("extension disagrees with content", "kind", kind)
	}
	r.enter(StateFormatChecked, began, "kind", kind)

	// -> RASTERIZED
	began = time.Now()
	img, err := p.rasterizer.Rasterize(ctx, up.Data, kind)
	if err != nil {
		if errors.Is(err, document.ErrConversion) || errors.Is(err, document.ErrNotRaster) {
			return &Error{Class: ErrConversionFailed, Stage: StateRasterized, Err: err}
		}
		return &Error{Class: ErrInternal, Stage: StateRasterized, Err: err}
	}
	*raster = img
	r.enter(StateRasterized, began, "mime", img.MIMEType, "width", img.Width, "height", img.Height)

	// -> PROBED
	began = time.Now()
	text := p.prober.Probe(ctx, img)
	r.enter(StateProbed, began, "chars", len(text))

	// -> CLASSIFIED
	began = time.Now()
	category, keyword := classify.Match(text)
	r.out.Category = category
	if category == classify.Unknown {
		return &Error{Class: ErrUnrecognizedDocument, Stage: StateClassified}
	}
	r.enter(StateClassified, began, "document_type", category, "keyword", keyword)

	// -> SCHEMA_SELECTED
	began = time.Now()
	s, err := p.schemas.For(category)
	if err != nil {
		return &Error{Class: ErrUnrecognizedDocument, Stage: StateSchemaSelected, Err: err}
	}
	r.enter(StateSchemaSelected, began, "schema", s.Name)

	// -> EXTRACTED
	began = time.Now()
	result, err := p.extractor.Extract(ctx, img, s)
	if err != nil {
		class := ErrExtractionFailed
		if errors.Is(err, ErrInternal) {
			class = ErrInternal
		}
		return &Error{Class: class, Stage: StateExtracted, Err: err}
	}
	r.out.Result = result
	r.enter(StateExtracted, began, "fields", result.Len())
	return nil
}

// store archives the run. Cancellation of the request does not cancel it.
func (p *Pipeline) store(ctx context.Context, logger *slog.Logger, up document.Upload, out Outcome) {
	rec := archive.NewRecord(up.Filename, up.Data)
	rec.Kind = string(out.Kind)
	rec.State = out.State.String()
	rec.Status = out.Status()
	rec.StageMillis = out.StageMillis()
	if out.OK() {
		rec.DocumentType = out.Category.String()
		rec.Data = out.Result.Map()
	} else {
		rec.Error = out.Failure.Reason
		if out.Category != classify.Unknown {
			rec.DocumentType = out.Category.String()
		}
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.archiveTimeout)
	defer cancel()
	if err := p.archive.Store(ctx, rec); err != nil {
		logger.Warn("archive store failed", "backend", p.archive.Name(), "archive_id", rec.ID, "error", err)
		return
	}
	logger.Debug("archived", "backend", p.archive.Name(), "archive_id", rec.ID)
}

// Schemas exposes the schema registry for listing endpoints.
func (p *Pipeline) Schemas() *schema.Registry { return p.schemas }

// ProbeProvider names the backend used for classification text.
func (p *Pipeline) ProbeProvider() string { return p.prober.provider }

// ExtractProvider names the backend used for field extraction.
func (p *Pipeline) ExtractProvider() string { return p.extractor.provider }

// Ready reports whether the extraction backend is registered.
func (p *Pipeline) Ready() bool {
	_, err := p.extractor.source.GetLLM(p.extractor.provider)
	return err == nil
}

type requestIDKey struct{}

// WithRequestID tags ctx so pipeline logs carry the caller's request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request ID stored by WithRequestID.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
