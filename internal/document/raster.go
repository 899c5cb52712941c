package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

var (
	// ErrConversion is returned when a supported document cannot be rendered.
	ErrConversion = errors.New("document conversion failed")

	ErrNoPages   = fmt.Errorf("%w: document has no pages", ErrConversion)
	ErrEncrypted = fmt.Errorf("%w: document is encrypted", ErrConversion)
	ErrNotRaster = errors.New("document is neither a PDF nor an image")
)

// Raster is a single-page image ready for inference.
type Raster struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

// Release drops the pixel buffer. Safe to call on nil and more than once.
func (r *Raster) Release() {
	if r == nil {
		return
	}
	r.Data = nil
}

// RasterizerConfig configures PDF rendering.
type RasterizerConfig struct {
	// PdftoppmPath is the poppler renderer binary (default: "pdftoppm" on PATH).
	PdftoppmPath string
	// TempDir is where scratch files are written (default: os.TempDir()).
	TempDir string
	Logger  *slog.Logger
}

// Rasterizer renders page 1 of a PDF, or passes images through unchanged.
type Rasterizer struct {
	pdftoppm string
	tempDir  string
	logger   *slog.Logger
}

// NewRasterizer creates a Rasterizer.
func NewRasterizer(cfg RasterizerConfig) *Rasterizer {
	if cfg.PdftoppmPath == "" {
		cfg.PdftoppmPath = "pdftoppm"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Rasterizer{
		pdftoppm: cfg.PdftoppmPath,
		tempDir:  cfg.TempDir,
		logger:   cfg.Logger,
	}
}

// Rasterize converts data of the given kind to a single raster image.
// Failures caused by the document are wrapped in ErrConversion; a missing
// renderer, scratch I/O errors and cancellation are not.
func (r *Rasterizer) Rasterize(ctx context.Context, data []byte, kind Kind) (*Raster, error) {
	switch kind {
	case KindImage:
		return imageRaster(data)
	case KindPDF:
		return r.renderFirstPage(ctx, data)
	default:
		return nil, ErrNotRaster
	}
}

// Formats vision backends accept as-is; anything else is re-encoded as PNG.
var passThroughFormats = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
}

func imageRaster(data []byte) (*Raster, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRaster, err)
	}
	raster := &Raster{
		Data:   data,
		Width:  cfg.Width,
		Height: cfg.Height,
	}
	if mime, ok := passThroughFormats[format]; ok {
		raster.MIMEType = mime
		return raster, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRaster, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to re-encode %s image: %w", format, err)
	}
	raster.Data = buf.Bytes()
	raster.MIMEType = "image/png"
	return raster, nil
}

// inspectPDF returns the page count, rejecting encrypted documents.
func inspectPDF(data []byte) (int, error) {
	encrypted, err := readPDF(data)
	switch {
	case encrypted:
		return 0, ErrEncrypted
	case err != nil:
		return 0, fmt.Errorf("%w: %v", ErrConversion, err)
	}

	pageCount, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get page count: %v", ErrConversion, err)
	}
	if pageCount == 0 {
		return 0, ErrNoPages
	}
	return pageCount, nil
}

// renderFirstPage renders page 1 with pdftoppm at its default resolution.
func (r *Rasterizer) renderFirstPage(ctx context.Context, data []byte) (*Raster, error) {
	pageCount, err := inspectPDF(data)
	if err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp(r.tempDir, "docextract-render-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(pdfPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write scratch PDF: %w", err)
	}

	// -singlefile writes <prefix>.png without a page suffix
	outputPrefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, r.pdftoppm,
		"-png",
		"-f", "1",
		"-l", "1",
		"-singlefile",
		pdfPath,
		outputPrefix,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		// Only a renderer that ran and rejected the file says anything about
		// the document. A missing binary or a cancelled request does not.
		var exit *exec.ExitError
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("pdftoppm interrupted: %w", ctxErr)
		}
		if !errors.As(err, &exit) {
			return nil, fmt.Errorf("failed to run pdftoppm: %w", err)
		}
		return nil, fmt.Errorf("%w: pdftoppm failed: %v (output: %s)", ErrConversion, err, string(output))
	}

	rendered, err := os.ReadFile(outputPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("%w: pdftoppm did not create expected output: %v", ErrConversion, err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(rendered))
	if err != nil {
		return nil, fmt.Errorf("%w: rendered page is not a valid image: %v", ErrConversion, err)
	}

	r.logger.Debug("rendered pdf page", "pages", pageCount, "width", cfg.Width, "height", cfg.Height)

	return &Raster{
		Data:     rendered,
		MIMEType: "image/png",
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}
