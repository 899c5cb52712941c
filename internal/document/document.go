// Package document detects upload formats and normalizes them to a single
// raster image.
package document

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Kind is the detected format of an upload.
type Kind string

const (
	KindPDF     Kind = "pdf"
	KindImage   Kind = "image"
	KindUnknown Kind = "unknown"
)

// Upload is a document as received from a caller.
type Upload struct {
	Data     []byte
	Filename string
}

// Detect reports whether data is a PDF, a raster image, or neither.
// The filename is only a hint and never overrides the structural checks.
func Detect(data []byte, filename string) Kind {
	if isPDF(data) {
		return KindPDF
	}
	if isImage(data) {
		return KindImage
	}
	return KindUnknown
}

// HintMismatch reports whether the filename extension disagrees with the
// detected kind. Used for logging only.
func HintMismatch(kind Kind, filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return false
	}
	switch kind {
	case KindPDF:
		return ext != ".pdf"
	case KindImage:
		_, ok := imageExtensions[ext]
		return !ok
	default:
		return false
	}
}

var imageExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {},
	".bmp": {}, ".tif": {}, ".tiff": {}, ".webp": {},
}

func isPDF(data []byte) bool {
	encrypted, err := readPDF(data)
	return err == nil || encrypted
}

// readPDF parses data with pdfcpu. encrypted is set when parsing stopped at
// an encryption dictionary that cannot be opened without a password; such a
// file is still a PDF and the rasterizer rejects it.
func readPDF(data []byte) (encrypted bool, err error) {
	if len(data) == 0 {
		return false, errors.New("empty input")
	}
	ctx, err := api.ReadContext(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return isEncryptionError(err), err
	}
	return ctx.Encrypt != nil, nil
}

// isEncryptionError matches the errors pdfcpu returns once it has parsed
// the trailer and found an encryption dictionary.
func isEncryptionError(err error) bool {
	return errors.Is(err, pdfcpu.ErrWrongPassword) ||
		errors.Is(err, pdfcpu.ErrUnknownEncryption) ||
		strings.Contains(err.Error(), "pdfcpu: unsupported encryption")
}

func isImage(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return false
	}
	_, _, err := image.Decode(bytes.NewReader(data))
	return err == nil
}
