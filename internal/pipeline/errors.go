package pipeline

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackzampolin/docextract/internal/document"
	"github.com/jackzampolin/docextract/internal/schema"
)

// Failure classes. Every error returned by a stage wraps exactly one.
var (
	ErrUnsupportedFormat    = errors.New("unsupported format")
	ErrConversionFailed     = errors.New("conversion failed")
	ErrUnrecognizedDocument = errors.New("unrecognized document type")
	ErrExtractionFailed     = errors.New("extraction failed")
	ErrInternal             = errors.New("internal error")
)

// Error is a stage failure: the class, the state being entered and the cause.
type Error struct {
	Class error
	Stage State
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Class)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Class, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Class}
	}
	return []error{e.Class, e.Err}
}

// Failure is what a caller sees for a failed run.
type Failure struct {
	Class  error  `json:"-"`
	Kind   string `json:"kind"`
	Reason string `json:"error"`
	Status int    `json:"status"`
}

// Client reports whether the failure was caused by the upload.
func (f *Failure) Client() bool { return f.Status < http.StatusInternalServerError }

// Classify maps any error to a Failure. Errors that carry no known class are
// internal and surface their own text.
func Classify(err error, filename string) *Failure {
	if err == nil {
		return nil
	}
	name := filename
	if name == "" {
		name = "upload"
	}

	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return &Failure{
			Class:  ErrUnsupportedFormat,
			Kind:   "UnsupportedFormat",
			Reason: "Unsupported file format. Upload a valid PDF or image.",
			Status: http.StatusBadRequest,
		}
	case errors.Is(err, ErrConversionFailed), errors.Is(err, document.ErrConversion):
		return &Failure{
			Class:  ErrConversionFailed,
			Kind:   "ConversionFailed",
			Reason: "Failed to process " + name,
			Status: http.StatusBadRequest,
		}
	case errors.Is(err, ErrUnrecognizedDocument), errors.Is(err, schema.ErrUnsupportedCategory):
		return &Failure{
			Class:  ErrUnrecognizedDocument,
			Kind:   "UnrecognizedDocumentType",
			Reason: "Could not detect document type. Ensure it's an Aadhaar card or marksheet.",
			Status: http.StatusBadRequest,
		}
	case errors.Is(err, ErrExtractionFailed):
		return &Failure{
			Class:  ErrExtractionFailed,
			Kind:   "ExtractionFailed",
			Reason: "Failed to extract data from " + name,
			Status: http.StatusBadRequest,
		}
	}

	reason := err.Error()
	var pe *Error
	if errors.As(err, &pe) && pe.Err != nil {
		reason = pe.Err.Error()
	}
	return &Failure{
		Class:  ErrInternal,
		Kind:   "InternalError",
		Reason: reason,
		Status: http.StatusInternalServerError,
	}
}
