package pipeline

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackzampolin/docextract/internal/document"
	"github.com/jackzampolin/docextract/internal/schema"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   string
		wantStatus int
		wantReason string
	}{
		{"unsupported", &Error{Class: ErrUnsupportedFormat, Stage: StateFormatChecked}, "UnsupportedFormat", 400, "Unsupported file format. Upload a valid PDF or image."},
		{"conversion", &Error{Class: ErrConversionFailed, Stage: StateRasterized, Err: document.ErrEncrypted}, "ConversionFailed", 400, "Failed to process a.pdf"},
		{"bare conversion", fmt.Errorf("render: %w", document.ErrConversion), "ConversionFailed", 400, "Failed to process a.pdf"},
		{"unrecognized", &Error{Class: ErrUnrecognizedDocument, Stage: StateClassified}, "UnrecognizedDocumentType", 400, "Could not detect document type. Ensure it's an Aadhaar card or marksheet."},
		{"unsupported category", schema.ErrUnsupportedCategory, "UnrecognizedDocumentType", 400, "Could not detect document type. Ensure it's an Aadhaar card or marksheet."},
		{"extraction", &Error{Class: ErrExtractionFailed, Stage: StateExtracted, Err: errors.New("bad json")}, "ExtractionFailed", 400, "Failed to extract data from a.pdf"},
		{"internal", &Error{Class: ErrInternal, Stage: StateRasterized, Err: errors.New("no space left on device")}, "InternalError", 500, "no space left on device"},
		{"unknown error", errors.New("boom"), "InternalError", 500, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Classify(tt.err, "a.pdf")
			if f.Kind != tt.wantKind || f.Status != tt.wantStatus || f.Reason != tt.wantReason {
				t.Errorf("Classify() = %+v", f)
			}
			if f.Client() != (tt.wantStatus == http.StatusBadRequest) {
				t.Errorf("Client() = %v", f.Client())
			}
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	if Classify(nil, "a.pdf") != nil {
		t.Error("expected nil failure for nil error")
	}
}

func TestClassify_EmptyFilename(t *testing.T) {
	f := Classify(&Error{Class: ErrExtractionFailed, Stage: StateExtracted}, "")
	if f.Reason != "Failed to extract data from upload" {
		t.Errorf("Reason = %q", f.Reason)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := document.ErrEncrypted
	err := &Error{Class: ErrConversionFailed, Stage: StateRasterized, Err: cause}

	if !errors.Is(err, ErrConversionFailed) || !errors.Is(err, document.ErrConversion) {
		t.Error("Error should match its class and cause")
	}
	if errors.Is(err, ErrInternal) {
		t.Error("Error matched the wrong class")
	}
	if got := err.Error(); got != "RASTERIZED: conversion failed: document conversion failed: document is encrypted" {
		t.Errorf("Error() = %q", got)
	}
}

func TestState_Terminal(t *testing.T) {
	for _, s := range States {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	if !StateDone.Terminal() || !StateFailed.Terminal() {
		t.Error("DONE and FAILED are terminal")
	}
}
