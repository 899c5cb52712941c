package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docextract/internal/api"
	"github.com/jackzampolin/docextract/internal/document"
	"github.com/jackzampolin/docextract/internal/svcctx"
)

// UploadField is the multipart field carrying the document.
const UploadField = "file"

// maxFormMemory bounds the in-memory part of a parsed multipart form.
const maxFormMemory = 32 << 20

// ExtractEndpoint handles POST /extract-data with a multipart file upload.
type ExtractEndpoint struct{}

var _ api.Endpoint = (*ExtractEndpoint)(nil)

func (e *ExtractEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/extract-data", e.handler
}

func (e *ExtractEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Extract document fields
//	@Description	Detects the upload format, classifies the document from its first page and extracts the fields of the matching schema
//	@Tags			extract
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"PDF or image to extract"
//	@Success		200		{object}	pipeline.SuccessBody
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/extract-data [post]
func (e *ExtractEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if limit := svcctx.MaxUploadFrom(ctx); limit > 0 {
		if r.ContentLength > limit {
			writeError(w, http.StatusBadRequest, tooLargeMessage(limit))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		svcctx.LoggerFrom(ctx).Debug("rejected upload", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, tooLargeMessage(tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(UploadField)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("missing %q file field", UploadField))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read upload: %v", err))
		return
	}

	out := svcctx.PipelineFrom(ctx).Handle(ctx, document.Upload{
		Data:     data,
		Filename: header.Filename,
	})
	writeJSON(w, out.Status(), out.Body())
}

func tooLargeMessage(limit int64) string {
	return fmt.Sprintf("upload exceeds the %d byte limit", limit)
}

func (e *ExtractEndpoint) Command(getServerURL func() string) *cobra.Command {
	var requestID string
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Upload a document and print the extracted fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			client := api.NewClient(getServerURL(), api.WithRequestID(requestID))
			var resp json.RawMessage
			if err := client.PostFile(cmd.Context(), "/extract-data", UploadField, filepath.Base(args[0]), data, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&requestID, "request-id", "", "Request id to send; find its metrics with 'metrics list --request-id'")
	return cmd
}
