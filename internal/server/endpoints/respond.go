package endpoints

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jackzampolin/docextract/internal/api"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse = api.ErrorResponse

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// fetch GETs path and prints the decoded response. text renders it for the
// text output format; without it the response is printed as JSON.
func fetch[T any](ctx context.Context, baseURL, path string, text func(T)) error {
	var resp T
	if err := api.NewClient(baseURL).Get(ctx, path, &resp); err != nil {
		return err
	}
	if text == nil || api.IsStructuredOutput() {
		return api.Output(resp)
	}
	text(resp)
	return nil
}
