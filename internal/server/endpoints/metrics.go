package endpoints

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docextract/internal/api"
	"github.com/jackzampolin/docextract/internal/metrics"
	"github.com/jackzampolin/docextract/internal/svcctx"
)

// defaultMetricsLimit caps GET /api/metrics when no limit is given.
const defaultMetricsLimit = 100

// MetricsResponse lists recorded backend calls, newest first.
type MetricsResponse struct {
	Metrics []metrics.Metric `json:"metrics"`
}

// MetricsSummaryResponse aggregates recorded backend calls.
type MetricsSummaryResponse struct {
	Total          *metrics.Stats            `json:"total"`
	ByStage        map[string]*metrics.Stats `json:"by_stage"`
	CostByProvider map[string]float64        `json:"cost_by_provider"`
	CostByModel    map[string]float64        `json:"cost_by_model"`
	CallsBySchema  map[string]int            `json:"calls_by_schema"`
	ErrorsByType   map[string]int            `json:"errors_by_type"`
}

// parseFilter reads the shared metrics query parameters.
func parseFilter(q url.Values) (metrics.Filter, error) {
	f := metrics.Filter{
		RequestID: q.Get("request_id"),
		Stage:     q.Get("stage"),
		Schema:    q.Get("schema"),
		Provider:  q.Get("provider"),
		Model:     q.Get("model"),
	}
	if v := q.Get("success"); v != "" {
		ok, err := strconv.ParseBool(v)
		if err != nil {
			return f, fmt.Errorf("invalid success %q", v)
		}
		f.Success = &ok
	}
	if v := q.Get("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return f, fmt.Errorf("invalid since %q: want a positive duration like 1h", v)
		}
		f.Since = time.Now().Add(-d)
	}
	return f, nil
}

// ListMetricsEndpoint handles GET /api/metrics.
type ListMetricsEndpoint struct{}

var _ api.Endpoint = (*ListMetricsEndpoint)(nil)

func (e *ListMetricsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/metrics", e.handler
}

func (e *ListMetricsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List backend calls
//	@Description	Recent OCR and LLM calls made by the pipeline, newest first
//	@Tags			metrics
//	@Produce		json
//	@Param			request_id	query		string	false	"Request ID"
//	@Param			stage		query		string	false	"probe or extract"
//	@Param			schema		query		string	false	"Schema name"
//	@Param			provider	query		string	false	"Provider name"
//	@Param			model		query		string	false	"Model name"
//	@Param			success		query		bool	false	"Only successful or only failed calls"
//	@Param			since		query		string	false	"Look-back window, e.g. 1h"
//	@Param			limit		query		int		false	"Maximum results (default 100, 0 for all)"
//	@Success		200			{object}	MetricsResponse
//	@Failure		400			{object}	ErrorResponse
//	@Failure		503			{object}	ErrorResponse
//	@Router			/api/metrics [get]
func (e *ListMetricsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := defaultMetricsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
	}

	q := metrics.NewQuery(svcctx.MetricsFrom(r.Context()))
	resp := MetricsResponse{Metrics: q.List(f, limit)}
	if resp.Metrics == nil {
		resp.Metrics = []metrics.Metric{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ListMetricsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var stage, provider, requestID, since string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent backend calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := metricsParams(requestID, stage, provider, since)
			params.Set("limit", strconv.Itoa(limit))

			return fetch[MetricsResponse](cmd.Context(), getServerURL(), "/api/metrics?"+params.Encode(), nil)
		},
	}
	cmd.Flags().StringVar(&requestID, "request-id", "", "Filter by request ID")
	cmd.Flags().StringVar(&stage, "stage", "", "Filter by stage (probe or extract)")
	cmd.Flags().StringVar(&provider, "provider", "", "Filter by provider")
	cmd.Flags().StringVar(&since, "since", "", "Look-back window, e.g. 1h")
	cmd.Flags().IntVar(&limit, "limit", defaultMetricsLimit, "Maximum results (0 for all)")
	return cmd
}

// MetricsSummaryEndpoint handles GET /api/metrics/summary.
type MetricsSummaryEndpoint struct{}

var _ api.Endpoint = (*MetricsSummaryEndpoint)(nil)

func (e *MetricsSummaryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/metrics/summary", e.handler
}

func (e *MetricsSummaryEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Summarize backend calls
//	@Description	Cost, token and latency statistics for recorded OCR and LLM calls
//	@Tags			metrics
//	@Produce		json
//	@Param			request_id	query		string	false	"Request ID"
//	@Param			stage		query		string	false	"probe or extract"
//	@Param			schema		query		string	false	"Schema name"
//	@Param			provider	query		string	false	"Provider name"
//	@Param			model		query		string	false	"Model name"
//	@Param			since		query		string	false	"Look-back window, e.g. 1h"
//	@Success		200			{object}	MetricsSummaryResponse
//	@Failure		400			{object}	ErrorResponse
//	@Failure		503			{object}	ErrorResponse
//	@Router			/api/metrics/summary [get]
func (e *MetricsSummaryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := metrics.NewQuery(svcctx.MetricsFrom(r.Context()))
	writeJSON(w, http.StatusOK, MetricsSummaryResponse{
		Total:          q.Stats(f),
		ByStage:        q.StageStats(f),
		CostByProvider: q.CostByProvider(f),
		CostByModel:    q.CostByModel(f),
		CallsBySchema:  q.CallsBySchema(f),
		ErrorsByType:   q.ErrorsByType(f),
	})
}

func (e *MetricsSummaryEndpoint) Command(getServerURL func() string) *cobra.Command {
	var stage, provider, requestID, since string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize backend cost, tokens and latency",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/metrics/summary"
			if params := metricsParams(requestID, stage, provider, since); len(params) > 0 {
				path += "?" + params.Encode()
			}

			return fetch[MetricsSummaryResponse](cmd.Context(), getServerURL(), path, nil)
		},
	}
	cmd.Flags().StringVar(&requestID, "request-id", "", "Filter by request ID")
	cmd.Flags().StringVar(&stage, "stage", "", "Filter by stage (probe or extract)")
	cmd.Flags().StringVar(&provider, "provider", "", "Filter by provider")
	cmd.Flags().StringVar(&since, "since", "", "Look-back window, e.g. 1h")
	return cmd
}

func metricsParams(requestID, stage, provider, since string) url.Values {
	params := url.Values{}
	for k, v := range map[string]string{
		"request_id": requestID,
		"stage":      stage,
		"provider":   provider,
		"since":      since,
	} {
		if v != "" {
			params.Set(k, v)
		}
	}
	return params
}
