package metrics

import "sort"

// Stats aggregates a set of metrics. Latencies are in seconds and ignore
// calls that never reached the backend.
type Stats struct {
	Count        int     `json:"count"`
	SuccessCount int     `json:"success_count"`
	ErrorCount   int     `json:"error_count"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	AvgCostUSD   float64 `json:"avg_cost_usd"`

	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	AvgTotalTokens   float64 `json:"avg_total_tokens"`

	LatencyMin float64 `json:"latency_min"`
	LatencyAvg float64 `json:"latency_avg"`
	LatencyP50 float64 `json:"latency_p50"`
	LatencyP95 float64 `json:"latency_p95"`
	LatencyMax float64 `json:"latency_max"`

	latencies []float64
}

func (s *Stats) add(m Metric) {
	s.Count++
	if m.Success {
		s.SuccessCount++
	} else {
		s.ErrorCount++
	}
	s.TotalCostUSD += m.CostUSD
	s.PromptTokens += m.PromptTokens
	s.CompletionTokens += m.CompletionTokens
	s.TotalTokens += m.TotalTokens
	if m.ExecutionSeconds > 0 {
		s.latencies = append(s.latencies, m.ExecutionSeconds)
	}
}

func (s *Stats) finish() *Stats {
	if s.Count > 0 {
		s.AvgCostUSD = s.TotalCostUSD / float64(s.Count)
		s.AvgTotalTokens = float64(s.TotalTokens) / float64(s.Count)
	}
	if n := len(s.latencies); n > 0 {
		sort.Float64s(s.latencies)
		var sum float64
		for _, l := range s.latencies {
			sum += l
		}
		s.LatencyMin = s.latencies[0]
		s.LatencyMax = s.latencies[n-1]
		s.LatencyAvg = sum / float64(n)
		s.LatencyP50 = percentile(s.latencies, 50)
		s.LatencyP95 = percentile(s.latencies, 95)
	}
	s.latencies = nil
	return s
}

// Stats aggregates every metric matching f.
func (q *Query) Stats(f Filter) *Stats {
	s := &Stats{}
	for _, m := range q.List(f, 0) {
		s.add(m)
	}
	return s.finish()
}

// StatsBy groups matching metrics by key. Metrics with an empty key are
// skipped.
func (q *Query) StatsBy(f Filter, key func(Metric) string) map[string]*Stats {
	groups := make(map[string]*Stats)
	for _, m := range q.List(f, 0) {
		k := key(m)
		if k == "" {
			continue
		}
		if groups[k] == nil {
			groups[k] = &Stats{}
		}
		groups[k].add(m)
	}
	for _, s := range groups {
		s.finish()
	}
	return groups
}

// StageStats groups matching metrics by pipeline stage.
func (q *Query) StageStats(f Filter) map[string]*Stats {
	return q.StatsBy(f, func(m Metric) string { return m.Stage })
}

// percentile interpolates the p-th percentile of sorted values.
func percentile(sorted []float64, p float64) float64 {
	switch len(sorted) {
	case 0:
		return 0
	case 1:
		return sorted[0]
	}
	idx := p / 100 * float64(len(sorted)-1)
	lower := int(idx)
	if lower+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	w := idx - float64(lower)
	return sorted[lower]*(1-w) + sorted[lower+1]*w
}
