package metrics

// CostByModel returns cost breakdown by model.
func (q *Query) CostByModel(f Filter) map[string]float64 {
	return q.costBy(f, func(m Metric) string { return m.Model })
}

// CostByProvider returns cost breakdown by provider.
func (q *Query) CostByProvider(f Filter) map[string]float64 {
	return q.costBy(f, func(m Metric) string { return m.Provider })
}

// CallsBySchema counts extraction calls per schema.
func (q *Query) CallsBySchema(f Filter) map[string]int {
	f.Stage = StageExtract
	counts := make(map[string]int)
	for _, m := range q.List(f, 0) {
		counts[m.Schema]++
	}
	return counts
}

// ErrorsByType counts failed calls per error type.
func (q *Query) ErrorsByType(f Filter) map[string]int {
	failed := false
	f.Success = &failed
	counts := make(map[string]int)
	for _, m := range q.List(f, 0) {
		counts[m.ErrorType]++
	}
	return counts
}

func (q *Query) costBy(f Filter, key func(Metric) string) map[string]float64 {
	breakdown := make(map[string]float64)
	for _, m := range q.List(f, 0) {
		breakdown[key(m)] += m.CostUSD
	}
	return breakdown
}
