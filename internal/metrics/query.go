package metrics

import "time"

// Query reads metrics from a store.
type Query struct {
	store *Store
}

// NewQuery creates a query over store.
func NewQuery(store *Store) *Query {
	return &Query{store: store}
}

// Filter specifies criteria for querying metrics. Zero fields match everything.
type Filter struct {
	RequestID string
	Stage     string
	Schema    string
	Provider  string
	Model     string
	Success   *bool
	Since     time.Time
}

func (f Filter) matches(m Metric) bool {
	if f.RequestID != "" && m.RequestID != f.RequestID {
		return false
	}
	if f.Stage != "" && m.Stage != f.Stage {
		return false
	}
	if f.Schema != "" && m.Schema != f.Schema {
		return false
	}
	if f.Provider != "" && m.Provider != f.Provider {
		return false
	}
	if f.Model != "" && m.Model != f.Model {
		return false
	}
	if f.Success != nil && m.Success != *f.Success {
		return false
	}
	if !f.Since.IsZero() && m.CreatedAt.Before(f.Since) {
		return false
	}
	return true
}

// List returns metrics matching the filter, newest first. A limit of 0 means no limit.
func (q *Query) List(f Filter, limit int) []Metric {
	var out []Metric
	if q == nil || q.store == nil {
		return out
	}
	q.store.each(func(m Metric) bool {
		if f.matches(m) {
			out = append(out, m)
		}
		return limit <= 0 || len(out) < limit
	})
	return out
}
