package schema

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Result is an extraction keyed by declared field name. A nil value is an
// explicit null. Immutable once returned by Project.
type Result struct {
	fields []string
	values map[string]*string
}

// Fields returns the field names in declared order.
func (r Result) Fields() []string {
	return append([]string(nil), r.fields...)
}

// Get returns the value of a field and whether it is non-null.
func (r Result) Get(name string) (string, bool) {
	v := r.values[name]
	if v == nil {
		return "", false
	}
	return *v, true
}

// Len is the number of declared fields.
func (r Result) Len() int { return len(r.fields) }

// Map returns a copy as a plain map, nulls as nil.
func (r Result) Map() map[string]any {
	out := make(map[string]any, len(r.fields))
	for _, f := range r.fields {
		if v := r.values[f]; v != nil {
			out[f] = *v
		} else {
			out[f] = nil
		}
	}
	return out
}

// MarshalJSON writes a flat object in declared field order.
func (r Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if v := r.values[f]; v != nil {
			val, err := json.Marshal(*v)
			if err != nil {
				return nil, err
			}
			buf.Write(val)
		} else {
			buf.WriteString("null")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Report lists how a response differed from the declared fields.
type Report struct {
	// Present are declared fields found in the response (null or not).
	Present []string `json:"present,omitempty"`
	// Missing are declared fields absent from the response, set to null.
	Missing []string `json:"missing,omitempty"`
	// Extra are undeclared keys that were dropped.
	Extra []string `json:"extra,omitempty"`
	// Rejected are values that failed field normalization, set to null.
	Rejected []string `json:"rejected,omitempty"`
}

// Empty reports whether the response carried none of the declared fields.
func (r Report) Empty() bool { return len(r.Present) == 0 }

// Project maps a validated response object onto the declared fields.
// Call Validate first; non-scalar values are rejected here as well.
func (s *Schema) Project(doc map[string]any) (Result, Report) {
	res := Result{
		fields: s.FieldNames(),
		values: make(map[string]*string, len(s.Fields)),
	}
	var rep Report

	for _, f := range s.Fields {
		raw, ok := doc[f.Name]
		if !ok {
			rep.Missing = append(rep.Missing, f.Name)
			res.values[f.Name] = nil
			continue
		}
		rep.Present = append(rep.Present, f.Name)

		v, ok := scalarString(raw)
		if !ok {
			rep.Rejected = append(rep.Rejected, f.Name)
			res.values[f.Name] = nil
			continue
		}
		if v == "" {
			res.values[f.Name] = nil
			continue
		}
		if f.normalize != nil {
			norm, ok := f.normalize(v)
			if !ok {
				rep.Rejected = append(rep.Rejected, f.Name)
				res.values[f.Name] = nil
				continue
			}
			v = norm
		}
		res.values[f.Name] = &v
	}

	for k := range doc {
		if _, ok := s.index[k]; !ok {
			rep.Extra = append(rep.Extra, k)
		}
	}
	sort.Strings(rep.Extra)

	return res, rep
}

// scalarString renders a decoded JSON scalar as text. Strings are trimmed and
// the literal "null" is treated as a null.
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		s := strings.TrimSpace(t)
		if strings.EqualFold(s, "null") {
			return "", true
		}
		return s, true
	case json.Number:
		return plainNumber(t.String()), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		if t {
			return "true", true
		}
		return "false", true
	default:
		return "", false
	}
}

// plainNumber drops a zero fraction so 523.0 and 523 read the same. Strings
// never reach here; a quoted "10.0" is kept as printed.
func plainNumber(n string) string {
	if !strings.Contains(n, ".") || strings.ContainsAny(n, "eE") {
		return n
	}
	n = strings.TrimRight(n, "0")
	return strings.TrimSuffix(n, ".")
}

// NewResult builds a Result from explicit values; fields not in values are null.
// Intended for tests and clients decoding stored results.
func (s *Schema) NewResult(values map[string]string) Result {
	res := Result{fields: s.FieldNames(), values: make(map[string]*string, len(s.Fields))}
	for _, f := range s.Fields {
		if v, ok := values[f.Name]; ok {
			v := v
			res.values[f.Name] = &v
		} else {
			res.values[f.Name] = nil
		}
	}
	return res
}
