package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyOutput is returned when a model response has no content.
	ErrEmptyOutput = errors.New("empty structured output")
	// ErrMalformedOutput is returned when a response is not a JSON object.
	ErrMalformedOutput = errors.New("malformed structured output")
)

// ParseStructuredJSON decodes a model response into a JSON object. The only
// normalization is trimming whitespace and a surrounding code fence.
// Numbers are decoded as json.Number.
func ParseStructuredJSON(content string) (map[string]any, error) {
	content = unfence(content)
	if content == "" {
		return nil, ErrEmptyOutput
	}

	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrMalformedOutput)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected object, got %T", ErrMalformedOutput, v)
	}
	return obj, nil
}

// unfence trims content and removes a ``` fence around it, including the
// language tag on the opening line.
func unfence(content string) string {
	s := strings.TrimSpace(content)
	body, ok := strings.CutPrefix(s, "```")
	if !ok {
		return s
	}
	if tag, rest, found := strings.Cut(body, "\n"); found {
		body = rest
	} else {
		body = strings.TrimLeftFunc(tag, isASCIILetter)
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}

func isASCIILetter(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}

// openRouterFormat translates rf for the model OpenRouter will route to.
// A nil format means the prompt alone asks for JSON.
func openRouterFormat(model string, rf *ResponseFormat) (*openRouterResponseFormat, error) {
	if rf == nil {
		return nil, nil
	}
	schema := rf.JSONSchema
	switch modelVendor(model) {
	case "anthropic":
		// Some anthropic/* routes reject native structured output.
		return nil, nil
	case "gemini":
		if len(schema) > 0 {
			var err error
			if schema, err = geminiSchema(schema); err != nil {
				return nil, err
			}
		}
	}
	return &openRouterResponseFormat{Type: rf.Type, JSONSchema: schema}, nil
}

// modelVendor returns "anthropic", "gemini" or "" for a model slug.
func modelVendor(model string) string {
	m := strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(m, "anthropic/"):
		return "anthropic"
	case strings.HasPrefix(m, "google/gemini"), strings.HasPrefix(m, "gemini"):
		return "gemini"
	}
	return ""
}

// geminiSchema rewrites {"type":["string","null"]} as
// {"type":"string","nullable":true}; Gemini rejects type unions.
func geminiSchema(raw json.RawMessage) (json.RawMessage, error) {
	var root any
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("failed to parse structured schema: %w", err)
	}
	walkObjects(root, func(obj map[string]any) {
		types, ok := obj["type"].([]any)
		if !ok || len(types) != 2 {
			return
		}
		switch {
		case types[0] == "null":
			obj["type"] = types[1]
		case types[1] == "null":
			obj["type"] = types[0]
		default:
			return
		}
		obj["nullable"] = true
	})
	out, err := json.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("failed to encode structured schema: %w", err)
	}
	return out, nil
}

// walkObjects calls fn on every JSON object in v, parents first.
func walkObjects(v any, fn func(map[string]any)) {
	switch n := v.(type) {
	case map[string]any:
		fn(n)
		for _, child := range n {
			walkObjects(child, fn)
		}
	case []any:
		for _, child := range n {
			walkObjects(child, fn)
		}
	}
}
