// Package schema holds the per-category extraction schemas: the field list,
// the prompt sent to the extraction model and the JSON Schema used to check
// its response.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jackzampolin/docextract/internal/classify"
)

// Field is one value extracted from a document.
type Field struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// normalize cleans a non-empty value; ok=false rejects it to null.
	normalize func(string) (value string, ok bool)
}

// Schema describes what to extract for one or more categories.
type Schema struct {
	Name       string              `json:"name"`
	Categories []classify.Category `json:"categories"`
	Fields     []Field             `json:"fields"`
	Prompt     string              `json:"prompt"`
	PromptHash string              `json:"prompt_hash"`

	response  json.RawMessage
	validator *jsonschema.Schema
	index     map[string]int
}

// FieldNames returns the declared field names in order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// ResponseSchema returns the strict json_schema wrapper sent to backends that
// support structured outputs.
func (s *Schema) ResponseSchema() json.RawMessage {
	return s.response
}

// Validate checks a decoded response against the field shape: an object
// whose declared fields hold scalars or null.
func (s *Schema) Validate(doc any) error {
	if err := s.validator.Validate(doc); err != nil {
		return fmt.Errorf("response does not match %s schema: %w", s.Name, err)
	}
	return nil
}

func build(name string, categories []classify.Category, fields []Field, tmpl *template.Template, document string) (*Schema, error) {
	s := &Schema{
		Name:       name,
		Categories: categories,
		Fields:     fields,
		index:      make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("schema %s: duplicate field %q", name, f.Name)
		}
		s.index[f.Name] = i
	}

	example, err := exampleJSON(fields)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	data := struct {
		Fields   []Field
		Example  string
		Document string
	}{Fields: fields, Example: example, Document: document}
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("schema %s: render prompt: %w", name, err)
	}
	s.Prompt = strings.TrimSpace(buf.String())
	s.PromptHash = hashText(s.Prompt)

	if s.response, err = json.Marshal(responseSchema(name, fields)); err != nil {
		return nil, fmt.Errorf("schema %s: marshal response schema: %w", name, err)
	}
	if s.validator, err = compile(name, validationSchema(fields)); err != nil {
		return nil, err
	}
	return s, nil
}

// exampleJSON renders {"field": null, ...} in declared order.
func exampleJSON(fields []Field) (string, error) {
	var b strings.Builder
	b.WriteString("{\n")
	for i, f := range fields {
		key, err := json.Marshal(f.Name)
		if err != nil {
			return "", err
		}
		b.WriteString("  ")
		b.Write(key)
		b.WriteString(": null")
		if i < len(fields)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String(), nil
}

func responseSchema(name string, fields []Field) map[string]any {
	props := make(map[string]any, len(fields))
	required := make([]string, len(fields))
	for i, f := range fields {
		props[f.Name] = map[string]any{
			"type":        []string{"string", "null"},
			"description": f.Description,
		}
		required[i] = f.Name
	}
	return map[string]any{
		"name":   name + "_extraction",
		"strict": true,
		"schema": map[string]any{
			"type":                 "object",
			"properties":           props,
			"required":             required,
			"additionalProperties": false,
		},
	}
}

// validationSchema is looser than the response schema: models without
// structured outputs often return numbers for numeric fields, and undeclared
// keys are dropped later rather than rejected.
func validationSchema(fields []Field) map[string]any {
	props := make(map[string]any, len(fields))
	for _, f := range fields {
		props[f.Name] = map[string]any{
			"type": []string{"string", "number", "integer", "boolean", "null"},
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}

func compile(name string, doc map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("schema %s: marshal validation schema: %w", name, err)
	}
	url := name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("schema %s: load validation schema: %w", name, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("schema %s: compile validation schema: %w", name, err)
	}
	return compiled, nil
}
