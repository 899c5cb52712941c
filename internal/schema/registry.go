package schema

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"unicode"

	"github.com/jackzampolin/docextract/internal/classify"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var templates = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

// ErrUnsupportedCategory is returned for categories without a schema.
var ErrUnsupportedCategory = errors.New("unsupported document category")

var aadhaarFields = []Field{
	{Name: "name", Description: "Full name of the card holder"},
	{Name: "date_of_birth", Description: "Date of birth as printed (DD/MM/YYYY)"},
	{Name: "gender", Description: "Gender as printed"},
	{Name: "aadhaar_number", Description: "12-digit Aadhaar number, digits only", normalize: aadhaarNumber},
	{Name: "address", Description: "Full address including house number, street, city, state and PIN"},
	{Name: "parent", Description: "Relationship/guardian name printed after S/O, D/O, C/O or W/O"},
}

var academicFields = []Field{
	{Name: "full_name", Description: "Student's full name"},
	{Name: "hall_ticket_number", Description: `Value labeled "Hall Ticket Number", "Roll Number", "Registered Number" or a similar variation`},
	{Name: "board_of_education", Description: `Course or board of education (e.g., "SSC Board", "CBSE", "ICSE")`},
	{Name: "religion", Description: "Religion of the student, only if explicitly mentioned"},
	{Name: "total_marks", Description: "Total marks as printed; if no total is printed, the sum of the marks obtained in each subject"},
	{Name: "identifying_marks", Description: "Identifying marks, moles or physical features, if mentioned"},
	{Name: "mother_name", Description: "Mother's name"},
	{Name: "father_name", Description: "Father's name"},
}

// Registry maps categories to schemas. Read-only after NewRegistry returns.
type Registry struct {
	schemas    []*Schema
	byCategory map[classify.Category]*Schema
}

// NewRegistry builds and compiles the built-in schemas.
func NewRegistry() (*Registry, error) {
	aadhaar, err := build("aadhaar",
		[]classify.Category{classify.Aadhaar},
		aadhaarFields, templates.Lookup("aadhaar.tmpl"), "Aadhaar card")
	if err != nil {
		return nil, err
	}
	academic, err := build("academic",
		[]classify.Category{classify.Marksheet, classify.TransferCertificate},
		academicFields, templates.Lookup("academic.tmpl"), "marksheet or transfer certificate")
	if err != nil {
		return nil, err
	}

	r := &Registry{byCategory: make(map[classify.Category]*Schema)}
	for _, s := range []*Schema{aadhaar, academic} {
		r.schemas = append(r.schemas, s)
		for _, c := range s.Categories {
			r.byCategory[c] = s
		}
	}
	return r, nil
}

// MustRegistry is NewRegistry for callers that cannot proceed without it.
func MustRegistry() *Registry {
	r, err := NewRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

// For returns the schema for a category.
func (r *Registry) For(c classify.Category) (*Schema, error) {
	s, ok := r.byCategory[c]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCategory, c)
	}
	return s, nil
}

// List returns all schemas in registration order.
func (r *Registry) List() []*Schema {
	out := make([]*Schema, len(r.schemas))
	copy(out, r.schemas)
	return out
}

// hashText returns a SHA256 hash of the text for change detection.
func hashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// aadhaarNumber strips separators and accepts exactly 12 digits.
func aadhaarNumber(v string) (string, bool) {
	var b strings.Builder
	for _, r := range v {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '.':
		default:
			return "", false
		}
	}
	digits := b.String()
	if len(digits) != 12 {
		return "", false
	}
	return digits, true
}
