package endpoints

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docextract/internal/api"
	"github.com/jackzampolin/docextract/internal/classify"
	"github.com/jackzampolin/docextract/internal/schema"
	"github.com/jackzampolin/docextract/internal/svcctx"
)

// SchemaInfo describes one extraction schema.
type SchemaInfo struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
	Fields     []string `json:"fields"`
	PromptHash string   `json:"prompt_hash"`
}

// CategoryInfo describes one classifier rule.
type CategoryInfo struct {
	Category string   `json:"category"`
	Label    string   `json:"label"`
	Keywords []string `json:"keywords"`
}

// SchemasResponse lists the extraction schemas and the classifier rules that
// route documents to them, in match priority order.
type SchemasResponse struct {
	Schemas    []SchemaInfo   `json:"schemas"`
	Categories []CategoryInfo `json:"categories"`
}

// SchemasEndpoint handles GET /api/schemas.
type SchemasEndpoint struct{}

var _ api.Endpoint = (*SchemasEndpoint)(nil)

func (e *SchemasEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/schemas", e.handler
}

func (e *SchemasEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		List schemas
//	@Description	Lists extraction schemas with their categories and fields, plus the classifier keyword rules
//	@Tags			schemas
//	@Produce		json
//	@Success		200	{object}	SchemasResponse
//	@Router			/api/schemas [get]
func (e *SchemasEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	reg := svcctx.SchemasFrom(r.Context())
	if reg == nil {
		reg = schema.MustRegistry()
	}
	writeJSON(w, http.StatusOK, describeSchemas(reg))
}

func describeSchemas(reg *schema.Registry) SchemasResponse {
	resp := SchemasResponse{Schemas: []SchemaInfo{}, Categories: []CategoryInfo{}}
	for _, s := range reg.List() {
		info := SchemaInfo{
			Name:       s.Name,
			Fields:     s.FieldNames(),
			PromptHash: s.PromptHash,
		}
		for _, c := range s.Categories {
			info.Categories = append(info.Categories, c.String())
		}
		resp.Schemas = append(resp.Schemas, info)
	}
	for _, c := range classify.Categories() {
		resp.Categories = append(resp.Categories, CategoryInfo{
			Category: c.String(),
			Label:    c.Label(),
			Keywords: classify.Keywords(c),
		})
	}
	return resp
}

func (e *SchemasEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "schemas",
		Short: "List extraction schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fetch(cmd.Context(), getServerURL(), "/api/schemas", func(resp SchemasResponse) {
				for _, s := range resp.Schemas {
					fmt.Printf("%s (%s)\n", s.Name, strings.Join(s.Categories, ", "))
					for _, f := range s.Fields {
						fmt.Printf("  %s\n", f)
					}
				}
				fmt.Println("\nClassifier (first match wins):")
				for _, c := range resp.Categories {
					fmt.Printf("  %-4s %s: %s\n", c.Category, c.Label, strings.Join(c.Keywords, ", "))
				}
			})
		},
	}
}
