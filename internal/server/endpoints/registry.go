package endpoints

import "github.com/jackzampolin/docextract/internal/api"

// All lists every endpoint. The server mounts their routes and the CLI
// builds its api subcommands from the same list.
func All() []api.Endpoint {
	return []api.Endpoint{
		&HealthEndpoint{}, &ReadyEndpoint{}, &StatusEndpoint{},
		&ExtractEndpoint{}, &SchemasEndpoint{},
		&ListMetricsEndpoint{}, &MetricsSummaryEndpoint{},
		&ListSettingsEndpoint{}, &GetSettingEndpoint{},
		&SwaggerEndpoint{}, &SwaggerUIEndpoint{},
	}
}
