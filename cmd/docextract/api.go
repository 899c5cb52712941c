package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docextract/internal/api"
	"github.com/jackzampolin/docextract/internal/server/endpoints"
)

var (
	serverURL  string
	waitForAPI time.Duration
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running docextract server via HTTP.

These commands require a running server (docextract serve).
Use --server to specify a custom server URL and --wait to give a
starting server time to come up.

Examples:
  docextract api health                    # Check server health
  docextract api schemas                   # List extraction schemas
  docextract api extract card.pdf          # Extract fields from a document
  docextract api metrics summary           # Backend cost and latency
  docextract api settings get log.level    # Read one server setting`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if waitForAPI <= 0 {
			return nil
		}
		if err := api.NewClient(serverURL).WaitHealthy(cmd.Context(), waitForAPI); err != nil {
			return fmt.Errorf("server at %s not healthy after %s: %w", serverURL, waitForAPI, err)
		}
		return nil
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Backend call cost and usage",
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Server configuration settings",
}

func getServerURL() string {
	return serverURL
}

// commandGroup places an endpoint's command by its route: metrics and
// settings routes get their own subcommand, the rest sit under api.
func commandGroup(path string) *cobra.Command {
	switch {
	case strings.HasPrefix(path, "/api/metrics"):
		return metricsCmd
	case strings.HasPrefix(path, "/api/settings"):
		return settingsCmd
	}
	return apiCmd
}

func init() {
	apiCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8000", "Server URL")
	apiCmd.PersistentFlags().DurationVar(&waitForAPI, "wait", 0, "Wait up to this long for /health before calling the server")

	for _, ep := range endpoints.All() {
		_, path, _ := ep.Route()
		commandGroup(path).AddCommand(ep.Command(getServerURL))
	}
	apiCmd.AddCommand(metricsCmd, settingsCmd)
	rootCmd.AddCommand(apiCmd)
}
