package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docextract/internal/api"
	"github.com/jackzampolin/docextract/internal/config"
	"github.com/jackzampolin/docextract/internal/home"
	"github.com/jackzampolin/docextract/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "docextract",
	Short: "Classify identity and academic documents and extract their fields",
	Long: `docextract turns an uploaded PDF or image into structured data.

Each document goes through a fixed pipeline:
  - Format detection (PDF or image) and rendering of the first page
  - A text probe that transcribes the page for classification
  - Keyword classification: Aadhaar card, marksheet or transfer certificate
  - Field extraction with a vision model and the category's schema`,
	Version:      version.GitRelease,
	SilenceUsage: true,
}

func init() {
	// Persistent hooks on subcommands (api --wait) run alongside this one.
	cobra.EnableTraverseRunHooks = true

	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.docextract/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "docextract home directory (default: $DOCEXTRACT_HOME or ~/.docextract)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml, json or text",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level override: debug, info, warn or error",
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// getHome returns the home directory manager.
func getHome() (*home.Dir, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, fmt.Errorf("failed to create home directory: %w", err)
	}
	return h, nil
}

// loadConfig reads --config, falling back to the home directory's config.
func loadConfig(h *home.Dir) (*config.Manager, error) {
	var searchPaths []string
	if h != nil {
		searchPaths = append(searchPaths, h.Path())
	}
	mgr, err := config.NewManager(cfgFile, searchPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return mgr, nil
}

// newLogger builds the slog handler selected by log.format and log.level,
// with --log-level taking precedence.
func newLogger(c *config.Config, w io.Writer) *slog.Logger {
	level := c.Log.Level
	if logLevel != "" {
		level = logLevel
	}

	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func stderrLogger(c *config.Config) *slog.Logger {
	return newLogger(c, os.Stderr)
}
