package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docextract/internal/api"
	"github.com/jackzampolin/docextract/internal/archive"
	"github.com/jackzampolin/docextract/internal/document"
	"github.com/jackzampolin/docextract/internal/metrics"
	"github.com/jackzampolin/docextract/internal/pipeline"
	"github.com/jackzampolin/docextract/internal/providers"
	"github.com/jackzampolin/docextract/internal/schema"
)

var (
	extractArchive bool
	extractTimings bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Run the extraction pipeline on a local file",
	Long: `Run the extraction pipeline in-process, without a server.

Providers and timeouts come from the same configuration the server uses.
The response body is printed exactly as the server would return it; a
failed run exits non-zero with the failure reason.

Examples:
  docextract extract aadhaar.pdf
  docextract extract marksheet.jpg -o json
  docextract extract tc.png --timings --log-level debug`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		h, err := getHome()
		if err != nil {
			return err
		}
		mgr, err := loadConfig(h)
		if err != nil {
			return err
		}
		c := mgr.Get()
		logger := stderrLogger(c)

		registry := providers.NewRegistryFromConfig(c.ToProviderRegistryConfig())
		registry.SetLogger(logger)
		defer registry.Close()

		schemas, err := schema.NewRegistry()
		if err != nil {
			return err
		}

		pc := c.ToPipelineConfig()
		pc.Rasterizer = document.NewRasterizer(c.ToRasterizerConfig(h.TmpPath(), logger))
		pc.Schemas = schemas
		pc.Providers = registry
		pc.Logger = logger

		usage := metrics.NewStore(0)
		pc.Metrics = metrics.NewRecorder(usage)

		if extractArchive {
			sink, err := archive.Open(ctx, c.ToArchiveConfig(h.ArchivePath()))
			if err != nil {
				return fmt.Errorf("failed to open archive: %w", err)
			}
			if sink != nil {
				defer sink.Close()
				pc.Archive = sink
			}
		}

		p, err := pipeline.New(pc)
		if err != nil {
			return err
		}

		out := p.Handle(ctx, document.Upload{Data: data, Filename: filepath.Base(args[0])})
		if extractTimings {
			sum := metrics.NewQuery(usage).Stats(metrics.Filter{})
			logger.Info("stage timings", "stages_ms", out.StageMillis(), "elapsed_ms", out.Elapsed.Milliseconds())
			logger.Info("backend usage",
				"calls", sum.Count,
				"errors", sum.ErrorCount,
				"tokens", sum.TotalTokens,
				"cost_usd", sum.TotalCostUSD)
		}
		if err := api.Output(out.Body()); err != nil {
			return err
		}
		if !out.OK() {
			return errors.New(out.Failure.Reason)
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().BoolVar(&extractArchive, "archive", false, "Archive the upload and outcome to the configured backends")
	extractCmd.Flags().BoolVar(&extractTimings, "timings", false, "Log per-stage timings and backend usage")

	rootCmd.AddCommand(extractCmd)
}
