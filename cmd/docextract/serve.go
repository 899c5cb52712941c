package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/docextract/internal/server"
)

var (
	serveHost     string
	servePort     string
	manageArchive bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the extraction HTTP server",
	Long: `Run the docextract HTTP server until SIGINT or SIGTERM.

Uploads go to POST /extract-data as the multipart field "file". Run
'docextract api --help' for the client side of every route, or open
/swagger/ on a running server.

The config file is watched and provider changes apply without a restart.
With --manage-archive the server also runs the MinIO container for the
minio archive backend and stops it on shutdown.

Examples:
  docextract serve
  docextract serve --host 0.0.0.0 --port 3000
  docextract serve --manage-archive`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}
		cfg, err := loadConfig(h)
		if err != nil {
			return err
		}

		logger := stderrLogger(cfg.Get())
		cfg.SetLogger(logger)
		cfg.WatchConfig()
		if f := cfg.ConfigFile(); f != "" {
			logger.Info("using config file", "path", f)
		}

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			ConfigManager: cfg,
			Home:          h,
			ManageArchive: manageArchive,
			Logger:        logger,
		})
		if err != nil {
			return err
		}
		return srv.Start(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default: server.host)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default: server.port)")
	serveCmd.Flags().BoolVar(&manageArchive, "manage-archive", false, "Start a MinIO container for the minio archive backend")

	rootCmd.AddCommand(serveCmd)
}
