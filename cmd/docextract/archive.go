package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docextract/internal/archive"
)

var archiveWaitTimeout time.Duration

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage the local MinIO used by the minio archive backend",
	Long: `Manage the MinIO container behind the minio archive backend.

Objects are kept in the home directory's minio/ folder, so removing the
container never removes archived uploads. The container's root
credentials are archive.minio.access_key and archive.minio.secret_key.

Examples:
  docextract archive start
  docextract archive status
  docextract archive wait --timeout 1m
  docextract archive stop
  docextract archive remove`,
}

// withManager builds a DockerManager for the configured home and closes it
// after fn returns.
func withManager(fn func(ctx context.Context, m *archive.DockerManager) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}
		if err := h.EnsureMinioDir(); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		cfg, err := loadConfig(h)
		if err != nil {
			return err
		}
		m, err := archive.NewDockerManager(cfg.Get().ToDockerConfig(h.Path(), h.MinioDataPath()))
		if err != nil {
			return err
		}
		defer m.Close()
		return fn(cmd.Context(), m)
	}
}

func init() {
	archiveCmd.AddCommand(
		&cobra.Command{
			Use:   "start",
			Short: "Create or start the container and wait until MinIO is live",
			RunE: withManager(func(ctx context.Context, m *archive.DockerManager) error {
				fmt.Printf("Starting %s...\n", m.ContainerName())
				if err := m.Start(ctx); err != nil {
					return fmt.Errorf("failed to start MinIO: %w", err)
				}
				fmt.Printf("MinIO is running at %s\n", m.URL())
				return nil
			}),
		},
		&cobra.Command{
			Use:   "stop",
			Short: "Stop the container; 'archive start' resumes it",
			RunE: withManager(func(ctx context.Context, m *archive.DockerManager) error {
				if err := m.Stop(ctx); err != nil {
					return err
				}
				fmt.Println("MinIO stopped")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the container state and MinIO health",
			RunE:  withManager(printArchiveStatus),
		},
		&cobra.Command{
			Use:   "remove",
			Short: "Stop and delete the container, keeping its data",
			RunE: withManager(func(ctx context.Context, m *archive.DockerManager) error {
				if err := m.Remove(ctx); err != nil {
					return err
				}
				fmt.Println("MinIO container removed (data kept)")
				return nil
			}),
		},
	)

	waitCmd := &cobra.Command{
		Use:   "wait",
		Short: "Block until MinIO answers its liveness check",
		RunE: withManager(func(ctx context.Context, m *archive.DockerManager) error {
			if err := m.WaitReady(ctx, archiveWaitTimeout); err != nil {
				return fmt.Errorf("MinIO not ready after %s: %w", archiveWaitTimeout, err)
			}
			fmt.Println("MinIO is ready")
			return nil
		}),
	}
	waitCmd.Flags().DurationVar(&archiveWaitTimeout, "timeout", 30*time.Second, "How long to wait")
	archiveCmd.AddCommand(waitCmd)

	rootCmd.AddCommand(archiveCmd)
}

func printArchiveStatus(ctx context.Context, m *archive.DockerManager) error {
	status, err := m.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	fmt.Printf("Container: %s\n", m.ContainerName())
	fmt.Printf("Status:    %s\n", status)

	switch status {
	case archive.StatusRunning:
		health := "healthy"
		if err := m.WaitReady(ctx, 2*time.Second); err != nil {
			health = fmt.Sprintf("unhealthy (%v)", err)
		}
		fmt.Printf("URL:       %s\n", m.URL())
		fmt.Printf("Health:    %s\n", health)
	case archive.StatusStopped, archive.StatusNotFound:
		fmt.Println("Run 'docextract archive start' to start it.")
	}
	return nil
}
