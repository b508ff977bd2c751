// Command ingest-api runs the HTTP acceptor (IA): device authentication,
// chunk upload, and the internal chunk-fetch endpoint W2 calls.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/salescontrol/pipeline/internal/blobstore"
	"github.com/salescontrol/pipeline/internal/conf"
	"github.com/salescontrol/pipeline/internal/datastore"
	"github.com/salescontrol/pipeline/internal/ingest"
	"github.com/salescontrol/pipeline/internal/logging"
	"github.com/salescontrol/pipeline/internal/observability/metrics"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "ingest-api",
		Short: "Ingest acceptor HTTP service",
	}
	root.AddCommand(runCommand(), migrateCommand(), healthcheckCommand())
	return root
}

func runCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the ingest acceptor and serve until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Init()

			settings, err := conf.LoadIngestSettings()
			if err != nil {
				return fmt.Errorf("loading settings: %w", err)
			}
			logging.SetLevel(settings.LogLevel)

			reg := prometheus.NewRegistry()
			rec, err := metrics.NewRecorder(reg)
			if err != nil {
				return fmt.Errorf("registering metrics: %w", err)
			}

			store, err := datastore.Open(settings.DatabaseURL, false, rec)
			if err != nil {
				return fmt.Errorf("opening datastore: %w", err)
			}
			defer store.Close()

			blobs := blobstore.New(settings.AudioStorageDir)

			srv := ingest.New(settings, store, blobs, rec)

			metricsMux := http.NewServeMux()
			metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			go func() {
				logging.ForService("ingest").Info("metrics listening", "addr", ":9090")
				_ = http.ListenAndServe(":9090", metricsMux)
			}()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			logging.ForService("ingest").Info("ingest acceptor starting", "addr", addr)
			return srv.Start(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	return cmd
}

func migrateCommand() *cobra.Command {
	var migrationsDir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Init()
			settings, err := conf.LoadIngestSettings()
			if err != nil {
				return fmt.Errorf("loading settings: %w", err)
			}
			if err := datastore.ApplyMigrations(settings.DatabaseURL, migrationsDir); err != nil {
				return fmt.Errorf("migrating schema: %w", err)
			}
			logging.ForService("ingest").Info("schema migrated")
			return nil
		},
	}
	cmd.Flags().StringVar(&migrationsDir, "migrations-dir", "migrations", "directory of golang-migrate SQL files")
	return cmd
}

func healthcheckCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe a running instance's /health endpoint and exit non-zero if unhealthy",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := http.Get(fmt.Sprintf("http://%s/health", addr))
			if err != nil {
				return fmt.Errorf("health probe failed: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("health probe returned status %d", resp.StatusCode)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "address of the running ingest-api instance")
	return cmd
}
