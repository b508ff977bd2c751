// Command vad-worker runs the VAD + dialogue-builder cohort (W1):
// claims QUEUED chunks, detects speech spans, and stitches them into
// dialogues.
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
	"github.com/salescontrol/pipeline/internal/datastore/queue"
	"github.com/salescontrol/pipeline/internal/logging"
	"github.com/salescontrol/pipeline/internal/observability/metrics"
	"github.com/salescontrol/pipeline/internal/vad"
	"github.com/salescontrol/pipeline/internal/worker"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "vad-worker",
		Short: "VAD and dialogue-stitching worker (W1)",
	}
	root.AddCommand(runCommand(), migrateCommand(), healthcheckCommand())
	return root
}

func runCommand() *cobra.Command {
	var interpreterThreads int
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Claim chunks and run VAD until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Init()

			settings, err := conf.LoadVADSettings()
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

			detector, err := vad.NewTFLiteDetector(settings.VADModelPath, interpreterThreads)
			if err != nil {
				return fmt.Errorf("loading VAD model: %w", err)
			}

			processor := &vad.Processor{
				Store:         store,
				Chunks:        queue.NewChunkQueue(store.DB),
				Segments:      datastore.NewSegmentRepository(store),
				Continuations: datastore.NewContinuationRepository(store),
				Dialogues:     datastore.NewDialogueRepository(store),
				Blobs:         blobstore.New(settings.AudioStorageDir),
				Detector:      detector,
				FFmpegPath:    settings.FFmpegPath,
				Settings:      settings,
				Metrics:       rec,
			}

			runner := &worker.Runner{
				Cohort:            "vad",
				PollInterval:      settings.PollInterval,
				RecoveryInterval:  settings.RecoveryInterval,
				HeartbeatInterval: settings.RecoveryInterval,
				ProcessBatch:      processor.ProcessBatch,
				RecoverStuck:      processor.RecoverStuck,
				Metrics:           rec,
			}

			metricsMux := http.NewServeMux()
			metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			go func() {
				logging.ForService("vad").Info("metrics listening", "addr", metricsAddr)
				_ = http.ListenAndServe(metricsAddr, metricsMux)
			}()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			logging.ForService("vad").Info("vad worker starting")
			runner.Run(ctx)
			return nil
		},
	}
	cmd.Flags().IntVar(&interpreterThreads, "interpreter-threads", 1, "TFLite interpreter thread count")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "metrics listen address")
	return cmd
}

func migrateCommand() *cobra.Command {
	var migrationsDir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Init()
			settings, err := conf.LoadVADSettings()
			if err != nil {
				return fmt.Errorf("loading settings: %w", err)
			}
			if err := datastore.ApplyMigrations(settings.DatabaseURL, migrationsDir); err != nil {
				return fmt.Errorf("migrating schema: %w", err)
			}
			logging.ForService("vad").Info("schema migrated")
			return nil
		},
	}
	cmd.Flags().StringVar(&migrationsDir, "migrations-dir", "migrations", "directory of golang-migrate SQL files")
	return cmd
}

func healthcheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "healthcheck",
		Short: "Verify configuration loads and the database is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := conf.LoadVADSettings()
			if err != nil {
				return fmt.Errorf("loading settings: %w", err)
			}
			store, err := datastore.Open(settings.DatabaseURL, false, nil)
			if err != nil {
				return fmt.Errorf("opening datastore: %w", err)
			}
			defer store.Close()
			return store.Ping()
		},
	}
}
