// Command analysis-worker runs the upsell-evaluation cohort (W3):
// claims dialogues with a finished transcript, prefilters out calls
// not worth evaluating, and sends the rest to the LLM evaluator.
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

	"github.com/salescontrol/pipeline/internal/analysis"
	"github.com/salescontrol/pipeline/internal/conf"
	"github.com/salescontrol/pipeline/internal/datastore"
	"github.com/salescontrol/pipeline/internal/datastore/queue"
	"github.com/salescontrol/pipeline/internal/logging"
	"github.com/salescontrol/pipeline/internal/observability/metrics"
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
		Use:   "analysis-worker",
		Short: "Upsell evaluation worker (W3)",
	}
	root.AddCommand(runCommand(), migrateCommand(), healthcheckCommand())
	return root
}

func runCommand() *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Claim dialogues and evaluate them until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Init()

			settings, err := conf.LoadAnalysisSettings()
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

			client, err := analysis.NewClient(settings.OpenAIAPIKey, settings.OpenAIModel, settings.OpenAITimeout)
			if err != nil {
				return fmt.Errorf("creating LLM client: %w", err)
			}

			processor := &analysis.Processor{
				Store:       store,
				Dialogues:   datastore.NewDialogueRepository(store),
				Transcripts: datastore.NewTranscriptRepository(store),
				Analyses:    datastore.NewAnalysisRepository(store),
				Queue:       queue.NewAnalysisDialogueQueue(store.DB),
				Evaluator:   client,
				Settings:    settings,
				Metrics:     rec,
			}

			runner := &worker.Runner{
				Cohort:            "analysis",
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
				logging.ForService("analysis").Info("metrics listening", "addr", metricsAddr)
				_ = http.ListenAndServe(metricsAddr, metricsMux)
			}()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			logging.ForService("analysis").Info("analysis worker starting")
			runner.Run(ctx)
			return nil
		},
	}
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
			settings, err := conf.LoadAnalysisSettings()
			if err != nil {
				return fmt.Errorf("loading settings: %w", err)
			}
			if err := datastore.ApplyMigrations(settings.DatabaseURL, migrationsDir); err != nil {
				return fmt.Errorf("migrating schema: %w", err)
			}
			logging.ForService("analysis").Info("schema migrated")
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
			settings, err := conf.LoadAnalysisSettings()
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
