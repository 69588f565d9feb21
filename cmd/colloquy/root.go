package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meridian-research/colloquy/internal/anthropic"
	"github.com/meridian-research/colloquy/internal/api"
	"github.com/meridian-research/colloquy/internal/config"
	"github.com/meridian-research/colloquy/internal/discovery"
	"github.com/meridian-research/colloquy/internal/events"
	"github.com/meridian-research/colloquy/internal/extractor"
	"github.com/meridian-research/colloquy/internal/ingest"
	"github.com/meridian-research/colloquy/internal/pipeline"
	"github.com/meridian-research/colloquy/internal/store"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "colloquy",
		Short:        "Structured analysis of interview and focus-group transcripts",
		SilenceUsage: true,
	}
	root.AddCommand(newAnalyzeCmd())
	return root
}

func newAnalyzeCmd() *cobra.Command {
	var (
		dir          string
		analysisPath string
		concurrency  int
		dryRun       bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Discover a coding schema and apply it across a transcript directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			setupLogging(cfg.LogLevel)

			if analysisPath != "" {
				a, err := config.LoadAnalysis(analysisPath)
				if err != nil {
					return err
				}
				cfg.Analysis = a
			}
			if concurrency > 0 {
				cfg.Analysis.Concurrency = concurrency
			}

			if cfg.AnthropicAPIKey == "" {
				return fmt.Errorf("ANTHROPIC_API_KEY is required")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			llm := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
			slog.Info("oracle client ready", "model", cfg.AnthropicModel)

			var graph *store.Store
			if cfg.DatabaseURL != "" && !dryRun {
				var err error
				graph, err = store.New(ctx, cfg.DatabaseURL)
				if err != nil {
					return fmt.Errorf("connect graph store: %w", err)
				}
				defer graph.Close()
				slog.Info("graph store connected")
			} else {
				slog.Warn("no graph store configured, results will not be persisted")
			}

			var publisher *events.Publisher
			if cfg.NatsURL != "" {
				var err error
				publisher, err = events.NewPublisher(cfg.NatsURL, cfg.NatsToken, slog.Default())
				if err != nil {
					slog.Warn("nats unavailable, continuing without events", "error", err)
				} else {
					defer publisher.Close()
				}
			}

			controller := discovery.NewController(llm, cfg.Analysis.Discovery, slog.Default())
			ext := extractor.New(llm, slog.Default())
			runner := pipeline.NewRunner(pipeline.Config{
				Concurrency: cfg.Analysis.Concurrency,
				Chains:      cfg.Analysis.ChainConfig(),
			}, controller, ext, graph, publisher, slog.Default())

			srv := api.NewServer(cfg.Port, runner)
			go func() {
				if err := srv.Start(); err != nil {
					slog.Error("HTTP server error", "error", err)
				}
			}()

			docs, err := ingest.DiscoverDocuments(dir, slog.Default())
			if err != nil {
				return err
			}
			slog.Info("transcripts discovered", "count", len(docs))

			out, err := runner.Run(ctx, docs)
			if err != nil {
				return err
			}

			printSummary(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "directory of transcript .txt files (or a single file)")
	cmd.Flags().StringVar(&analysisPath, "config", "", "analysis config YAML (approaches, floors, concurrency)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "override document concurrency bound")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "skip graph persistence")

	return cmd
}

func printSummary(out *pipeline.RunOutput) {
	res := out.Result
	fmt.Printf("\n=== Analysis Summary ===\n")
	fmt.Printf("Documents processed: %d\n", len(res.Documents))
	fmt.Printf("Documents failed: %d\n", len(res.Failures))
	for _, f := range res.Failures {
		fmt.Printf("  - %s: %v\n", f.DocID, f.Err)
	}
	fmt.Printf("Entities: %d\n", len(res.Entities))
	fmt.Printf("Relationships: %d\n", len(res.Relationships))
	fmt.Printf("Thematic chains reported: %d\n", len(out.Chains))
	fmt.Printf("Overall confidence: %.2f\n", res.OverallConfidence)
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
