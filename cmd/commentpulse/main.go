package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/commentpulse/internal/config"
	"github.com/TobiSchelling/commentpulse/internal/logging"
	"github.com/TobiSchelling/commentpulse/internal/pipeline"
	"github.com/TobiSchelling/commentpulse/internal/report"
	"github.com/TobiSchelling/commentpulse/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
	logCloser  io.Closer
)

func main() {
	err := rootCmd.Execute()
	if logCloser != nil {
		logCloser.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "commentpulse",
	Short:   "Comment sentiment over a paginated listing",
	Long:    "commentpulse scrapes every page of a listing site, scores the sentiment of each post's comments, and reports the distributions.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		switch {
		case err == nil:
			cfg, err = config.Load(path)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
		case configPath != "":
			return err
		default:
			cfg = config.Default()
		}

		logger, logCloser, err = logging.New(cfg.Logging.Level, cfg.Logging.File, verbose)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		if path != "" {
			logger.Debug("loaded config", "path", path)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("commentpulse", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in the XDG config directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set the site, selectors and sentiment provider.")
		return nil
	},
}

// --- run command ---

var (
	runBaseURL string
	runFormat  string
	runOut     string
	runPages   int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: scrape -> score -> tabulate -> report",
	RunE: func(cmd *cobra.Command, args []string) error {
		if runBaseURL != "" {
			cfg.Site.BaseURL = runBaseURL
		}
		if cmd.Flags().Changed("max-pages") {
			cfg.Site.MaxPages = runPages
		}
		if runFormat != "" {
			cfg.Report.Format = runFormat
		}
		if runOut != "" {
			cfg.Report.Output = runOut
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		pipe, err := pipeline.New(cfg, logger)
		if err != nil {
			return err
		}
		result := pipe.Run(ctx)

		for i, step := range result.Steps {
			if step.Err != nil {
				fmt.Fprintf(os.Stderr, "Step %d/4: %s\n  Error: %v\n", i+1, step.Name, step.Err)
			} else {
				fmt.Fprintf(os.Stderr, "Step %d/4: %s\n  %s\n", i+1, step.Name, step.Summary)
			}
		}
		if result.Report == nil {
			return result.Err()
		}

		return writeReport(result.Report, cfg.Report.Format, cfg.Report.Output)
	},
}

func init() {
	runCmd.Flags().StringVar(&runBaseURL, "base-url", "", "Override site.base_url")
	runCmd.Flags().StringVar(&runFormat, "format", "", "Output format: table, markdown, html or json")
	runCmd.Flags().StringVarP(&runOut, "out", "o", "", "Write the report to a file instead of stdout")
	runCmd.Flags().IntVar(&runPages, "max-pages", 0, "Stop after this many pages (0 = no limit)")
}

func writeReport(r *report.Report, format, out string) error {
	if out == "" {
		return report.Write(os.Stdout, r, format)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	if err := report.Write(f, r, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Report written to %s\n", out)
	return nil
}

// --- serve command ---

var (
	servePort     int
	serveSchedule string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Scrape, then serve the latest report over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}
		if serveSchedule != "" {
			cfg.Server.Schedule = serveSchedule
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		pipe, err := pipeline.New(cfg, logger)
		if err != nil {
			return err
		}
		store := &server.Store{}
		runOnce := func(ctx context.Context) {
			r := pipe.Run(ctx)
			if err := r.Err(); err != nil {
				logger.Error("pipeline run failed", "run", r.RunID, "err", err)
			}
			store.Set(r)
		}

		go func() {
			runOnce(ctx)
			if cfg.Server.Schedule == "" {
				return
			}
			if err := pipeline.Schedule(ctx, cfg.Server.Schedule, logger, runOnce); err != nil {
				logger.Error("scheduler failed", "err", err)
			}
		}()

		fmt.Printf("Starting server at http://localhost:%d\n", cfg.Server.Port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(ctx, store, cfg.Server.Port, logger)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
	serveCmd.Flags().StringVar(&serveSchedule, "schedule", "", "Cron expression for re-scraping, e.g. \"@every 1h\"")
}
