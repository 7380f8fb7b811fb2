package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/packmap/internal/config"
	"github.com/nao1215/packmap/internal/database"
	"github.com/nao1215/packmap/internal/extract"
	"github.com/nao1215/packmap/internal/framework"
	pmlog "github.com/nao1215/packmap/internal/log"
	"github.com/nao1215/packmap/internal/pipeline"
	"github.com/spf13/cobra"
)

// addFetchFlags registers the flags that control page extraction.
func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().String("base-url", config.DefaultBaseURL,
		"Root URL of the conformance pack pages")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"HTTP timeout for each page request")
	cmd.Flags().Int("retries", config.DefaultRetries,
		"Number of retries after a failed page request")
	cmd.Flags().IntP("concurrency", "j", config.DefaultConcurrency,
		"Number of pages fetched at once")
	cmd.Flags().StringSliceP("framework", "F", nil,
		"Restrict extraction to these framework IDs (repeatable)")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy (host:port) for page requests")
}

// addOutputFlags registers the output directory flag, plus the cache file
// flag for commands that read or write the cache.
func addOutputFlags(cmd *cobra.Command, withCache bool) {
	cmd.Flags().StringP("output-dir", "o", config.DefaultOutputDir,
		"Directory output files are read from and written to")
	if withCache {
		cmd.Flags().String("cache-file", config.DefaultCacheFile,
			"Extracted mapping file name")
	}
}

// addHistoryFlags registers the flags of the run history database.
func addHistoryFlags(cmd *cobra.Command) {
	cmd.Flags().String("db-dir", "",
		"Run history database directory (default: XDG data directory)")
	cmd.Flags().Bool("no-history", false,
		"Do not record snapshots and runs in the history database")
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getConfigFlag retrieves the config file path from the command or its parent.
func getConfigFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path, err = cmd.Root().PersistentFlags().GetString("config")
		if err != nil {
			return ""
		}
	}
	return path
}

// buildConfig loads the configuration file and applies the flags the user
// set on cmd. Flags left at their defaults do not override the file.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(getConfigFlag(cmd))
	if err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	flags := cmd.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	if changed("base-url") {
		if cfg.BaseURL, err = flags.GetString("base-url"); err != nil {
			return nil, err
		}
	}
	if changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if changed("retries") {
		if cfg.Retries, err = flags.GetInt("retries"); err != nil {
			return nil, err
		}
	}
	if changed("concurrency") {
		if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return nil, err
		}
	}
	// search reuses --framework as a single-value filter.
	if f := flags.Lookup("framework"); f != nil && f.Changed && f.Value.Type() == "stringSlice" {
		if cfg.Frameworks, err = flags.GetStringSlice("framework"); err != nil {
			return nil, err
		}
	}
	if changed("proxy") {
		if cfg.Proxy, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}
	if changed("output-dir") {
		if cfg.OutputDir, err = flags.GetString("output-dir"); err != nil {
			return nil, err
		}
	}
	if changed("cache-file") {
		if cfg.CacheFile, err = flags.GetString("cache-file"); err != nil {
			return nil, err
		}
	}
	if changed("collect-errors") {
		if cfg.CollectErrors, err = flags.GetBool("collect-errors"); err != nil {
			return nil, err
		}
	}
	if changed("coverage") {
		if cfg.CoverageTable, err = flags.GetBool("coverage"); err != nil {
			return nil, err
		}
	}
	if changed("db-dir") {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return nil, err
		}
	}
	if changed("no-history") {
		noHistory, err := flags.GetBool("no-history")
		if err != nil {
			return nil, err
		}
		if noHistory {
			cfg.DBDir = ""
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// setupLogger creates the process logger on stderr and installs it as the
// default logger. --log-json switches to JSON lines.
func setupLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	logger := pmlog.NewLogger(os.Stderr, verbose)
	if asJSON, err := cmd.Root().PersistentFlags().GetBool("log-json"); err == nil && asJSON {
		logger = pmlog.NewJSONLogger(os.Stderr, verbose)
	}
	slog.SetDefault(logger)
	return logger
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// selectRegistry returns the built-in registry restricted to cfg.Frameworks.
func selectRegistry(cfg *config.Config) (*framework.Registry, error) {
	registry, err := framework.DefaultRegistry().Select(cfg.Frameworks)
	if err != nil {
		return nil, fmt.Errorf("invalid framework selection: %w", err)
	}
	return registry, nil
}

// newRenderer builds the page renderer from cfg.
func newRenderer(cfg *config.Config, logger *slog.Logger) (*extract.HTMLRenderer, error) {
	opts := []extract.RendererOption{
		extract.WithTimeout(cfg.Timeout),
		extract.WithRetries(cfg.Retries, cfg.RetryBackoff),
		extract.WithUserAgent(cfg.UserAgent),
		extract.WithHeaders(cfg.Headers),
		extract.WithMaxBodySize(cfg.MaxBodySize),
		extract.WithContainerClass(cfg.TableSelector),
		extract.WithRendererLogger(logger),
	}
	if cfg.Proxy != "" {
		client, err := extract.NewProxyClient(cfg.Proxy, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		opts = append(opts, extract.WithDoer(client))
		logger.Info("using SOCKS5 proxy", "address", cfg.Proxy)
	}
	return extract.NewHTMLRenderer(opts...), nil
}

// newExtractor builds the page extractor for the frameworks of registry.
func newExtractor(cfg *config.Config, logger *slog.Logger, registry *framework.Registry) (*pipeline.Extractor, error) {
	renderer, err := newRenderer(cfg, logger)
	if err != nil {
		return nil, err
	}
	return pipeline.NewExtractor(renderer, registry, cfg.BaseURL,
		pipeline.WithExtractorLogger(logger),
		pipeline.WithConcurrency(cfg.Concurrency),
	), nil
}

// openHistory opens the run history database, or returns nil when history
// is disabled.
func openHistory(cfg *config.Config, logger *slog.Logger) (*database.HistoryDB, error) {
	if cfg.DBDir == "" {
		return nil, nil
	}
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Info("database opened", "path", db.Path())
	return db, nil
}

// closeHistory closes db when it is open.
func closeHistory(db *database.HistoryDB, logger *slog.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.Warn("failed to close database", "error", err)
	}
}

// printWarnings reports skipped frameworks and controls on w.
func printWarnings(w io.Writer, failures []*extract.ExtractionFailure, skipped []error) {
	for _, f := range failures {
		fmt.Fprintf(w, "Warning: skipped framework %s: %v\n", f.FrameworkID, f.Err)
	}
	for _, err := range skipped {
		fmt.Fprintf(w, "Warning: skipped control: %v\n", err)
	}
}
