package main

import (
	"fmt"
	"time"

	"github.com/nao1215/packmap/internal/pipeline"
	"github.com/spf13/cobra"
)

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Extract the conformance pack tables into the cache file",
		Long: `Scrape fetches the conformance pack page of every selected framework,
extracts its mapping table and writes the framework keyed records to the
cache file. The extracted mapping is also stored as a snapshot in the run
history database so it can be aggregated again later.

A framework whose page cannot be fetched or holds no table is skipped with
a warning. The command fails only when no framework could be extracted.

Examples:
  # Extract every supported framework
  packmap scrape

  # Extract two frameworks, four pages at a time
  packmap scrape -j 4 \
    -F operational-best-practices-for-nist-800-53_rev_5 \
    -F operational-best-practices-for-cis-critical-security-controls-v8`,
		Args: cobra.NoArgs,
		RunE: runScrapeCmd,
	}

	addFetchFlags(cmd)
	addOutputFlags(cmd, true)
	addHistoryFlags(cmd)

	return cmd
}

// runScrapeCmd executes the scrape command.
func runScrapeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg.Verbose)

	ctx, cancel := signalContext(logger)
	defer cancel()

	registry, err := selectRegistry(cfg)
	if err != nil {
		return err
	}

	extractor, err := newExtractor(cfg, logger, registry)
	if err != nil {
		return err
	}

	db, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}
	defer closeHistory(db, logger)

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(
		pipeline.NewExtractStep(extractor),
		pipeline.NewSaveCacheStep(cfg.CachePath()),
	)
	if db != nil {
		p.AddStep(pipeline.NewSnapshotStep(db, logger))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scraping %d frameworks...\n", registry.Len())
	startTime := time.Now()

	run := pipeline.NewRun()
	err = p.Execute(ctx, run)
	printWarnings(cmd.ErrOrStderr(), run.ExtractionFailures, nil)
	if err != nil {
		return fmt.Errorf("scrape failed: %w", err)
	}

	fmt.Fprintf(out, "Extracted %d records from %d frameworks in %s\n",
		run.Mapping.RecordCount(), len(run.Mapping), time.Since(startTime).Round(time.Millisecond))
	fmt.Fprintf(out, "Cache written to %s\n", cfg.CachePath())
	if run.Fingerprint != "" {
		fmt.Fprintf(out, "Snapshot: %s\n", run.Fingerprint)
	}
	return nil
}
