package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/packmap/internal/pipeline"
	"github.com/nao1215/packmap/internal/report"
	"github.com/spf13/cobra"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape, aggregate and render in one go",
		Long: `Run performs every phase in order:

  1. Extract the mapping table of every selected framework
  2. Write the cache file and store a snapshot in the run history
  3. Regroup the controls by AWS Config rule
  4. Write the aggregated JSON, the version file and the Markdown document

The outcome of every run, failed or not, is appended to the run history.
A summary is printed when the run completes.

Examples:
  # Build everything in the current directory
  packmap run

  # Build into ./site with a coverage table, listing every rule
  packmap run -o ./site --coverage --rules`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}

	addFetchFlags(cmd)
	addOutputFlags(cmd, true)
	addHistoryFlags(cmd)
	cmd.Flags().Bool("collect-errors", false,
		"Keep going on malformed control IDs and report them all")
	cmd.Flags().Bool("coverage", false,
		"Add a framework coverage table to the document")
	cmd.Flags().Bool("rules", false,
		"List every config rule in the summary")
	cmd.Flags().String("summary-file", "",
		"Also write the summary to this file")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg.Verbose)

	listRules, err := cmd.Flags().GetBool("rules")
	if err != nil {
		return err
	}
	summaryFile, err := cmd.Flags().GetString("summary-file")
	if err != nil {
		return err
	}

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

	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	if db != nil {
		opts = append(opts, pipeline.WithFinally(pipeline.NewHistoryStep(db)))
	}
	p := pipeline.New(opts...)

	p.AddSteps(
		pipeline.NewExtractStep(extractor),
		pipeline.NewSaveCacheStep(cfg.CachePath()),
	)
	if db != nil {
		p.AddStep(pipeline.NewSnapshotStep(db, logger))
	}
	p.AddSteps(
		pipeline.NewAggregateStep(newAggregator(cfg, logger)),
		pipeline.NewRenderStep(
			pipeline.OutputFiles{
				Dir:        cfg.OutputDir,
				Aggregated: cfg.AggregatedFile,
				Version:    cfg.VersionFile,
				Document:   cfg.DocumentFile,
			},
			pipeline.WithMarkdownOptions(report.WithCoverageTable(cfg.CoverageTable)),
		),
	)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Processing %d frameworks...\n", registry.Len())
	startTime := time.Now()

	run := pipeline.NewRun()
	err = p.Execute(ctx, run)
	printWarnings(cmd.ErrOrStderr(), run.ExtractionFailures, run.ResolutionErrors)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	fmt.Fprintf(out, "Run completed in %s\n\n", time.Since(startTime).Round(time.Millisecond))

	if err := writeSummary(out, summaryFile, listRules, run); err != nil {
		return err
	}
	for _, path := range run.Outputs {
		fmt.Fprintf(out, "Wrote %s\n", path)
	}
	return nil
}

// writeSummary prints the run summary on out and, when path is set, into
// the file at path.
func writeSummary(out io.Writer, path string, listRules bool, run *pipeline.Run) (err error) {
	writers := []report.Writer{report.NewSimpleWriter(out, report.WithVerbose(listRules))}
	if path != "" {
		var f *os.File
		f, err = os.Create(filepath.Clean(path))
		if err != nil {
			return fmt.Errorf("failed to create summary file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("failed to close summary file: %w", cerr)
			}
		}()
		writers = append(writers, report.NewSimpleWriter(f, report.WithVerbose(listRules)))
	}

	doc := report.NewDocument(run.Result.Entries, run.Result.Version)
	if _, err := report.NewMultiWriter(writers...).Write(doc); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
