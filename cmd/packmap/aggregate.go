package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/packmap/internal/aggregate"
	"github.com/nao1215/packmap/internal/config"
	"github.com/nao1215/packmap/internal/framework"
	"github.com/nao1215/packmap/internal/pipeline"
	"github.com/spf13/cobra"
)

// latestSnapshot is the --from-history value that selects the newest snapshot.
const latestSnapshot = "latest"

// NewAggregateCmd creates the aggregate command.
func NewAggregateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Regroup the extracted mapping by AWS Config rule",
		Long: `Aggregate reads the framework keyed mapping written by scrape, resolves a
reference link for every control and regroups the controls by AWS Config
rule. It writes the aggregated JSON file and the version file.

By default the first malformed control ID aborts the run and nothing is
written. With --collect-errors every resolvable control is kept and all
malformed control IDs are reported together.

Examples:
  # Aggregate the cache file in the current directory
  packmap aggregate

  # Aggregate the latest snapshot from the run history
  packmap aggregate --from-history

  # Aggregate a specific snapshot by fingerprint prefix
  packmap aggregate --from-history 3fa9c2`,
		Args: cobra.NoArgs,
		RunE: runAggregateCmd,
	}

	addOutputFlags(cmd, true)
	addHistoryFlags(cmd)
	cmd.Flags().Bool("collect-errors", false,
		"Keep going on malformed control IDs and report them all")
	cmd.Flags().String("from-history", "",
		"Aggregate a stored snapshot (fingerprint prefix, or latest) instead of the cache file")
	cmd.Flags().Lookup("from-history").NoOptDefVal = latestSnapshot

	return cmd
}

// runAggregateCmd executes the aggregate command.
func runAggregateCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg.Verbose)

	ctx, cancel := signalContext(logger)
	defer cancel()

	fromHistory, err := cmd.Flags().GetString("from-history")
	if err != nil {
		return err
	}
	if fromHistory != "" && cfg.DBDir == "" {
		return errors.New("--from-history needs the history database (remove --no-history)")
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

	switch {
	case fromHistory != "":
		fingerprint := fromHistory
		if fingerprint == latestSnapshot {
			fingerprint = ""
		}
		p.AddStep(pipeline.NewLoadSnapshotStep(db, fingerprint))
	case db != nil:
		p.AddSteps(pipeline.NewLoadCacheStep(cfg.CachePath()), pipeline.NewSnapshotStep(db, logger))
	default:
		p.AddStep(pipeline.NewLoadCacheStep(cfg.CachePath()))
	}
	p.AddSteps(
		pipeline.NewAggregateStep(newAggregator(cfg, logger)),
		pipeline.NewRenderStep(pipeline.OutputFiles{
			Dir:        cfg.OutputDir,
			Aggregated: cfg.AggregatedFile,
			Version:    cfg.VersionFile,
		}),
	)

	run := pipeline.NewRun()
	err = p.Execute(ctx, run)
	printWarnings(cmd.ErrOrStderr(), nil, run.ResolutionErrors)
	if err != nil {
		return fmt.Errorf("aggregate failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Aggregated %d controls into %d config rules\n", run.ControlCount(), run.RuleCount())
	for _, path := range run.Outputs {
		fmt.Fprintf(out, "Wrote %s\n", path)
	}
	return nil
}

// newAggregator builds the aggregator over the full registry, whatever the
// framework selection.
func newAggregator(cfg *config.Config, logger *slog.Logger) *aggregate.Aggregator {
	return aggregate.New(framework.DefaultRegistry(),
		aggregate.WithLogger(logger),
		aggregate.WithCollectErrors(cfg.CollectErrors),
	)
}
