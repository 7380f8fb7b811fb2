package main

import (
	"fmt"

	"github.com/nao1215/packmap/internal/pipeline"
	"github.com/nao1215/packmap/internal/report"
	"github.com/spf13/cobra"
)

// NewRenderCmd creates the render command.
func NewRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write the Markdown document from the aggregated JSON",
		Long: `Render reads the aggregated JSON file and the version file written by
aggregate and writes the Markdown document: one section per AWS Config rule
with its guidance and the security controls it maps to.

Examples:
  # Render from the files in the current directory
  packmap render

  # Add a per-framework control count table
  packmap render --coverage -o ./site`,
		Args: cobra.NoArgs,
		RunE: runRenderCmd,
	}

	addOutputFlags(cmd, false)
	cmd.Flags().Bool("coverage", false,
		"Add a framework coverage table to the document")

	return cmd
}

// runRenderCmd executes the render command.
func runRenderCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg.Verbose)

	ctx, cancel := signalContext(logger)
	defer cancel()

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(
		pipeline.NewLoadResultStep(cfg.AggregatedPath(), cfg.VersionPath()),
		pipeline.NewRenderStep(
			pipeline.OutputFiles{Dir: cfg.OutputDir, Document: cfg.DocumentFile},
			pipeline.WithMarkdownOptions(report.WithCoverageTable(cfg.CoverageTable)),
		),
	)

	run := pipeline.NewRun()
	if err := p.Execute(ctx, run); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Rendered %d config rules to %s\n", run.RuleCount(), cfg.DocumentPath())
	return nil
}
