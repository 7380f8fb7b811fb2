package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/packmap/internal/framework"
	"github.com/nao1215/packmap/internal/pipeline"
	"github.com/nao1215/packmap/internal/search"
	"github.com/spf13/cobra"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the aggregated controls",
		Long: `Search looks up controls in the aggregated JSON file written by aggregate.

Every query term must occur, ignoring case and accents, in the config rule
name, the framework, the control ID, the description or the guidance.
Results are grouped by config rule.

Examples:
  # Controls mentioning encryption at rest
  packmap search encryption rest

  # NIST 800-53 incident response controls
  packmap search --category "Incident Response"

  # Everything GuardDuty maps to in CIS v8, as JSON
  packmap search guardduty \
    --framework operational-best-practices-for-cis-critical-security-controls-v8 --json`,
		Args: cobra.ArbitraryArgs,
		RunE: runSearchCmd,
	}

	addOutputFlags(cmd, false)
	cmd.Flags().StringP("framework", "F", "", "Only controls of this framework ID")
	cmd.Flags().String("category", "", "Only controls of this category")
	cmd.Flags().BoolP("json", "J", false, "Output matching controls as JSON")
	cmd.Flags().Bool("categories", false, "List the known categories and exit")

	return cmd
}

// runSearchCmd executes the search command.
func runSearchCmd(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	listCategories, err := cmd.Flags().GetBool("categories")
	if err != nil {
		return err
	}
	if listCategories {
		for _, c := range search.Categories() {
			fmt.Fprintln(out, c)
		}
		return nil
	}

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	setupLogger(cmd, cfg.Verbose)

	q := search.Query{Text: strings.Join(args, " ")}
	if q.Framework, err = cmd.Flags().GetString("framework"); err != nil {
		return err
	}
	if q.Category, err = cmd.Flags().GetString("category"); err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	result, err := pipeline.LoadResult(cfg.AggregatedPath(), "")
	if err != nil {
		return fmt.Errorf("search failed: %w (run packmap aggregate first)", err)
	}

	hits := search.Filter(search.Flatten(result.Entries), q)
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "    ")
		return enc.Encode(hits)
	}
	printHits(out, hits, framework.DefaultRegistry())
	return nil
}

// printHits writes hits grouped by config rule.
func printHits(w io.Writer, hits []search.Hit, registry *framework.Registry) {
	if len(hits) == 0 {
		fmt.Fprintln(w, "No matching controls.")
		return
	}

	entries := search.Group(hits)
	for _, e := range entries {
		fmt.Fprintln(w, e.ConfigRuleName)
		for _, c := range e.Controls {
			fmt.Fprintf(w, "  %s %s", registry.DisplayName(c.FrameworkID), c.ControlID)
			if c.Description != "" {
				fmt.Fprintf(w, ": %s", c.Description)
			}
			fmt.Fprintln(w)
			fmt.Fprintf(w, "    %s\n", c.Link)
		}
	}
	fmt.Fprintf(w, "\n%d controls in %d config rules\n", len(hits), len(entries))
}
