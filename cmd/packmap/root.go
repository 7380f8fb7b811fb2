package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for packmap.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "packmap",
		Short: "Map compliance controls to AWS Config rules",
		Long: `packmap builds a cross-framework index of AWS Config rules.

It reads the conformance pack documentation of every supported compliance
framework (CIS, NIST, FedRAMP, CMMC, AWS Well-Architected), resolves each
control to a reference link and regroups everything by config rule.

The work is split in phases that can run on their own:
  scrape     fetch the conformance pack pages into the cache file
  aggregate  regroup the cache by config rule into JSON
  render     write the Markdown document from the JSON
  run        all of the above in one go`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .packmap in current or home directory)")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs to stderr as JSON lines")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewScrapeCmd())
	cmd.AddCommand(NewAggregateCmd())
	cmd.AddCommand(NewRenderCmd())
	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewFrameworksCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
