package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/nao1215/packmap/internal/framework"
	"github.com/spf13/cobra"
)

// NewFrameworksCmd creates the frameworks command.
func NewFrameworksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frameworks",
		Short: "List the supported compliance frameworks",
		Long: `Frameworks lists every supported conformance pack in registration order,
which is also the order controls appear in under each config rule.

The ID column is the value accepted by --framework.

Examples:
  packmap frameworks
  packmap frameworks --urls`,
		Args: cobra.NoArgs,
		RunE: runFrameworksCmd,
	}

	cmd.Flags().Bool("urls", false, "Show the conformance pack page of each framework")

	return cmd
}

// runFrameworksCmd executes the frameworks command.
func runFrameworksCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	showURLs, err := cmd.Flags().GetBool("urls")
	if err != nil {
		return err
	}

	registry := framework.DefaultRegistry()
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	if showURLs {
		fmt.Fprintln(tw, "NAME\tURL")
	} else {
		fmt.Fprintln(tw, "ID\tNAME\tFAMILY")
	}
	for _, fw := range registry.All() {
		if showURLs {
			fmt.Fprintf(tw, "%s\t%s\n", fw.DisplayName, framework.PageURL(cfg.BaseURL, fw.ID))
			continue
		}
		family, err := registry.Family(fw.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", fw.ID, fw.DisplayName, family)
	}
	return tw.Flush()
}
