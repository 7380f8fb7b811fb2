package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// defaultHistoryLimit is the number of runs listed by default.
const defaultHistoryLimit = 20

// fingerprintDisplayLen is the number of fingerprint characters shown.
const fingerprintDisplayLen = 12

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the run history",
		Long: `History lists the most recent aggregation runs recorded in the run history
database, newest first, with the snapshot they used and their outcome.

A snapshot fingerprint prefix shown here can be passed to
"packmap aggregate --from-history" to aggregate that snapshot again.

Examples:
  # Last 20 runs
  packmap history

  # Every run
  packmap history --limit 0`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("db-dir", "",
		"Run history database directory (default: XDG data directory)")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list (0 lists all)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg.Verbose)

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	if cfg.DBDir == "" {
		return errors.New("history database is disabled (output.dbDir is empty)")
	}

	db, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}
	defer closeHistory(db, logger)

	runs, err := db.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSNAPSHOT\tRULES\tCONTROLS\tSTATUS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n",
			r.ID,
			r.CreationDate.UTC().Format(time.RFC3339),
			shortFingerprint(r.SnapshotFingerprint),
			r.RuleCount,
			r.ControlCount,
			r.Status,
		)
		if r.Error != "" {
			fmt.Fprintf(tw, "\t\terror: %s\t\t\t\n", r.Error)
		}
	}
	return tw.Flush()
}

// shortFingerprint returns the displayed prefix of a snapshot fingerprint.
func shortFingerprint(fp string) string {
	if fp == "" {
		return "-"
	}
	if len(fp) > fingerprintDisplayLen {
		return fp[:fingerprintDisplayLen]
	}
	return fp
}
