package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/qepting91/mikubot/internal/history"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the post history",
	}
	cmd.AddCommand(newHistoryStatsCmd())
	cmd.AddCommand(newHistoryCheckCmd())
	return cmd
}

func newHistoryStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the number of entries per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openForInspection()
			if err != nil {
				return err
			}
			defer a.Close()

			stats := a.history.Stats(cmd.Context())
			cats := make([]string, 0, len(stats))
			for c := range stats {
				cats = append(cats, c)
			}
			sort.Strings(cats)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tENTRIES")
			for _, c := range cats {
				fmt.Fprintf(w, "%s\t%d\n", c, stats[c])
			}
			return w.Flush()
		},
	}
}

func newHistoryCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <image-url>",
		Short: "Report whether an image URL has already been posted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openForInspection()
			if err != nil {
				return err
			}
			defer a.Close()

			if a.history.IsInHistory(cmd.Context(), history.CategoryURLs, args[0], nil) {
				fmt.Fprintf(cmd.OutOrStdout(), "posted: %s\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "not posted: %s\n", args[0])
			}
			return nil
		},
	}
}

// openForInspection opens only the history store; nothing is sent anywhere.
func openForInspection() (*app, error) {
	cfg, logger, err := loadConfig(os.Stderr)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}
	store, err := a.openHistory()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.history = store
	return a, nil
}
