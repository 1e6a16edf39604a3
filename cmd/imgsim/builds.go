package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newBuildsCmd(a *app) *cobra.Command {
	var limit int
	var skipsOf string
	cmd := &cobra.Command{
		Use:   "builds",
		Short: "List journaled index builds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			j, err := a.openJournal(ctx)
			if err != nil {
				return err
			}
			if j == nil {
				return errors.New("build journal is disabled (journal.path is empty)")
			}
			defer j.Close()

			out := cmd.OutOrStdout()
			if skipsOf != "" {
				skips, err := j.Skips(ctx, skipsOf)
				if err != nil {
					return err
				}
				for _, s := range skips {
					fmt.Fprintf(out, "%s: %s\n", s.Label, s.Reason)
				}
				return nil
			}
			entries, err := j.List(ctx, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "BUILD\tSTARTED\tPROVIDER\tINDEXED\tSKIPPED\tDURATION\tSTATUS")
			for _, e := range entries {
				status := e.Status
				if e.Error != "" {
					status += ": " + e.Error
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%d\t%s\t%s\n",
					e.BuildID, e.Started.Format("2006-01-02 15:04:05"), e.Provider,
					e.Succeeded, e.Attempted, e.Skipped, e.Duration.Round(time.Millisecond), status)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of builds to list (0 for all)")
	cmd.Flags().StringVar(&skipsOf, "skips", "", "list the images skipped by this build")
	return cmd
}
