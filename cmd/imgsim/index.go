package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIndexCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Embed every image in the dataset and write the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			j, err := a.openJournal(ctx)
			if err != nil {
				return err
			}
			if j != nil {
				defer j.Close()
			}
			svc, err := a.newService(j)
			if err != nil {
				return err
			}
			report, err := svc.Reindex(ctx, a.cfg.Dataset, a.cfg.IndexDir)
			if report != nil {
				out := cmd.OutOrStdout()
				for _, s := range report.Skipped {
					fmt.Fprintf(out, "skipped %s: %s\n", s.Label, s.Reason)
				}
				fmt.Fprintf(out, "indexed %d of %d images from %s into %s (build %s, %s)\n",
					report.Succeeded, report.Attempted, a.cfg.Dataset, a.cfg.IndexDir, report.BuildID, report.Provider)
			}
			return err
		},
	}
	cmd.Flags().Int("workers", 4, "concurrent embedding calls")
	a.bind(cmd.Flags().Lookup("workers"), "build.workers")
	return cmd
}
