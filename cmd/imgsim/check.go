package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/viant/imgsim/index"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check [index-dir]",
		Short: "Validate a persisted index without serving it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.IndexDir
			if len(args) == 1 {
				dir = args[0]
			}
			report, err := index.ValidateDir(dir)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "index:     %s\n", dir)
			fmt.Fprintf(out, "rows:      %d\n", report.Rows)
			fmt.Fprintf(out, "labels:    %d\n", report.Labels)
			fmt.Fprintf(out, "dimension: %d\n", report.Dimension)
			if report.Provider != "" {
				fmt.Fprintf(out, "provider:  %s\n", report.Provider)
			}
			if report.BuildID != "" {
				fmt.Fprintf(out, "build:     %s\n", report.BuildID)
			}
			if err != nil {
				fmt.Fprintf(out, "CRITICAL: %v\n", err)
				return err
			}
			for _, w := range report.Warnings() {
				fmt.Fprintf(out, "WARNING: %s\n", w)
			}
			fmt.Fprintln(out, "OK")
			return nil
		},
	}
}
