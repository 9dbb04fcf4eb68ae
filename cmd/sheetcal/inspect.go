package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"sheetcal/internal/ics"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.ics>",
		Short: "List the events of a calendar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			occs, err := ics.ParseICS(body)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SUMMARY\tSTART\tEND\tZONE")
			for _, o := range occs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					o.Summary,
					o.Start.Format(time.DateTime),
					o.End.Format(time.DateTime),
					o.Start.Location(),
				)
			}
			return tw.Flush()
		},
	}
}
