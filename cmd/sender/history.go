package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"bulk_sender/internal/history"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the delivery history.",
	}

	var out string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write the history as CSV.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := openApp(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				if out == "auto" {
					out = history.ExportFilename(time.Now())
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := a.engine.ExportHistory(w); err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d entries to %s\n", len(a.engine.History()), out)
			}
			return nil
		},
	}
	export.Flags().StringVarP(&out, "out", "o", "", `output file ("auto" names it history_YYYY-MM-DD.csv; default stdout)`)

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the stored history.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := openApp(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.close(ctx)
			return a.engine.ClearHistory(ctx)
		},
	}

	cmd.AddCommand(export, clearCmd)
	return cmd
}
