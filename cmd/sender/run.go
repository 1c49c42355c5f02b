package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"bulk_sender/internal/logbus"
	"bulk_sender/internal/model"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Send to every contact in a file, then exit. Ctrl+C stops after the current contact.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				return errors.New("--file is required")
			}
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := openApp(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if err := a.waitReady(ctx); err != nil {
				return err
			}

			f, err := os.Open(file)
			if err != nil {
				return err
			}
			list, err := a.engine.UploadFile(ctx, filepath.Base(file), f)
			_ = f.Close()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "loaded %d contacts (%d unique phones)\n", list.Total, list.UniquePhones)

			events, unsubscribe := a.bus.Subscribe(256)
			defer unsubscribe()
			if err := a.engine.Start(ctx); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(stop)

			for {
				select {
				case <-stop:
					fmt.Fprintln(out, "stopping after the current contact...")
					go func() { _ = a.engine.Stop(ctx) }()
				case msg, ok := <-events:
					if !ok {
						return nil
					}
					switch msg.Type {
					case logbus.TypeStatus:
						if st, ok := msg.Data.(logbus.StatusData); ok {
							fmt.Fprintf(out, "[%s] %s\n", st.Level, st.Text)
						}
					case logbus.TypeSummary:
						if s, ok := msg.Data.(model.RunSummary); ok {
							fmt.Fprintf(out, "%s: %d sent, %d failed of %d\n", s.State, s.Sent, s.Failed, s.Total)
							if s.Failed > 0 {
								return fmt.Errorf("%d deliveries failed", s.Failed)
							}
						}
						return nil
					}
				}
			}
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV or XLSX contact file")
	return cmd
}
