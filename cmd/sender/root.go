package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"bulk_sender/internal/config"
)

type rootOptions struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "sender",
		Short:         "Send personalised messages to a contact list through a chat web client.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// A missing .env is fine; only parse errors matter.
			if err := godotenv.Load(opts.envFile); err != nil && !isNotExist(err) {
				return err
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "./config.yaml", "path to config.yaml")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "optional dotenv file")

	cmd.AddCommand(
		newServeCmd(opts),
		newRunCmd(opts),
		newCheckCmd(opts),
		newHistoryCmd(opts),
	)
	return cmd
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	return config.Load(o.configPath)
}
