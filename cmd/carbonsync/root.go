package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/streetvisit/carbon-recycling-platform/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "carbonsync",
	Short:         "carbonsync collects activity data from provider integrations and estimates GHG emissions.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		structured := commandUsesStructuredLogging(cmd)
		setCommandExecutionContext(commandExecutionContext{
			CommandPath:       cmd.CommandPath(),
			UsesStructuredLog: structured,
		})
		if !structured {
			return nil
		}
		_, err := logging.BootstrapFromEnv(logging.BootstrapOptions{Command: cmd.CommandPath(), Writer: cmd.ErrOrStderr()})
		return err
	},
}

func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd, workerCmd, syncCmd, providersCmd, connectorsCmd, factorsCmd)
}
