// Package cli implements the querykit command tree.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the querykit CLI.
func NewRootCmd(ver string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "querykit",
		Short:         "Cached, visibility-aware HTTP queries",
		Long:          "querykit: fetch JSON resources through an expiring cache and refetch them when visibility is regained",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().String("config", "", "path to a querykit YAML config file")
	cmd.PersistentFlags().String("base-url", "", "base URL for relative paths (overrides transport.base_url)")
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.AddCommand(newGetCmd(), newSendCmd(), newConfigCmd())

	return cmd
}

const rootCmdExample = `  # Fetch a resource once and print its state
  querykit get users/1 --base-url https://api.example.com

  # Keep the query alive; SIGUSR1 marks the process visible and refetches
  querykit get users/1 --watch --config querykit.yaml

  # Create a resource
  querykit send POST users '{"name":"ada"}'

  # Validate a config file
  querykit config validate --config querykit.yaml`
