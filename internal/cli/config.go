package cli

import (
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Example: `  # Validate a configuration file
  querykit config validate --config querykit.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cmd.Printf("configuration is valid (ttl %v, visibility source %s)\n",
				cfg.Query.TTL, cfg.Visibility.Source)
			return nil
		},
	})
	return cmd
}
