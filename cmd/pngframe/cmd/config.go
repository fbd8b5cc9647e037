package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/pngframe/pkg/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the pngframe configuration file",
		// config commands must work before a valid config exists
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}

	cmd.AddCommand(newConfigInitCmd(), newConfigShowCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var dataDir string
	var force bool
	var printKey bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default configuration with a generated API key",
		Long: `Write a default configuration file with a freshly generated API key.
Files ending in .toml are written as TOML, everything else as YAML.

Examples:
  pngframe config init
  pngframe config init ./pngframe.toml --data-dir /var/lib/pngframe`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.GetDefaultConfigPath()
			if len(args) == 1 {
				path = args[0]
			}

			if config.ConfigExists(path) && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
			}

			cfg, err := config.BootstrapConfig(path, dataDir)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration created at %s\n", path)
			if printKey {
				fmt.Fprintf(cmd.OutOrStdout(), "API Key: %s\n", cfg.Server.APIKey)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Archive data directory")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	cmd.Flags().BoolVar(&printKey, "print-key", false, "Print the generated API key")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd); err != nil {
				return err
			}
			cfg := *container.Config()
			if cfg.Server.APIKey != "" {
				cfg.Server.APIKey = "<redacted>"
			}
			return printJSON(cmd.OutOrStdout(), cfg)
		},
	}
}
