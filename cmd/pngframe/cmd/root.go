/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/pngframe/pkg/config"
	"github.com/ssargent/pngframe/pkg/di"
	"github.com/ssargent/pngframe/pkg/logging"
)

var container *di.Container

// SetContainer injects the dependency container used by every command
func SetContainer(c *di.Container) {
	container = c
}

// NewRootCmd builds the pngframe command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pngframe",
		Short: "pngframe - PNG chunk framing toolkit",
		Long: `pngframe reads, verifies and rewrites the chunk framing of PNG files:
the 8-byte signature and the length/type/data/CRC frame around every chunk.
It can also archive chunks in a local database and serve everything over HTTP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd)
		},
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default is "+config.GetDefaultConfigPath()+")")
	rootCmd.PersistentFlags().String("log-level", "", "Log level override (trace, debug, info, warn, error)")

	rootCmd.AddCommand(
		newInspectCmd(),
		newVerifyCmd(),
		newStripCmd(),
		newArchiveCmd(),
		newConfigCmd(),
		newServeCmd(),
	)
	return rootCmd
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file named by --config, or the default one
// when it exists, applies flag overrides and configures the container
func loadConfig(cmd *cobra.Command) error {
	if container == nil {
		return errors.New("dependency container not initialized")
	}

	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" && config.ConfigExists(config.GetDefaultConfigPath()) {
		configPath = config.GetDefaultConfigPath()
	}

	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.New(cfg.Logging, cmd.ErrOrStderr())
	container.Configure(cfg, logger)
	logger.Debug().Str("config", configPath).Str("command", cmd.Name()).Msg("configuration loaded")
	return nil
}
