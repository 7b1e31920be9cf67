// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/staffgate/staffgate/internal/config"
	"github.com/staffgate/staffgate/internal/logger"
)

var (
	configPath string // Path to the configuration directory

	cfg config.Config

	rootCmd = &cobra.Command{
		Use:   "staffgate",
		Short: "staffgate provisions employee identities into the directory and business systems",
		Long: `staffgate keeps a local employee account registry in sync with a Microsoft Graph
directory and grants module access through security groups, application roles
and third-party provisioning APIs, tracking every module assignment in a ledger.`,
		Args:         cobra.OnlyValidArgs,
		SilenceUsage: true,
	}
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./etc/", "Path to the configuration directory")
}

// loadConfig reads the configuration and initialises the global logger.
func loadConfig(_ *cobra.Command, _ []string) error {
	var err error

	if cfg, err = config.ReadConfig(configPath); err != nil {
		return err
	}

	return logger.Init(cfg.Log)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
