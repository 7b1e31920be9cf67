package app

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/staffgate/staffgate/internal/daemon"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(retryCmd)
}

var retryCmd = &cobra.Command{
	Use:     "retry",
	Short:   "Retry pending accounts and failed module assignments",
	PreRunE: loadConfig,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := daemon.NewProvisioner(&cfg)
		if err != nil {
			return err
		}

		accounts, modules, err := p.RetryAll(cmd.Context())
		if err != nil {
			return err
		}

		failedAccounts := 0
		for _, r := range accounts {
			if !r.Success {
				failedAccounts++
			}
		}

		retried, failedModules := 0, 0
		for _, results := range modules {
			for _, r := range results {
				retried++
				if !r.Success || r.ExternalAPI.Failed() {
					failedModules++
				}
			}
		}

		log.Info().
			Int("accounts", len(accounts)).
			Int("accounts_failed", failedAccounts).
			Int("modules", retried).
			Int("modules_failed", failedModules).
			Msg("retry finished")

		return nil
	},
}
