package app

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/staffgate/staffgate/internal/daemon"
)

func init() { //nolint: gochecknoinits
	purgeCmd.Flags().BoolVar(&purgeConfirm, "yes", false, "Confirm the irreversible deletion")

	rootCmd.AddCommand(purgeCmd)
}

var (
	purgeConfirm bool

	purgeCmd = &cobra.Command{
		Use:   "purge <account-id>",
		Short: "Delete an account, its directory identity and every module assignment",
		Long: `purge removes the group memberships and app role grants of every module
assigned to the account, deletes the directory account and then deletes the
local account and ledger rows. Third-party systems are not deprovisioned.`,
		Args:    cobra.ExactArgs(1),
		PreRunE: loadConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return errors.Wrapf(err, "invalid account id %q", args[0])
			}

			if !purgeConfirm {
				return errors.New("purge is irreversible, re-run with --yes")
			}

			p, err := daemon.NewProvisioner(&cfg)
			if err != nil {
				return err
			}

			return p.PurgeAccount(cmd.Context(), id)
		},
	}
)
