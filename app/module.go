package app

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/staffgate/staffgate/internal/daemon"
)

// maxCredentialsSize bounds what the credentials command reads from stdin.
const maxCredentialsSize = 64 << 10

func init() { //nolint: gochecknoinits
	moduleCmd.AddCommand(moduleCredentialsCmd)
	rootCmd.AddCommand(moduleCmd)
}

var (
	moduleCmd = &cobra.Command{
		Use:   "module",
		Short: "Manage provisioning modules",
	}

	moduleCredentialsCmd = &cobra.Command{
		Use:   "credentials <module-code>",
		Short: "Encrypt and store the external API credentials of a module",
		Long: `credentials reads the token or API key of a module's external provisioning
endpoint from stdin, encrypts it with the configured credential key and stores
it on the module. A trailing newline is dropped.

  printf '%s' "$ERP_TOKEN" | staffgate module credentials ERP`,
		Args:    cobra.ExactArgs(1),
		PreRunE: loadConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := readCredentials(cmd.InOrStdin())
			if err != nil {
				return err
			}

			if err := daemon.SetModuleCredentials(cmd.Context(), &cfg, args[0], secret); err != nil {
				return err
			}

			cmd.Printf("credentials of module %s updated\n", args[0])

			return nil
		},
	}
)

func readCredentials(r io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxCredentialsSize+1))
	if err != nil {
		return "", errors.Wrap(err, "failed to read credentials")
	}

	if len(raw) > maxCredentialsSize {
		return "", errors.Errorf("credentials exceed %d bytes", maxCredentialsSize)
	}

	secret := strings.TrimRight(string(raw), "\r\n")
	if secret == "" {
		return "", errors.New("no credentials on stdin")
	}

	return secret, nil
}
