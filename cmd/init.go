package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/lockvault/internal/keystore"
	"github.com/illarion/lockvault/internal/storage"
)

func newInitCommand(a *app) *cobra.Command {
	var noKey bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a ledger and a signing key in the data directory",
		Long: `Creates the ledger in the data directory and, unless --no-key is given,
generates the selected signing key. The key password is read from
LOCKVAULT_PASSWORD or prompted for.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLedger(cmd.Context(), true, func() error {
				meta, err := storage.Initialize(cmd.Context(), a.backend)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "✓ Initialized ledger %s (%s)\n", meta.LedgerID, a.cfg.Backend)

				if noKey {
					return nil
				}
				_, err = a.keys.Address(a.cfg.Key)
				switch {
				case err == nil:
					fmt.Fprintf(out, "Using existing key %q\n", a.cfg.Key)
					return nil
				case errors.Is(err, keystore.ErrKeyNotFound):
					return a.generateKey(cmd, a.cfg.Key)
				default:
					return err
				}
			})
		},
	}
	cmd.Flags().BoolVar(&noKey, "no-key", false, "do not generate a signing key")
	return cmd
}
