package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/lockvault/internal/git"
	"github.com/illarion/lockvault/internal/keyring"
	"github.com/illarion/lockvault/internal/ledger"
	"github.com/illarion/lockvault/internal/storage"
)

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show ledger, key and vault status",
		Long:  "Shows the state of the data directory. Does not require a password.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withLedger(ctx, false, func() error {
				out := cmd.OutOrStdout()
				meta, err := storage.ReadMetadata(ctx, a.backend)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "Ledger:")
				fmt.Fprintf(out, "   Path:     %s\n", a.cfg.LedgerPath())
				fmt.Fprintf(out, "   Backend:  %s\n", a.cfg.Backend)
				fmt.Fprintf(out, "   ID:       %s\n", meta.LedgerID)
				fmt.Fprintf(out, "   Created:  %s\n", meta.Created.Format("2006-01-02 15:04:05 MST"))

				fmt.Fprintln(out, "\nKey:")
				owner, err := a.address()
				if err != nil {
					fmt.Fprintf(out, "   %s: %s\n", a.cfg.Key, err)
				} else {
					var lamports uint64
					err := a.ledger.View(ctx, func(tx *ledger.Tx) error {
						var err error
						lamports, err = tx.Balance(owner)
						return err
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "   Name:     %s\n", a.cfg.Key)
					fmt.Fprintf(out, "   Address:  %s\n", owner)
					fmt.Fprintf(out, "   Balance:  %s SOL\n", formatAmount(lamports, ledger.NativeDecimals))
					if a.cfg.Keyring && keyring.HasPassword(owner.String()) {
						fmt.Fprintln(out, "   Password: stored in keyring")
					}

					entries, err := a.program.List(ctx, owner)
					if err != nil {
						return err
					}
					now := a.clock.Now().Unix()
					var unlocked int
					for _, e := range entries {
						if e.Vault.Unlocked(now) {
							unlocked++
						}
					}
					fmt.Fprintln(out, "\nVaults:")
					fmt.Fprintf(out, "   Total:    %d\n", len(entries))
					fmt.Fprintf(out, "   Unlocked: %d\n", unlocked)
					fmt.Fprintf(out, "   Locked:   %d\n", len(entries)-unlocked)
				}

				status, err := git.CheckDataDir(".", a.cfg.DataDir)
				if err != nil {
					a.log.Debug().Err(err).Msg("git check failed")
					return nil
				}
				fmt.Fprint(out, git.FormatGitStatus(status))
				return nil
			})
		},
	}
}
