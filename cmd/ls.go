package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/illarion/lockvault/internal/ledger"
	"github.com/illarion/lockvault/internal/pubkey"
	"github.com/illarion/lockvault/internal/timelock"
)

func newLsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "ls [owner]",
		Aliases: []string{"list"},
		Short:   "List the vaults of an owner",
		Long:    "Lists the vaults of owner (default: the selected key). Does not require a password.",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLedger(cmd.Context(), false, func() error {
				owner, err := a.resolveAddress(args, 0)
				if err != nil {
					return err
				}
				entries, err := a.program.List(cmd.Context(), owner)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No vaults")
					return nil
				}

				now := a.clock.Now().Unix()
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tAMOUNT\tASSET\tUNLOCKS\tSTATE")
				for _, e := range entries {
					v := e.Vault
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						v.ID, vaultAmount(v), vaultAsset(v), formatTime(v.UnlockTime), formatCountdown(v.UnlockTime, now))
				}
				return w.Flush()
			})
		},
	}
}

func newShowCommand(a *app) *cobra.Command {
	var byAddress bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one vault in detail",
		Long: `Shows the vault <id> of the selected key, or with --address the vault
at the given address. Does not require a password.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withLedger(ctx, false, func() error {
				var address pubkey.PublicKey
				var v *timelock.Vault
				var err error
				if byAddress {
					if address, err = pubkey.Parse(args[0]); err != nil {
						return err
					}
					v, err = a.program.Fetch(ctx, address)
				} else {
					var owner pubkey.PublicKey
					if owner, err = a.address(); err != nil {
						return err
					}
					address, v, err = a.program.FetchByID(ctx, owner, args[0])
				}
				if err != nil {
					return err
				}

				var lamports uint64
				err = a.ledger.View(ctx, func(tx *ledger.Tx) error {
					lamports, err = tx.Balance(address)
					return err
				})
				if err != nil {
					return err
				}
				printVault(cmd.OutOrStdout(), address, v, lamports, a.clock.Now().Unix())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&byAddress, "address", false, "treat the argument as a vault address")
	return cmd
}

func printVault(out io.Writer, address pubkey.PublicKey, v *timelock.Vault, lamports uint64, now int64) {
	fmt.Fprintf(out, "Vault %q\n", v.ID)
	fmt.Fprintf(out, "  Address:  %s\n", address)
	fmt.Fprintf(out, "  Owner:    %s\n", v.Owner)
	fmt.Fprintf(out, "  Asset:    %s\n", vaultAsset(v))
	fmt.Fprintf(out, "  Amount:   %s\n", vaultAmount(v))
	fmt.Fprintf(out, "  Balance:  %s SOL\n", formatAmount(lamports, ledger.NativeDecimals))
	fmt.Fprintf(out, "  Created:  %s\n", formatTime(v.CreatedAt))
	fmt.Fprintf(out, "  Unlocks:  %s\n", formatTime(v.UnlockTime))
	fmt.Fprintf(out, "  State:    %s\n", formatCountdown(v.UnlockTime, now))
}

// vaultAmount renders the locked amount. Token amounts are shown in base
// units since the vault record does not carry decimals.
func vaultAmount(v *timelock.Vault) string {
	if v.IsToken() {
		return fmt.Sprintf("%d", v.Amount)
	}
	return formatAmount(v.Amount, ledger.NativeDecimals)
}

func vaultAsset(v *timelock.Vault) string {
	if v.IsToken() {
		return v.Mint.String()
	}
	return "SOL"
}
