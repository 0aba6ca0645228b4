package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/lockvault/internal/ledger"
	"github.com/illarion/lockvault/internal/pubkey"
	"github.com/illarion/lockvault/internal/token"
)

func newAirdropCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "airdrop <sol> [address]",
		Short: "Credit lamports to an address on the local ledger",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lamports, err := parseAmount(args[0], ledger.NativeDecimals)
			if err != nil {
				return err
			}
			return a.withLedger(cmd.Context(), false, func() error {
				to, err := a.resolveAddress(args, 1)
				if err != nil {
					return err
				}
				var balance uint64
				err = a.ledger.Update(cmd.Context(), func(tx *ledger.Tx) error {
					if err := tx.Airdrop(to, lamports); err != nil {
						return err
					}
					balance, err = tx.Balance(to)
					return err
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Airdropped %s SOL to %s (balance %s SOL)\n",
					formatAmount(lamports, ledger.NativeDecimals), to, formatAmount(balance, ledger.NativeDecimals))
				return nil
			})
		},
	}
}

func newBalanceCommand(a *app) *cobra.Command {
	var mintFlag string
	cmd := &cobra.Command{
		Use:   "balance [address]",
		Short: "Show the lamport or token balance of an address",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLedger(cmd.Context(), false, func() error {
				owner, err := a.resolveAddress(args, 0)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()

				if mintFlag == "" {
					var lamports uint64
					err := a.ledger.View(cmd.Context(), func(tx *ledger.Tx) error {
						var err error
						lamports, err = tx.Balance(owner)
						return err
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s SOL\n", formatAmount(lamports, ledger.NativeDecimals))
					return nil
				}

				mint, err := pubkey.Parse(mintFlag)
				if err != nil {
					return err
				}
				amount, decimals, err := a.tokenBalance(cmd, owner, mint)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\n", formatAmount(amount, decimals))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&mintFlag, "mint", "", "show the balance of this token mint")
	return cmd
}

// tokenBalance reads owner's associated account for mint. A missing
// account holds nothing.
func (a *app) tokenBalance(cmd *cobra.Command, owner, mint pubkey.PublicKey) (uint64, uint8, error) {
	var amount uint64
	var decimals uint8
	err := a.ledger.View(cmd.Context(), func(tx *ledger.Tx) error {
		m, err := token.FetchMint(tx, mint)
		if err != nil {
			return err
		}
		decimals = m.Decimals

		ata, err := token.AssociatedAddress(owner, mint)
		if err != nil {
			return err
		}
		exists, err := tx.Exists(ata)
		if err != nil || !exists {
			return err
		}
		acc, err := token.FetchAccount(tx, ata)
		if err != nil {
			return err
		}
		amount = acc.Amount
		return nil
	})
	return amount, decimals, err
}
