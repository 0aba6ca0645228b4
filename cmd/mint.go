package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/lockvault/internal/keystore"
	"github.com/illarion/lockvault/internal/ledger"
	"github.com/illarion/lockvault/internal/pubkey"
	"github.com/illarion/lockvault/internal/token"
)

func newMintCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Create token mints and issue tokens",
	}
	cmd.AddCommand(newMintCreateCommand(a), newMintToCommand(a))
	return cmd
}

func newMintCreateCommand(a *app) *cobra.Command {
	var decimals uint8
	var fixed bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new token mint with the selected key as mint authority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLedger(cmd.Context(), false, func() error {
				key, payer, err := a.signer()
				if err != nil {
					return err
				}
				defer key.Destroy()

				mintKey, err := keystore.GenerateKey()
				if err != nil {
					return err
				}
				defer mintKey.Destroy()
				mintAuth, err := mintKey.Authority()
				if err != nil {
					return err
				}

				var authority *pubkey.PublicKey
				if !fixed {
					authority = &payer.Key
				}
				var m *token.Mint
				err = a.ledger.Update(cmd.Context(), func(tx *ledger.Tx) error {
					var err error
					m, err = token.InitializeMint(tx, mintAuth, payer, authority, decimals)
					return err
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Created mint %s (%d decimals)\n", m.Address, m.Decimals)
				return nil
			})
		},
	}
	cmd.Flags().Uint8Var(&decimals, "decimals", ledger.NativeDecimals, "token decimals")
	cmd.Flags().BoolVar(&fixed, "fixed", false, "create the mint without a mint authority")
	return cmd
}

func newMintToCommand(a *app) *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "to <mint> <amount>",
		Short: "Issue tokens into an associated token account",
		Long: `Issues tokens of a mint the selected key is authority of. Tokens go to
the associated account of --to (default: the selected key), created when
missing.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := pubkey.Parse(args[0])
			if err != nil {
				return err
			}
			return a.withLedger(cmd.Context(), false, func() error {
				key, auth, err := a.signer()
				if err != nil {
					return err
				}
				defer key.Destroy()

				wallet := auth.Key
				if to != "" {
					if wallet, err = pubkey.Parse(to); err != nil {
						return err
					}
				}

				var amount uint64
				var decimals uint8
				err = a.ledger.Update(cmd.Context(), func(tx *ledger.Tx) error {
					m, err := token.FetchMint(tx, mint)
					if err != nil {
						return err
					}
					decimals = m.Decimals
					if amount, err = parseAmount(args[1], m.Decimals); err != nil {
						return err
					}
					dest, err := token.EnsureAssociatedAccount(tx, auth, wallet, mint)
					if err != nil {
						return err
					}
					return token.MintTo(tx, mint, dest.Address, auth, amount)
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Minted %s to %s\n", formatAmount(amount, decimals), wallet)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "recipient wallet address")
	return cmd
}
