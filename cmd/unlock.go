package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/lockvault/internal/ledger"
	"github.com/illarion/lockvault/internal/timelock"
	"github.com/illarion/lockvault/internal/token"
)

func newUnlockCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <id>",
		Short: "Release an unlocked vault back to its owner",
		Long: `Releases the vault <id> of the selected key. The locked amount and the
rent deposits return to the key. Fails until the unlock time has passed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withLedger(ctx, false, func() error {
				owner, err := a.address()
				if err != nil {
					return err
				}
				address, v, err := a.program.FetchByID(ctx, owner, args[0])
				if err != nil {
					return err
				}
				now := a.clock.Now().Unix()
				if !v.Unlocked(now) {
					return timelock.Error{
						Code:        timelock.ErrVaultNotUnlocked,
						Description: fmt.Sprintf("Vault %q unlocks in %s", v.ID, formatCountdown(v.UnlockTime, now)),
					}
				}

				decimals := uint8(ledger.NativeDecimals)
				if v.IsToken() {
					err := a.ledger.View(ctx, func(tx *ledger.Tx) error {
						m, err := token.FetchMint(tx, *v.Mint)
						if err != nil {
							return err
						}
						decimals = m.Decimals
						return nil
					})
					if err != nil {
						return err
					}
				}

				key, auth, err := a.signer()
				if err != nil {
					return err
				}
				defer key.Destroy()

				var receipt *timelock.Receipt
				unit := "SOL"
				if v.IsToken() {
					receipt, err = a.program.ReleaseToken(ctx, auth, address, decimals)
					unit = "tokens"
				} else {
					receipt, err = a.program.ReleaseNative(ctx, auth, address)
				}
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "✓ Released %s %s from vault %q\n", formatAmount(receipt.Amount, decimals), unit, v.ID)
				fmt.Fprintf(out, "  Rent refund: %s SOL\n", formatAmount(receipt.Refund, ledger.NativeDecimals))
				fmt.Fprintf(out, "  Signature:   %s\n", receipt.Signature)
				return nil
			})
		},
	}
}
