package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/illarion/lockvault/internal/ledger"
	"github.com/illarion/lockvault/internal/pubkey"
	"github.com/illarion/lockvault/internal/timelock"
	"github.com/illarion/lockvault/internal/token"
)

func newLockCommand(a *app) *cobra.Command {
	var id, until, mintFlag string
	cmd := &cobra.Command{
		Use:   "lock <amount> --until <time>",
		Short: "Lock lamports or tokens in a new vault until a point in time",
		Long: `Creates a vault holding <amount> SOL, or tokens of --mint, that only the
selected key can release once the unlock time has passed.

The unlock time is unix seconds, RFC 3339, YYYY-MM-DD, or an offset from
now such as +90m, +12h or +30d. The vault id defaults to the next free
number for the key.`,
		Example: `  lockvault lock 1.5 --until +30d
  lockvault lock 250 --mint <mint> --until 2027-01-01 --id savings`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			unlock, err := parseUnlockTime(until, a.clock.Now())
			if err != nil {
				return err
			}
			return a.withLedger(ctx, false, func() error {
				owner, err := a.address()
				if err != nil {
					return err
				}

				decimals := uint8(ledger.NativeDecimals)
				var mint pubkey.PublicKey
				if mintFlag != "" {
					if mint, err = pubkey.Parse(mintFlag); err != nil {
						return err
					}
					err = a.ledger.View(ctx, func(tx *ledger.Tx) error {
						m, err := token.FetchMint(tx, mint)
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
				amount, err := parseAmount(args[0], decimals)
				if err != nil {
					return err
				}

				vaultID := id
				if vaultID == "" {
					if vaultID, err = a.program.NextID(ctx, owner); err != nil {
						return err
					}
				}

				key, auth, err := a.signer()
				if err != nil {
					return err
				}
				defer key.Destroy()

				params := timelock.CreateParams{ID: vaultID, Amount: amount, UnlockTime: unlock}
				var receipt *timelock.Receipt
				if mintFlag == "" {
					receipt, err = a.program.CreateNative(ctx, auth, params)
				} else {
					receipt, err = a.program.CreateToken(ctx, auth, params, mint, decimals)
				}
				if err != nil {
					return err
				}

				unit := "SOL"
				if mintFlag != "" {
					unit = "tokens"
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "✓ Locked %s %s in vault %q\n", formatAmount(amount, decimals), unit, vaultID)
				fmt.Fprintf(out, "  Address:   %s\n", receipt.Address)
				fmt.Fprintf(out, "  Unlocks:   %s (%s)\n", formatTime(unlock), formatCountdown(unlock, receipt.Vault.CreatedAt))
				fmt.Fprintf(out, "  Signature: %s\n", receipt.Signature)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&id, "id", "", "vault id (default: next free number)")
	f.StringVar(&until, "until", "", "unlock time")
	f.StringVar(&mintFlag, "mint", "", "lock tokens of this mint instead of SOL")
	_ = cmd.MarkFlagRequired("until")
	return cmd
}
