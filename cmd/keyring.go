package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/lockvault/internal/keyring"
	"github.com/illarion/lockvault/internal/keystore"
)

func newKeyringCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyring",
		Short: "Manage the selected key's password in the OS keyring",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "save",
			Short: "Save the key password to the OS keyring",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withLedger(cmd.Context(), false, func() error {
					addr, err := a.address()
					if err != nil {
						return err
					}
					password := []byte(a.cfg.Password)
					if len(password) == 0 {
						if password, err = keystore.ReadPassword("Enter password: "); err != nil {
							return err
						}
					}
					defer clearPassword(password)

					// Verify password is correct
					key, err := a.keys.Open(a.cfg.Key, password)
					if err != nil {
						return err
					}
					key.Destroy()

					if err := keyring.SavePassword(addr.String(), string(password)); err != nil {
						return fmt.Errorf("failed to save to keyring: %w", err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Password saved to keyring")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "delete",
			Short: "Remove the key password from the OS keyring",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withLedger(cmd.Context(), false, func() error {
					addr, err := a.address()
					if err != nil {
						return err
					}
					if !keyring.HasPassword(addr.String()) {
						fmt.Fprintln(cmd.OutOrStdout(), "No password stored in keyring")
						return nil
					}
					if err := keyring.DeletePassword(addr.String()); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Password removed from keyring")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Report whether the key password is in the OS keyring",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withLedger(cmd.Context(), false, func() error {
					addr, err := a.address()
					if err != nil {
						return err
					}
					if keyring.HasPassword(addr.String()) {
						fmt.Fprintln(cmd.OutOrStdout(), "Password: stored in keyring")
					} else {
						fmt.Fprintln(cmd.OutOrStdout(), "Password: not stored")
					}
					return nil
				})
			},
		},
	)
	return cmd
}
