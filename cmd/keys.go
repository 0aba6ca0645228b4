package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/lockvault/internal/keyring"
	"github.com/illarion/lockvault/internal/keystore"
)

// generateKey creates and seals a new key under name
func (a *app) generateKey(cmd *cobra.Command, name string) error {
	password, err := a.passwords().ForNewKey()
	if err != nil {
		return err
	}
	defer clearPassword(password)

	addr, err := a.keys.Generate(name, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Generated key %q: %s\n", name, addr)
	return nil
}

func newKeygenCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keygen [name]",
		Short: "Generate a new signing key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := a.cfg.Key
			if len(args) == 1 {
				name = args[0]
			}
			return a.withLedger(cmd.Context(), false, func() error {
				return a.generateKey(cmd, name)
			})
		},
	}
}

func newAddressCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the address of the selected key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLedger(cmd.Context(), false, func() error {
				addr, err := a.address()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), addr)
				return nil
			})
		},
	}
}

func newKeysCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List signing keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLedger(cmd.Context(), false, func() error {
				names, err := a.keys.List()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(names) == 0 {
					fmt.Fprintln(out, "No keys")
					return nil
				}
				for _, name := range names {
					addr, err := a.keys.Address(name)
					if err != nil {
						fmt.Fprintf(out, "  %-16s (unreadable: %s)\n", name, err)
						continue
					}
					marker := " "
					if name == a.cfg.Key {
						marker = "*"
					}
					fmt.Fprintf(out, "%s %-16s %s\n", marker, name, addr)
				}
				return nil
			})
		},
	}
}

func newPasswdCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change the password of the selected key",
		Long: `Re-seals the selected key under a new password. A password stored in
the OS keyring for the key is removed, since it no longer opens it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLedger(cmd.Context(), false, func() error {
				addr, err := a.address()
				if err != nil {
					return err
				}

				current, err := a.passwords().ForKey(addr.String())
				if err != nil {
					return err
				}
				defer clearPassword(current)

				next, err := keystore.ReadPasswordConfirm("Enter new password: ")
				if err != nil {
					return err
				}
				defer clearPassword(next)

				if err := a.keys.ChangePassword(a.cfg.Key, current, next); err != nil {
					return err
				}
				if a.cfg.Keyring {
					if err := keyring.DeletePassword(addr.String()); err != nil {
						a.log.Warn().Err(err).Msg("failed to remove stale keyring entry")
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), "✓ Password changed")
				return nil
			})
		},
	}
}
