package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/illarion/lockvault/internal/storage"
)

func newCompactCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Compact the ledger to reclaim space left by closed accounts",
		Long:  "Compacts the ledger file. Does not require a password.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLedger(cmd.Context(), false, func() error {
				c, ok := a.backend.(storage.Compactor)
				if !ok {
					return fmt.Errorf("backend %s does not support compaction", a.cfg.Backend)
				}

				info, err := os.Stat(a.cfg.LedgerPath())
				if err != nil {
					return err
				}
				sizeBefore := info.Size()

				if err := c.Compact(); err != nil {
					return err
				}

				info, err = os.Stat(a.cfg.LedgerPath())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(info.Size()))
				return nil
			})
		},
	}
}
