package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncCmd(rc *RootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Cache new fills and rebuild the wallet's trades",
		Long: `Sync reads the wallet's fills export, stores fills not seen before,
then rebuilds every trade from the full cached history.

Example:
  tradejournal sync --wallet 0xabc --fills ./exports/fills.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := rc.open(cmd)
			if err != nil {
				return err
			}
			defer j.Close()

			report, err := j.service.Sync(cmd.Context(), j.cfg.Wallet)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "wallet:         %s\n", report.WalletID)
			fmt.Fprintf(out, "fills loaded:   %d\n", report.FillsLoaded)
			fmt.Fprintf(out, "fills new:      %d\n", report.FillsCached)
			fmt.Fprintf(out, "fills total:    %d\n", report.FillsTotal)
			fmt.Fprintf(out, "trades:         %d (%d open)\n", report.Trades, report.OpenTrades)
			fmt.Fprintf(out, "orphan closes:  %d\n", report.OrphanCloses)
			fmt.Fprintf(out, "rejected fills: %d\n", report.Rejected)
			if report.ReconcileFailures > 0 {
				fmt.Fprintf(out, "unreconciled:   %d\n", report.ReconcileFailures)
			}
			return nil
		},
	}
}
