package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newTradesCmd(rc *RootConfig) *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List the wallet's trades",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := ff.build()
			if err != nil {
				return err
			}

			j, err := rc.open(cmd)
			if err != nil {
				return err
			}
			defer j.Close()

			trades, err := j.service.Trades(cmd.Context(), j.cfg.Wallet, filter)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tINSTRUMENT\tDIR\tSTATUS\tOPENED\tHOLD\tSIZE\tENTRY\tEXIT\tPNL\tFEES\tMAE\tMFE")
			for _, t := range trades {
				exit, hold := "-", "-"
				if t.ExitPrice.Valid {
					exit = t.ExitPrice.Decimal.String()
				}
				if t.HoldDuration != nil {
					hold = t.HoldDuration.Round(time.Second).String()
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%.2f%%\t%.2f%%\n",
					t.ID, t.Instrument, t.Direction, t.Status,
					t.OpenTime.UTC().Format("2006-01-02 15:04:05"), hold,
					t.Size, t.EntryPrice, exit, t.RealizedPnl, t.Fees,
					t.MAE*100, t.MFE*100)
			}
			return w.Flush()
		},
	}

	ff.register(cmd)
	ff.registerOpen(cmd, true)
	return cmd
}
