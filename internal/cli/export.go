package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"tradeJournal/internal/utils"
)

func newExportCmd(rc *RootConfig) *cobra.Command {
	var ff filterFlags
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the wallet's trades as CSV",
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

			if output == "" || output == "-" {
				return utils.WriteTrades(cmd.OutOrStdout(), trades)
			}
			if err := utils.WriteTradesToCSV(trades, output); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			j.logger.Info(cmd.Context(), "Trades exported", map[string]interface{}{"path": output, "trades": len(trades)})
			return nil
		},
	}

	ff.register(cmd)
	ff.registerOpen(cmd, true)
	cmd.Flags().StringVarP(&output, "output", "o", "-", "CSV file to write, - for stdout")
	return cmd
}
