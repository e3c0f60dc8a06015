package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tradeJournal/internal/analytics"
)

func newStatsCmd(rc *RootConfig) *cobra.Command {
	var ff filterFlags
	var net, daily bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print performance statistics as YAML",
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

			var opts analytics.Options
			if net {
				opts.Basis = analytics.BasisNet
			}
			stats, err := j.service.Statistics(cmd.Context(), j.cfg.Wallet, filter, opts)
			if err != nil {
				return err
			}
			if !daily {
				stats.DailyPnl = nil
				stats.MonthlyPnl = nil
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(stats); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	ff.register(cmd)
	cmd.Flags().BoolVar(&net, "net", false, "Classify wins and losses on pnl after fees")
	cmd.Flags().BoolVar(&daily, "breakdown", false, "Include daily and monthly pnl")
	return cmd
}
