package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"SettlementEngine/internal/config"
	"SettlementEngine/internal/model"
	"SettlementEngine/internal/recorder"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the most recent persisted transfer records",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			cfg, err := config.Load(configPath(cmd))
			if err != nil {
				return err
			}
			rec, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, nil)
			if err != nil {
				return err
			}
			defer rec.Close()

			rows, err := rec.RecentTransfers(limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TICK\tTYPE\tDEBIT\tCREDIT\tAMOUNT\tMEMO")
			for _, r := range rows {
				amount := model.NewMoney(r.Amount, model.Currency(r.Currency))
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", r.Tick, r.Type, r.DebitID, r.CreditID, amount, r.Memo)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int("limit", 20, "Number of records to show")
	return cmd
}
