package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"butterfly-backtest/internal/store"
	"butterfly-backtest/pkg/utils"
)

func newRunsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect saved backtest runs",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved runs, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			runStore, err := store.NewSQLiteStore(app.Config.Output.DatabaseFile)
			if err != nil {
				return err
			}
			defer runStore.Close()

			runs, err := runStore.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(runs)
			}
			if len(runs) == 0 {
				output.Dim("No saved runs.")
				return nil
			}

			table := NewTable(output, "ID", "Date", "Dataset", "Trades", "Win Rate", "Total P&L", "Sharpe")
			for _, r := range runs {
				table.AddRow(
					strconv.FormatInt(r.ID, 10),
					r.CreatedAt.Format("2006-01-02 15:04"),
					r.Dataset,
					strconv.Itoa(r.Summary.TotalTrades),
					utils.FormatPercent(r.Summary.WinRate),
					output.FormatPnL(r.Summary.TotalPnL),
					strconv.FormatFloat(r.Summary.SharpeRatio, 'f', 2, 64),
				)
			}
			table.Render()
			return nil
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show a saved run's summary and trades",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return err
			}

			runStore, err := store.NewSQLiteStore(app.Config.Output.DatabaseFile)
			if err != nil {
				return err
			}
			defer runStore.Close()

			run, err := runStore.GetRun(cmd.Context(), id)
			if err != nil {
				return err
			}
			trades, err := runStore.GetRunTrades(cmd.Context(), id)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"run":    run,
					"trades": trades,
				})
			}

			output.Bold("Run #%d", run.ID)
			output.Printf("  Created:  %s\n", run.CreatedAt.Format("2006-01-02 15:04"))
			output.Printf("  Dataset:  %s\n", run.Dataset)
			output.Printf("  Period:   %s to %s\n", run.Start.Format("2006-01-02"), run.End.Format("2006-01-02"))
			output.Println()
			printSummary(output, run.Summary)

			if len(trades) > 0 {
				output.Println()
				table := NewTable(output, "Entry", "Exit", "DTE", "Strike", "P&L", "P&L %", "Reason")
				for _, t := range trades {
					table.AddRow(
						t.EntryDate.Format("2006-01-02"),
						t.ExitDate.Format("2006-01-02"),
						strconv.Itoa(t.EntryDTE),
						strconv.FormatFloat(t.ATMStrike, 'f', 2, 64),
						output.FormatPnL(t.PnL),
						output.FormatPercent(t.PnLPercent),
						t.ExitReason,
					)
				}
				table.Render()
			}
			return nil
		},
	})

	return cmd
}
