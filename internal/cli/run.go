package cli

import (
	"sort"

	"github.com/spf13/cobra"

	"butterfly-backtest/internal/backtest"
	"butterfly-backtest/internal/chain"
	"butterfly-backtest/internal/report"
	"butterfly-backtest/internal/stats"
	"butterfly-backtest/internal/store"
)

func newRunCmd(app *App) *cobra.Command {
	var (
		tradeLog string
		noSave   bool
		noCharts bool
	)

	cmd := &cobra.Command{
		Use:   "run <dataset.csv>",
		Short: "Run the backtest on a historical dataset",
		Long: `Run the iron butterfly backtest over a CSV of end-of-day option
chains and report trade statistics, the equity curve, and drawdown.

The dataset needs one row per (date, expiration, strike, type) with
columns: date, expiration, strike, type, bid, ask, volume,
open_interest, delta.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			dataset := args[0]

			chainStore, loadStats, err := chain.LoadCSV(dataset, app.Logger)
			if err != nil {
				return err
			}
			if loadStats.BadQuotes > 0 {
				output.Warning("⚠ %d quotes violate the bid/ask invariant", loadStats.BadQuotes)
			}

			cfg := app.Config.Backtest()
			if err := cfg.Validate(); err != nil {
				return err
			}

			engine := backtest.NewEngine(chainStore, cfg, app.Logger)
			result, err := engine.Run(cmd.Context())
			if err != nil {
				return err
			}

			summary := stats.Compute(result.Trades, result.EquityCurve)

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"summary": summary,
					"trades":  result.Trades,
				})
			}

			printSummary(output, summary)

			if !noCharts && len(result.EquityCurve) > 0 {
				w, h := app.Config.Output.ChartWidth, app.Config.Output.ChartHeight
				output.Println()
				output.Println(report.EquityCurveASCII(result.EquityCurve, w, h))
				output.Println(report.DrawdownASCII(result.EquityCurve, w, h))
			}

			if tradeLog == "" {
				tradeLog = app.Config.Output.TradeLogFile
			}
			if len(result.Trades) > 0 {
				if err := report.WriteTradeLog(tradeLog, result.Trades); err != nil {
					return err
				}
				output.Info("Trade log saved to %s", tradeLog)
			}

			if !noSave {
				runStore, err := store.NewSQLiteStore(app.Config.Output.DatabaseFile)
				if err != nil {
					output.Warning("⚠ Could not open run database: %v", err)
					return nil
				}
				defer runStore.Close()

				runID, err := runStore.SaveRun(cmd.Context(), dataset, cfg, result, summary)
				if err != nil {
					output.Warning("⚠ Could not save run: %v", err)
					return nil
				}
				output.Dim("Saved as run #%d", runID)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&tradeLog, "trade-log", "", "trade log CSV path (default from config)")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "skip saving the run to the database")
	cmd.Flags().BoolVar(&noCharts, "no-charts", false, "skip the ASCII charts")

	return cmd
}

func printSummary(output *Output, s stats.Summary) {
	if s.TotalTrades == 0 {
		output.Warning("No trades executed during backtest period.")
		return
	}

	output.Bold("Trade Statistics")
	output.Printf("  Total Trades:     %d\n", s.TotalTrades)
	output.Printf("  Winning Trades:   %d\n", s.WinningTrades)
	output.Printf("  Losing Trades:    %d\n", s.LosingTrades)
	output.Printf("  Win Rate:         %.2f%%\n", s.WinRate)
	output.Println()

	output.Bold("P&L Statistics")
	output.Printf("  Total P&L:        %s\n", output.FormatPnL(s.TotalPnL))
	output.Printf("  Average P&L:      %s\n", output.FormatPnL(s.AvgPnL))
	output.Printf("  Average Winner:   %s\n", output.FormatPnL(s.AvgWinner))
	output.Printf("  Average Loser:    %s\n", output.FormatPnL(s.AvgLoser))
	output.Printf("  Expected Value:   %s per trade\n", output.FormatPnL(s.ExpectedValue))
	output.Println()

	output.Bold("Risk Metrics")
	output.Printf("  Sharpe Ratio:     %.2f\n", s.SharpeRatio)
	output.Printf("  Max Drawdown:     %s (%.1f%%)\n", output.FormatPnL(s.MaxDrawdown), s.MaxDrawdownPct)
	output.Println()

	output.Bold("Average Metrics")
	output.Printf("  Avg Entry DTE:    %.1f days\n", s.AvgEntryDTE)
	output.Printf("  Avg Hold Time:    %.1f days\n", s.AvgHoldDays)
	output.Printf("  Avg Reward/Risk:  %.2f\n", s.AvgRewardRisk)
	output.Println()

	output.Bold("Exit Reasons")
	reasons := make([]string, 0, len(s.ExitReasons))
	for reason := range s.ExitReasons {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		output.Printf("  %s: %d\n", reason, s.ExitReasons[reason])
	}
}
