package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"butterfly-backtest/internal/download"
)

func newDownloadCmd(app *App) *cobra.Command {
	var (
		symbol string
		start  string
		end    string
		out    string
		minDTE int
		maxDTE int
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download historical option chains from Theta Terminal",
		Long: `Download end-of-day option chains for the configured symbol and
date range into the backtest input CSV.

A local Theta Terminal must be running. The download checkpoints its
progress periodically and resumes where it left off when re-run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			dcfg := app.Config.Download

			if symbol == "" {
				symbol = dcfg.Symbol
			}
			if start == "" {
				start = dcfg.StartDate
			}
			if end == "" {
				end = dcfg.EndDate
			}
			if out == "" {
				out = dcfg.OutputFile
			}

			startDate, err := time.Parse("2006-01-02", start)
			if err != nil {
				return fmt.Errorf("invalid start date %q: %w", start, err)
			}
			endDate, err := time.Parse("2006-01-02", end)
			if err != nil {
				return fmt.Errorf("invalid end date %q: %w", end, err)
			}
			if endDate.Before(startDate) {
				return fmt.Errorf("end date %s is before start date %s", end, start)
			}

			output.Info("Downloading %s chains from %s to %s", symbol, start, end)

			client := download.NewClient(dcfg.BaseURL, dcfg.RateLimitPerMinute, dcfg.MaxRetries, app.Logger)
			dl := download.NewDownloader(client, download.Options{
				Symbol:             symbol,
				Start:              startDate,
				End:                endDate,
				MinDTE:             minDTE,
				MaxDTE:             maxDTE,
				CheckpointInterval: dcfg.CheckpointInterval,
				CheckpointFile:     dcfg.CheckpointFile,
			}, app.Logger)

			if err := dl.Run(cmd.Context()); err != nil {
				return err
			}
			if err := dl.SaveCSV(out); err != nil {
				return err
			}

			output.Success("✓ Dataset saved to %s", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "root symbol (default from config)")
	cmd.Flags().StringVar(&start, "start", "", "start date YYYY-MM-DD (default from config)")
	cmd.Flags().StringVar(&end, "end", "", "end date YYYY-MM-DD (default from config)")
	cmd.Flags().StringVar(&out, "out", "", "output CSV path (default from config)")
	cmd.Flags().IntVar(&minDTE, "min-dte", 28, "minimum DTE to download")
	cmd.Flags().IntVar(&maxDTE, "max-dte", 40, "maximum DTE to download")

	return cmd
}
