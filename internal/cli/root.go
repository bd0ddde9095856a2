package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"butterfly-backtest/internal/config"
	"butterfly-backtest/internal/logging"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2026-08-01"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	rootCmd := &cobra.Command{
		Use:   "butterfly",
		Short: "Iron butterfly options backtester",
		Long: `Butterfly backtests a long iron butterfly strategy on historical
end-of-day option chains.

It downloads chains from a local Theta Terminal, runs the day-by-day
simulation with configurable entry filters and exit rules, and reports
trade statistics with an equity curve.

Use 'butterfly help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/butterfly-backtest)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newDownloadCmd(app))
	rootCmd.AddCommand(newRunsCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("butterfly v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Strategy")
	output.Printf("  DTE Window:       %d to %d (target %d)\n", cfg.Strategy.MinDTE, cfg.Strategy.MaxDTE, cfg.Strategy.TargetDTE)
	output.Printf("  Wing Width:       %.2f\n", cfg.Strategy.WingWidth)
	output.Printf("  Min Reward/Risk:  %.1f\n", cfg.Strategy.MinRewardRisk)
	output.Printf("  Max Spread %%:     %.1f\n", cfg.Strategy.MaxSpreadPct)
	output.Printf("  Min Volume:       %d\n", cfg.Strategy.MinVolume)
	output.Printf("  Min Open Int:     %d\n", cfg.Strategy.MinOpenInterest)
	output.Printf("  Profit Target:    %.1f%%\n", cfg.Strategy.ProfitTargetPct)
	output.Printf("  Loss Limit:       %.1f%%\n", cfg.Strategy.LossLimitPct)
	output.Printf("  Force Exit DTE:   %d\n", cfg.Strategy.ForceExitDTE)
	output.Printf("  Contracts:        %d\n", cfg.Strategy.Contracts)
	output.Printf("  Commission:       %.2f per contract\n", cfg.Strategy.CommissionPerContract)
	output.Printf("  Slippage:         %.2f%%\n", cfg.Strategy.SlippagePct*100)
	output.Println()

	output.Bold("Download")
	output.Printf("  Terminal URL:     %s\n", cfg.Download.BaseURL)
	output.Printf("  Symbol:           %s\n", cfg.Download.Symbol)
	output.Printf("  Date Range:       %s to %s\n", cfg.Download.StartDate, cfg.Download.EndDate)
	output.Printf("  Rate Limit:       %d calls/min\n", cfg.Download.RateLimitPerMinute)
	output.Println()

	output.Bold("Output")
	output.Printf("  Trade Log:        %s\n", cfg.Output.TradeLogFile)
	output.Printf("  Database:         %s\n", cfg.Output.DatabaseFile)

	output.Println()
	output.Bold("Logging")
	output.Printf("  Level:            %s\n", cfg.Logging.Level)
}
