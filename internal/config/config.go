// Package config provides configuration management for the backtesting
// application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"

	"butterfly-backtest/internal/backtest"
)

// Config holds all application configuration.
type Config struct {
	Strategy StrategyConfig `mapstructure:"strategy"`
	Download DownloadConfig `mapstructure:"download"`
	Output   OutputConfig   `mapstructure:"output"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// StrategyConfig holds the butterfly strategy parameters.
type StrategyConfig struct {
	MinDTE    int     `mapstructure:"min_dte"`
	MaxDTE    int     `mapstructure:"max_dte"`
	TargetDTE int     `mapstructure:"target_dte"`
	WingWidth float64 `mapstructure:"wing_width"`

	MinRewardRisk   float64 `mapstructure:"min_reward_risk"`
	MaxSpreadPct    float64 `mapstructure:"max_spread_pct"`
	MinVolume       int64   `mapstructure:"min_volume"`
	MinOpenInterest int64   `mapstructure:"min_open_interest"`

	ProfitTargetPct float64 `mapstructure:"profit_target_pct"`
	LossLimitPct    float64 `mapstructure:"loss_limit_pct"`
	ForceExitDTE    int     `mapstructure:"force_exit_dte"`

	Contracts             int     `mapstructure:"contracts"`
	CommissionPerContract float64 `mapstructure:"commission_per_contract"`
	SlippagePct           float64 `mapstructure:"slippage_pct"`
}

// DownloadConfig holds the historical-data downloader parameters.
type DownloadConfig struct {
	BaseURL            string `mapstructure:"base_url"`
	Symbol             string `mapstructure:"symbol"`
	StartDate          string `mapstructure:"start_date"`
	EndDate            string `mapstructure:"end_date"`
	RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute"`
	MaxRetries         int    `mapstructure:"max_retries"`
	CheckpointInterval int    `mapstructure:"checkpoint_interval"`
	CheckpointFile     string `mapstructure:"checkpoint_file"`
	OutputFile         string `mapstructure:"output_file"`
}

// OutputConfig holds report output settings.
type OutputConfig struct {
	TradeLogFile string `mapstructure:"trade_log_file"`
	DatabaseFile string `mapstructure:"database_file"`
	ChartWidth   int    `mapstructure:"chart_width"`
	ChartHeight  int    `mapstructure:"chart_height"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/butterfly-backtest"
	}
	return filepath.Join(home, ".config", "butterfly-backtest")
}

// Load loads configuration from the specified directory, falling back to
// built-in defaults for anything the file does not set. If configDir is
// empty, the default config directory is used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config.toml: %w", err)
		}
		// No config file. Defaults apply; a template is written so the
		// user has something to edit next time.
		if werr := createTemplateConfig(configDir); werr != nil {
			return nil, werr
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := backtest.DefaultConfig()
	v.SetDefault("strategy.min_dte", def.MinDTE)
	v.SetDefault("strategy.max_dte", def.MaxDTE)
	v.SetDefault("strategy.target_dte", def.TargetDTE)
	v.SetDefault("strategy.wing_width", def.WingWidth)
	v.SetDefault("strategy.min_reward_risk", def.MinRewardRisk)
	v.SetDefault("strategy.max_spread_pct", def.MaxSpreadPct)
	v.SetDefault("strategy.min_volume", def.MinVolume)
	v.SetDefault("strategy.min_open_interest", def.MinOpenInterest)
	v.SetDefault("strategy.profit_target_pct", def.ProfitTargetPct)
	v.SetDefault("strategy.loss_limit_pct", def.LossLimitPct)
	v.SetDefault("strategy.force_exit_dte", def.ForceExitDTE)
	v.SetDefault("strategy.contracts", def.Contracts)
	v.SetDefault("strategy.commission_per_contract", def.CommissionPerContract)
	v.SetDefault("strategy.slippage_pct", def.SlippagePct)

	v.SetDefault("download.base_url", "http://127.0.0.1:25510")
	v.SetDefault("download.symbol", "SPY")
	v.SetDefault("download.start_date", "2022-01-01")
	v.SetDefault("download.end_date", "2024-11-11")
	v.SetDefault("download.rate_limit_per_minute", 100)
	v.SetDefault("download.max_retries", 3)
	v.SetDefault("download.checkpoint_interval", 10)
	v.SetDefault("download.checkpoint_file", "download_checkpoint.json")
	v.SetDefault("download.output_file", "options_data.csv")

	v.SetDefault("output.trade_log_file", "butterfly_trades.csv")
	v.SetDefault("output.database_file", filepath.Join(DefaultConfigDir(), "runs.db"))
	v.SetDefault("output.chart_width", 80)
	v.SetDefault("output.chart_height", 15)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", filepath.Join(DefaultConfigDir(), "logs", "backtest.log"))
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 30)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("THETA_BASE_URL"); v != "" {
		cfg.Download.BaseURL = v
	}
	if v := os.Getenv("THETA_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Download.RateLimitPerMinute = n
		}
	}
	if v := os.Getenv("BUTTERFLY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Backtest().Validate(); err != nil {
		return err
	}
	if c.Download.RateLimitPerMinute <= 0 {
		return fmt.Errorf("download rate_limit_per_minute must be positive")
	}
	if c.Download.MaxRetries < 0 {
		return fmt.Errorf("download max_retries must be non-negative")
	}
	if c.Output.ChartWidth <= 0 || c.Output.ChartHeight <= 0 {
		return fmt.Errorf("chart dimensions must be positive")
	}
	return nil
}

// Backtest returns the strategy section as an engine configuration.
func (c *Config) Backtest() backtest.Config {
	return backtest.Config{
		MinDTE:                c.Strategy.MinDTE,
		MaxDTE:                c.Strategy.MaxDTE,
		TargetDTE:             c.Strategy.TargetDTE,
		WingWidth:             c.Strategy.WingWidth,
		MinRewardRisk:         c.Strategy.MinRewardRisk,
		MaxSpreadPct:          c.Strategy.MaxSpreadPct,
		MinVolume:             c.Strategy.MinVolume,
		MinOpenInterest:       c.Strategy.MinOpenInterest,
		ProfitTargetPct:       c.Strategy.ProfitTargetPct,
		LossLimitPct:          c.Strategy.LossLimitPct,
		ForceExitDTE:          c.Strategy.ForceExitDTE,
		Contracts:             c.Strategy.Contracts,
		CommissionPerContract: c.Strategy.CommissionPerContract,
		SlippagePct:           c.Strategy.SlippagePct,
	}
}
