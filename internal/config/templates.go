package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Butterfly Backtest Configuration

[strategy]
# Days-to-expiration window for entries
min_dte = 28
max_dte = 40
target_dte = 35
# Distance of each wing from the ATM strike
wing_width = 3.0

# Entry filters (all must pass)
min_reward_risk = 10.0
max_spread_pct = 30.0
min_volume = 50
min_open_interest = 100

# Exit thresholds
profit_target_pct = 10.0
loss_limit_pct = 20.0
force_exit_dte = 7

# Sizing and friction
contracts = 1
commission_per_contract = 0.65
slippage_pct = 0.01

[download]
# Theta Terminal v3 base URL
base_url = "http://127.0.0.1:25510"
symbol = "SPY"
start_date = "2022-01-01"
end_date = "2024-11-11"
# Adjust based on your subscription tier
rate_limit_per_minute = 100
max_retries = 3
# Save checkpoint every N trading days
checkpoint_interval = 10
checkpoint_file = "download_checkpoint.json"
output_file = "options_data.csv"

[output]
trade_log_file = "butterfly_trades.csv"
chart_width = 80
chart_height = 15

[logging]
# trace, debug, info, warn, error
level = "info"
max_size_mb = 10
max_backups = 3
max_age_days = 30
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
