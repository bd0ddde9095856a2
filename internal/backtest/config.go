package backtest

import (
	"butterfly-backtest/internal/butterfly"
	apperrors "butterfly-backtest/internal/errors"
)

// Config is the full strategy parameter set. It is fixed before a run
// starts; the engine never mutates it.
type Config struct {
	// Entry window.
	MinDTE    int
	MaxDTE    int
	TargetDTE int

	// Structure.
	WingWidth float64

	// Entry filters.
	MinRewardRisk   float64
	MaxSpreadPct    float64
	MinVolume       int64
	MinOpenInterest int64

	// Exit thresholds.
	ProfitTargetPct float64
	LossLimitPct    float64
	ForceExitDTE    int

	// Sizing.
	Contracts int

	// Costs.
	CommissionPerContract float64
	SlippagePct           float64
}

// DefaultConfig returns the reference parameter set.
func DefaultConfig() Config {
	return Config{
		MinDTE:                28,
		MaxDTE:                40,
		TargetDTE:             35,
		WingWidth:             3,
		MinRewardRisk:         10.0,
		MaxSpreadPct:          30,
		MinVolume:             50,
		MinOpenInterest:       100,
		ProfitTargetPct:       10,
		LossLimitPct:          20,
		ForceExitDTE:          7,
		Contracts:             1,
		CommissionPerContract: 0.65,
		SlippagePct:           0.01,
	}
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	if c.MinDTE < 0 {
		return apperrors.NewValidationError("min_dte", c.MinDTE, "must be non-negative")
	}
	if c.MaxDTE < c.MinDTE {
		return apperrors.NewValidationError("max_dte", c.MaxDTE, "must be >= min_dte")
	}
	if c.TargetDTE < c.MinDTE || c.TargetDTE > c.MaxDTE {
		return apperrors.NewValidationError("target_dte", c.TargetDTE, "must fall inside [min_dte, max_dte]")
	}
	if c.WingWidth <= 0 {
		return apperrors.NewValidationError("wing_width", c.WingWidth, "must be positive")
	}
	if c.MinRewardRisk < 0 {
		return apperrors.NewValidationError("min_reward_risk", c.MinRewardRisk, "must be non-negative")
	}
	if c.MaxSpreadPct <= 0 {
		return apperrors.NewValidationError("max_spread_pct", c.MaxSpreadPct, "must be positive")
	}
	if c.MinVolume < 0 {
		return apperrors.NewValidationError("min_volume", c.MinVolume, "must be non-negative")
	}
	if c.MinOpenInterest < 0 {
		return apperrors.NewValidationError("min_open_interest", c.MinOpenInterest, "must be non-negative")
	}
	if c.ProfitTargetPct <= 0 {
		return apperrors.NewValidationError("profit_target_pct", c.ProfitTargetPct, "must be positive")
	}
	if c.LossLimitPct <= 0 {
		return apperrors.NewValidationError("loss_limit_pct", c.LossLimitPct, "must be positive")
	}
	if c.ForceExitDTE < 0 {
		return apperrors.NewValidationError("force_exit_dte", c.ForceExitDTE, "must be non-negative")
	}
	if c.ForceExitDTE >= c.MinDTE && c.MinDTE > 0 {
		return apperrors.NewValidationError("force_exit_dte", c.ForceExitDTE, "must be below min_dte or positions exit immediately")
	}
	if c.Contracts <= 0 {
		return apperrors.NewValidationError("contracts", c.Contracts, "must be positive")
	}
	if c.CommissionPerContract < 0 {
		return apperrors.NewValidationError("commission_per_contract", c.CommissionPerContract, "must be non-negative")
	}
	if c.SlippagePct < 0 {
		return apperrors.NewValidationError("slippage_pct", c.SlippagePct, "must be non-negative")
	}
	return nil
}

// Costs returns the friction parameters as used by the pricer.
func (c Config) Costs() butterfly.Costs {
	return butterfly.Costs{
		CommissionPerContract: c.CommissionPerContract,
		SlippagePct:           c.SlippagePct,
	}
}
