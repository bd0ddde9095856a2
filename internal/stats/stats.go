// Package stats computes aggregate performance metrics from a completed
// backtest's trade ledger and equity curve.
package stats

import (
	"math"

	"butterfly-backtest/internal/models"
)

const tradingDaysPerYear = 252

// Summary aggregates a run's performance.
type Summary struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64

	TotalPnL  float64
	AvgPnL    float64
	AvgWinner float64
	AvgLoser  float64
	// ExpectedValue is the mean P&L per trade.
	ExpectedValue float64

	SharpeRatio    float64
	MaxDrawdown    float64
	MaxDrawdownPct float64

	AvgEntryDTE   float64
	AvgHoldDays   float64
	AvgRewardRisk float64

	ExitReasons map[string]int
}

// Compute derives the summary from trades and the daily equity curve.
// An empty ledger yields a zero summary with no exit reasons.
func Compute(trades []models.Trade, curve []models.EquityPoint) Summary {
	s := Summary{ExitReasons: make(map[string]int)}
	if len(trades) == 0 {
		return s
	}

	var (
		sumPnL, sumWin, sumLoss     float64
		sumEntryDTE, sumHold, sumRR float64
	)
	for _, t := range trades {
		sumPnL += t.PnL
		switch {
		case t.PnL > 0:
			s.WinningTrades++
			sumWin += t.PnL
		case t.PnL < 0:
			s.LosingTrades++
			sumLoss += t.PnL
		}
		sumEntryDTE += float64(t.EntryDTE)
		sumHold += float64(t.HoldDays())
		sumRR += t.RewardRisk
		s.ExitReasons[t.ExitReason]++
	}

	n := float64(len(trades))
	s.TotalTrades = len(trades)
	s.WinRate = float64(s.WinningTrades) / n * 100
	s.TotalPnL = sumPnL
	s.AvgPnL = sumPnL / n
	s.ExpectedValue = sumPnL / n
	if s.WinningTrades > 0 {
		s.AvgWinner = sumWin / float64(s.WinningTrades)
	}
	if s.LosingTrades > 0 {
		s.AvgLoser = sumLoss / float64(s.LosingTrades)
	}
	s.AvgEntryDTE = sumEntryDTE / n
	s.AvgHoldDays = sumHold / n
	s.AvgRewardRisk = sumRR / n

	s.SharpeRatio = sharpe(curve)
	s.MaxDrawdown, s.MaxDrawdownPct = maxDrawdown(curve)

	return s
}

// sharpe annualizes the mean/stddev ratio of day-over-day equity changes.
func sharpe(curve []models.EquityPoint) float64 {
	if len(curve) < 2 {
		return 0
	}

	diffs := make([]float64, 0, len(curve)-1)
	var sum float64
	for i := 1; i < len(curve); i++ {
		d := curve[i].Equity - curve[i-1].Equity
		diffs = append(diffs, d)
		sum += d
	}

	mean := sum / float64(len(diffs))
	var variance float64
	for _, d := range diffs {
		variance += (d - mean) * (d - mean)
	}
	// Sample standard deviation.
	if len(diffs) < 2 {
		return 0
	}
	std := math.Sqrt(variance / float64(len(diffs)-1))
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(tradingDaysPerYear)
}

// maxDrawdown returns the deepest equity decline from a running peak, in
// dollars (negative or zero) and as a percentage of the highest peak.
func maxDrawdown(curve []models.EquityPoint) (float64, float64) {
	if len(curve) == 0 {
		return 0, 0
	}

	var peak, maxPeak, worst float64
	peak = curve[0].Equity
	maxPeak = peak
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > maxPeak {
			maxPeak = peak
		}
		if dd := p.Equity - peak; dd < worst {
			worst = dd
		}
	}

	pct := 0.0
	if maxPeak > 0 {
		pct = worst / maxPeak * 100
	}
	return worst, pct
}

// DrawdownSeries returns the per-day drawdown from the running equity peak.
func DrawdownSeries(curve []models.EquityPoint) []models.EquityPoint {
	out := make([]models.EquityPoint, len(curve))
	var peak float64
	if len(curve) > 0 {
		peak = curve[0].Equity
	}
	for i, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		out[i] = models.EquityPoint{Date: p.Date, Equity: p.Equity - peak}
	}
	return out
}
