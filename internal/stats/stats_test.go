package stats

import (
	"math"
	"testing"
	"time"

	"butterfly-backtest/internal/models"
)

func day(n int) time.Time {
	return time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func trade(pnl float64, entryDTE, exitDTE int, reason string) models.Trade {
	return models.Trade{
		EntryDate:  day(0),
		ExitDate:   day(entryDTE - exitDTE),
		EntryDTE:   entryDTE,
		ExitDTE:    exitDTE,
		PnL:        pnl,
		RewardRisk: 2.0,
		ExitReason: reason,
	}
}

func TestComputeEmptyLedger(t *testing.T) {
	s := Compute(nil, nil)
	if s.TotalTrades != 0 || s.WinRate != 0 || s.TotalPnL != 0 {
		t.Errorf("empty ledger produced non-zero summary: %+v", s)
	}
	if len(s.ExitReasons) != 0 {
		t.Errorf("empty ledger has exit reasons: %v", s.ExitReasons)
	}
}

func TestComputeTradeStatistics(t *testing.T) {
	trades := []models.Trade{
		trade(100, 35, 20, "Profit target"),
		trade(-50, 34, 25, "Stop loss"),
		trade(60, 36, 30, "Profit target"),
		trade(0, 33, 7, "Force exit at 7 DTE"),
	}

	s := Compute(trades, nil)

	if s.TotalTrades != 4 {
		t.Errorf("TotalTrades = %d, want 4", s.TotalTrades)
	}
	if s.WinningTrades != 2 || s.LosingTrades != 1 {
		t.Errorf("winners/losers = %d/%d, want 2/1", s.WinningTrades, s.LosingTrades)
	}
	if s.WinRate != 50 {
		t.Errorf("WinRate = %v, want 50", s.WinRate)
	}
	if s.TotalPnL != 110 {
		t.Errorf("TotalPnL = %v, want 110", s.TotalPnL)
	}
	if s.AvgWinner != 80 {
		t.Errorf("AvgWinner = %v, want 80", s.AvgWinner)
	}
	if s.AvgLoser != -50 {
		t.Errorf("AvgLoser = %v, want -50", s.AvgLoser)
	}
	if math.Abs(s.ExpectedValue-27.5) > 1e-9 {
		t.Errorf("ExpectedValue = %v, want 27.5", s.ExpectedValue)
	}
	if s.ExitReasons["Profit target"] != 2 {
		t.Errorf("Profit target count = %d, want 2", s.ExitReasons["Profit target"])
	}
	if math.Abs(s.AvgEntryDTE-34.5) > 1e-9 {
		t.Errorf("AvgEntryDTE = %v, want 34.5", s.AvgEntryDTE)
	}
	if math.Abs(s.AvgRewardRisk-2.0) > 1e-9 {
		t.Errorf("AvgRewardRisk = %v, want 2.0", s.AvgRewardRisk)
	}
}

func TestMaxDrawdown(t *testing.T) {
	curve := []models.EquityPoint{
		{Date: day(0), Equity: 0},
		{Date: day(1), Equity: 100},
		{Date: day(2), Equity: 40},
		{Date: day(3), Equity: 120},
		{Date: day(4), Equity: 90},
	}

	dd, pct := maxDrawdown(curve)
	if dd != -60 {
		t.Errorf("max drawdown = %v, want -60", dd)
	}
	if math.Abs(pct-(-50)) > 1e-9 {
		t.Errorf("drawdown pct = %v, want -50 (of peak 120)", pct)
	}
}

func TestMaxDrawdownNeverPositive(t *testing.T) {
	curve := []models.EquityPoint{
		{Date: day(0), Equity: 0},
		{Date: day(1), Equity: 10},
		{Date: day(2), Equity: 20},
	}
	dd, _ := maxDrawdown(curve)
	if dd != 0 {
		t.Errorf("monotone rising curve drawdown = %v, want 0", dd)
	}
}

func TestSharpeFlatCurveIsZero(t *testing.T) {
	curve := []models.EquityPoint{
		{Date: day(0), Equity: 5},
		{Date: day(1), Equity: 5},
		{Date: day(2), Equity: 5},
	}
	if got := sharpe(curve); got != 0 {
		t.Errorf("sharpe of flat curve = %v, want 0", got)
	}
}

func TestSharpeSignFollowsMeanReturn(t *testing.T) {
	rising := []models.EquityPoint{
		{Date: day(0), Equity: 0},
		{Date: day(1), Equity: 3},
		{Date: day(2), Equity: 4},
		{Date: day(3), Equity: 9},
	}
	if got := sharpe(rising); got <= 0 {
		t.Errorf("sharpe of rising curve = %v, want positive", got)
	}

	falling := []models.EquityPoint{
		{Date: day(0), Equity: 0},
		{Date: day(1), Equity: -3},
		{Date: day(2), Equity: -4},
		{Date: day(3), Equity: -9},
	}
	if got := sharpe(falling); got >= 0 {
		t.Errorf("sharpe of falling curve = %v, want negative", got)
	}
}

func TestDrawdownSeriesTracksPeak(t *testing.T) {
	curve := []models.EquityPoint{
		{Date: day(0), Equity: 0},
		{Date: day(1), Equity: 50},
		{Date: day(2), Equity: 30},
	}
	series := DrawdownSeries(curve)
	want := []float64{0, 0, -20}
	for i, p := range series {
		if p.Equity != want[i] {
			t.Errorf("drawdown[%d] = %v, want %v", i, p.Equity, want[i])
		}
	}
}
