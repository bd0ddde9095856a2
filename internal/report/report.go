// Package report renders run output: the trade-log CSV and terminal
// charts of the equity curve and drawdown.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"butterfly-backtest/internal/models"
	"butterfly-backtest/internal/stats"
)

const dateLayout = "2006-01-02"

var tradeLogHeader = []string{
	"entry_date", "exit_date", "expiration", "entry_dte", "exit_dte",
	"atm_strike", "entry_cost", "exit_value", "pnl", "pnl_pct",
	"reward_risk", "exit_reason",
}

// WriteTradeLog writes the closed-trade ledger to a CSV file, one row per
// trade in close order.
func WriteTradeLog(path string, trades []models.Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating trade log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(tradeLogHeader); err != nil {
		return err
	}
	for _, t := range trades {
		row := []string{
			t.EntryDate.Format(dateLayout),
			t.ExitDate.Format(dateLayout),
			t.Expiration.Format(dateLayout),
			strconv.Itoa(t.EntryDTE),
			strconv.Itoa(t.ExitDTE),
			formatFloat(t.ATMStrike),
			formatFloat(t.EntryCost),
			formatFloat(t.ExitValue),
			formatFloat(t.PnL),
			formatFloat(t.PnLPercent),
			formatFloat(t.RewardRisk),
			t.ExitReason,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// EquityCurveASCII renders the cumulative equity series as a terminal
// chart of the given dimensions.
func EquityCurveASCII(curve []models.EquityPoint, width, height int) string {
	return asciiChart("Equity Curve", curve, width, height)
}

// DrawdownASCII renders the drawdown-from-peak series as a terminal chart.
func DrawdownASCII(curve []models.EquityPoint, width, height int) string {
	return asciiChart("Drawdown", stats.DrawdownSeries(curve), width, height)
}

func asciiChart(title string, series []models.EquityPoint, width, height int) string {
	if len(series) == 0 {
		return "No data to display"
	}

	minV := series[0].Equity
	maxV := series[0].Equity
	for _, p := range series {
		if p.Equity < minV {
			minV = p.Equity
		}
		if p.Equity > maxV {
			maxV = p.Equity
		}
	}

	span := maxV - minV
	if span == 0 {
		span = 1
	}
	minV -= span * 0.05
	maxV += span * 0.05
	span = maxV - minV

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = make([]rune, width)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}

	step := len(series) / width
	if step == 0 {
		step = 1
	}

	for x := 0; x < width && x*step < len(series); x++ {
		p := series[x*step]
		y := int((p.Equity - minV) / span * float64(height-1))
		if y >= 0 && y < height {
			grid[height-1-y][x] = '█'
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s (%.2f to %.2f)\n", title, minV, maxV))
	sb.WriteString(strings.Repeat("─", width+2) + "\n")
	for _, row := range grid {
		sb.WriteRune('│')
		sb.WriteString(string(row))
		sb.WriteRune('│')
		sb.WriteRune('\n')
	}
	sb.WriteString(strings.Repeat("─", width+2) + "\n")
	sb.WriteString(fmt.Sprintf("%s  to  %s\n",
		series[0].Date.Format(dateLayout),
		series[len(series)-1].Date.Format(dateLayout)))
	return sb.String()
}
