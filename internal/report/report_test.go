package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"butterfly-backtest/internal/models"
)

func TestWriteTradeLog(t *testing.T) {
	entry := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	trades := []models.Trade{
		{
			EntryDate:  entry,
			ExitDate:   entry.AddDate(0, 0, 10),
			Expiration: entry.AddDate(0, 0, 35),
			EntryDTE:   35,
			ExitDTE:    25,
			ATMStrike:  450,
			EntryCost:  1.59,
			ExitValue:  1.75,
			PnL:        0.16,
			PnLPercent: 10.06,
			RewardRisk: 0.887,
			ExitReason: "Profit target",
		},
	}

	path := filepath.Join(t.TempDir(), "trades.csv")
	if err := WriteTradeLog(path, trades); err != nil {
		t.Fatalf("WriteTradeLog() error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening trade log: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading trade log: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header + 1 trade", len(rows))
	}
	if rows[0][0] != "entry_date" || rows[0][len(rows[0])-1] != "exit_reason" {
		t.Errorf("unexpected header: %v", rows[0])
	}

	got := rows[1]
	if got[0] != "2024-03-04" {
		t.Errorf("entry_date = %q, want 2024-03-04", got[0])
	}
	if got[2] != "2024-04-08" {
		t.Errorf("expiration = %q, want 2024-04-08", got[2])
	}
	if got[6] != "1.59" {
		t.Errorf("entry_cost = %q, want 1.59", got[6])
	}
	if got[11] != "Profit target" {
		t.Errorf("exit_reason = %q, want Profit target", got[11])
	}
}

func TestWriteTradeLogEmptyLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	if err := WriteTradeLog(path, nil); err != nil {
		t.Fatalf("WriteTradeLog() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Errorf("empty ledger wrote %d lines, want header only", len(lines))
	}
}

func TestEquityCurveASCIIDimensions(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	curve := make([]models.EquityPoint, 30)
	for i := range curve {
		curve[i] = models.EquityPoint{
			Date:   start.AddDate(0, 0, i),
			Equity: float64(i%7) - 3,
		}
	}

	chart := EquityCurveASCII(curve, 40, 10)
	if !strings.Contains(chart, "Equity Curve") {
		t.Error("chart missing title")
	}
	if !strings.Contains(chart, "█") {
		t.Error("chart has no plotted points")
	}
	if !strings.Contains(chart, "2024-03-04") {
		t.Error("chart footer missing start date")
	}
}

func TestEquityCurveASCIIEmptySeries(t *testing.T) {
	if got := EquityCurveASCII(nil, 40, 10); got != "No data to display" {
		t.Errorf("empty series rendered %q", got)
	}
}

func TestEquityCurveASCIIFlatSeries(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	curve := []models.EquityPoint{
		{Date: start, Equity: 5},
		{Date: start.AddDate(0, 0, 1), Equity: 5},
	}
	chart := EquityCurveASCII(curve, 20, 5)
	if !strings.Contains(chart, "█") {
		t.Error("flat series should still plot points")
	}
}

func TestDrawdownASCIIUsesDrawdownSeries(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	curve := []models.EquityPoint{
		{Date: start, Equity: 0},
		{Date: start.AddDate(0, 0, 1), Equity: 100},
		{Date: start.AddDate(0, 0, 2), Equity: 40},
	}
	chart := DrawdownASCII(curve, 20, 5)
	if !strings.Contains(chart, "Drawdown") {
		t.Error("chart missing title")
	}
}
