// Package backtest implements the day-by-day iron butterfly simulation:
// entry scanning while flat, exit evaluation while open, and the
// resulting trade ledger and equity curve.
package backtest

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"butterfly-backtest/internal/butterfly"
	"butterfly-backtest/internal/chain"
	"butterfly-backtest/internal/models"
)

// Exit reasons reported on closed trades.
const (
	ReasonProfitTarget  = "Profit target"
	ReasonStopLoss      = "Stop loss"
	ReasonMissingData   = "Missing data"
	ReasonEndOfBacktest = "End of backtest"
)

// Result holds everything a completed run produces.
type Result struct {
	Trades      []models.Trade
	EquityCurve []models.EquityPoint
	Start       time.Time
	End         time.Time
}

// FinalEquity returns the last point on the equity curve, or zero when
// the dataset is empty.
func (r *Result) FinalEquity() float64 {
	if len(r.EquityCurve) == 0 {
		return 0
	}
	return r.EquityCurve[len(r.EquityCurve)-1].Equity
}

// Engine runs a single backtest over a chain store. At most one position
// is held at any simulated time.
type Engine struct {
	store  *chain.Store
	cfg    Config
	logger zerolog.Logger
}

// NewEngine creates an engine over the given dataset. The configuration
// must already be validated.
func NewEngine(store *chain.Store, cfg Config, logger zerolog.Logger) *Engine {
	return &Engine{store: store, cfg: cfg, logger: logger}
}

type state struct {
	position *models.Position
	trades   []models.Trade
	equity   float64
	curve    []models.EquityPoint
}

func (s *state) close(date time.Time, value float64, reason string) models.Trade {
	trade := models.NewTrade(s.position, date, value, reason)
	s.trades = append(s.trades, trade)
	s.equity += trade.PnL
	s.position = nil
	return trade
}

// Run executes the simulation over every trading date in the store, in
// ascending order. The context aborts between dates only; a single day's
// processing is never split.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	dates := e.store.Dates()
	if len(dates) == 0 {
		return nil, fmt.Errorf("empty dataset")
	}

	e.logger.Info().
		Int("trading_days", len(dates)).
		Str("start", dates[0].Format("2006-01-02")).
		Str("end", dates[len(dates)-1].Format("2006-01-02")).
		Msg("starting backtest")

	st := &state{}
	for _, date := range dates {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		snap, ok := e.store.Snapshot(date)
		if !ok {
			continue
		}

		if st.position != nil {
			e.evaluateExit(st, snap)
		}
		if st.position == nil {
			e.scanEntry(st, snap)
		}

		st.curve = append(st.curve, models.EquityPoint{Date: date, Equity: st.equity})
	}

	// A position surviving the last date is closed at that date's
	// valuation, and the final equity point absorbs the close.
	if st.position != nil {
		last := dates[len(dates)-1]
		snap, _ := e.store.Snapshot(last)
		value, ok := butterfly.Value(snap, st.position.Butterfly, st.position.Expiration, e.cfg.Costs())
		if !ok {
			value = 0
		}
		trade := st.close(last, value, ReasonEndOfBacktest)
		st.curve[len(st.curve)-1].Equity = st.equity
		e.logTrade(trade)
	}

	e.logger.Info().
		Int("trades", len(st.trades)).
		Float64("final_equity", st.equity).
		Msg("backtest complete")

	return &Result{
		Trades:      st.trades,
		EquityCurve: st.curve,
		Start:       dates[0],
		End:         dates[len(dates)-1],
	}, nil
}

// evaluateExit prices the open position on the snapshot date and applies
// exit conditions in fixed priority: profit target, then stop loss, then
// the DTE floor. Missing leg data forces exit at an assumed value of zero.
func (e *Engine) evaluateExit(st *state, snap *chain.Snapshot) {
	pos := st.position
	posDTE := pos.DTEAt(snap.Date())

	value, ok := butterfly.Value(snap, pos.Butterfly, pos.Expiration, e.cfg.Costs())
	if !ok {
		trade := st.close(snap.Date(), 0, ReasonMissingData)
		e.logTrade(trade)
		return
	}

	pnlPct := pnlPercent(value, pos.Butterfly.NetDebit)

	var reason string
	switch {
	case pnlPct >= e.cfg.ProfitTargetPct:
		reason = ReasonProfitTarget
	case pnlPct <= -e.cfg.LossLimitPct:
		reason = ReasonStopLoss
	case posDTE <= e.cfg.ForceExitDTE:
		reason = fmt.Sprintf("Force exit at %d DTE", posDTE)
	default:
		return
	}

	trade := st.close(snap.Date(), value, reason)
	e.logTrade(trade)
}

// scanEntry searches the snapshot for a butterfly passing every entry
// filter and opens a position on the first candidate expiration that
// qualifies end to end.
func (e *Engine) scanEntry(st *state, snap *chain.Snapshot) {
	window := snap.ExpirationsInWindow(e.cfg.MinDTE, e.cfg.MaxDTE)
	if len(window) == 0 {
		return
	}

	// Closest to the target DTE wins; ties keep dataset order.
	best := window[0]
	bestDist := abs(best.DTE - e.cfg.TargetDTE)
	for _, exp := range window[1:] {
		if d := abs(exp.DTE - e.cfg.TargetDTE); d < bestDist {
			best, bestDist = exp, d
		}
	}

	atm, ok := snap.ATMStrike(best.Date)
	if !ok {
		return
	}

	b, ok := butterfly.Build(snap, best.Date, atm, e.cfg.WingWidth, e.cfg.Costs(), e.cfg.Contracts)
	if !ok {
		return
	}

	if b.RewardRisk < e.cfg.MinRewardRisk {
		return
	}
	if b.SpreadPct > e.cfg.MaxSpreadPct {
		return
	}
	if b.TotalVolume < e.cfg.MinVolume {
		return
	}
	if b.TotalOI < e.cfg.MinOpenInterest {
		return
	}

	st.position = &models.Position{
		Butterfly:  b,
		EntryDate:  snap.Date(),
		Expiration: best.Date,
		EntryDTE:   best.DTE,
	}

	e.logger.Info().
		Str("date", snap.Date().Format("2006-01-02")).
		Int("dte", best.DTE).
		Float64("atm", atm).
		Float64("net_debit", b.NetDebit).
		Float64("reward_risk", b.RewardRisk).
		Msg("opened position")
}

func (e *Engine) logTrade(t models.Trade) {
	e.logger.Info().
		Str("date", t.ExitDate.Format("2006-01-02")).
		Float64("pnl", t.PnL).
		Float64("pnl_pct", t.PnLPercent).
		Str("reason", t.ExitReason).
		Msg("closed position")
}

func pnlPercent(value, netDebit float64) float64 {
	pnl := value - netDebit
	if netDebit == 0 {
		if pnl == 0 {
			return 0
		}
		return math.Inf(sign(pnl))
	}
	return pnl / netDebit * 100
}

func sign(v float64) int {
	if v < 0 {
		return -1
	}
	return 1
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
