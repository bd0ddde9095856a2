package models

import (
	"encoding/json"
	"math"
	"time"
)

// Butterfly represents a long iron butterfly: long call and put wings around
// a short call/put body at the ATM strike. All derived economics are fixed
// at construction; the struct is immutable once built.
type Butterfly struct {
	LongCallStrike  float64
	ShortCallStrike float64
	ShortPutStrike  float64
	LongPutStrike   float64

	LongCall  Quote
	ShortCall Quote
	ShortPut  Quote
	LongPut   Quote

	Contracts int

	// EntryCost is the raw per-unit cost before slippage and commission.
	EntryCost float64
	// NetDebit is the all-in cost to open, scaled by Contracts.
	NetDebit    float64
	MaxProfit   float64
	MaxLoss     float64
	RewardRisk  float64
	TotalSpread float64
	SpreadPct   float64
	TotalVolume int64
	TotalOI     int64
}

// WingWidth returns the dollar distance between body and wing strikes.
func (b *Butterfly) WingWidth() float64 {
	return b.ShortCallStrike - b.LongCallStrike
}

// Degenerate reports whether the instrument has non-positive max loss,
// which forces RewardRisk to zero.
func (b *Butterfly) Degenerate() bool {
	return b.MaxLoss <= 0
}

// Position is an open butterfly held by the backtest engine. At most one
// position exists at any simulated time.
type Position struct {
	Butterfly  *Butterfly
	EntryDate  time.Time
	Expiration time.Time
	EntryDTE   int
}

// DTEAt returns the position's days to expiration as of the given date.
func (p *Position) DTEAt(date time.Time) int {
	return DaysBetween(date, p.Expiration)
}

// Trade is the outcome record of a closed position. Trades are append-only;
// the ordered sequence forms the ledger.
type Trade struct {
	EntryDate  time.Time
	ExitDate   time.Time
	Expiration time.Time
	EntryDTE   int
	ExitDTE    int
	ATMStrike  float64
	EntryCost  float64
	ExitValue  float64
	PnL        float64
	PnLPercent float64
	RewardRisk float64
	ExitReason string
}

// NewTrade builds the ledger record for a position closed at exitValue on
// exitDate.
func NewTrade(pos *Position, exitDate time.Time, exitValue float64, reason string) Trade {
	pnl := exitValue - pos.Butterfly.NetDebit
	pnlPct := 0.0
	if pos.Butterfly.NetDebit != 0 {
		pnlPct = pnl / pos.Butterfly.NetDebit * 100
	} else if pnl != 0 {
		pnlPct = math.Inf(sign(pnl))
	}
	return Trade{
		EntryDate:  pos.EntryDate,
		ExitDate:   exitDate,
		Expiration: pos.Expiration,
		EntryDTE:   pos.EntryDTE,
		ExitDTE:    pos.DTEAt(exitDate),
		ATMStrike:  pos.Butterfly.ShortCallStrike,
		EntryCost:  pos.Butterfly.NetDebit,
		ExitValue:  exitValue,
		PnL:        pnl,
		PnLPercent: pnlPct,
		RewardRisk: pos.Butterfly.RewardRisk,
		ExitReason: reason,
	}
}

func sign(v float64) int {
	if v < 0 {
		return -1
	}
	return 1
}

// MarshalJSON clamps a non-finite percentage return before encoding, since
// encoding/json rejects IEEE infinities. A zero-debit position closed away
// from zero is the only way PnLPercent goes non-finite.
func (t Trade) MarshalJSON() ([]byte, error) {
	type plain Trade
	out := plain(t)
	if math.IsInf(out.PnLPercent, 1) || math.IsNaN(out.PnLPercent) {
		out.PnLPercent = math.MaxFloat64
	} else if math.IsInf(out.PnLPercent, -1) {
		out.PnLPercent = -math.MaxFloat64
	}
	return json.Marshal(out)
}

// HoldDays returns the number of calendar days the position was held.
func (t Trade) HoldDays() int {
	return t.EntryDTE - t.ExitDTE
}

// Won reports whether the trade closed with positive P&L.
func (t Trade) Won() bool {
	return t.PnL > 0
}
