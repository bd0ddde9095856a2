// Package butterfly prices long iron butterfly spreads from chain
// snapshots, applying commission and slippage on both entry and exit.
package butterfly

import (
	"math"
	"time"

	"butterfly-backtest/internal/chain"
	"butterfly-backtest/internal/models"
)

const legsPerButterfly = 4

// Costs holds the per-trade friction parameters.
type Costs struct {
	CommissionPerContract float64
	SlippagePct           float64
}

// Commission returns the round commission for one side (entry or exit) of
// a single butterfly unit.
func (c Costs) Commission() float64 {
	return legsPerButterfly * c.CommissionPerContract
}

// Build constructs a long iron butterfly on the given expiration: long
// call at atm-wing, short call and short put at atm, long put at atm+wing.
// The entry is priced at the worst side of each leg's market (ask for
// buys, bid for sells). It returns false when any leg is not quoted on
// the snapshot date; a missing leg never builds a partially priced spread.
func Build(snap *chain.Snapshot, expiration time.Time, atm, wing float64, costs Costs, contracts int) (*models.Butterfly, bool) {
	longCall, ok := snap.Quote(expiration, atm-wing, models.Call)
	if !ok {
		return nil, false
	}
	shortCall, ok := snap.Quote(expiration, atm, models.Call)
	if !ok {
		return nil, false
	}
	shortPut, ok := snap.Quote(expiration, atm, models.Put)
	if !ok {
		return nil, false
	}
	longPut, ok := snap.Quote(expiration, atm+wing, models.Put)
	if !ok {
		return nil, false
	}

	entryCost := longCall.Ask - shortCall.Bid - shortPut.Bid + longPut.Ask

	// Slippage is proportional to the raw cost and keeps its sign, so a
	// credit entry sees its credit shrink rather than grow.
	slippage := entryCost * costs.SlippagePct
	perUnitDebit := entryCost + slippage + costs.Commission()

	netDebit := perUnitDebit * float64(contracts)
	maxLoss := perUnitDebit * float64(contracts)
	maxProfit := (wing - perUnitDebit) * float64(contracts)

	rewardRisk := 0.0
	if maxLoss > 0 {
		rewardRisk = maxProfit / maxLoss
	}

	totalSpread := longCall.Spread() + shortCall.Spread() + shortPut.Spread() + longPut.Spread()
	spreadPct := math.Inf(1)
	if netDebit != 0 {
		spreadPct = totalSpread / math.Abs(netDebit) * 100
	}

	return &models.Butterfly{
		LongCallStrike:  atm - wing,
		ShortCallStrike: atm,
		ShortPutStrike:  atm,
		LongPutStrike:   atm + wing,
		LongCall:        longCall,
		ShortCall:       shortCall,
		ShortPut:        shortPut,
		LongPut:         longPut,
		Contracts:       contracts,
		EntryCost:       entryCost,
		NetDebit:        netDebit,
		MaxProfit:       maxProfit,
		MaxLoss:         maxLoss,
		RewardRisk:      rewardRisk,
		TotalSpread:     totalSpread,
		SpreadPct:       spreadPct,
		TotalVolume:     longCall.Volume + shortCall.Volume + shortPut.Volume + longPut.Volume,
		TotalOI:         longCall.OpenInterest + shortCall.OpenInterest + shortPut.OpenInterest + longPut.OpenInterest,
	}, true
}

// Value prices the liquidation of an open butterfly on the snapshot date:
// sell the long legs at bid, buy back the short legs at ask. Slippage is
// taken on the magnitude of the raw value and always reduces proceeds;
// commission for all four closing legs is subtracted. It returns false
// when any leg is missing from the snapshot, leaving the forced-exit
// decision to the caller.
func Value(snap *chain.Snapshot, b *models.Butterfly, expiration time.Time, costs Costs) (float64, bool) {
	longCall, ok := snap.Quote(expiration, b.LongCallStrike, models.Call)
	if !ok {
		return 0, false
	}
	shortCall, ok := snap.Quote(expiration, b.ShortCallStrike, models.Call)
	if !ok {
		return 0, false
	}
	shortPut, ok := snap.Quote(expiration, b.ShortPutStrike, models.Put)
	if !ok {
		return 0, false
	}
	longPut, ok := snap.Quote(expiration, b.LongPutStrike, models.Put)
	if !ok {
		return 0, false
	}

	raw := longCall.Bid - shortCall.Ask - shortPut.Ask + longPut.Bid
	slippage := math.Abs(raw) * costs.SlippagePct
	net := (raw - slippage - costs.Commission()) * float64(b.Contracts)
	return net, true
}
