// Package models provides domain models for the backtesting application.
package models

import (
	"strings"
	"time"
)

// OptionType represents the right of an option contract.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// ParseOptionType parses a case-insensitive option type string.
func ParseOptionType(s string) (OptionType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, true
	case "put", "p":
		return Put, true
	default:
		return "", false
	}
}

// Quote represents an end-of-day quote for a single option contract.
// Absence of a quote is always signalled by a separate boolean, never by
// a zero-valued Quote, so "no data" cannot be confused with "priced at zero".
type Quote struct {
	Bid          float64
	Ask          float64
	Volume       int64
	OpenInterest int64
	Delta        float64
}

// Mid returns the bid/ask midpoint.
func (q Quote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

// Spread returns the bid/ask spread.
func (q Quote) Spread() float64 {
	return q.Ask - q.Bid
}

// Inverted reports a bid above ask, a data-quality condition rather than
// a fatal error.
func (q Quote) Inverted() bool {
	return q.Bid > q.Ask
}

// Record is one row of the historical option-chain dataset: a single
// (date, expiration, strike, type) observation.
type Record struct {
	Date         time.Time
	Expiration   time.Time
	Strike       float64
	Type         OptionType
	Bid          float64
	Ask          float64
	Volume       int64
	OpenInterest int64
	Delta        float64
}

// DTE returns days to expiration as whole calendar days.
func (r Record) DTE() int {
	return DaysBetween(r.Date, r.Expiration)
}

// Quote returns the quote carried by this record.
func (r Record) Quote() Quote {
	return Quote{
		Bid:          r.Bid,
		Ask:          r.Ask,
		Volume:       r.Volume,
		OpenInterest: r.OpenInterest,
		Delta:        r.Delta,
	}
}

// DaysBetween returns whole calendar days from a to b, truncating both to
// midnight UTC first.
func DaysBetween(a, b time.Time) int {
	a = a.UTC().Truncate(24 * time.Hour)
	b = b.UTC().Truncate(24 * time.Hour)
	return int(b.Sub(a).Hours() / 24)
}

// EquityPoint represents one point on the cumulative equity curve. Exactly
// one point is recorded per trading day, whether or not a position is open.
type EquityPoint struct {
	Date   time.Time
	Equity float64
}
