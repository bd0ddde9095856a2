// Package chain provides read-only access to historical option-chain
// snapshots, one per trading day.
package chain

import (
	"math"
	"sort"
	"time"

	"butterfly-backtest/internal/models"
)

const atmTargetDelta = 0.50

type legKey struct {
	expiration time.Time
	strike     float64
	otype      models.OptionType
}

type callEntry struct {
	strike float64
	delta  float64
}

// Expiration is an expiration date quoted on a snapshot's trading day,
// together with its days to expiration.
type Expiration struct {
	Date time.Time
	DTE  int
}

// Snapshot holds every quote for one trading date, keyed by
// (expiration, strike, type). Dataset order is preserved so that delta and
// DTE tie-breaks stay deterministic and first-encountered.
type Snapshot struct {
	date     time.Time
	quotes   map[legKey]models.Quote
	calls    map[time.Time][]callEntry
	expOrder []time.Time
}

func newSnapshot(date time.Time) *Snapshot {
	return &Snapshot{
		date:   date,
		quotes: make(map[legKey]models.Quote),
		calls:  make(map[time.Time][]callEntry),
	}
}

// add inserts a record into the snapshot. Duplicate (expiration, strike,
// type) keys keep the first row encountered.
func (s *Snapshot) add(rec models.Record) {
	key := legKey{expiration: rec.Expiration, strike: rec.Strike, otype: rec.Type}
	if _, dup := s.quotes[key]; dup {
		return
	}
	s.quotes[key] = rec.Quote()

	if _, seen := s.calls[rec.Expiration]; !seen {
		s.expOrder = append(s.expOrder, rec.Expiration)
		s.calls[rec.Expiration] = nil
	}
	if rec.Type == models.Call {
		s.calls[rec.Expiration] = append(s.calls[rec.Expiration], callEntry{strike: rec.Strike, delta: rec.Delta})
	}
}

// Date returns the trading date this snapshot covers.
func (s *Snapshot) Date() time.Time {
	return s.date
}

// Quote looks up a single leg. The boolean distinguishes a genuinely absent
// quote from one priced at zero.
func (s *Snapshot) Quote(expiration time.Time, strike float64, otype models.OptionType) (models.Quote, bool) {
	q, ok := s.quotes[legKey{expiration: expiration, strike: strike, otype: otype}]
	return q, ok
}

// ATMStrike selects the call strike whose quoted delta is closest to 0.50
// for the given expiration. Ties keep the first strike in dataset order.
func (s *Snapshot) ATMStrike(expiration time.Time) (float64, bool) {
	entries := s.calls[expiration]
	if len(entries) == 0 {
		return 0, false
	}

	best := entries[0].strike
	bestDiff := math.Abs(entries[0].delta - atmTargetDelta)
	for _, e := range entries[1:] {
		diff := math.Abs(e.delta - atmTargetDelta)
		if diff < bestDiff {
			bestDiff = diff
			best = e.strike
		}
	}
	return best, true
}

// ExpirationsInWindow returns the expirations quoted on this date whose DTE
// falls in [minDTE, maxDTE], in first-encountered dataset order.
func (s *Snapshot) ExpirationsInWindow(minDTE, maxDTE int) []Expiration {
	var out []Expiration
	for _, exp := range s.expOrder {
		dte := models.DaysBetween(s.date, exp)
		if dte >= minDTE && dte <= maxDTE {
			out = append(out, Expiration{Date: exp, DTE: dte})
		}
	}
	return out
}

// NumQuotes returns the number of distinct quotes in the snapshot.
func (s *Snapshot) NumQuotes() int {
	return len(s.quotes)
}

// Store is a read-only view over the full dataset: one snapshot per
// distinct trading date, iterated in ascending date order.
type Store struct {
	dates []time.Time
	days  map[time.Time]*Snapshot
}

// NewStore groups records into per-day snapshots. Records are consumed in
// slice order, which is dataset order for the CSV loader.
func NewStore(records []models.Record) *Store {
	st := &Store{days: make(map[time.Time]*Snapshot)}
	for _, rec := range records {
		snap, ok := st.days[rec.Date]
		if !ok {
			snap = newSnapshot(rec.Date)
			st.days[rec.Date] = snap
			st.dates = append(st.dates, rec.Date)
		}
		snap.add(rec)
	}
	sort.Slice(st.dates, func(i, j int) bool { return st.dates[i].Before(st.dates[j]) })
	return st
}

// Dates returns the distinct trading dates in ascending order.
func (s *Store) Dates() []time.Time {
	return s.dates
}

// Snapshot returns the chain snapshot for a trading date.
func (s *Store) Snapshot(date time.Time) (*Snapshot, bool) {
	snap, ok := s.days[date]
	return snap, ok
}

// Len returns the number of trading dates in the store.
func (s *Store) Len() int {
	return len(s.dates)
}
