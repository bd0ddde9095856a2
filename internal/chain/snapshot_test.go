package chain

import (
	"testing"
	"time"

	"butterfly-backtest/internal/models"
)

var (
	day  = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	expA = time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC)  // 32 DTE
	expB = time.Date(2024, 4, 12, 0, 0, 0, 0, time.UTC) // 39 DTE
	expC = time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC) // 74 DTE
)

func callRec(exp time.Time, strike, delta float64) models.Record {
	return models.Record{
		Date: day, Expiration: exp, Strike: strike, Type: models.Call,
		Bid: 1.0, Ask: 1.1, Volume: 10, OpenInterest: 50, Delta: delta,
	}
}

func TestATMStrikeClosestDelta(t *testing.T) {
	store := NewStore([]models.Record{
		callRec(expA, 95, 0.70),
		callRec(expA, 100, 0.52),
		callRec(expA, 105, 0.31),
	})
	snap, _ := store.Snapshot(day)

	atm, ok := snap.ATMStrike(expA)
	if !ok {
		t.Fatal("no ATM strike found")
	}
	if atm != 100 {
		t.Errorf("ATMStrike = %v, want 100", atm)
	}
}

func TestATMStrikeTieKeepsFirstEncountered(t *testing.T) {
	// Deltas 0.48 and 0.52 are equidistant from 0.50; the row seen first
	// in dataset order must win.
	store := NewStore([]models.Record{
		callRec(expA, 102, 0.48),
		callRec(expA, 98, 0.52),
	})
	snap, _ := store.Snapshot(day)

	atm, ok := snap.ATMStrike(expA)
	if !ok {
		t.Fatal("no ATM strike found")
	}
	if atm != 102 {
		t.Errorf("ATMStrike = %v, want first-encountered 102", atm)
	}
}

func TestATMStrikeIgnoresPuts(t *testing.T) {
	put := models.Record{
		Date: day, Expiration: expA, Strike: 100, Type: models.Put,
		Bid: 1.0, Ask: 1.1, Delta: -0.50,
	}
	store := NewStore([]models.Record{put, callRec(expA, 95, 0.70)})
	snap, _ := store.Snapshot(day)

	atm, ok := snap.ATMStrike(expA)
	if !ok {
		t.Fatal("no ATM strike found")
	}
	if atm != 95 {
		t.Errorf("ATMStrike = %v, want 95 (puts never select ATM)", atm)
	}
}

func TestDuplicateQuoteKeepsFirst(t *testing.T) {
	first := callRec(expA, 100, 0.50)
	first.Bid = 2.00
	dup := callRec(expA, 100, 0.50)
	dup.Bid = 9.99

	store := NewStore([]models.Record{first, dup})
	snap, _ := store.Snapshot(day)

	q, ok := snap.Quote(expA, 100, models.Call)
	if !ok {
		t.Fatal("quote missing")
	}
	if q.Bid != 2.00 {
		t.Errorf("Bid = %v, want first row's 2.00", q.Bid)
	}
	if snap.NumQuotes() != 1 {
		t.Errorf("NumQuotes = %d, want 1", snap.NumQuotes())
	}
}

func TestExpirationsInWindow(t *testing.T) {
	// expB appears before expA in dataset order.
	store := NewStore([]models.Record{
		callRec(expB, 100, 0.5),
		callRec(expA, 100, 0.5),
		callRec(expC, 100, 0.5),
	})
	snap, _ := store.Snapshot(day)

	window := snap.ExpirationsInWindow(28, 40)
	if len(window) != 2 {
		t.Fatalf("got %d expirations, want 2", len(window))
	}
	if !window[0].Date.Equal(expB) || !window[1].Date.Equal(expA) {
		t.Errorf("window order = %v, %v; want dataset order expB, expA", window[0].Date, window[1].Date)
	}
	if window[0].DTE != 39 || window[1].DTE != 32 {
		t.Errorf("DTEs = %d, %d; want 39, 32", window[0].DTE, window[1].DTE)
	}
}

func TestQuoteAbsenceIsExplicit(t *testing.T) {
	store := NewStore([]models.Record{callRec(expA, 100, 0.5)})
	snap, _ := store.Snapshot(day)

	if _, ok := snap.Quote(expA, 105, models.Call); ok {
		t.Error("unquoted strike reported present")
	}
	if _, ok := snap.Quote(expA, 100, models.Put); ok {
		t.Error("unquoted type reported present")
	}
}

func TestStoreDatesAscending(t *testing.T) {
	later := callRec(expA, 100, 0.5)
	later.Date = day.AddDate(0, 0, 5)
	earlier := callRec(expA, 100, 0.5)

	store := NewStore([]models.Record{later, earlier})
	dates := store.Dates()
	if len(dates) != 2 {
		t.Fatalf("got %d dates, want 2", len(dates))
	}
	if !dates[0].Before(dates[1]) {
		t.Errorf("dates not ascending: %v, %v", dates[0], dates[1])
	}
}
