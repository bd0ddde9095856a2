package chain

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"

	apperrors "butterfly-backtest/internal/errors"
	"butterfly-backtest/internal/models"
)

const validCSV = `date,expiration,strike,type,bid,ask,volume,open_interest,delta
2024-03-04,2024-04-08,97,call,1.40,1.50,120,800,0.62
2024-03-04,2024-04-08,100,CALL,2.00,2.10,300,1500,0.50
2024-03-04,2024-04-08,100,Put,2.00,2.10,250,1400,-0.50
2024-03-04,2024-04-08,103,p,1.40,1.50,110,700,-0.38
2024-03-05,2024-04-08,100,call,2.05,2.15,280,1500,0.51
`

func TestLoadCSVParsesAllRows(t *testing.T) {
	store, stats, err := loadCSV(strings.NewReader(validCSV), "test.csv", zerolog.Nop())
	if err != nil {
		t.Fatalf("loadCSV failed: %v", err)
	}

	if stats.Rows != 5 {
		t.Errorf("Rows = %d, want 5", stats.Rows)
	}
	if store.Len() != 2 {
		t.Errorf("store has %d dates, want 2", store.Len())
	}

	snap, ok := store.Snapshot(store.Dates()[0])
	if !ok {
		t.Fatal("first snapshot missing")
	}
	if snap.NumQuotes() != 4 {
		t.Errorf("first day has %d quotes, want 4", snap.NumQuotes())
	}
}

func TestLoadCSVCaseInsensitiveType(t *testing.T) {
	store, _, err := loadCSV(strings.NewReader(validCSV), "test.csv", zerolog.Nop())
	if err != nil {
		t.Fatalf("loadCSV failed: %v", err)
	}

	snap, _ := store.Snapshot(store.Dates()[0])
	exp := snap.ExpirationsInWindow(0, 1000)[0].Date

	// "CALL", "Put" and "p" must all land under their canonical type.
	if _, ok := snap.Quote(exp, 100, models.Call); !ok {
		t.Error("uppercase CALL row not found as call")
	}
	if _, ok := snap.Quote(exp, 100, models.Put); !ok {
		t.Error("mixed-case Put row not found as put")
	}
	if _, ok := snap.Quote(exp, 103, models.Put); !ok {
		t.Error("single-letter p row not found as put")
	}
}

func TestLoadCSVMissingColumnIsFatal(t *testing.T) {
	csv := `date,expiration,strike,type,bid,ask,volume,delta
2024-03-04,2024-04-08,100,call,2.00,2.10,300,0.50
`
	_, _, err := loadCSV(strings.NewReader(csv), "broken.csv", zerolog.Nop())
	if err == nil {
		t.Fatal("expected schema error for missing open_interest column")
	}
	if !apperrors.Is(err, apperrors.ErrSchemaViolation) {
		t.Errorf("error %v does not wrap ErrSchemaViolation", err)
	}

	var schemaErr *apperrors.SchemaError
	if !apperrors.As(err, &schemaErr) {
		t.Fatal("error is not a SchemaError")
	}
	if len(schemaErr.Columns) != 1 || schemaErr.Columns[0] != "open_interest" {
		t.Errorf("missing columns = %v, want [open_interest]", schemaErr.Columns)
	}
}

func TestLoadCSVBadQuotesKeptAndCounted(t *testing.T) {
	csv := `date,expiration,strike,type,bid,ask,volume,open_interest,delta
2024-03-04,2024-04-08,100,call,2.50,2.10,300,1500,0.50
2024-03-04,2024-04-08,100,put,-0.05,2.10,300,1500,-0.50
`
	store, stats, err := loadCSV(strings.NewReader(csv), "test.csv", zerolog.Nop())
	if err != nil {
		t.Fatalf("loadCSV failed: %v", err)
	}
	if stats.BadQuotes != 2 {
		t.Errorf("BadQuotes = %d, want 2", stats.BadQuotes)
	}
	// Rows are data-quality flagged, not dropped.
	if stats.Rows != 2 {
		t.Errorf("Rows = %d, want 2", stats.Rows)
	}
	snap, _ := store.Snapshot(store.Dates()[0])
	if snap.NumQuotes() != 2 {
		t.Errorf("snapshot has %d quotes, want both kept", snap.NumQuotes())
	}
}

func TestLoadCSVUnparseableFieldIsError(t *testing.T) {
	csv := `date,expiration,strike,type,bid,ask,volume,open_interest,delta
2024-03-04,2024-04-08,abc,call,2.00,2.10,300,1500,0.50
`
	_, _, err := loadCSV(strings.NewReader(csv), "test.csv", zerolog.Nop())
	if err == nil {
		t.Fatal("expected parse error for non-numeric strike")
	}
	var parseErr *apperrors.ParseError
	if !apperrors.As(err, &parseErr) {
		t.Fatalf("error %v is not a ParseError", err)
	}
	if parseErr.Field != "strike" {
		t.Errorf("Field = %q, want strike", parseErr.Field)
	}
}

func TestLoadCSVEmptyDataset(t *testing.T) {
	csv := "date,expiration,strike,type,bid,ask,volume,open_interest,delta\n"
	_, _, err := loadCSV(strings.NewReader(csv), "empty.csv", zerolog.Nop())
	if !apperrors.Is(err, apperrors.ErrNoData) {
		t.Errorf("error = %v, want ErrNoData", err)
	}
}
