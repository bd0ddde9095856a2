package chain

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "butterfly-backtest/internal/errors"
	"butterfly-backtest/internal/models"
)

const dateLayout = "2006-01-02"

var requiredColumns = []string{
	"date", "expiration", "strike", "type", "bid", "ask",
	"volume", "open_interest", "delta",
}

// LoadStats summarizes a dataset load.
type LoadStats struct {
	Rows        int
	BadQuotes   int
	SkippedRows int
	Dates       int
	Start       time.Time
	End         time.Time
}

// LoadCSV reads a historical option-chain CSV into a Store. A missing
// required column is fatal; negative or inverted quotes are counted and
// logged but the rows are kept, since quote quality is a data condition,
// not a load failure.
func LoadCSV(path string, logger zerolog.Logger) (*Store, *LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	store, stats, err := loadCSV(f, path, logger)
	if err != nil {
		return nil, nil, err
	}
	return store, stats, nil
}

func loadCSV(r io.Reader, name string, logger zerolog.Logger) (*Store, *LoadStats, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	var missing []string
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, nil, apperrors.NewSchemaError(name, missing)
	}

	var (
		records []models.Record
		stats   LoadStats
		line    = 1
	)

	for {
		row, err := reader.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s:%d: %w", name, line, err)
		}

		rec, perr := parseRow(row, cols, name, line)
		if perr != nil {
			return nil, nil, perr
		}
		if rec == nil {
			// Unknown option type. Row carries no usable leg.
			stats.SkippedRows++
			continue
		}

		if rec.Bid < 0 || rec.Quote().Inverted() {
			stats.BadQuotes++
			logger.Warn().
				Str("date", rec.Date.Format(dateLayout)).
				Float64("strike", rec.Strike).
				Str("type", string(rec.Type)).
				Float64("bid", rec.Bid).
				Float64("ask", rec.Ask).
				Msg("quote violates bid/ask invariant, keeping row")
		}

		records = append(records, *rec)
		stats.Rows++
	}

	if len(records) == 0 {
		return nil, nil, apperrors.ErrNoData
	}

	store := NewStore(records)
	stats.Dates = store.Len()
	stats.Start = store.Dates()[0]
	stats.End = store.Dates()[store.Len()-1]

	logger.Info().
		Int("rows", stats.Rows).
		Int("dates", stats.Dates).
		Int("bad_quotes", stats.BadQuotes).
		Str("start", stats.Start.Format(dateLayout)).
		Str("end", stats.End.Format(dateLayout)).
		Msg("dataset loaded")

	return store, &stats, nil
}

func parseRow(row []string, cols map[string]int, name string, line int) (*models.Record, error) {
	field := func(col string) string {
		return strings.TrimSpace(row[cols[col]])
	}

	date, err := parseDay(field("date"))
	if err != nil {
		return nil, &apperrors.ParseError{File: name, Line: line, Field: "date", Value: field("date"), Err: err}
	}
	expiration, err := parseDay(field("expiration"))
	if err != nil {
		return nil, &apperrors.ParseError{File: name, Line: line, Field: "expiration", Value: field("expiration"), Err: err}
	}

	otype, ok := models.ParseOptionType(field("type"))
	if !ok {
		return nil, nil
	}

	rec := models.Record{Date: date, Expiration: expiration, Type: otype}

	floats := []struct {
		col string
		dst *float64
	}{
		{"strike", &rec.Strike},
		{"bid", &rec.Bid},
		{"ask", &rec.Ask},
		{"delta", &rec.Delta},
	}
	for _, fc := range floats {
		v, err := strconv.ParseFloat(field(fc.col), 64)
		if err != nil {
			return nil, &apperrors.ParseError{File: name, Line: line, Field: fc.col, Value: field(fc.col), Err: err}
		}
		*fc.dst = v
	}

	ints := []struct {
		col string
		dst *int64
	}{
		{"volume", &rec.Volume},
		{"open_interest", &rec.OpenInterest},
	}
	for _, ic := range ints {
		// Some vendors emit counts as floats ("50.0").
		v, err := strconv.ParseFloat(field(ic.col), 64)
		if err != nil {
			return nil, &apperrors.ParseError{File: name, Line: line, Field: ic.col, Value: field(ic.col), Err: err}
		}
		*ic.dst = int64(v)
	}

	return &rec, nil
}

func parseDay(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC().Truncate(24 * time.Hour), nil
}
