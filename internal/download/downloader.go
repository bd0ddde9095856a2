package download

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"butterfly-backtest/internal/models"
	"butterfly-backtest/internal/performance"
)

// Row is one output record in the backtest input schema, plus the extra
// greeks the terminal provides.
type Row struct {
	Date         time.Time
	Expiration   time.Time
	Strike       float64
	Type         models.OptionType
	Bid          float64
	Ask          float64
	Volume       int64
	OpenInterest int64
	IV           float64
	Delta        float64
	Gamma        float64
	Theta        float64
	Vega         float64
}

// Options configures a download run.
type Options struct {
	Symbol             string
	Start              time.Time
	End                time.Time
	MinDTE             int
	MaxDTE             int
	CheckpointInterval int
	CheckpointFile     string
	Workers            int
}

// Downloader orchestrates a date-by-date chain download.
type Downloader struct {
	client     *Client
	opts       Options
	checkpoint *CheckpointManager
	logger     zerolog.Logger

	mu   sync.Mutex
	rows []Row
}

// NewDownloader creates a downloader over an already constructed client.
func NewDownloader(client *Client, opts Options, logger zerolog.Logger) *Downloader {
	if opts.CheckpointInterval <= 0 {
		opts.CheckpointInterval = 10
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Downloader{
		client:     client,
		opts:       opts,
		checkpoint: NewCheckpointManager(opts.CheckpointFile, logger),
		logger:     logger,
	}
}

// TradingDays returns the weekdays in [start, end]. Market holidays are
// not excluded; the terminal simply has no data for them and those dates
// come back empty.
func TradingDays(start, end time.Time) []time.Time {
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days = append(days, d)
		}
	}
	return days
}

// FilterExpirationsByDTE keeps expirations whose DTE from the reference
// date falls in [minDTE, maxDTE].
func FilterExpirationsByDTE(expirations []time.Time, reference time.Time, minDTE, maxDTE int) []time.Time {
	var out []time.Time
	for _, exp := range expirations {
		dte := models.DaysBetween(reference, exp)
		if dte >= minDTE && dte <= maxDTE {
			out = append(out, exp)
		}
	}
	return out
}

// Run downloads every trading day in the configured range, resuming from
// the checkpoint when one exists. Individual failed dates are logged and
// skipped; the run continues.
func (d *Downloader) Run(ctx context.Context) error {
	if err := d.client.Ping(ctx); err != nil {
		return err
	}

	days := TradingDays(d.opts.Start, d.opts.End)
	d.logger.Info().
		Str("symbol", d.opts.Symbol).
		Int("trading_days", len(days)).
		Msg("starting download")

	if last, ok := d.checkpoint.LastCompletedDate(); ok {
		var remaining []time.Time
		for _, day := range days {
			if day.After(last) {
				remaining = append(remaining, day)
			}
		}
		d.logger.Info().
			Str("resume_from", last.Format("2006-01-02")).
			Int("remaining", len(remaining)).
			Msg("resuming from checkpoint")
		days = remaining
	}

	var failed []time.Time
	for i, day := range days {
		select {
		case <-ctx.Done():
			d.checkpoint.Save(day, len(d.rows))
			return ctx.Err()
		default:
		}

		rows, err := d.downloadDate(ctx, day)
		if err != nil {
			d.logger.Error().Err(err).Str("date", day.Format("2006-01-02")).Msg("date failed")
			failed = append(failed, day)
			continue
		}

		if len(rows) > 0 {
			d.mu.Lock()
			d.rows = append(d.rows, rows...)
			total := len(d.rows)
			d.mu.Unlock()
			d.logger.Info().
				Str("date", day.Format("2006-01-02")).
				Int("rows", len(rows)).
				Int("total", total).
				Msg("date downloaded")
		} else {
			d.logger.Debug().Str("date", day.Format("2006-01-02")).Msg("no data")
		}

		if (i+1)%d.opts.CheckpointInterval == 0 {
			d.checkpoint.Save(day, len(d.rows))
		}
	}

	if len(failed) > 0 {
		d.logger.Warn().Int("count", len(failed)).Msg("some dates failed to download")
	}
	return nil
}

// downloadDate fetches quotes and greeks for every in-window expiration of
// one trading day, fanning the per-expiration work out to a worker pool.
func (d *Downloader) downloadDate(ctx context.Context, day time.Time) ([]Row, error) {
	expirations, err := d.client.Expirations(ctx, d.opts.Symbol)
	if err != nil {
		return nil, err
	}

	valid := FilterExpirationsByDTE(expirations, day, d.opts.MinDTE, d.opts.MaxDTE)
	if len(valid) == 0 {
		return nil, nil
	}

	pool := performance.NewWorkerPool(d.opts.Workers)
	pool.Start()
	defer pool.Stop()

	var (
		mu   sync.Mutex
		rows []Row
		wg   sync.WaitGroup
	)
	for _, exp := range valid {
		exp := exp
		wg.Add(1)
		task := func() {
			defer wg.Done()
			expRows, err := d.downloadExpiration(ctx, day, exp)
			if err != nil {
				d.logger.Warn().Err(err).
					Str("date", day.Format("2006-01-02")).
					Str("expiration", exp.Format("2006-01-02")).
					Msg("expiration failed")
				return
			}
			mu.Lock()
			rows = append(rows, expRows...)
			mu.Unlock()
		}
		if !pool.Submit(task) {
			wg.Done()
		}
	}
	wg.Wait()

	// Stable output ordering regardless of worker completion order.
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.Expiration.Equal(b.Expiration) {
			return a.Expiration.Before(b.Expiration)
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Strike < b.Strike
	})
	return rows, nil
}

func (d *Downloader) downloadExpiration(ctx context.Context, day, exp time.Time) ([]Row, error) {
	quotes, err := d.client.EODQuotes(ctx, d.opts.Symbol, exp, day)
	if err != nil {
		return nil, err
	}
	if quotes == nil {
		return nil, nil
	}

	greeks, err := d.client.EODGreeks(ctx, d.opts.Symbol, exp, day)
	if err != nil {
		return nil, err
	}
	if greeks == nil {
		return nil, nil
	}

	return mergeQuotesAndGreeks(day, exp, quotes, greeks), nil
}

type contractKey struct {
	strike float64
	right  string
}

// mergeQuotesAndGreeks joins the two endpoint responses on (strike, right).
// Contracts present in only one response are dropped.
func mergeQuotesAndGreeks(day, exp time.Time, quotes []eodQuote, greeks []eodGreeks) []Row {
	volume := make(map[contractKey]int64, len(quotes))
	for _, q := range quotes {
		volume[contractKey{strike: q.strike, right: q.right}] = q.volume
	}

	var rows []Row
	for _, g := range greeks {
		vol, ok := volume[contractKey{strike: g.strike, right: g.right}]
		if !ok {
			continue
		}
		otype, ok := models.ParseOptionType(g.right)
		if !ok {
			continue
		}
		rows = append(rows, Row{
			Date:         day,
			Expiration:   exp,
			Strike:       g.strike,
			Type:         otype,
			Bid:          g.closeBid,
			Ask:          g.closeAsk,
			Volume:       vol,
			OpenInterest: g.openInterest,
			IV:           g.impliedVol,
			Delta:        g.delta,
			Gamma:        g.gamma,
			Theta:        g.theta,
			Vega:         g.vega,
		})
	}
	return rows
}

// ValidateRows checks data quality before writing the dataset. Issues are
// returned for reporting; they do not abort the save.
func ValidateRows(rows []Row) []string {
	var issues []string
	if len(rows) == 0 {
		return []string{"no rows downloaded"}
	}

	var negative, inverted, badStrike int
	for _, r := range rows {
		if r.Bid < 0 || r.Ask < 0 {
			negative++
		}
		if r.Bid > r.Ask {
			inverted++
		}
		if r.Strike <= 0 {
			badStrike++
		}
	}
	if negative > 0 {
		issues = append(issues, fmt.Sprintf("%d rows with negative prices", negative))
	}
	if inverted > 0 {
		issues = append(issues, fmt.Sprintf("%d rows with inverted bid/ask spreads", inverted))
	}
	if badStrike > 0 {
		issues = append(issues, fmt.Sprintf("%d rows with non-positive strikes", badStrike))
	}
	return issues
}

// SaveCSV writes the accumulated rows in dataset order and clears the
// checkpoint on success.
func (d *Downloader) SaveCSV(path string) error {
	d.mu.Lock()
	rows := d.rows
	d.mu.Unlock()

	if len(rows) == 0 {
		return fmt.Errorf("no data to save")
	}

	for _, issue := range ValidateRows(rows) {
		d.logger.Warn().Str("issue", issue).Msg("data validation issue")
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if !a.Expiration.Equal(b.Expiration) {
			return a.Expiration.Before(b.Expiration)
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Strike < b.Strike
	})

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"date", "expiration", "strike", "type", "bid", "ask",
		"volume", "open_interest", "iv", "delta", "gamma", "theta", "vega"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.Date.Format("2006-01-02"),
			r.Expiration.Format("2006-01-02"),
			strconv.FormatFloat(r.Strike, 'f', -1, 64),
			string(r.Type),
			strconv.FormatFloat(r.Bid, 'f', -1, 64),
			strconv.FormatFloat(r.Ask, 'f', -1, 64),
			strconv.FormatInt(r.Volume, 10),
			strconv.FormatInt(r.OpenInterest, 10),
			strconv.FormatFloat(r.IV, 'f', -1, 64),
			strconv.FormatFloat(r.Delta, 'f', -1, 64),
			strconv.FormatFloat(r.Gamma, 'f', -1, 64),
			strconv.FormatFloat(r.Theta, 'f', -1, 64),
			strconv.FormatFloat(r.Vega, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	d.logger.Info().
		Str("path", path).
		Int("rows", len(rows)).
		Msg("dataset saved")
	d.checkpoint.Clear()
	return nil
}
