// Package store persists completed backtest runs to SQLite so past runs
// can be listed and compared.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"butterfly-backtest/internal/backtest"
	apperrors "butterfly-backtest/internal/errors"
	"butterfly-backtest/internal/models"
	"butterfly-backtest/internal/stats"
)

// Run is a persisted backtest run with its summary.
type Run struct {
	ID        int64
	CreatedAt time.Time
	Dataset   string
	Start     time.Time
	End       time.Time
	Config    backtest.Config
	Summary   stats.Summary
}

// SQLiteStore implements run persistence using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the run database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at DATETIME NOT NULL,
		dataset TEXT NOT NULL,
		start_date DATETIME NOT NULL,
		end_date DATETIME NOT NULL,
		config TEXT NOT NULL,
		total_trades INTEGER NOT NULL,
		win_rate REAL NOT NULL,
		total_pnl REAL NOT NULL,
		sharpe REAL NOT NULL,
		max_drawdown REAL NOT NULL,
		summary TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		entry_date DATETIME NOT NULL,
		exit_date DATETIME NOT NULL,
		expiration DATETIME NOT NULL,
		entry_dte INTEGER NOT NULL,
		exit_dte INTEGER NOT NULL,
		atm_strike REAL NOT NULL,
		entry_cost REAL NOT NULL,
		exit_value REAL NOT NULL,
		pnl REAL NOT NULL,
		pnl_pct REAL NOT NULL,
		reward_risk REAL NOT NULL,
		exit_reason TEXT NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE TABLE IF NOT EXISTS run_equity (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		date DATETIME NOT NULL,
		equity REAL NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_run_trades_run ON run_trades(run_id);
	CREATE INDEX IF NOT EXISTS idx_run_equity_run ON run_equity(run_id);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun persists a completed run, its trades and equity curve in one
// transaction, and returns the new run ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, dataset string, cfg backtest.Config, result *backtest.Result, summary stats.Summary) (int64, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return 0, apperrors.Wrap(err, "marshaling config")
	}
	sumJSON, err := json.Marshal(summary)
	if err != nil {
		return 0, apperrors.Wrap(err, "marshaling summary")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabaseError, err.Error())
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (created_at, dataset, start_date, end_date, config,
			total_trades, win_rate, total_pnl, sharpe, max_drawdown, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC(), dataset, result.Start, result.End, string(cfgJSON),
		summary.TotalTrades, summary.WinRate, summary.TotalPnL,
		summary.SharpeRatio, summary.MaxDrawdown, string(sumJSON))
	if err != nil {
		return 0, apperrors.Wrap(err, "inserting run")
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	tradeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_trades (run_id, entry_date, exit_date, expiration,
			entry_dte, exit_dte, atm_strike, entry_cost, exit_value,
			pnl, pnl_pct, reward_risk, exit_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer tradeStmt.Close()

	for _, t := range result.Trades {
		if _, err := tradeStmt.ExecContext(ctx, runID,
			t.EntryDate, t.ExitDate, t.Expiration,
			t.EntryDTE, t.ExitDTE, t.ATMStrike, t.EntryCost, t.ExitValue,
			t.PnL, t.PnLPercent, t.RewardRisk, t.ExitReason); err != nil {
			return 0, apperrors.Wrap(err, "inserting trade")
		}
	}

	equityStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_equity (run_id, date, equity) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer equityStmt.Close()

	for _, p := range result.EquityCurve {
		if _, err := equityStmt.ExecContext(ctx, runID, p.Date, p.Equity); err != nil {
			return 0, apperrors.Wrap(err, "inserting equity point")
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, apperrors.Wrap(err, "committing run")
	}
	return runID, nil
}

// ListRuns returns saved runs, most recent first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, dataset, start_date, end_date, config, summary
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "querying runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun loads a single run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, dataset, start_date, end_date, config, summary
		FROM runs WHERE id = ?`, id)

	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRunTrades loads the trade ledger of a saved run in close order.
func (s *SQLiteStore) GetRunTrades(ctx context.Context, runID int64) ([]models.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_date, exit_date, expiration, entry_dte, exit_dte,
			atm_strike, entry_cost, exit_value, pnl, pnl_pct, reward_risk, exit_reason
		FROM run_trades WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, apperrors.Wrap(err, "querying trades")
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		if err := rows.Scan(&t.EntryDate, &t.ExitDate, &t.Expiration,
			&t.EntryDTE, &t.ExitDTE, &t.ATMStrike, &t.EntryCost, &t.ExitValue,
			&t.PnL, &t.PnLPercent, &t.RewardRisk, &t.ExitReason); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r       Run
		cfgJSON string
		sumJSON string
	)
	if err := sc.Scan(&r.ID, &r.CreatedAt, &r.Dataset, &r.Start, &r.End, &cfgJSON, &sumJSON); err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal([]byte(cfgJSON), &r.Config); err != nil {
		return Run{}, apperrors.Wrap(err, "decoding run config")
	}
	if err := json.Unmarshal([]byte(sumJSON), &r.Summary); err != nil {
		return Run{}, apperrors.Wrap(err, "decoding run summary")
	}
	return r, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
