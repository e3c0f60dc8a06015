package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"

	"tradeJournal/internal/domain"
	"tradeJournal/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.FillRepository and ports.TradeRepository interfaces using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/trading_journal.db" // Default path
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
			cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	return repo, nil
}

// initializeSchema creates tables if they don't exist.
// Fill numerics are kept as exchange text; trade money columns hold decimal text.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS fills (
		wallet TEXT NOT NULL,
		tid TEXT NOT NULL,
		coin TEXT NOT NULL,
		px TEXT NOT NULL,
		sz TEXT NOT NULL,
		side TEXT NOT NULL,
		dir TEXT NOT NULL,
		time INTEGER NOT NULL,
		start_position TEXT NOT NULL DEFAULT '0',
		closed_pnl TEXT NOT NULL DEFAULT '0',
		fee TEXT NOT NULL DEFAULT '0',
		oid TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (wallet, tid)
	);

	CREATE TABLE IF NOT EXISTS trades (
		wallet TEXT NOT NULL,
		id INTEGER NOT NULL,
		coin TEXT NOT NULL,
		direction TEXT NOT NULL,
		status TEXT NOT NULL,
		entry_px TEXT NOT NULL,
		exit_px TEXT NULL,
		size TEXT NOT NULL,
		pnl TEXT NOT NULL,
		fees TEXT NOT NULL,
		open_time INTEGER NOT NULL,
		close_time INTEGER NULL,
		hold_ms INTEGER NULL,
		mae REAL NOT NULL,
		mfe REAL NOT NULL,
		fill_ids TEXT NOT NULL,
		opened_by_flip INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (wallet, id)
	);
	CREATE INDEX IF NOT EXISTS idx_fills_wallet_time ON fills (wallet, time);
	CREATE INDEX IF NOT EXISTS idx_trades_wallet_time ON trades (wallet, open_time);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- FillRepository Implementation ---

// SaveFills stores fills for a wallet, skipping ids that are already cached.
func (r *Repository) SaveFills(ctx context.Context, walletID string, fills []domain.RawFill) (int, error) {
	const query = `
	INSERT OR IGNORE INTO fills (wallet, tid, coin, px, sz, side, dir, time, start_position, closed_pnl, fee, oid)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin fills transaction: %w: %w", ports.ErrUpdateFailed, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare fills insert: %w: %w", ports.ErrUpdateFailed, err)
	}
	defer stmt.Close()

	inserted := 0
	for _, f := range fills {
		result, err := stmt.ExecContext(ctx,
			walletID, f.ID, f.Instrument, f.Price, f.Size, f.Side, f.Dir, f.Time,
			orZero(f.StartPosition), orZero(f.ClosedPnl), orZero(f.Fee), f.OrderID)
		if err != nil {
			return 0, fmt.Errorf("failed to insert fill %s: %w: %w", f.ID, ports.ErrUpdateFailed, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get rows affected for fill %s: %w", f.ID, err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit fills: %w: %w", ports.ErrUpdateFailed, err)
	}
	r.logger.Debug(ctx, "Fills cached", map[string]interface{}{"wallet": walletID, "received": len(fills), "inserted": inserted})
	return inserted, nil
}

// LoadFills returns the wallet's cached fills ordered by time, then arrival.
func (r *Repository) LoadFills(ctx context.Context, walletID string) ([]domain.RawFill, error) {
	const query = `
	SELECT tid, coin, px, sz, side, dir, time, start_position, closed_pnl, fee, oid
	FROM fills
	WHERE wallet = ?
	ORDER BY time ASC, rowid ASC`

	rows, err := r.db.QueryContext(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fills for wallet %s: %w: %w", walletID, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	fills := make([]domain.RawFill, 0)
	for rows.Next() {
		f := domain.RawFill{WalletID: walletID}
		if err := rows.Scan(&f.ID, &f.Instrument, &f.Price, &f.Size, &f.Side, &f.Dir, &f.Time,
			&f.StartPosition, &f.ClosedPnl, &f.Fee, &f.OrderID); err != nil {
			return nil, fmt.Errorf("failed to scan fill during LoadFills: %w", err)
		}
		fills = append(fills, f)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fill rows: %w", err)
	}
	return fills, nil
}

// --- TradeRepository Implementation ---

// ReplaceTrades drops the wallet's stored trades and saves the given set atomically.
func (r *Repository) ReplaceTrades(ctx context.Context, walletID string, trades []domain.Trade) error {
	const insert = `
	INSERT INTO trades (wallet, id, coin, direction, status, entry_px, exit_px, size, pnl, fees,
	                    open_time, close_time, hold_ms, mae, mfe, fill_ids, opened_by_flip)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin trades transaction: %w: %w", ports.ErrUpdateFailed, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM trades WHERE wallet = ?`, walletID); err != nil {
		return fmt.Errorf("failed to clear trades for wallet %s: %w: %w", walletID, ports.ErrUpdateFailed, err)
	}

	for _, t := range trades {
		fillIDs, err := sonic.MarshalString(t.FillIDs)
		if err != nil {
			return fmt.Errorf("failed to encode fill ids of trade %d: %w", t.ID, err)
		}
		var closeTime, holdMs sql.NullInt64
		if t.CloseTime != nil {
			closeTime = sql.NullInt64{Int64: t.CloseTime.UnixMilli(), Valid: true}
		}
		if t.HoldDuration != nil {
			holdMs = sql.NullInt64{Int64: t.HoldDuration.Milliseconds(), Valid: true}
		}

		_, err = tx.ExecContext(ctx, insert,
			walletID, t.ID, t.Instrument, t.Direction, t.Status, t.EntryPrice, t.ExitPrice, t.Size,
			t.RealizedPnl, t.Fees, t.OpenTime.UnixMilli(), closeTime, holdMs, t.MAE, t.MFE, fillIDs, t.OpenedByFlip)
		if err != nil {
			return fmt.Errorf("failed to insert trade %d for wallet %s: %w: %w", t.ID, walletID, ports.ErrUpdateFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trades: %w: %w", ports.ErrUpdateFailed, err)
	}
	r.logger.Debug(ctx, "Trades replaced", map[string]interface{}{"wallet": walletID, "trades": len(trades)})
	return nil
}

// FindTrades retrieves the wallet's trades ordered by open time.
func (r *Repository) FindTrades(ctx context.Context, walletID string) ([]domain.Trade, error) {
	const query = `
	SELECT id, coin, direction, status, entry_px, exit_px, size, pnl, fees,
	       open_time, close_time, hold_ms, mae, mfe, fill_ids, opened_by_flip
	FROM trades
	WHERE wallet = ?
	ORDER BY open_time ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades for wallet %s: %w: %w", walletID, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	trades := make([]domain.Trade, 0)
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade during FindTrades: %w", err)
		}
		t.WalletID = walletID
		trades = append(trades, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return trades, nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanTrade scans a row into a domain.Trade struct.
func scanTrade(s scanner) (*domain.Trade, error) {
	t := &domain.Trade{}
	var direction, status, fillIDs string
	var openMs int64
	var closeMs, holdMs sql.NullInt64
	var exitPrice decimal.NullDecimal
	err := s.Scan(
		&t.ID, &t.Instrument, &direction, &status, &t.EntryPrice, &exitPrice, &t.Size, &t.RealizedPnl, &t.Fees,
		&openMs, &closeMs, &holdMs, &t.MAE, &t.MFE, &fillIDs, &t.OpenedByFlip)
	if err != nil {
		return nil, err
	}
	t.Direction = domain.Direction(direction)
	t.Status = domain.TradeStatus(status)
	t.ExitPrice = exitPrice
	t.OpenTime = time.UnixMilli(openMs).UTC()
	if closeMs.Valid {
		closeTime := time.UnixMilli(closeMs.Int64).UTC()
		t.CloseTime = &closeTime
	}
	if holdMs.Valid {
		hold := time.Duration(holdMs.Int64) * time.Millisecond
		t.HoldDuration = &hold
	}
	if err := sonic.UnmarshalString(fillIDs, &t.FillIDs); err != nil {
		return nil, fmt.Errorf("failed to decode fill ids of trade %d: %w", t.ID, err)
	}
	return t, nil
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
