package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/crypto_portfolio_guard/internal/domain"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS balances (
			platform TEXT NOT NULL,
			base TEXT NOT NULL,
			quantity REAL NOT NULL,
			available REAL NOT NULL,
			PRIMARY KEY (platform, base)
		);`,
		`CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			platform TEXT NOT NULL,
			base TEXT NOT NULL,
			quote TEXT NOT NULL,
			pair TEXT NOT NULL,
			side TEXT NOT NULL,
			price REAL NOT NULL,
			amount REAL NOT NULL,
			total REAL NOT NULL,
			fee REAL NOT NULL DEFAULT 0,
			fee_currency TEXT,
			order_id TEXT,
			ts DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_platform_base ON trades(platform, base);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_trades_platform_order ON trades(platform, order_id) WHERE order_id != '';`,
		`CREATE TABLE IF NOT EXISTS highest_prices (
			platform TEXT NOT NULL,
			base TEXT NOT NULL,
			price REAL NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (platform, base)
		);`,
		`CREATE TABLE IF NOT EXISTS strategies (
			base TEXT NOT NULL,
			platform TEXT NOT NULL,
			name TEXT NOT NULL,
			max_exposure REAL NOT NULL DEFAULT 0,
			PRIMARY KEY (base, platform)
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}

	return nil
}

// BalanceRepository Implementation

func (s *SQLiteStore) GetBalances(ctx context.Context, platform string) ([]domain.Balance, error) {
	query := `SELECT platform, base, quantity, available FROM balances WHERE platform = ?`
	rows, err := s.db.QueryContext(ctx, query, platform)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []domain.Balance
	for rows.Next() {
		var b domain.Balance
		if err := rows.Scan(&b.Platform, &b.Base, &b.Quantity, &b.Available); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// SaveBalances replaces the stored snapshot for a platform atomically.
func (s *SQLiteStore) SaveBalances(ctx context.Context, platform string, balances []domain.Balance) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM balances WHERE platform = ?`, platform); err != nil {
		return err
	}
	for _, b := range balances {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO balances (platform, base, quantity, available) VALUES (?, ?, ?, ?)`,
			platform, b.Base, b.Quantity, b.Available)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// TradeRepository Implementation

func (s *SQLiteStore) GetTrades(ctx context.Context) ([]domain.Trade, error) {
	query := `SELECT platform, base, quote, pair, side, price, amount, total, fee, fee_currency, order_id, ts FROM trades ORDER BY ts`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var feeCurrency, orderID sql.NullString
		if err := rows.Scan(&t.Platform, &t.Base, &t.Quote, &t.Pair, &t.Side, &t.Price,
			&t.Amount, &t.Total, &t.Fee, &feeCurrency, &orderID, &t.Timestamp); err != nil {
			return nil, err
		}
		t.FeeCurrency = feeCurrency.String
		t.OrderID = orderID.String
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (s *SQLiteStore) InsertTrades(ctx context.Context, trades []domain.Trade) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO trades (platform, base, quote, pair, side, price, amount, total, fee, fee_currency, order_id, ts)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, t := range trades {
		_, err := tx.ExecContext(ctx, query,
			t.Platform, t.Base, t.Quote, t.Pair, t.Side, t.Price, t.Amount, t.Total,
			t.Fee, t.FeeCurrency, t.OrderID, t.Timestamp)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// HighestPriceRepository Implementation

func (s *SQLiteStore) GetHighestPrice(ctx context.Context, platform, base string) (float64, bool, error) {
	query := `SELECT price FROM highest_prices WHERE platform = ? AND base = ?`
	row := s.db.QueryRowContext(ctx, query, platform, base)

	var price float64
	err := row.Scan(&price)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return price, true, nil
}

func (s *SQLiteStore) SetHighestPrice(ctx context.Context, platform, base string, price float64) error {
	query := `INSERT INTO highest_prices (platform, base, price, updated_at)
			  VALUES (?, ?, ?, ?)
			  ON CONFLICT(platform, base) DO UPDATE SET
			  price=excluded.price,
			  updated_at=excluded.updated_at`
	_, err := s.db.ExecContext(ctx, query, platform, base, price, time.Now())
	return err
}

func (s *SQLiteStore) ClearHighestPrice(ctx context.Context, platform, base string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM highest_prices WHERE platform = ? AND base = ?`, platform, base)
	return err
}

// StrategyRepository Implementation

func (s *SQLiteStore) GetStrategy(ctx context.Context, base string) (*domain.StrategyConfig, error) {
	query := `SELECT platform, name, max_exposure FROM strategies WHERE base = ?`
	rows, err := s.db.QueryContext(ctx, query, base)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var config *domain.StrategyConfig
	for rows.Next() {
		var platform, name string
		var maxExposure float64
		if err := rows.Scan(&platform, &name, &maxExposure); err != nil {
			return nil, err
		}
		if config == nil {
			config = &domain.StrategyConfig{
				Base:        base,
				Names:       make(map[string]string),
				MaxExposure: make(map[string]float64),
			}
		}
		config.Names[platform] = name
		config.MaxExposure[platform] = maxExposure
	}
	return config, rows.Err()
}

func (s *SQLiteStore) SaveStrategy(ctx context.Context, config *domain.StrategyConfig) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO strategies (base, platform, name, max_exposure)
			  VALUES (?, ?, ?, ?)
			  ON CONFLICT(base, platform) DO UPDATE SET
			  name=excluded.name,
			  max_exposure=excluded.max_exposure`
	for platform, name := range config.Names {
		_, err := tx.ExecContext(ctx, query, config.Base, platform, name, config.MaxExposure[platform])
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
