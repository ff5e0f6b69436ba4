package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"CryptoDash/internal/model"
)

// SQLite is the database-backed Store. Writes are serialised by a mutex;
// WAL mode lets readers proceed meanwhile. It also implements kv.Store over
// its kv table.
type SQLite struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenSQLite opens (or creates) the database at path and creates the schema.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, ":memory:") && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", path).Msg("sqlite store opened")
	return s, nil
}

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cryptocurrencies (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			name         TEXT,
			symbol       TEXT,
			coingecko_id TEXT NOT NULL UNIQUE COLLATE NOCASE,
			created_at   INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS prices (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			crypto_id  INTEGER NOT NULL REFERENCES cryptocurrencies(id) ON DELETE CASCADE,
			date       TEXT NOT NULL,
			price      TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			UNIQUE (crypto_id, date)
		)`,
		`CREATE INDEX IF NOT EXISTS ix_prices_crypto_date ON prices(crypto_id, date)`,

		`CREATE TABLE IF NOT EXISTS forecast_runs (
			crypto_id    INTEGER NOT NULL REFERENCES cryptocurrencies(id) ON DELETE CASCADE,
			model        TEXT NOT NULL,
			cutoff_date  TEXT NOT NULL,
			horizon_days INTEGER NOT NULL,
			created_at   INTEGER NOT NULL,
			PRIMARY KEY (crypto_id, model)
		)`,

		`CREATE TABLE IF NOT EXISTS forecasts (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			crypto_id  INTEGER NOT NULL REFERENCES cryptocurrencies(id) ON DELETE CASCADE,
			model      TEXT NOT NULL,
			date       TEXT NOT NULL,
			yhat       REAL,
			yhat_lower REAL,
			yhat_upper REAL,
			UNIQUE (crypto_id, model, date)
		)`,
		`CREATE INDEX IF NOT EXISTS ix_forecasts_crypto_model_date ON forecasts(crypto_id, model, date)`,

		`CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLite) ListCryptos(ctx context.Context) ([]model.CryptoSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.coingecko_id, c.name, c.symbol, c.created_at, p.price, p.date
		FROM cryptocurrencies c
		LEFT JOIN (SELECT crypto_id, MAX(date) AS max_date FROM prices GROUP BY crypto_id) latest
			ON latest.crypto_id = c.id
		LEFT JOIN prices p ON p.crypto_id = c.id AND p.date = latest.max_date
		ORDER BY c.name, c.id`)
	if err != nil {
		return nil, fmt.Errorf("list cryptos: %w", err)
	}
	defer rows.Close()

	out := []model.CryptoSummary{}
	for rows.Next() {
		var (
			sum     model.CryptoSummary
			created int64
			price   sql.NullString
			date    sql.NullString
			name    sql.NullString
			symbol  sql.NullString
		)
		if err := rows.Scan(&sum.ID, &sum.CoinGeckoID, &name, &symbol, &created, &price, &date); err != nil {
			return nil, fmt.Errorf("scan crypto: %w", err)
		}
		sum.Name, sum.Symbol = name.String, symbol.String
		sum.CreatedAt = time.Unix(created, 0).UTC()
		if price.Valid && date.Valid {
			d, err := decimal.NewFromString(price.String)
			if err != nil {
				return nil, fmt.Errorf("parse price %q: %w", price.String, err)
			}
			p := d.InexactFloat64()
			dt := date.String
			sum.LatestPrice, sum.LatestDate = &p, &dt
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *SQLite) GetCrypto(ctx context.Context, id int64) (model.Crypto, error) {
	var (
		c       model.Crypto
		created int64
		name    sql.NullString
		symbol  sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, coingecko_id, name, symbol, created_at FROM cryptocurrencies WHERE id = ?`, id,
	).Scan(&c.ID, &c.CoinGeckoID, &name, &symbol, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Crypto{}, ErrNotFound
	}
	if err != nil {
		return model.Crypto{}, fmt.Errorf("get crypto %d: %w", id, err)
	}
	c.Name, c.Symbol = name.String, symbol.String
	c.CreatedAt = time.Unix(created, 0).UTC()
	return c, nil
}

func (s *SQLite) AddCrypto(ctx context.Context, c model.Crypto) (model.Crypto, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cryptocurrencies WHERE coingecko_id = ?`, c.CoinGeckoID,
	).Scan(&n); err != nil {
		return model.Crypto{}, fmt.Errorf("check crypto: %w", err)
	}
	if n > 0 {
		return model.Crypto{}, ErrDuplicate
	}

	c.CreatedAt = time.Now().UTC().Truncate(time.Second)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO cryptocurrencies (name, symbol, coingecko_id, created_at) VALUES (?,?,?,?)`,
		c.Name, c.Symbol, c.CoinGeckoID, c.CreatedAt.Unix(),
	)
	if err != nil {
		return model.Crypto{}, fmt.Errorf("insert crypto: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return model.Crypto{}, fmt.Errorf("crypto id: %w", err)
	}
	return c, nil
}

func (s *SQLite) UpsertPrice(ctx context.Context, cryptoID int64, date string, price decimal.Decimal) (PriceWrite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM cryptocurrencies WHERE id = ?`, cryptoID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check crypto: %w", err)
	}
	if exists == 0 {
		return 0, ErrNotFound
	}

	var old string
	err = tx.QueryRowContext(ctx, `SELECT price FROM prices WHERE crypto_id = ? AND date = ?`, cryptoID, date).Scan(&old)
	var write PriceWrite
	switch {
	case errors.Is(err, sql.ErrNoRows):
		write = PriceInserted
		_, err = tx.ExecContext(ctx,
			`INSERT INTO prices (crypto_id, date, price, created_at) VALUES (?,?,?,?)`,
			cryptoID, date, price.String(), time.Now().Unix())
	case err != nil:
		return 0, fmt.Errorf("read price: %w", err)
	default:
		if prev, perr := decimal.NewFromString(old); perr == nil && prev.Equal(price) {
			return PriceUnchanged, nil
		}
		write = PriceUpdated
		_, err = tx.ExecContext(ctx,
			`UPDATE prices SET price = ? WHERE crypto_id = ? AND date = ?`,
			price.String(), cryptoID, date)
	}
	if err != nil {
		return 0, fmt.Errorf("write price: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return write, nil
}

func (s *SQLite) PriceSeries(ctx context.Context, cryptoID int64, since string) ([]model.PricePoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, price FROM prices WHERE crypto_id = ? AND date >= ? ORDER BY date`,
		cryptoID, since)
	if err != nil {
		return nil, fmt.Errorf("price series: %w", err)
	}
	defer rows.Close()

	out := []model.PricePoint{}
	for rows.Next() {
		var date, raw string
		if err := rows.Scan(&date, &raw); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parse price %q: %w", raw, err)
		}
		out = append(out, model.PricePoint{Date: date, Price: d.InexactFloat64()})
	}
	return out, rows.Err()
}

func (s *SQLite) ReplaceForecast(ctx context.Context, cryptoID int64, f model.Forecast) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.GetCrypto(ctx, cryptoID); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM forecasts WHERE crypto_id = ? AND model = ?`, cryptoID, string(f.Model)); err != nil {
		return fmt.Errorf("clear forecast: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO forecast_runs (crypto_id, model, cutoff_date, horizon_days, created_at)
		VALUES (?,?,?,?,?)
		ON CONFLICT (crypto_id, model) DO UPDATE SET
			cutoff_date = excluded.cutoff_date,
			horizon_days = excluded.horizon_days,
			created_at = excluded.created_at`,
		cryptoID, string(f.Model), f.CutoffDate, f.HorizonDays, time.Now().Unix()); err != nil {
		return fmt.Errorf("write forecast run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO forecasts (crypto_id, model, date, yhat, yhat_lower, yhat_upper)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT (crypto_id, model, date) DO UPDATE SET
			yhat = excluded.yhat, yhat_lower = excluded.yhat_lower, yhat_upper = excluded.yhat_upper`)
	if err != nil {
		return fmt.Errorf("prepare forecast insert: %w", err)
	}
	defer stmt.Close()
	for _, r := range f.Rows {
		if _, err := stmt.ExecContext(ctx, cryptoID, string(f.Model), r.Date,
			nullable(r.YHat), nullable(r.YHatLower), nullable(r.YHatUpper)); err != nil {
			return fmt.Errorf("insert forecast row %s: %w", r.Date, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) Forecast(ctx context.Context, cryptoID int64, m model.ForecastModel, since string) (model.Forecast, bool, error) {
	f := model.Forecast{Model: m}
	err := s.db.QueryRowContext(ctx,
		`SELECT cutoff_date, horizon_days FROM forecast_runs WHERE crypto_id = ? AND model = ?`,
		cryptoID, string(m)).Scan(&f.CutoffDate, &f.HorizonDays)
	if errors.Is(err, sql.ErrNoRows) {
		return f, false, nil
	}
	if err != nil {
		return f, false, fmt.Errorf("forecast run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, yhat, yhat_lower, yhat_upper FROM forecasts
		WHERE crypto_id = ? AND model = ? AND date >= ?
		ORDER BY date`, cryptoID, string(m), since)
	if err != nil {
		return f, false, fmt.Errorf("forecast rows: %w", err)
	}
	defer rows.Close()

	f.Rows = []model.ForecastRow{}
	for rows.Next() {
		var (
			r            model.ForecastRow
			yhat, lo, hi sql.NullFloat64
		)
		if err := rows.Scan(&r.Date, &yhat, &lo, &hi); err != nil {
			return f, false, fmt.Errorf("scan forecast: %w", err)
		}
		r.YHat, r.YHatLower, r.YHatUpper = ptr(yhat), ptr(lo), ptr(hi)
		f.Rows = append(f.Rows, r)
	}
	return f, true, rows.Err()
}

// Get implements kv.Store.
func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get %s: %w", key, err)
	}
	return v, true, nil
}

// Set implements kv.Store.
func (s *SQLite) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?,?,?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

// Remove implements kv.Store.
func (s *SQLite) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("kv remove %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Close() error {
	log.Info().Msg("closing sqlite store")
	return s.db.Close()
}

func nullable(v *float64) any {
	if v == nil || !model.Finite(*v) {
		return nil
	}
	return *v
}

func ptr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
