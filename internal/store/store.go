// Package store persists tracked assets, their daily prices and the
// forecasts ingested for them.
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"CryptoDash/internal/model"
)

var (
	// ErrNotFound is returned when a crypto does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a CoinGecko id is already tracked.
	ErrDuplicate = errors.New("store: duplicate")
)

// PriceWrite tells what an upsert did.
type PriceWrite int

const (
	PriceInserted PriceWrite = iota
	PriceUpdated
	PriceUnchanged
)

// Store is the persistence layer behind the dashboard.
type Store interface {
	ListCryptos(ctx context.Context) ([]model.CryptoSummary, error)
	GetCrypto(ctx context.Context, id int64) (model.Crypto, error)
	AddCrypto(ctx context.Context, c model.Crypto) (model.Crypto, error)

	// UpsertPrice stores the close of cryptoID on date (YYYY-MM-DD).
	UpsertPrice(ctx context.Context, cryptoID int64, date string, price decimal.Decimal) (PriceWrite, error)
	// PriceSeries lists prices dated on or after since, oldest first. An
	// empty since lists everything.
	PriceSeries(ctx context.Context, cryptoID int64, since string) ([]model.PricePoint, error)

	// ReplaceForecast drops the stored forecast of f.Model and saves f.
	ReplaceForecast(ctx context.Context, cryptoID int64, f model.Forecast) error
	// Forecast returns the rows of one model dated on or after since. ok is
	// false when the model has never been ingested for cryptoID.
	Forecast(ctx context.Context, cryptoID int64, m model.ForecastModel, since string) (f model.Forecast, ok bool, err error)

	Close() error
}
