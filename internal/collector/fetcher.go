package collector

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DailyPrice is one daily close returned by a fetcher.
type DailyPrice struct {
	Date  string
	Price decimal.Decimal
}

// CoinInfo describes a coin known to the price source.
type CoinInfo struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchCurrentPrice returns the latest price of coinID.
	FetchCurrentPrice(ctx context.Context, coinID string) (decimal.Decimal, error)
	// FetchRange returns one close per UTC day between from and to, oldest
	// first. The close of a day is its last sample.
	FetchRange(ctx context.Context, coinID string, from, to time.Time) ([]DailyPrice, error)
	// FetchCoin looks coinID up. It returns nil without error when the
	// source does not know the coin.
	FetchCoin(ctx context.Context, coinID string) (*CoinInfo, error)
	Name() string
}
