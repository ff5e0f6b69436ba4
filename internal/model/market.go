package model

import "time"

// Crypto is a tracked asset.
type Crypto struct {
	ID          int64     `json:"id"`
	CoinGeckoID string    `json:"coingecko_id"`
	Name        string    `json:"name"`
	Symbol      string    `json:"symbol"`
	CreatedAt   time.Time `json:"created_at"`
}

// CryptoSummary is a Crypto with its most recent stored price.
type CryptoSummary struct {
	Crypto
	LatestPrice *float64 `json:"latest_price"`
	LatestDate  *string  `json:"latest_date"`
}

// PricePoint is one daily close. Date is an ISO calendar date (YYYY-MM-DD).
type PricePoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// SeriesRow is one row of the chart series: price plus the indicators
// computed upstream. Nil means absent.
type SeriesRow struct {
	Date    string   `json:"date"`
	Price   *float64 `json:"price"`
	SMA20   *float64 `json:"sma_20"`
	SMA50   *float64 `json:"sma_50"`
	BBUpper *float64 `json:"bb_upper"`
	BBLower *float64 `json:"bb_lower"`
}

// PaddingRow is a lookback price preceding the visible window.
type PaddingRow struct {
	Price *float64 `json:"price"`
}

// DateLayout is the calendar date format used for every date key.
const DateLayout = "2006-01-02"
