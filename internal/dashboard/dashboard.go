// Package dashboard summarises every tracked asset: its latest price and
// where that price sits against its bands, its moving averages and the
// Prophet forecast.
package dashboard

import (
	"context"
	"fmt"

	"CryptoDash/internal/calculator"
	"CryptoDash/internal/model"
	"CryptoDash/internal/store"
)

const (
	// recentRows is how many of the latest prices feed the indicators.
	recentRows = 50
	bandPeriod = 20
	bandWidth  = 2.0
	slowPeriod = 50
)

// Indicators locate the latest price. Nil means not computable.
type Indicators struct {
	PercentB  *float64 `json:"percent_b"`
	Bandwidth *float64 `json:"bandwidth"`
	SMASpread *float64 `json:"sma_spread"`
}

// Row is one asset of the dashboard.
type Row struct {
	model.CryptoSummary
	Indicators
	// ProphetPercent is the relative distance from the latest price to the
	// last Prophet estimate.
	ProphetPercent *float64 `json:"prophet_percent"`
}

// Latest computes the indicators of price against recent, the most recent
// closes oldest first. Fewer than 20 closes or a flat band leave all of
// them nil; the SMA spread also needs 50 closes.
func Latest(recent []float64, price float64) Indicators {
	var out Indicators
	if len(recent) > recentRows {
		recent = recent[len(recent)-recentRows:]
	}
	if len(recent) < bandPeriod {
		return out
	}
	last := len(recent) - 1
	upper, lower := calculator.Bollinger(recent, bandPeriod, bandWidth)
	if !model.Finite(upper[last]) || !model.Finite(lower[last]) {
		return out
	}
	band := upper[last] - lower[last]
	if band == 0 {
		return out
	}
	pb := (price - lower[last]) / band
	out.PercentB = &pb

	sma20 := calculator.SMASeries(recent, bandPeriod)[last]
	if model.Finite(sma20) && sma20 != 0 {
		bw := band / sma20
		out.Bandwidth = &bw
	}
	if len(recent) >= slowPeriod {
		sma50 := calculator.SMASeries(recent, slowPeriod)[last]
		if model.Finite(sma20) && model.Finite(sma50) && sma50 != 0 {
			spread := (sma20 - sma50) / sma50
			out.SMASpread = &spread
		}
	}
	return out
}

// ProphetPercent returns (yhat - price) / price for the latest dated row of
// f. It is nil when that row has no estimate or price is zero.
func ProphetPercent(f model.Forecast, price float64) *float64 {
	var latest *model.ForecastRow
	for i := range f.Rows {
		if latest == nil || f.Rows[i].Date > latest.Date {
			latest = &f.Rows[i]
		}
	}
	if latest == nil || latest.YHat == nil || price == 0 {
		return nil
	}
	p := (*latest.YHat - price) / price
	return &p
}

// Build summarises every tracked asset in store order.
func Build(ctx context.Context, st store.Store) ([]Row, error) {
	list, err := st.ListCryptos(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cryptos: %w", err)
	}
	rows := make([]Row, 0, len(list))
	for _, cr := range list {
		row := Row{CryptoSummary: cr}
		if cr.LatestPrice == nil {
			rows = append(rows, row)
			continue
		}
		price := *cr.LatestPrice

		points, err := st.PriceSeries(ctx, cr.ID, "")
		if err != nil {
			return nil, fmt.Errorf("prices of %s: %w", cr.CoinGeckoID, err)
		}
		row.Indicators = Latest(calculator.ExtractPrices(points), price)

		f, ok, err := st.Forecast(ctx, cr.ID, model.ForecastProphet, "")
		if err != nil {
			return nil, fmt.Errorf("prophet forecast of %s: %w", cr.CoinGeckoID, err)
		}
		if ok {
			row.ProphetPercent = ProphetPercent(f, price)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
