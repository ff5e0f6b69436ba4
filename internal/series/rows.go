package series

import (
	"CryptoDash/internal/calculator"
	"CryptoDash/internal/model"
)

// Indicator settings used when computing series rows.
const (
	BollingerPeriod = 20
	BollingerK      = 2.0
)

// Window computes the indicator rows for the points dated on or after start
// and returns up to lookback prices preceding them as padding. Indicators are
// computed over the whole input so that the first visible rows already have
// a full window behind them. An empty start selects every point.
func Window(points []model.PricePoint, start string, lookback int) ([]model.SeriesRow, []model.PaddingRow) {
	prices := calculator.ExtractPrices(points)
	sma20 := calculator.SMASeries(prices, 20)
	sma50 := calculator.SMASeries(prices, 50)
	upper, lower := calculator.Bollinger(prices, BollingerPeriod, BollingerK)

	first := len(points)
	for i, p := range points {
		if start == "" || p.Date >= start {
			first = i
			break
		}
	}

	rows := make([]model.SeriesRow, 0, len(points)-first)
	for i := first; i < len(points); i++ {
		rows = append(rows, model.SeriesRow{
			Date:    points[i].Date,
			Price:   model.Float(prices[i]),
			SMA20:   model.Float(sma20[i]),
			SMA50:   model.Float(sma50[i]),
			BBUpper: model.Float(upper[i]),
			BBLower: model.Float(lower[i]),
		})
	}

	from := first - lookback
	if from < 0 {
		from = 0
	}
	padding := make([]model.PaddingRow, 0, first-from)
	for i := from; i < first; i++ {
		padding = append(padding, model.PaddingRow{Price: model.Float(prices[i])})
	}
	return rows, padding
}
