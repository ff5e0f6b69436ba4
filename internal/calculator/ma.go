package calculator

import (
	"errors"

	"CryptoDash/internal/model"
)

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		if !model.Finite(prices[i]) {
			return 0, errors.New("window contains a missing price")
		}
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// SMASeries returns one SMA value per input slot. A slot is absent until a
// full window of period finite prices ends on it.
func SMASeries(prices []float64, period int) model.Values {
	out := model.NewValues(len(prices))
	if period <= 0 {
		return out
	}
	run := 0
	sum := 0.0
	for i, p := range prices {
		if !model.Finite(p) {
			run, sum = 0, 0
			continue
		}
		run++
		sum += p
		if run > period {
			sum -= prices[i-period]
		}
		if run >= period {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// ExtractPrices returns the prices of the points in order.
func ExtractPrices(points []model.PricePoint) []float64 {
	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Price
	}
	return prices
}
