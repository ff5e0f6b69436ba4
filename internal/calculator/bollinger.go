package calculator

import (
	"math"

	"CryptoDash/internal/model"
)

// Bollinger returns the upper and lower bands (SMA ± k population standard
// deviations) for every slot that closes a full finite window.
func Bollinger(prices []float64, period int, k float64) (upper, lower model.Values) {
	upper = model.NewValues(len(prices))
	lower = model.NewValues(len(prices))
	mid := SMASeries(prices, period)
	for i, m := range mid {
		if !model.Finite(m) {
			continue
		}
		sumSq := 0.0
		for j := i - period + 1; j <= i; j++ {
			d := prices[j] - m
			sumSq += d * d
		}
		sd := math.Sqrt(sumSq / float64(period))
		upper[i] = m + k*sd
		lower[i] = m - k*sd
	}
	return upper, lower
}
