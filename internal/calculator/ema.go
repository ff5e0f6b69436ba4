package calculator

import "CryptoDash/internal/model"

// PaddedEMA computes a period-EMA for the visible prices, warmed up with the
// last period-1 padding prices that immediately precede the window.
//
// The average is seeded with the simple mean of the first run of period
// consecutive finite values and then updated with alpha = 2/(period+1). A
// non-finite value resets the average. Padding slots are computed and then
// dropped, so the result has exactly len(visible) entries.
func PaddedEMA(padding, visible []float64, period int) model.Values {
	if period <= 0 {
		return model.NewValues(len(visible))
	}

	tail := padding
	if n := period - 1; len(tail) > n {
		tail = tail[len(tail)-n:]
	}
	combined := make([]float64, 0, len(tail)+len(visible))
	combined = append(combined, tail...)
	combined = append(combined, visible...)

	out := model.NewValues(len(combined))
	alpha := 2.0 / float64(period+1)
	var (
		ema    float64
		seeded bool
		run    int
	)
	for i, v := range combined {
		if !model.Finite(v) {
			seeded, run = false, 0
			continue
		}
		run++
		if !seeded {
			if run < period {
				continue
			}
			sum := 0.0
			for _, x := range combined[i-period+1 : i+1] {
				sum += x
			}
			ema = sum / float64(period)
			seeded = true
		} else {
			ema = alpha*v + (1-alpha)*ema
		}
		out[i] = ema
	}
	return out[len(tail):]
}
