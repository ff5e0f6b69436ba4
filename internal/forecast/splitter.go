// Package forecast splits forecast series around their cutoff date.
package forecast

import "CryptoDash/internal/model"

// Split is a forecast series partitioned into the in-sample fit (History)
// and the projection (Future). The cutoff row belongs to both.
type Split struct {
	Model   model.ForecastModel
	Cutoff  string
	History []model.ForecastRow
	Future  []model.ForecastRow
	HasData bool
}

// ResolveCutoff returns cutoff when set, otherwise the last date whose price
// is finite. It returns "" when neither exists.
func ResolveCutoff(cutoff string, dates []string, prices []float64) string {
	if cutoff != "" {
		return cutoff
	}
	for i := len(prices) - 1; i >= 0; i-- {
		if i < len(dates) && model.Finite(prices[i]) {
			return dates[i]
		}
	}
	return ""
}

// SplitSeries partitions rows by cutoff. Dates are ISO calendar dates, so
// lexical order is chronological. Without a cutoff every row is future.
func SplitSeries(m model.ForecastModel, rows []model.ForecastRow, cutoff string) Split {
	s := Split{Model: m, Cutoff: cutoff}
	for _, r := range rows {
		if cutoff != "" && r.Date <= cutoff {
			s.History = append(s.History, r)
		}
		if cutoff == "" || r.Date >= cutoff {
			s.Future = append(s.Future, r)
		}
	}
	s.HasData = hasYHat(s.History) || hasYHat(s.Future)
	return s
}

func hasYHat(rows []model.ForecastRow) bool {
	for _, r := range rows {
		if r.YHat != nil && model.Finite(*r.YHat) {
			return true
		}
	}
	return false
}

// Line extracts the dates and point estimates of rows.
func Line(rows []model.ForecastRow) ([]string, model.Values) {
	dates := make([]string, len(rows))
	yhat := make([]*float64, len(rows))
	for i, r := range rows {
		dates[i] = r.Date
		yhat[i] = r.YHat
	}
	return dates, model.FromPointers(yhat)
}

// Band extracts the confidence interval over the whole series.
func Band(rows []model.ForecastRow) (dates []string, lower, upper model.Values) {
	dates = make([]string, len(rows))
	lo := make([]*float64, len(rows))
	hi := make([]*float64, len(rows))
	for i, r := range rows {
		dates[i] = r.Date
		lo[i] = r.YHatLower
		hi[i] = r.YHatUpper
	}
	return dates, model.FromPointers(lo), model.FromPointers(hi)
}
