package series

import (
	"encoding/json"
	"fmt"

	"CryptoDash/internal/model"
)

// Source is the typed form of a chart payload.
type Source struct {
	Asset     string
	Currency  string
	Rows      []model.SeriesRow
	Padding   []model.PaddingRow
	Forecasts map[model.ForecastModel]model.Forecast
}

// Encode renders src as Attributes. Forecasts without a cutoff get no
// cutoff/line attribute, so the chart falls back to the last priced date.
func Encode(src Source) (Attributes, error) {
	attrs := Attributes{
		AttrAsset:    src.Asset,
		AttrCurrency: src.Currency,
	}
	if err := put(attrs, AttrSeries, src.Rows); err != nil {
		return nil, err
	}
	if err := put(attrs, AttrSeriesPadding, src.Padding); err != nil {
		return nil, err
	}
	for _, m := range model.ForecastModels {
		f, ok := src.Forecasts[m]
		if !ok {
			attrs[string(m)] = "[]"
			continue
		}
		if err := put(attrs, string(m), f.Rows); err != nil {
			return nil, err
		}
		if f.CutoffDate != "" {
			attrs[CutoffKey(m)] = f.CutoffDate
			attrs[LineKey(m)] = f.CutoffDate
		}
	}
	return attrs, nil
}

func put[T any](attrs Attributes, key string, rows []T) error {
	if rows == nil {
		rows = []T{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	attrs[key] = string(data)
	return nil
}
