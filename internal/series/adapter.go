// Package series turns the JSON attributes that describe a chart into
// date-aligned arrays.
package series

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	"CryptoDash/internal/model"
)

// Attribute keys.
const (
	AttrSeries        = "series"
	AttrSeriesPadding = "seriesPadding"
	AttrCurrency      = "currency"
	AttrAsset         = "asset"
)

// Attributes carries the chart inputs as strings, one JSON blob or plain
// value per key.
type Attributes map[string]string

// CutoffKey returns the attribute key holding the cutoff date of m.
func CutoffKey(m model.ForecastModel) string { return string(m) + "Cutoff" }

// LineKey returns the attribute key holding the marker line date of m.
func LineKey(m model.ForecastModel) string { return string(m) + "Line" }

// ForecastInput is one forecast series as the chart sees it.
type ForecastInput struct {
	Model  model.ForecastModel
	Rows   []model.ForecastRow
	Cutoff string
	Line   string
}

// Input holds the parsed, aligned chart arrays. Every array built from the
// series rows has len(Dates) entries.
type Input struct {
	Asset     string
	Currency  string
	Dates     []string
	Price     model.Values
	SMA20     model.Values
	SMA50     model.Values
	BBUpper   model.Values
	BBLower   model.Values
	Padding   []float64
	Forecasts []ForecastInput
}

// Adapt parses attrs. A malformed blob is logged and treated as empty; it
// never prevents the other inputs from being used.
func Adapt(attrs Attributes) *Input {
	in := &Input{
		Asset:    strings.TrimSpace(attrs[AttrAsset]),
		Currency: strings.ToUpper(strings.TrimSpace(attrs[AttrCurrency])),
	}

	var rows []model.SeriesRow
	decode(attrs, AttrSeries, &rows)
	n := len(rows)
	in.Dates = make([]string, n)
	in.Price = model.NewValues(n)
	in.SMA20 = model.NewValues(n)
	in.SMA50 = model.NewValues(n)
	in.BBUpper = model.NewValues(n)
	in.BBLower = model.NewValues(n)
	for i, r := range rows {
		in.Dates[i] = r.Date
		set(in.Price, i, r.Price)
		set(in.SMA20, i, r.SMA20)
		set(in.SMA50, i, r.SMA50)
		set(in.BBUpper, i, r.BBUpper)
		set(in.BBLower, i, r.BBLower)
	}

	var padding []model.PaddingRow
	decode(attrs, AttrSeriesPadding, &padding)
	in.Padding = make([]float64, len(padding))
	for i, p := range padding {
		in.Padding[i] = model.Absent
		if p.Price != nil {
			in.Padding[i] = *p.Price
		}
	}

	for _, m := range model.ForecastModels {
		var fr []model.ForecastRow
		decode(attrs, string(m), &fr)
		in.Forecasts = append(in.Forecasts, ForecastInput{
			Model:  m,
			Rows:   fr,
			Cutoff: strings.TrimSpace(attrs[CutoffKey(m)]),
			Line:   strings.TrimSpace(attrs[LineKey(m)]),
		})
	}
	return in
}

// Forecast returns the forecast input for m, if present.
func (in *Input) Forecast(m model.ForecastModel) (ForecastInput, bool) {
	for _, f := range in.Forecasts {
		if f.Model == m {
			return f, true
		}
	}
	return ForecastInput{}, false
}

func decode[T any](attrs Attributes, key string, dst *[]T) {
	raw := strings.TrimSpace(attrs[key])
	if raw == "" || raw == "null" {
		return
	}
	var out []T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		log.Warn().Err(err).Str("attr", key).Msg("malformed chart attribute, using empty series")
		return
	}
	*dst = out
}

func set(dst model.Values, i int, p *float64) {
	if p != nil {
		dst[i] = *p
	}
}
