package series

import (
	"testing"

	"CryptoDash/internal/model"
)

func TestAdapt_AlignsAbsentValues(t *testing.T) {
	in := Adapt(Attributes{
		AttrSeries: `[
			{"date":"2024-01-01","price":10,"sma_20":null},
			{"date":"2024-01-02","price":null,"sma_20":9.5},
			{"date":"2024-01-03","price":12}
		]`,
		AttrCurrency: "usd",
	})
	if len(in.Dates) != 3 || len(in.Price) != 3 || len(in.SMA20) != 3 || len(in.BBLower) != 3 {
		t.Fatalf("arrays not aligned: dates=%d price=%d sma20=%d bbLower=%d",
			len(in.Dates), len(in.Price), len(in.SMA20), len(in.BBLower))
	}
	if model.Finite(in.Price[1]) {
		t.Errorf("price[1] should be absent, got %v", in.Price[1])
	}
	if in.SMA20[1] != 9.5 {
		t.Errorf("sma20[1] = %v, want 9.5", in.SMA20[1])
	}
	if in.Currency != "USD" {
		t.Errorf("currency = %q, want USD", in.Currency)
	}
}

func TestAdapt_MalformedBlobFailsSoft(t *testing.T) {
	in := Adapt(Attributes{
		AttrSeries:        `[{"date":"2024-01-01","price":10}]`,
		string(model.ForecastProphet): `[{"date": oops`,
		AttrSeriesPadding: `not json`,
		string(model.ForecastLSTM):    `[{"date":"2024-01-02","yhat":11}]`,
	})
	if len(in.Dates) != 1 {
		t.Fatalf("series should survive a bad sibling blob, got %d rows", len(in.Dates))
	}
	if len(in.Padding) != 0 {
		t.Errorf("bad padding should be empty, got %v", in.Padding)
	}
	prophet, _ := in.Forecast(model.ForecastProphet)
	if len(prophet.Rows) != 0 {
		t.Errorf("bad prophet blob should be empty, got %d rows", len(prophet.Rows))
	}
	lstm, _ := in.Forecast(model.ForecastLSTM)
	if len(lstm.Rows) != 1 {
		t.Errorf("lstm rows = %d, want 1", len(lstm.Rows))
	}
}

func TestAdapt_ForecastOrderAndCutoffs(t *testing.T) {
	in := Adapt(Attributes{
		CutoffKey(model.ForecastGRU): "2024-02-01",
		LineKey(model.ForecastGRU):   "2024-02-01",
	})
	if len(in.Forecasts) != 3 {
		t.Fatalf("expected 3 forecasts, got %d", len(in.Forecasts))
	}
	for i, m := range model.ForecastModels {
		if in.Forecasts[i].Model != m {
			t.Errorf("forecast %d = %s, want %s", i, in.Forecasts[i].Model, m)
		}
	}
	if in.Forecasts[2].Cutoff != "2024-02-01" || in.Forecasts[2].Line != "2024-02-01" {
		t.Errorf("gru cutoff/line not parsed: %+v", in.Forecasts[2])
	}
}

func TestEncodeAdaptRoundTrip(t *testing.T) {
	p := 42.0
	attrs, err := Encode(Source{
		Asset:    "7",
		Currency: "eur",
		Rows:     []model.SeriesRow{{Date: "2024-03-01", Price: &p}},
		Forecasts: map[model.ForecastModel]model.Forecast{
			model.ForecastProphet: {CutoffDate: "2024-03-01", Rows: []model.ForecastRow{{Date: "2024-03-02", YHat: &p}}},
		},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	in := Adapt(attrs)
	if in.Asset != "7" || in.Price[0] != 42 {
		t.Errorf("unexpected input: asset=%q price=%v", in.Asset, in.Price)
	}
	f, _ := in.Forecast(model.ForecastProphet)
	if f.Cutoff != "2024-03-01" || len(f.Rows) != 1 {
		t.Errorf("prophet not carried: %+v", f)
	}
	if attrs[string(model.ForecastLSTM)] != "[]" {
		t.Errorf("missing forecast should encode as empty array, got %q", attrs[string(model.ForecastLSTM)])
	}
}

func TestWindow(t *testing.T) {
	var points []model.PricePoint
	for i := 1; i <= 30; i++ {
		points = append(points, model.PricePoint{Date: date(i), Price: float64(i)})
	}
	rows, padding := Window(points, date(21), 5)
	if len(rows) != 10 {
		t.Fatalf("rows = %d, want 10", len(rows))
	}
	if rows[0].Date != date(21) {
		t.Errorf("first row date = %s", rows[0].Date)
	}
	if rows[0].SMA20 == nil || *rows[0].SMA20 != 11.5 {
		t.Errorf("first visible SMA20 should be seeded from history, got %v", rows[0].SMA20)
	}
	if rows[0].SMA50 != nil {
		t.Errorf("SMA50 should be absent with 30 points")
	}
	if len(padding) != 5 || *padding[4].Price != 20 {
		t.Errorf("padding should hold the 5 prices before the window, got %d", len(padding))
	}
}

func date(day int) string {
	return "2024-01-" + string(rune('0'+day/10)) + string(rune('0'+day%10))
}
