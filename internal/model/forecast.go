package model

// ForecastModel identifies a forecast producer.
type ForecastModel string

const (
	ForecastProphet ForecastModel = "prophet"
	ForecastLSTM    ForecastModel = "lstm"
	ForecastGRU     ForecastModel = "gru"
)

// ForecastModels lists every producer in registration order. Chart traces
// for forecasts are built in this order.
var ForecastModels = []ForecastModel{ForecastProphet, ForecastLSTM, ForecastGRU}

// Label returns the display name of the model.
func (m ForecastModel) Label() string {
	switch m {
	case ForecastProphet:
		return "Prophet"
	case ForecastLSTM:
		return "LSTM"
	case ForecastGRU:
		return "GRU"
	default:
		return string(m)
	}
}

// Valid reports whether m is a known producer.
func (m ForecastModel) Valid() bool {
	for _, k := range ForecastModels {
		if k == m {
			return true
		}
	}
	return false
}

// ForecastRow is one forecast point. Rows cover both the in-sample fit and
// the projected future; a cutoff date separates them.
type ForecastRow struct {
	Date      string   `json:"date"`
	YHat      *float64 `json:"yhat"`
	YHatLower *float64 `json:"yhat_lower"`
	YHatUpper *float64 `json:"yhat_upper"`
}

// Forecast is a stored forecast series with its metadata.
type Forecast struct {
	Model       ForecastModel `json:"model"`
	CutoffDate  string        `json:"cutoff_date"`
	HorizonDays int           `json:"horizon_days"`
	Rows        []ForecastRow `json:"rows"`
}
