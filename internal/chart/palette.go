package chart

import "CryptoDash/internal/model"

// ForecastColors styles one forecast model.
type ForecastColors struct {
	Line string
	Fill string
}

// Palette holds every color used by the assembler.
type Palette struct {
	Up        string
	Down      string
	Neutral   string
	Mono      string
	EMA20     string
	EMA50     string
	SMA20     string
	SMA50     string
	Bollinger string
	Forecasts map[model.ForecastModel]ForecastColors
}

// DefaultPalette returns the dashboard colors.
func DefaultPalette() Palette {
	return Palette{
		Up:        "#2ca02c",
		Down:      "#d62728",
		Neutral:   "#1f77b4",
		Mono:      "#1f77b4",
		EMA20:     "#ff7f0e",
		EMA50:     "#e377c2",
		SMA20:     "#bcbd22",
		SMA50:     "#7f7f7f",
		Bollinger: "rgba(31, 119, 180, 0.55)",
		Forecasts: map[model.ForecastModel]ForecastColors{
			model.ForecastProphet: {Line: "rgb(23, 190, 207)", Fill: "rgba(23, 190, 207, 0.10)"},
			model.ForecastLSTM:    {Line: "rgb(148, 103, 189)", Fill: "rgba(148, 103, 189, 0.10)"},
			model.ForecastGRU:     {Line: "rgb(140, 86, 75)", Fill: "rgba(140, 86, 75, 0.10)"},
		},
	}
}

// transparent hides the stroke of a band's lower edge.
const transparent = "rgba(0, 0, 0, 0)"

func (p Palette) forecast(m model.ForecastModel) ForecastColors {
	if c, ok := p.Forecasts[m]; ok {
		return c
	}
	return ForecastColors{Line: p.Neutral, Fill: "rgba(31, 119, 180, 0.10)"}
}
