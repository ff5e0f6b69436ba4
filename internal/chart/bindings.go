package chart

import "CryptoDash/internal/model"

// Toggle keys for indicator controls.
const (
	ToggleMono      = "mono"
	ToggleEMA20     = "ema20"
	ToggleEMA50     = "ema50"
	ToggleSMA20     = "sma20"
	ToggleSMA50     = "sma50"
	ToggleBollinger = "bollinger"
)

// Binding ties a toggle control to the groups it shows and hides. When the
// control is checked the Show groups become visible and the Hide groups
// legend-only; unchecked reverses both.
type Binding struct {
	Key      string
	Label    string
	Show     []string
	Hide     []string
	Forecast model.ForecastModel
	Default  bool
}

// Bindings lists the toggles of r in display order. Forecast toggles are
// only listed for forecasts present in the build.
func Bindings(r *BuildResult) []Binding {
	out := []Binding{
		{Key: ToggleMono, Label: "Single color", Show: []string{GroupPriceMono}, Hide: []string{GroupPrice}},
		{Key: ToggleEMA20, Label: "EMA 20", Show: []string{GroupEMA20}},
		{Key: ToggleEMA50, Label: "EMA 50", Show: []string{GroupEMA50}},
		{Key: ToggleSMA20, Label: "SMA 20", Show: []string{GroupSMA20}},
		{Key: ToggleSMA50, Label: "SMA 50", Show: []string{GroupSMA50}},
		{Key: ToggleBollinger, Label: "Bollinger", Show: []string{GroupBollinger}},
	}
	for _, f := range r.Forecasts() {
		out = append(out, Binding{
			Key:      string(f.Model),
			Label:    f.Label,
			Show:     []string{BandGroup(f.Model), ForecastGroup(f.Model)},
			Forecast: f.Model,
			Default:  true,
		})
	}
	return out
}

// Resolve maps a binding to trace indices and their target visibility for
// the given checked state. Unknown groups are skipped.
func (r *BuildResult) Resolve(b Binding, checked bool) (indices []int, vis []Visibility) {
	for _, key := range b.Show {
		if g, ok := r.Group(key); ok {
			for _, i := range g.Indices() {
				indices = append(indices, i)
				vis = append(vis, VisibleIf(checked))
			}
		}
	}
	for _, key := range b.Hide {
		if g, ok := r.Group(key); ok {
			for _, i := range g.Indices() {
				indices = append(indices, i)
				vis = append(vis, VisibleIf(!checked))
			}
		}
	}
	return indices, vis
}
