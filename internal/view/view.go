// Package view wires a built chart to its controls: it owns the per-trace
// visibility, applies saved toggle state before the first paint and turns
// later clicks into restyle calls.
package view

import (
	"context"

	"github.com/rs/zerolog/log"

	"CryptoDash/internal/chart"
	"CryptoDash/internal/model"
	"CryptoDash/internal/ruler"
	"CryptoDash/internal/toggle"
)

// Control is one checkbox next to the chart.
type Control struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Checked  bool   `json:"checked"`
	Disabled bool   `json:"disabled"`
	Forecast bool   `json:"forecast"`
}

// Options tunes a View.
type Options struct {
	Palette chart.Palette
	Ruler   ruler.Options
}

// View is the state of one rendered chart. Like the ruler it belongs to a
// single goroutine.
type View struct {
	asset   string
	result  *chart.BuildResult
	surface chart.Surface
	store   *toggle.Store
	ruler   *ruler.Controller
	palette chart.Palette

	bindings map[string]chart.Binding
	order    []string
	controls map[string]*Control
	visible  []chart.Visibility
	plotted  bool
}

// New prepares the view of result for asset. Nothing is drawn until Start.
func New(asset string, result *chart.BuildResult, surface chart.Surface, store *toggle.Store, opts Options) *View {
	p := opts.Palette
	if p.Up == "" {
		p = chart.DefaultPalette()
	}
	v := &View{
		asset:    asset,
		result:   result,
		surface:  surface,
		store:    store,
		ruler:    ruler.New(surface, opts.Ruler),
		palette:  p,
		bindings: make(map[string]chart.Binding),
		controls: make(map[string]*Control),
		visible:  result.Visibility(),
	}

	hasData := make(map[model.ForecastModel]bool)
	for _, f := range result.Forecasts() {
		hasData[f.Model] = f.HasData
	}
	for _, b := range chart.Bindings(result) {
		c := &Control{Key: b.Key, Label: b.Label, Checked: b.Default}
		if b.Forecast != "" {
			c.Forecast = true
			c.Disabled = !hasData[b.Forecast]
		}
		v.bindings[b.Key] = b
		v.controls[b.Key] = c
		v.order = append(v.order, b.Key)
		if c.Disabled {
			c.Checked = false
		}
		v.paint(b, c.Checked)
	}
	return v
}

// Ruler exposes the measurement overlay of the chart.
func (v *View) Ruler() *ruler.Controller { return v.ruler }

// Result is the chart being shown.
func (v *View) Result() *chart.BuildResult { return v.result }

// Controls lists the controls in display order.
func (v *View) Controls() []Control {
	out := make([]Control, 0, len(v.order))
	for _, k := range v.order {
		out = append(out, *v.controls[k])
	}
	return out
}

// Control looks up one control.
func (v *View) Control(key string) (Control, bool) {
	c, ok := v.controls[key]
	if !ok {
		return Control{}, false
	}
	return *c, true
}

// State is the checked state of every control.
func (v *View) State() toggle.State {
	out := make(toggle.State, len(v.order))
	for _, k := range v.order {
		out[k] = v.controls[k].Checked
	}
	return out
}

// Visibility is the current visibility of every trace.
func (v *View) Visibility() []chart.Visibility {
	out := make([]chart.Visibility, len(v.visible))
	copy(out, v.visible)
	return out
}

// Figure is the chart as it should currently look.
func (v *View) Figure() chart.Figure {
	layout := v.result.Layout()
	layout.Shapes = v.ruler.Shapes()
	layout.Annotations = v.ruler.Annotations()
	return v.result.Figure(v.visible, layout)
}

// Start applies the saved toggles of the asset, draws the chart and places
// the cutoff markers of the forecasts left on.
func (v *View) Start(ctx context.Context) {
	defaults := v.State()
	merged := toggle.Merge(defaults, v.store.Load(ctx, v.asset))
	for _, k := range v.order {
		if merged[k] != defaults[k] {
			v.apply(k, merged[k])
		}
	}
	v.plotted = true
	v.surface.Plot(v.Figure(), func(err error) {
		if err != nil {
			log.Warn().Err(err).Str("asset", v.asset).Msg("chart plot failed")
		}
	})
	v.ruler.SetMarkers(v.markers())
}

// Toggle handles a click on the control key and remembers the new state.
// Missing and disabled controls are ignored.
func (v *View) Toggle(ctx context.Context, key string, checked bool) bool {
	if !v.apply(key, checked) {
		return false
	}
	v.store.Save(ctx, v.asset, key, checked)
	return true
}

// apply is the one path that changes a control. Before the first plot it
// only edits local state; afterwards it issues a single restyle.
func (v *View) apply(key string, checked bool) bool {
	c, ok := v.controls[key]
	if !ok || c.Disabled {
		return false
	}
	b := v.bindings[key]
	c.Checked = checked
	indices, vis := v.paint(b, checked)
	if v.plotted && len(indices) > 0 {
		v.surface.Restyle(chart.Props{"visible": vis}, indices, func(err error) {
			if err != nil {
				log.Warn().Err(err).Str("toggle", key).Msg("restyle failed")
			}
		})
	}
	if b.Forecast != "" && v.plotted {
		v.ruler.SetMarkers(v.markers())
	}
	return true
}

func (v *View) paint(b chart.Binding, checked bool) ([]int, []chart.Visibility) {
	indices, vis := v.result.Resolve(b, checked)
	for i, idx := range indices {
		if idx < len(v.visible) {
			v.visible[idx] = vis[i]
		}
	}
	return indices, vis
}

// markers are the cutoff lines of the forecasts currently switched on.
func (v *View) markers() []ruler.Marker {
	var out []ruler.Marker
	for _, f := range v.result.Forecasts() {
		c, ok := v.controls[string(f.Model)]
		date := f.Line
		if date == "" {
			date = f.Cutoff
		}
		if !ok || !c.Checked || c.Disabled || date == "" {
			continue
		}
		color := v.palette.Neutral
		if fc, ok := v.palette.Forecasts[f.Model]; ok {
			color = fc.Line
		}
		out = append(out, ruler.Marker{Key: string(f.Model), Date: date, Color: color})
	}
	return out
}
