package chart

import (
	"fmt"

	"CryptoDash/internal/calculator"
	"CryptoDash/internal/forecast"
	"CryptoDash/internal/model"
	"CryptoDash/internal/series"
)

// Group keys. Forecast groups are suffixed with the model name.
const (
	GroupPrice     = "price"
	GroupPriceMono = "price-mono"
	GroupEMA20     = "ema20"
	GroupEMA50     = "ema50"
	GroupSMA20     = "sma20"
	GroupSMA50     = "sma50"
	GroupBollinger = "bollinger"
)

// BandGroup is the key of the confidence band group of m.
func BandGroup(m model.ForecastModel) string { return "band:" + string(m) }

// ForecastGroup is the key of the forecast line group of m.
func ForecastGroup(m model.ForecastModel) string { return "forecast:" + string(m) }

// Group is a contiguous run of trace indices owned by one overlay.
type Group struct {
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

// Indices lists the trace indices of g.
func (g Group) Indices() []int {
	out := make([]int, g.Count)
	for i := range out {
		out[i] = g.Offset + i
	}
	return out
}

// ForecastMeta describes how a forecast ended up on the chart.
type ForecastMeta struct {
	Model   model.ForecastModel `json:"model"`
	Label   string              `json:"label"`
	Cutoff  string              `json:"cutoff"`
	Line    string              `json:"line"`
	HasData bool                `json:"has_data"`
}

// Options tunes Build.
type Options struct {
	Palette Palette
	Title   string
}

// BuildResult is the immutable output of Build: the ordered traces and the
// index range of every group.
type BuildResult struct {
	traces    []Trace
	groups    map[string]Group
	order     []string
	forecasts []ForecastMeta
	layout    Layout
	config    Config
}

// Traces returns a copy of the trace list.
func (r *BuildResult) Traces() []Trace {
	out := make([]Trace, len(r.traces))
	copy(out, r.traces)
	return out
}

// Len is the number of traces.
func (r *BuildResult) Len() int { return len(r.traces) }

// Group looks up a group by key.
func (r *BuildResult) Group(key string) (Group, bool) {
	g, ok := r.groups[key]
	return g, ok
}

// GroupKeys lists group keys in build order.
func (r *BuildResult) GroupKeys() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Groups returns a copy of the group map.
func (r *BuildResult) Groups() map[string]Group {
	out := make(map[string]Group, len(r.groups))
	for k, g := range r.groups {
		out[k] = g
	}
	return out
}

// Forecasts returns the forecast metadata in registration order.
func (r *BuildResult) Forecasts() []ForecastMeta {
	out := make([]ForecastMeta, len(r.forecasts))
	copy(out, r.forecasts)
	return out
}

// Layout returns the base layout, without ruler or marker shapes.
func (r *BuildResult) Layout() Layout { return r.layout }

// Config returns the surface configuration.
func (r *BuildResult) Config() Config { return r.config }

// Figure renders the traces with the given visibility per index.
func (r *BuildResult) Figure(visible []Visibility, layout Layout) Figure {
	data := r.Traces()
	for i := range data {
		if i < len(visible) {
			data[i].Visible = visible[i]
		}
	}
	return Figure{Data: data, Layout: layout, Config: r.config}
}

// Visibility returns the build-time visibility of every trace.
func (r *BuildResult) Visibility() []Visibility {
	out := make([]Visibility, len(r.traces))
	for i, t := range r.traces {
		out[i] = t.Visible
	}
	return out
}

type builder struct {
	traces []Trace
	groups map[string]Group
	order  []string
}

// add appends a group. Its offset is whatever the previous groups left, so
// no index is ever written down by hand.
func (b *builder) add(key string, traces ...Trace) {
	if _, dup := b.groups[key]; dup {
		panic(fmt.Sprintf("chart: duplicate group %q", key))
	}
	b.groups[key] = Group{Offset: len(b.traces), Count: len(traces)}
	b.order = append(b.order, key)
	b.traces = append(b.traces, traces...)
}

// EMA periods computed locally from padding plus visible prices.
const (
	EMAFast = 20
	EMASlow = 50
)

// Build assembles the chart traces in a fixed order: confidence bands,
// forecast lines, price segments, the mono price line, then EMA-20, EMA-50,
// SMA-20, SMA-50 and the Bollinger band.
func Build(in *series.Input, opts Options) *BuildResult {
	p := opts.Palette
	if p.Up == "" {
		p = DefaultPalette()
	}
	b := &builder{groups: make(map[string]Group)}

	splits := make([]forecast.Split, len(in.Forecasts))
	metas := make([]ForecastMeta, len(in.Forecasts))
	for i, f := range in.Forecasts {
		cutoff := forecast.ResolveCutoff(f.Cutoff, in.Dates, in.Price)
		splits[i] = forecast.SplitSeries(f.Model, f.Rows, cutoff)
		line := f.Line
		if line == "" {
			line = f.Cutoff
		}
		metas[i] = ForecastMeta{
			Model:   f.Model,
			Label:   f.Model.Label(),
			Cutoff:  cutoff,
			Line:    line,
			HasData: splits[i].HasData,
		}
	}

	for _, f := range in.Forecasts {
		b.add(BandGroup(f.Model), bandTraces(f, p)...)
	}
	for _, s := range splits {
		b.add(ForecastGroup(s.Model), forecastTraces(s, p)...)
	}

	b.add(GroupPrice, SegmentPrice(in.Dates, in.Price, p)...)

	mono := lineTrace("Price", in.Dates, in.Price, Line{Color: p.Mono, Width: 2})
	mono.Visible = LegendOnly
	b.add(GroupPriceMono, mono)

	ema20 := calculator.PaddedEMA(in.Padding, in.Price, EMAFast)
	ema50 := calculator.PaddedEMA(in.Padding, in.Price, EMASlow)
	b.add(GroupEMA20, indicator("EMA 20", in.Dates, ema20, Line{Color: p.EMA20, Width: 1.5}))
	b.add(GroupEMA50, indicator("EMA 50", in.Dates, ema50, Line{Color: p.EMA50, Width: 1.5}))
	b.add(GroupSMA20, indicator("SMA 20", in.Dates, in.SMA20, Line{Color: p.SMA20, Width: 1.5, Dash: "dot"}))
	b.add(GroupSMA50, indicator("SMA 50", in.Dates, in.SMA50, Line{Color: p.SMA50, Width: 1.5, Dash: "dot"}))

	upper := indicator("Bollinger", in.Dates, in.BBUpper, Line{Color: p.Bollinger, Width: 1, Dash: "dash"})
	upper.LegendGroup = GroupBollinger
	lower := indicator("Bollinger", in.Dates, in.BBLower, Line{Color: p.Bollinger, Width: 1, Dash: "dash"})
	lower.LegendGroup = GroupBollinger
	lower.ShowLegend = false
	b.add(GroupBollinger, upper, lower)

	yTitle := "Price"
	if in.Currency != "" {
		yTitle = "Price (" + in.Currency + ")"
	}
	return &BuildResult{
		traces:    b.traces,
		groups:    b.groups,
		order:     b.order,
		forecasts: metas,
		layout: Layout{
			Title:       opts.Title,
			XAxis:       Axis{Type: "date"},
			YAxis:       Axis{Title: yTitle},
			HoverMode:   "x unified",
			DragMode:    "zoom",
			Legend:      Legend{Orientation: "h"},
			Shapes:      []Shape{},
			Annotations: []Annotation{},
		},
		config: Config{Responsive: true, DisplayLogo: false},
	}
}

func indicator(name string, dates []string, values model.Values, line Line) Trace {
	t := lineTrace(name, dates, values, line)
	t.Visible = LegendOnly
	return t
}

// bandTraces draws the confidence interval over the full forecast as a
// transparent lower edge followed by an upper edge filled down to it.
func bandTraces(f series.ForecastInput, p Palette) []Trace {
	c := p.forecast(f.Model)
	dates, lower, upper := forecast.Band(f.Rows)
	lo := lineTrace("Forecast CI", dates, lower, Line{Color: transparent, Width: 0})
	lo.ShowLegend = false
	lo.HoverInfo = "skip"
	lo.LegendGroup = string(f.Model)
	hi := lineTrace("Forecast CI", dates, upper, Line{Color: transparent, Width: 0})
	hi.Fill = "tonexty"
	hi.FillColor = c.Fill
	hi.HoverInfo = "skip"
	hi.LegendGroup = string(f.Model)
	hi.ShowLegend = false
	return []Trace{lo, hi}
}

// forecastTraces draws the fitted past thin and faded and the projection
// thick and opaque, as two traces on one continuous line.
func forecastTraces(s forecast.Split, p Palette) []Trace {
	c := p.forecast(s.Model)
	name := fmt.Sprintf("Forecast (%s)", s.Model.Label())

	hx, hy := forecast.Line(s.History)
	history := lineTrace(name, hx, hy, Line{Color: c.Line, Width: 1.5})
	history.Opacity = 0.45
	history.ShowLegend = false
	history.LegendGroup = string(s.Model)

	fx, fy := forecast.Line(s.Future)
	future := lineTrace(name, fx, fy, Line{Color: c.Line, Width: 2.5})
	future.Opacity = 1
	future.LegendGroup = string(s.Model)
	return []Trace{history, future}
}
