package view

import (
	"context"
	"testing"

	"CryptoDash/internal/chart"
	"CryptoDash/internal/kv"
	"CryptoDash/internal/model"
	"CryptoDash/internal/ruler"
	"CryptoDash/internal/series"
	"CryptoDash/internal/toggle"
)

type call struct {
	kind    string
	props   chart.Props
	indices []int
	fig     chart.Figure
}

type recorder struct{ calls []call }

func (r *recorder) Plot(fig chart.Figure, done chart.Completion) {
	r.calls = append(r.calls, call{kind: "plot", fig: fig})
	chart.Complete(done, nil)
}

func (r *recorder) Restyle(props chart.Props, indices []int, done chart.Completion) {
	r.calls = append(r.calls, call{kind: "restyle", props: props, indices: indices})
	chart.Complete(done, nil)
}

func (r *recorder) Relayout(props chart.Props, done chart.Completion) {
	r.calls = append(r.calls, call{kind: "relayout", props: props})
	chart.Complete(done, nil)
}

func (r *recorder) count(kind string) int {
	n := 0
	for _, c := range r.calls {
		if c.kind == kind {
			n++
		}
	}
	return n
}

func one(v float64) *float64 { return &v }

func build(t *testing.T) *chart.BuildResult {
	t.Helper()
	dates := []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04"}
	n := len(dates)
	in := &series.Input{
		Asset:    "bitcoin",
		Currency: "USD",
		Dates:    dates,
		Price:    model.Values{10, 12, 9, 11},
		SMA20:    model.Values{10, 11, 10.5, 10.5},
		SMA50:    model.NewValues(n),
		BBUpper:  model.NewValues(n),
		BBLower:  model.NewValues(n),
	}
	for _, m := range model.ForecastModels {
		in.Forecasts = append(in.Forecasts, series.ForecastInput{Model: m})
	}
	in.Forecasts[0].Line = "2024-01-03"
	in.Forecasts[0].Rows = []model.ForecastRow{
		{Date: "2024-01-03", YHat: one(9), YHatLower: one(8), YHatUpper: one(10)},
		{Date: "2024-01-05", YHat: one(12), YHatLower: one(11), YHatUpper: one(13)},
	}
	return chart.Build(in, chart.Options{})
}

func visibleOf(r *chart.BuildResult, vis []chart.Visibility, group string) chart.Visibility {
	g, _ := r.Group(group)
	return vis[g.Offset]
}

func TestView_SavedStateAppliedBeforePlot(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory(0)
	toggle.New(backend).Save(ctx, "bitcoin", "sma20", true)

	r := build(t)
	s := &recorder{}
	v := New("bitcoin", r, s, toggle.New(backend), Options{})
	v.Start(ctx)

	if c, _ := v.Control("sma20"); !c.Checked {
		t.Fatal("sma20 control should be checked from saved state")
	}
	if s.calls[0].kind != "plot" || s.count("restyle") != 0 {
		t.Fatalf("saved state must be applied before the first plot, calls: %+v", s.calls)
	}
	fig := s.calls[0].fig
	g, _ := r.Group(chart.GroupSMA20)
	if fig.Data[g.Offset].Visible != chart.Shown {
		t.Fatal("sma20 trace should be painted in the first plot")
	}
	if visibleOf(r, v.Visibility(), chart.GroupSMA50) != chart.LegendOnly {
		t.Fatal("untouched indicators stay legend-only")
	}
}

func TestView_StartMergesSavedOverDefaults(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory(0)
	toggle.New(backend).Replace(ctx, "bitcoin", toggle.State{"sma50": true, "unknown": true})

	r := build(t)
	s := &recorder{}
	v := New("bitcoin", r, s, toggle.New(backend), Options{})
	defaults := v.State()
	v.Start(ctx)

	got := v.State()
	want := toggle.Merge(defaults, toggle.State{"sma50": true})
	if len(got) != len(want) {
		t.Fatalf("state = %v, want %v", got, want)
	}
	for k, w := range want {
		if got[k] != w {
			t.Errorf("%s = %v, want %v", k, got[k], w)
		}
	}
	if _, ok := got["unknown"]; ok {
		t.Error("saved keys without a control must be dropped")
	}
	if s.count("restyle") != 0 {
		t.Fatalf("start must not restyle, calls: %+v", s.calls)
	}
}

func TestView_DisabledForecastStaysOff(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory(0)
	toggle.New(backend).Replace(ctx, "bitcoin", toggle.State{"lstm": true, "prophet": false})

	r := build(t)
	s := &recorder{}
	v := New("bitcoin", r, s, toggle.New(backend), Options{})
	v.Start(ctx)

	lstm, _ := v.Control("lstm")
	if !lstm.Disabled || lstm.Checked {
		t.Fatalf("lstm without data must stay disabled and off: %+v", lstm)
	}
	if visibleOf(r, v.Visibility(), chart.ForecastGroup(model.ForecastLSTM)) != chart.LegendOnly {
		t.Fatal("lstm traces should be hidden")
	}
	prophet, _ := v.Control("prophet")
	if prophet.Checked {
		t.Fatal("saved prophet=false should uncheck it")
	}
	if v.Toggle(ctx, "lstm", true) {
		t.Fatal("toggling a disabled control must be ignored")
	}
	if v.Toggle(ctx, "missing", true) {
		t.Fatal("unknown control must be ignored")
	}
}

func TestView_ToggleAfterPlotRestylesGroup(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory(0)
	r := build(t)
	s := &recorder{}
	v := New("bitcoin", r, s, toggle.New(backend), Options{})
	v.Start(ctx)
	s.calls = nil

	if !v.Toggle(ctx, chart.ToggleBollinger, true) {
		t.Fatal("toggle rejected")
	}
	if len(s.calls) != 1 || s.calls[0].kind != "restyle" {
		t.Fatalf("expected one restyle, got %+v", s.calls)
	}
	g, _ := r.Group(chart.GroupBollinger)
	idx := s.calls[0].indices
	if len(idx) != 2 || idx[0] != g.Offset || idx[1] != g.Offset+1 {
		t.Fatalf("restyle indices %v, want group %+v", idx, g)
	}
	vis := s.calls[0].props["visible"].([]chart.Visibility)
	if vis[0] != chart.Shown || vis[1] != chart.Shown {
		t.Fatalf("visible = %v", vis)
	}
	if saved := toggle.New(backend).Load(ctx, "bitcoin"); !saved[chart.ToggleBollinger] {
		t.Fatal("toggle should be persisted")
	}
}

func TestView_MonoSwapsPriceTraces(t *testing.T) {
	ctx := context.Background()
	r := build(t)
	v := New("bitcoin", r, &recorder{}, toggle.New(nil), Options{})
	v.Start(ctx)
	v.Toggle(ctx, chart.ToggleMono, true)
	vis := v.Visibility()
	if visibleOf(r, vis, chart.GroupPriceMono) != chart.Shown || visibleOf(r, vis, chart.GroupPrice) != chart.LegendOnly {
		t.Fatal("mono mode should show the mono trace and hide the segments")
	}
	v.Toggle(ctx, chart.ToggleMono, false)
	vis = v.Visibility()
	if visibleOf(r, vis, chart.GroupPriceMono) != chart.LegendOnly || visibleOf(r, vis, chart.GroupPrice) != chart.Shown {
		t.Fatal("leaving mono mode should restore the segments")
	}
}

func TestView_ForecastToggleRefreshesMarkers(t *testing.T) {
	ctx := context.Background()
	r := build(t)
	s := &recorder{}
	v := New("bitcoin", r, s, toggle.New(nil), Options{Ruler: ruler.Options{}})
	v.Start(ctx)

	last := func() []chart.Shape {
		for i := len(s.calls) - 1; i >= 0; i-- {
			if s.calls[i].kind == "relayout" {
				return s.calls[i].props["shapes"].([]chart.Shape)
			}
		}
		return nil
	}
	if shapes := last(); len(shapes) != 1 || shapes[0].X0 != "2024-01-03" {
		t.Fatalf("prophet marker missing: %+v", shapes)
	}
	v.Toggle(ctx, "prophet", false)
	if shapes := last(); len(shapes) != 0 {
		t.Fatalf("marker should go with the forecast: %+v", shapes)
	}
}
