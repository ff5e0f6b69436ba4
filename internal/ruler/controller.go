// Package ruler implements the measurement overlay: a rectangle the user
// drags across the chart, annotated with the percentage change and the time
// elapsed between its corners, drawn alongside the forecast cutoff markers.
package ruler

import (
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"CryptoDash/internal/chart"
)

// State is the controller's mode.
type State int

const (
	Inactive State = iota
	ActiveIdle
	ActiveWithRect
)

func (s State) String() string {
	switch s {
	case ActiveIdle:
		return "active-idle"
	case ActiveWithRect:
		return "active-with-rect"
	default:
		return "inactive"
	}
}

// Shape names that let the controller recognise its own shapes in the
// surface's relayout events.
const (
	RectName     = "ruler-rect"
	LineName     = "ruler-line"
	markerPrefix = "marker:"
)

// Marker is a vertical cutoff line at Date.
type Marker struct {
	Key   string
	Date  string
	Color string
}

// Rect is a measured span. Start is always the earlier corner.
type Rect struct {
	Start time.Time
	End   time.Time
	Y0    float64
	Y1    float64
}

// Measurement is the text shown for the current rectangle.
type Measurement struct {
	Percent string
	Elapsed string
}

// Text is the annotation body.
func (m Measurement) Text() string { return m.Percent + "<br>" + m.Elapsed }

// Options tunes the controller.
type Options struct {
	DayThreshold time.Duration
	Color        string
	Fill         string
}

// Controller drives the ruler over a surface. It is not safe for concurrent
// use; all calls, including surface completions, must come from the goroutine
// that owns the chart.
type Controller struct {
	surface chart.Surface
	opts    Options

	state       State
	rect        *Rect
	measurement Measurement
	markers     []Marker
	shapes      []chart.Shape

	// inflight counts relayouts issued here that the surface has not yet
	// completed. Events arriving meanwhile are our own echo.
	inflight int
}

// New creates an inactive controller.
func New(surface chart.Surface, opts Options) *Controller {
	if opts.DayThreshold <= 0 {
		opts.DayThreshold = DefaultDayThreshold
	}
	if opts.Color == "" {
		opts.Color = "#444"
	}
	if opts.Fill == "" {
		opts.Fill = "rgba(68, 68, 68, 0.08)"
	}
	return &Controller{surface: surface, opts: opts}
}

// State returns the current mode.
func (c *Controller) State() State { return c.state }

// Rect returns the measured rectangle, if any.
func (c *Controller) Rect() (Rect, bool) {
	if c.rect == nil {
		return Rect{}, false
	}
	return *c.rect, true
}

// Measurement returns the text of the current rectangle.
func (c *Controller) Measurement() Measurement { return c.measurement }

// Updating reports whether a self-issued relayout is in flight.
func (c *Controller) Updating() bool { return c.inflight > 0 }

// Enable arms rectangle drawing.
func (c *Controller) Enable() {
	if c.state != Inactive {
		return
	}
	c.state = ActiveIdle
	c.push()
}

// Disable leaves ruler mode and removes the rectangle. Markers stay.
func (c *Controller) Disable() {
	c.state = Inactive
	c.rect = nil
	c.measurement = Measurement{}
	c.push()
}

// Clear removes the rectangle, and leaves ruler mode when deactivate is set.
func (c *Controller) Clear(deactivate bool) {
	if deactivate {
		c.Disable()
		return
	}
	if c.state == Inactive {
		return
	}
	c.state = ActiveIdle
	c.rect = nil
	c.measurement = Measurement{}
	c.push()
}

// SetMarkers replaces the cutoff markers and redraws the shape list.
func (c *Controller) SetMarkers(markers []Marker) {
	c.markers = append([]Marker(nil), markers...)
	c.push()
}

// Shapes is the full shape list: markers, then the ruler rectangle and its
// diagonal when present.
func (c *Controller) Shapes() []chart.Shape {
	out := make([]chart.Shape, 0, len(c.markers)+2)
	for _, m := range c.markers {
		out = append(out, chart.Shape{
			Name:  markerPrefix + m.Key,
			Type:  "line",
			XRef:  "x",
			YRef:  "paper",
			X0:    m.Date,
			X1:    m.Date,
			Y0:    0,
			Y1:    1,
			Line:  chart.Line{Color: m.Color, Width: 1, Dash: "dash"},
			Layer: "below",
		})
	}
	if c.rect != nil {
		x0, x1 := formatX(c.rect.Start), formatX(c.rect.End)
		out = append(out,
			chart.Shape{
				Name:      RectName,
				Type:      "rect",
				XRef:      "x",
				YRef:      "y",
				X0:        x0,
				X1:        x1,
				Y0:        c.rect.Y0,
				Y1:        c.rect.Y1,
				Line:      chart.Line{Color: c.opts.Color, Width: 1, Dash: "dot"},
				FillColor: c.opts.Fill,
				Editable:  true,
			},
			chart.Shape{
				Name: LineName,
				Type: "line",
				XRef: "x",
				YRef: "y",
				X0:   x0,
				X1:   x1,
				Y0:   c.rect.Y0,
				Y1:   c.rect.Y1,
				Line: chart.Line{Color: c.opts.Color, Width: 1},
			},
		)
	}
	return out
}

// Annotations is the measurement label, centred on the rectangle.
func (c *Controller) Annotations() []chart.Annotation {
	if c.rect == nil {
		return []chart.Annotation{}
	}
	mid := c.rect.Start.Add(c.rect.End.Sub(c.rect.Start) / 2)
	return []chart.Annotation{{
		X:         formatX(mid),
		Y:         (c.rect.Y0 + c.rect.Y1) / 2,
		XRef:      "x",
		YRef:      "y",
		Text:      c.measurement.Text(),
		ShowArrow: false,
		BGColor:   "rgba(255, 255, 255, 0.85)",
		Align:     "center",
	}}
}

// DragMode is the drag mode matching the current state.
func (c *Controller) DragMode() string {
	if c.state == Inactive {
		return "zoom"
	}
	return "drawrect"
}

// HandleRelayout consumes a relayout event reported by the surface. Events
// are ignored while inactive and while one of our own relayouts is pending.
func (c *Controller) HandleRelayout(event map[string]any) {
	if c.state == Inactive || c.inflight > 0 {
		return
	}
	if raw, ok := event["shapes"]; ok {
		list, _ := raw.([]any)
		rect, found := pickRect(list)
		if !found {
			c.Clear(false)
			return
		}
		c.measure(rect)
		return
	}
	if rect, ok := c.editedRect(event); ok {
		c.measure(rect)
	}
}

func (c *Controller) measure(r Rect) {
	if r.End.Before(r.Start) {
		r.Start, r.End = r.End, r.Start
		r.Y0, r.Y1 = r.Y1, r.Y0
	}
	c.rect = &r
	c.measurement = Measurement{
		Percent: FormatPercent(r.Y0, r.Y1),
		Elapsed: FormatElapsed(r.End.Sub(r.Start), c.opts.DayThreshold),
	}
	c.state = ActiveWithRect
	c.push()
}

// push replaces the whole shape list and annotations on the surface.
func (c *Controller) push() {
	c.shapes = c.Shapes()
	props := chart.Props{
		"shapes":      c.shapes,
		"annotations": c.Annotations(),
		"dragmode":    c.DragMode(),
	}
	if c.state != Inactive {
		props["newshape"] = map[string]any{
			"line":      map[string]any{"color": c.opts.Color, "width": 1, "dash": "dot"},
			"fillcolor": c.opts.Fill,
		}
	}
	c.inflight++
	c.surface.Relayout(props, func(err error) {
		c.inflight--
		if err != nil {
			log.Warn().Err(err).Msg("ruler relayout failed")
		}
	})
}

// pickRect finds the rectangle the user drew: the last rect in the list that
// is not a marker line. A redrawn ruler rect counts too.
func pickRect(list []any) (Rect, bool) {
	for i := len(list) - 1; i >= 0; i-- {
		s, ok := list[i].(map[string]any)
		if !ok {
			continue
		}
		if t, _ := s["type"].(string); t != "rect" {
			continue
		}
		if r, ok := rectFrom(s["x0"], s["x1"], s["y0"], s["y1"]); ok {
			return r, true
		}
	}
	return Rect{}, false
}

var shapeKey = regexp.MustCompile(`^shapes\[(\d+)\]\.(x0|x1|y0|y1)$`)

// editedRect applies "shapes[i].x0"-style updates to the ruler rectangle
// when i addresses it.
func (c *Controller) editedRect(event map[string]any) (Rect, bool) {
	idx := -1
	coords := map[string]any{}
	for k, v := range event {
		m := shapeKey.FindStringSubmatch(k)
		if m == nil {
			continue
		}
		i, _ := strconv.Atoi(m[1])
		if idx >= 0 && i != idx {
			continue
		}
		idx = i
		coords[m[2]] = v
	}
	if idx < 0 || idx >= len(c.shapes) || c.shapes[idx].Name != RectName {
		return Rect{}, false
	}
	cur := c.shapes[idx]
	pick := func(key string, fallback any) any {
		if v, ok := coords[key]; ok {
			return v
		}
		return fallback
	}
	return rectFrom(pick("x0", cur.X0), pick("x1", cur.X1), pick("y0", cur.Y0), pick("y1", cur.Y1))
}

func rectFrom(x0, x1, y0, y1 any) (Rect, bool) {
	t0, ok0 := parseX(x0)
	t1, ok1 := parseX(x1)
	v0, ok2 := parseY(y0)
	v1, ok3 := parseY(y1)
	if !ok0 || !ok1 || !ok2 || !ok3 {
		return Rect{}, false
	}
	return Rect{Start: t0, End: t1, Y0: v0, Y1: v1}, true
}
