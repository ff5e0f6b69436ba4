// Package chart assembles the ordered trace list of a price chart and
// describes the rendering surface that draws it.
package chart

import (
	"encoding/json"

	"CryptoDash/internal/model"
)

// Visibility is a trace's paint state.
type Visibility int

const (
	Shown Visibility = iota
	LegendOnly
)

// VisibleIf returns Shown when on, LegendOnly otherwise.
func VisibleIf(on bool) Visibility {
	if on {
		return Shown
	}
	return LegendOnly
}

func (v Visibility) MarshalJSON() ([]byte, error) {
	if v == LegendOnly {
		return []byte(`"legendonly"`), nil
	}
	return []byte("true"), nil
}

func (v *Visibility) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = VisibleIf(b)
		return nil
	}
	*v = LegendOnly
	return nil
}

// Line styles a trace's stroke.
type Line struct {
	Color string  `json:"color"`
	Width float64 `json:"width"`
	Dash  string  `json:"dash,omitempty"`
}

// Trace is one renderable series.
type Trace struct {
	Type        string       `json:"type"`
	Mode        string       `json:"mode"`
	Name        string       `json:"name"`
	X           []string     `json:"x"`
	Y           model.Values `json:"y"`
	Line        Line         `json:"line"`
	Fill        string       `json:"fill,omitempty"`
	FillColor   string       `json:"fillcolor,omitempty"`
	Opacity     float64      `json:"opacity,omitempty"`
	ShowLegend  bool         `json:"showlegend"`
	LegendGroup string       `json:"legendgroup,omitempty"`
	HoverInfo   string       `json:"hoverinfo,omitempty"`
	ConnectGaps bool         `json:"connectgaps"`
	Visible     Visibility   `json:"visible"`
}

func lineTrace(name string, x []string, y model.Values, line Line) Trace {
	if x == nil {
		x = []string{}
	}
	if y == nil {
		y = model.Values{}
	}
	return Trace{
		Type:       "scatter",
		Mode:       "lines",
		Name:       name,
		X:          x,
		Y:          y,
		Line:       line,
		ShowLegend: true,
		Visible:    Shown,
	}
}
