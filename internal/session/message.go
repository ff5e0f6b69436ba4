package session

import (
	"CryptoDash/internal/chart"
	"CryptoDash/internal/view"
)

// Inbound message types sent by the renderer.
const (
	MsgAck      = "ack"
	MsgRelayout = "relayout"
	MsgToggle   = "toggle"
	MsgRuler    = "ruler"
)

// Outbound message types sent to the renderer.
const (
	MsgPlot     = "plot"
	MsgRestyle  = "restyle"
	MsgCommand  = "relayout"
	MsgControls = "controls"
	MsgError    = "error"
)

// Ruler actions.
const (
	RulerEnable  = "enable"
	RulerDisable = "disable"
	RulerClear   = "clear"
)

// Inbound is any message read from the renderer.
type Inbound struct {
	Type       string         `json:"type"`
	Seq        int64          `json:"seq,omitempty"`
	Error      string         `json:"error,omitempty"`
	Key        string         `json:"key,omitempty"`
	Checked    bool           `json:"checked,omitempty"`
	Action     string         `json:"action,omitempty"`
	Deactivate bool           `json:"deactivate,omitempty"`
	Event      map[string]any `json:"event,omitempty"`
}

// Outbound is any message written to the renderer. Commands carry a
// sequence number the renderer echoes back in its ack.
type Outbound struct {
	Type     string         `json:"type"`
	Seq      int64          `json:"seq,omitempty"`
	Figure   *chart.Figure  `json:"figure,omitempty"`
	Props    chart.Props    `json:"props,omitempty"`
	Indices  []int          `json:"indices,omitempty"`
	Controls []view.Control `json:"controls,omitempty"`
	Message  string         `json:"message,omitempty"`
}
