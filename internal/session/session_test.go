package session

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"CryptoDash/internal/chart"
	"CryptoDash/internal/model"
	"CryptoDash/internal/series"
	"CryptoDash/internal/toggle"
	"CryptoDash/internal/view"
)

// fakeConn plays the renderer: it acks every command it receives.
type fakeConn struct {
	in     chan []byte
	closed chan struct{}
	once   sync.Once

	mu  sync.Mutex
	out []Outbound
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte, 64), closed: make(chan struct{})}
}

func (c *fakeConn) ReadJSON(v any) error {
	select {
	case b := <-c.in:
		return json.Unmarshal(b, v)
	case <-c.closed:
		return io.EOF
	}
}

func (c *fakeConn) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var m Outbound
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	c.mu.Lock()
	c.out = append(c.out, m)
	c.mu.Unlock()
	if m.Seq > 0 {
		ack, _ := json.Marshal(Inbound{Type: MsgAck, Seq: m.Seq})
		c.in <- ack
	}
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) push(m Inbound) {
	b, _ := json.Marshal(m)
	c.in <- b
}

func (c *fakeConn) sent() []Outbound {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Outbound(nil), c.out...)
}

func (c *fakeConn) waitFor(t *testing.T, match func(Outbound) bool) Outbound {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, m := range c.sent() {
			if match(m) {
				return m
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected message never sent")
	return Outbound{}
}

func testView(surface chart.Surface) *view.View {
	dates := []string{"2024-01-01", "2024-01-02", "2024-01-03"}
	in := &series.Input{
		Asset:   "bitcoin",
		Dates:   dates,
		Price:   model.Values{1, 2, 3},
		SMA20:   model.NewValues(3),
		SMA50:   model.NewValues(3),
		BBUpper: model.NewValues(3),
		BBLower: model.NewValues(3),
	}
	for _, m := range model.ForecastModels {
		in.Forecasts = append(in.Forecasts, series.ForecastInput{Model: m})
	}
	return view.New("bitcoin", chart.Build(in, chart.Options{}), surface, toggle.New(nil), view.Options{})
}

func TestSession_PlotsThenServesMessages(t *testing.T) {
	conn := newFakeConn()
	s := New(conn, testView)
	if s.ID == "" {
		t.Fatal("session id missing")
	}
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	conn.waitFor(t, func(m Outbound) bool { return m.Type == MsgPlot && m.Figure != nil })
	conn.waitFor(t, func(m Outbound) bool { return m.Type == MsgControls && len(m.Controls) > 0 })

	conn.push(Inbound{Type: MsgToggle, Key: chart.ToggleEMA20, Checked: true})
	rs := conn.waitFor(t, func(m Outbound) bool { return m.Type == MsgRestyle })
	if len(rs.Indices) != 1 {
		t.Errorf("restyle indices = %v", rs.Indices)
	}

	conn.push(Inbound{Type: MsgRuler, Action: RulerEnable})
	conn.waitFor(t, func(m Outbound) bool {
		return m.Type == MsgCommand && m.Props["dragmode"] == "drawrect"
	})

	conn.push(Inbound{Type: MsgRelayout, Event: map[string]any{"shapes": []any{
		map[string]any{"type": "rect", "x0": "2024-01-01", "x1": "2024-01-02", "y0": 100.0, "y1": 110.0},
	}}})
	conn.waitFor(t, func(m Outbound) bool {
		if m.Type != MsgCommand {
			return false
		}
		ann, _ := m.Props["annotations"].([]any)
		return len(ann) == 1
	})

	conn.push(Inbound{Type: "bogus"})
	conn.waitFor(t, func(m Outbound) bool { return m.Type == MsgError })

	cancel()
	select {
	case err := <-errc:
		if err != context.Canceled {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestSession_ReaderEOFEndsRun(t *testing.T) {
	conn := newFakeConn()
	s := New(conn, testView)
	conn.Close()
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run = %v", err)
	}
}

func TestSession_AbandonCompletesPending(t *testing.T) {
	conn := newFakeConn()
	s := New(conn, testView)
	var got error
	s.pending[42] = func(err error) { got = err }
	s.abandon()
	if got != ErrClosed || len(s.pending) != 0 {
		t.Fatalf("abandon: %v, %d pending", got, len(s.pending))
	}
}
