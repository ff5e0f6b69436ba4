// Package session runs one chart over a websocket. The browser only draws:
// it executes plot, restyle and relayout commands and reports clicks and
// relayout events back, which are handled one at a time on the session's
// own goroutine.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"CryptoDash/internal/chart"
	"CryptoDash/internal/view"
)

// ErrClosed completes commands still awaiting an ack when the session ends.
var ErrClosed = errors.New("session: closed")

// Conn is the message transport. A *websocket.Conn satisfies it.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

// ViewFunc builds the view of the session's chart drawing on surface.
type ViewFunc func(surface chart.Surface) *view.View

// Session is one open chart. It implements chart.Surface over its
// connection.
type Session struct {
	ID string

	conn    Conn
	view    *view.View
	seq     int64
	pending map[int64]chart.Completion
	broken  error
}

// New creates a session on conn whose view is built by newView.
func New(conn Conn, newView ViewFunc) *Session {
	s := &Session{
		ID:      uuid.NewString(),
		conn:    conn,
		pending: make(map[int64]chart.Completion),
	}
	s.view = newView(s)
	return s
}

// View is the chart state driven by the session.
func (s *Session) View() *view.View { return s.view }

// Plot implements chart.Surface.
func (s *Session) Plot(fig chart.Figure, done chart.Completion) {
	s.command(Outbound{Type: MsgPlot, Figure: &fig}, done)
}

// Restyle implements chart.Surface.
func (s *Session) Restyle(props chart.Props, indices []int, done chart.Completion) {
	s.command(Outbound{Type: MsgRestyle, Props: props, Indices: indices}, done)
}

// Relayout implements chart.Surface.
func (s *Session) Relayout(props chart.Props, done chart.Completion) {
	s.command(Outbound{Type: MsgCommand, Props: props}, done)
}

func (s *Session) command(msg Outbound, done chart.Completion) {
	if s.broken != nil {
		chart.Complete(done, s.broken)
		return
	}
	s.seq++
	msg.Seq = s.seq
	if err := s.conn.WriteJSON(msg); err != nil {
		s.broken = fmt.Errorf("write %s: %w", msg.Type, err)
		chart.Complete(done, s.broken)
		return
	}
	if done != nil {
		s.pending[msg.Seq] = done
	}
}

func (s *Session) send(msg Outbound) {
	if s.broken != nil {
		return
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		s.broken = fmt.Errorf("write %s: %w", msg.Type, err)
	}
}

// Run draws the chart and then serves the renderer's messages until the
// connection fails or ctx ends. Every message and every completion is
// handled on the calling goroutine.
func (s *Session) Run(ctx context.Context) error {
	inbox := make(chan Inbound, 16)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	defer s.conn.Close()

	go func() {
		for {
			var m Inbound
			if err := s.conn.ReadJSON(&m); err != nil {
				readErr <- err
				return
			}
			select {
			case inbox <- m:
			case <-stop:
				return
			}
		}
	}()

	s.view.Start(ctx)
	s.send(Outbound{Type: MsgControls, Controls: s.view.Controls()})

	defer s.abandon()
	for {
		if s.broken != nil {
			return s.broken
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			log.Debug().Err(err).Str("session", s.ID).Msg("chart session read ended")
			return nil
		case m := <-inbox:
			s.dispatch(ctx, m)
		}
	}
}

func (s *Session) dispatch(ctx context.Context, m Inbound) {
	switch m.Type {
	case MsgAck:
		done, ok := s.pending[m.Seq]
		if !ok {
			return
		}
		delete(s.pending, m.Seq)
		var err error
		if m.Error != "" {
			err = errors.New(m.Error)
		}
		chart.Complete(done, err)
	case MsgToggle:
		if !s.view.Toggle(ctx, m.Key, m.Checked) {
			log.Debug().Str("session", s.ID).Str("key", m.Key).Msg("toggle ignored")
		}
		s.send(Outbound{Type: MsgControls, Controls: s.view.Controls()})
	case MsgRelayout:
		s.view.Ruler().HandleRelayout(m.Event)
	case MsgRuler:
		r := s.view.Ruler()
		switch m.Action {
		case RulerEnable:
			r.Enable()
		case RulerDisable:
			r.Disable()
		case RulerClear:
			r.Clear(m.Deactivate)
		default:
			s.send(Outbound{Type: MsgError, Message: "unknown ruler action " + m.Action})
		}
	default:
		log.Warn().Str("session", s.ID).Str("type", m.Type).Msg("unknown chart message")
		s.send(Outbound{Type: MsgError, Message: "unknown message type " + m.Type})
	}
}

// abandon completes every command still awaiting an ack.
func (s *Session) abandon() {
	for seq, done := range s.pending {
		delete(s.pending, seq)
		chart.Complete(done, ErrClosed)
	}
}
