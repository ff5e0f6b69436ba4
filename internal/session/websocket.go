package session

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pongWait     = 90 * time.Second
	pingInterval = 45 * time.Second
	maxMessage   = 1 << 20
)

// Upgrader accepts renderer connections.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:    4096,
	WriteBufferSize:   16384,
	CheckOrigin:       func(*http.Request) bool { return true },
	EnableCompression: true,
}

// Serve upgrades the request and runs a session until the renderer goes
// away.
func Serve(ctx context.Context, w http.ResponseWriter, r *http.Request, newView ViewFunc) error {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ping := time.NewTicker(pingInterval)
		defer ping.Stop()
		for {
			select {
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	return New(conn, newView).Run(ctx)
}
