// Package hub links the daemon to an external presentation hub over a
// websocket: state snapshots go out, user intents come in.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	ws "github.com/gorilla/websocket"

	"sosai/internal/dialog"
)

const (
	KindState  = "state"
	KindIntent = "intent"
)

type Message struct {
	Kind  string        `json:"kind"`
	State *dialog.State `json:"state,omitempty"`
	Cmd   string        `json:"cmd,omitempty"`
	Arg   string        `json:"arg,omitempty"`
}

// IntentHandler executes an intent received from the hub.
type IntentHandler func(ctx context.Context, cmd, arg string) error

type Link struct {
	url       string
	reconnect time.Duration
	dialer    *ws.Dialer
}

func NewLink(url string, reconnect time.Duration) *Link {
	if reconnect <= 0 {
		reconnect = 3 * time.Second
	}
	return &Link{url: url, reconnect: reconnect, dialer: ws.DefaultDialer}
}

// Run keeps a connection to the hub until ctx is done, redialing after every
// failure. The most recent state is re-sent on each new connection.
func (l *Link) Run(ctx context.Context, states <-chan dialog.State, handle IntentHandler) error {
	var last *dialog.State

	for {
		conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Debug("Hub dial failed", "url", l.url, "err", err)
		} else {
			log.Info("Connected to hub", "url", l.url)
			last, err = l.session(ctx, conn, states, handle, last)
			conn.Close()
			if errors.Is(err, errStatesClosed) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("Hub connection lost", "err", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.reconnect):
		}
	}
}

var errStatesClosed = errors.New("state stream closed")

func (l *Link) session(ctx context.Context, conn *ws.Conn, states <-chan dialog.State, handle IntentHandler, last *dialog.State) (*dialog.State, error) {
	readErr := make(chan error, 1)
	go func() {
		readErr <- l.readLoop(ctx, conn, handle)
	}()

	if last != nil {
		if err := l.write(conn, Message{Kind: KindState, State: last}); err != nil {
			return last, err
		}
	}

	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(ws.CloseMessage,
				ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return last, ctx.Err()
		case err := <-readErr:
			return last, err
		case st, ok := <-states:
			if !ok {
				return last, errStatesClosed
			}
			last = &st
			if err := l.write(conn, Message{Kind: KindState, State: last}); err != nil {
				return last, err
			}
		}
	}
}

func (l *Link) readLoop(ctx context.Context, conn *ws.Conn, handle IntentHandler) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if isClosed(err) {
				return fmt.Errorf("closed by hub: %w", err)
			}
			return err
		}

		var m Message
		if err := json.Unmarshal(raw, &m); err != nil {
			log.Warn("Bad hub message", "err", err)
			continue
		}
		if m.Kind != KindIntent {
			log.Debug("Ignoring hub message", "kind", m.Kind)
			continue
		}

		log.Debug("Hub intent", "cmd", m.Cmd, "arg", m.Arg)
		if err := handle(ctx, m.Cmd, m.Arg); err != nil {
			log.Warn("Hub intent failed", "cmd", m.Cmd, "err", err)
		}
	}
}

func (l *Link) write(conn *ws.Conn, m Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

func isClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure)
}
