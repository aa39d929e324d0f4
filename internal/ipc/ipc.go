// Package ipc carries control commands from sosai-ctl to the running daemon
// over a unix socket. One JSON request and one JSON reply per connection.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"sync"
	"time"
)

const DefaultSocketPath = "/tmp/sosai.sock"

const (
	CmdListen = "listen"
	CmdText   = "text"
	CmdImage  = "image"
	CmdPick   = "pick"
	CmdStop   = "stop"
	CmdState  = "state"
)

type ControlMessage struct {
	Cmd string `json:"cmd"`
	Arg string `json:"arg,omitempty"`
}

type Reply struct {
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler executes one command. A non-nil result is returned to the client
// as Data.
type Handler func(ctx context.Context, msg ControlMessage) (any, error)

type Server struct {
	path    string
	ln      net.Listener
	handler Handler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// StartServer replaces any stale socket at path and serves in the background.
func StartServer(path string, handler Handler) (*Server, error) {
	if path == "" {
		path = DefaultSocketPath
	}
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{path: path, ln: ln, handler: handler, ctx: ctx, cancel: cancel}

	s.wg.Add(1)
	go s.accept()
	return s, nil
}

func (s *Server) Path() string { return s.path }

func (s *Server) accept() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn("Accept failed", "err", err)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Minute))

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		log.Debug("Bad control message", "err", err)
		json.NewEncoder(conn).Encode(Reply{Error: "bad request: " + err.Error()})
		return
	}

	log.Debug("Control", "cmd", msg.Cmd, "arg", msg.Arg)

	var reply Reply
	data, err := s.handler(s.ctx, msg)
	if err != nil {
		reply.Error = err.Error()
	} else {
		reply.OK = true
		if data != nil {
			raw, err := json.Marshal(data)
			if err != nil {
				reply = Reply{Error: "encode reply: " + err.Error()}
			} else {
				reply.Data = raw
			}
		}
	}

	if err := json.NewEncoder(conn).Encode(reply); err != nil {
		log.Debug("Reply failed", "err", err)
	}
}

func (s *Server) Close() error {
	s.cancel()
	err := s.ln.Close()
	s.wg.Wait()
	os.Remove(s.path)
	return err
}

// Send delivers msg to the daemon at path and waits for its reply. A reply
// with OK=false is returned as an error.
func Send(ctx context.Context, path string, msg ControlMessage) (Reply, error) {
	if path == "" {
		path = DefaultSocketPath
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return Reply{}, fmt.Errorf("connect to daemon: %w", err)
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		conn.SetDeadline(dl)
	}

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return Reply{}, fmt.Errorf("send: %w", err)
	}

	var reply Reply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}
	if !reply.OK {
		return reply, errors.New(reply.Error)
	}
	return reply, nil
}
