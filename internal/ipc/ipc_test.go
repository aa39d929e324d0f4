package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func socketPath(t *testing.T) string {
	dir, err := os.MkdirTemp("", "sosai")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "ctl.sock")
}

func TestSendAndReply(t *testing.T) {
	var (
		mu  sync.Mutex
		got []ControlMessage
	)
	srv, err := StartServer(socketPath(t), func(_ context.Context, msg ControlMessage) (any, error) {
		mu.Lock()
		got = append(got, msg)
		mu.Unlock()
		switch msg.Cmd {
		case CmdState:
			return map[string]string{"phase": "idle"}, nil
		case CmdText:
			return nil, nil
		}
		return nil, errors.New("unknown command")
	})
	require.NoError(t, err)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = Send(ctx, srv.Path(), ControlMessage{Cmd: CmdText, Arg: "화상을 입었어요"})
	require.NoError(t, err)

	reply, err := Send(ctx, srv.Path(), ControlMessage{Cmd: CmdState})
	require.NoError(t, err)
	var state map[string]string
	require.NoError(t, json.Unmarshal(reply.Data, &state))
	assert.Equal(t, "idle", state["phase"])

	_, err = Send(ctx, srv.Path(), ControlMessage{Cmd: "dance"})
	assert.EqualError(t, err, "unknown command")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []ControlMessage{
		{Cmd: CmdText, Arg: "화상을 입었어요"},
		{Cmd: CmdState},
		{Cmd: "dance"},
	}, got)
}

func TestStartServer_ReplacesStaleSocket(t *testing.T) {
	path := socketPath(t)
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	srv, err := StartServer(path, func(context.Context, ControlMessage) (any, error) { return nil, nil })
	require.NoError(t, err)
	require.NoError(t, srv.Close())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSend_NoDaemon(t *testing.T) {
	_, err := Send(context.Background(), socketPath(t), ControlMessage{Cmd: CmdListen})
	assert.ErrorContains(t, err, "connect to daemon")
}
