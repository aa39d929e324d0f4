package hub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sosai/internal/dialog"
)

type fakeHub struct {
	srv   *httptest.Server
	conns chan *ws.Conn
}

func newFakeHub(t *testing.T) *fakeHub {
	h := &fakeHub{conns: make(chan *ws.Conn, 4)}
	up := ws.Upgrader{}
	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.conns <- c
	}))
	t.Cleanup(h.srv.Close)
	return h
}

func (h *fakeHub) url() string { return "ws" + strings.TrimPrefix(h.srv.URL, "http") }

func (h *fakeHub) accept(t *testing.T) *ws.Conn {
	select {
	case c := <-h.conns:
		return c
	case <-time.After(3 * time.Second):
		t.Fatal("link did not connect")
		return nil
	}
}

func readState(t *testing.T, c *ws.Conn) dialog.State {
	c.SetReadDeadline(time.Now().Add(3 * time.Second))
	var m Message
	require.NoError(t, c.ReadJSON(&m))
	require.Equal(t, KindState, m.Kind)
	require.NotNil(t, m.State)
	return *m.State
}

func TestLink(t *testing.T) {
	h := newFakeHub(t)
	states := make(chan dialog.State, 1)

	var (
		mu      sync.Mutex
		intents []string
	)
	handle := func(_ context.Context, cmd, arg string) error {
		mu.Lock()
		defer mu.Unlock()
		intents = append(intents, cmd+":"+arg)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewLink(h.url(), 10*time.Millisecond).Run(ctx, states, handle) }()

	c := h.accept(t)
	states <- dialog.State{Seq: 1, Phase: dialog.Submitting, Transcript: "화상을 입었어요"}
	st := readState(t, c)
	assert.Equal(t, dialog.Submitting, st.Phase)
	assert.Equal(t, "화상을 입었어요", st.Transcript)

	require.NoError(t, c.WriteJSON(Message{Kind: KindIntent, Cmd: "text", Arg: "피가 나요"}))
	require.NoError(t, c.WriteJSON(Message{Kind: KindState}))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(intents) == 1
	}, 3*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"text:피가 나요"}, intents)

	c.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseGoingAway, "restart"))
	c.Close()

	c2 := h.accept(t)
	st = readState(t, c2)
	assert.EqualValues(t, 1, st.Seq, "last state is replayed after reconnect")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("link did not stop")
	}
	c2.Close()
}

func TestLink_StopsWhenStatesClose(t *testing.T) {
	h := newFakeHub(t)
	states := make(chan dialog.State)
	close(states)

	err := NewLink(h.url(), 10*time.Millisecond).Run(context.Background(), states, func(context.Context, string, string) error { return nil })
	assert.NoError(t, err)
}
