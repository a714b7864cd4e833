package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/ldx/errors"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPipe_RoundTrip(t *testing.T) {
	ctx := testCtx(t)
	a, b := NewPipe(0)

	buf := []byte(`{"type":"command"}`)
	require.NoError(t, a.Send(ctx, buf))
	buf[0] = 'X'

	got, err := b.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"command"}`, string(got), "frames are copied")

	require.NoError(t, b.Send(ctx, []byte("reply")))
	got, err = a.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "reply", string(got))
}

func TestPipe_CloseClosesBothEnds(t *testing.T) {
	ctx := testCtx(t)
	a, b := NewPipe(1)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	assert.True(t, errors.IsTransportClosed(a.Send(ctx, []byte("x"))))
	_, err := b.Receive(ctx)
	assert.True(t, errors.IsTransportClosed(err))
}

func TestPipe_ReceiveHonoursContext(t *testing.T) {
	_, b := NewPipe(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := b.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// echoServer upgrades /ws and echoes every frame back through a WebSocket transport.
func echoServer(t *testing.T) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ws := NewWebSocket(conn, nil)
		go func() {
			defer ws.Close()
			for {
				frame, err := ws.Receive(context.Background())
				if err != nil {
					return
				}
				if err := ws.Send(context.Background(), frame); err != nil {
					return
				}
			}
		}()
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestWebSocket_RoundTrip(t *testing.T) {
	ctx := testCtx(t)
	ws, err := DialWebSocket(ctx, echoServer(t), nil, nil)
	require.NoError(t, err)
	defer ws.Close()

	for _, msg := range []string{"one", "two", `{"big":"` + strings.Repeat("x", 100_000) + `"}`} {
		require.NoError(t, ws.Send(ctx, []byte(msg)))
		got, err := ws.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, msg, string(got))
	}
}

func TestWebSocket_ClosedAfterClose(t *testing.T) {
	ctx := testCtx(t)
	ws, err := DialWebSocket(ctx, echoServer(t), nil, nil)
	require.NoError(t, err)

	require.NoError(t, ws.Close())
	<-ws.Done()
	assert.True(t, errors.IsTransportClosed(ws.Send(ctx, []byte("x"))))
	_, err = ws.Receive(ctx)
	assert.True(t, errors.IsTransportClosed(err))
}

func TestWebSocket_DialFailureHasHint(t *testing.T) {
	_, err := DialWebSocket(testCtx(t), "ws://127.0.0.1:1/ws", nil, nil)
	require.Error(t, err)
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func runNATS(t *testing.T) string {
	t.Helper()
	ns, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: -1, NoLog: true, NoSigs: true})
	require.NoError(t, err)
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("nats server did not start")
	}
	t.Cleanup(ns.Shutdown)
	return ns.ClientURL()
}

func TestNATS_RoundTrip(t *testing.T) {
	ctx := testCtx(t)
	url := runNATS(t)

	host, err := DialNATS(url, "ldx.test", RoleHost)
	require.NoError(t, err)
	defer host.Close()
	client, err := DialNATS(url, "ldx.test.", RoleClient)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Send(ctx, []byte("command")))
	got, err := host.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "command", string(got))

	require.NoError(t, host.Send(ctx, []byte("response")))
	got, err = client.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "response", string(got))
}

func TestNATS_SharedConnection(t *testing.T) {
	ctx := testCtx(t)
	conn, err := nats.Connect(runNATS(t))
	require.NoError(t, err)
	defer conn.Close()

	host, err := NewNATS(conn, "shared", RoleHost)
	require.NoError(t, err)
	client, err := NewNATS(conn, "shared", RoleClient)
	require.NoError(t, err)

	require.NoError(t, client.Send(ctx, []byte("ping")))
	got, err := host.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(got))

	require.NoError(t, client.Close())
	assert.False(t, conn.IsClosed(), "borrowed connection stays open")
	_, err = client.Receive(ctx)
	assert.True(t, errors.IsTransportClosed(err))
	require.NoError(t, host.Close())
}

func TestNATS_ReceiveHonoursContext(t *testing.T) {
	host, err := DialNATS(runNATS(t), "quiet", RoleHost)
	require.NoError(t, err)
	defer host.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = host.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubjects(t *testing.T) {
	c, r := Subjects("ldx.")
	assert.Equal(t, "ldx.commands", c)
	assert.Equal(t, "ldx.responses", r)
}
