package channel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teranos/ldx/errors"
	"github.com/teranos/ldx/ingest"
	"github.com/teranos/ldx/ld"
	"github.com/teranos/ldx/processor"
	"github.com/teranos/ldx/transport"
)

func quad(s, p, o string, kind ld.TermKind) ingest.Event {
	return ingest.QuadEvent(ld.Quad{Subject: s, Predicate: p, Object: ld.Term{Value: o, Kind: kind}})
}

var parser = ingest.Scripted{
	"foobar": {
		ingest.PrefixEvent("foobar", "http://purl.org/dc/terms/"),
		quad("foo", ld.RDFType, "bar", ld.NamedNode),
		quad("foo", ld.DCTitle, "Foo Bar", ld.Literal),
		quad("baz", ld.RDFType, "bar", ld.NamedNode),
		quad("qux", ld.RDFType, "other", ld.NamedNode),
		quad("quux", ld.RDFType, "bar", ld.NamedNode),
		ingest.EndEvent(),
	},
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func script() []ld.Command {
	return []ld.Command{
		{ID: "init", Kind: ld.KindInit, Arguments: []string{"foobar"}},
		{ID: "all", Kind: ld.KindFetch, Arguments: []string{}},
		{ID: "types", Kind: ld.KindFetch, Arguments: []string{ld.SelectTypes}},
		{ID: "type", Kind: ld.KindFetch, Arguments: []string{ld.SelectType, "bar"}},
		{ID: "missing-type", Kind: ld.KindFetch, Arguments: []string{ld.SelectType}},
		{ID: "foo", Kind: ld.KindFetch, Arguments: []string{"foo"}},
		{ID: "absent", Kind: ld.KindFetch, Arguments: []string{"nope"}},
		{ID: "bogus", Kind: ld.CommandKind(7), Arguments: []string{}},
	}
}

// play submits every scripted command and waits for each reply in turn.
func play(t *testing.T, ch Channel) []ld.Response {
	t.Helper()
	ctx := testCtx(t)
	var out []ld.Response
	for _, cmd := range script() {
		resp, err := Request(ctx, ch, cmd)
		require.NoError(t, err, cmd.ID)
		out = append(out, resp)
	}
	return out
}

// newWebSocketHost serves a processor per websocket connection and returns
// the endpoint URL.
func newWebSocketHost(t *testing.T) string {
	t.Helper()
	hostCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ws := transport.NewWebSocket(conn, nil)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer ws.Close()
			_ = Serve(hostCtx, ws, parser)
		}()
	}))
	t.Cleanup(func() {
		cancel()
		srv.Close()
		wg.Wait()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func newWebSocketWorker(t *testing.T) *Worker {
	t.Helper()
	ws, err := transport.DialWebSocket(testCtx(t), newWebSocketHost(t), nil, nil)
	require.NoError(t, err)
	w := NewWorker(ws)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestInProcess_Script(t *testing.T) {
	ch := NewInProcess(parser)
	defer ch.Close()

	got := play(t, ch)
	require.Len(t, got, 8)

	assert.True(t, got[0].Success)
	assert.Equal(t, ld.MsgCompleted, got[0].Message)
	assert.Nil(t, got[0].Result)

	require.NotNil(t, got[1].Result)
	assert.Len(t, got[1].Result.Resources, 4)

	assert.Equal(t, []string{"bar", "other"}, got[2].Result.Types)

	var ids []string
	for _, r := range got[3].Result.Resources {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"foo", "baz", "quux"}, ids)

	assert.False(t, got[4].Success)
	assert.Equal(t, ld.MsgMissingType, got[4].Message)

	require.NotNil(t, got[5].Result)
	assert.Equal(t, "Foo Bar", got[5].Result.Resource.Title)

	assert.False(t, got[6].Success)
	assert.Equal(t, ld.MsgNotFound, got[6].Message)

	assert.False(t, got[7].Success)
	assert.Equal(t, ld.MsgUnsupported, got[7].Message)
}

func TestStrategiesAgree(t *testing.T) {
	inproc := NewInProcess(parser)
	defer inproc.Close()
	want := play(t, inproc)

	t.Run("pipe", func(t *testing.T) {
		w := NewIsolated(context.Background(), parser)
		defer w.Close()
		assert.Equal(t, want, play(t, w))
	})

	t.Run("websocket", func(t *testing.T) {
		assert.Equal(t, want, play(t, newWebSocketWorker(t)))
	})
}

func TestInProcess_HandlersRunBeforeSubmitReturns(t *testing.T) {
	ch := NewInProcess(parser)
	defer ch.Close()

	var got []ld.Response
	unsubscribe := ch.Subscribe(func(resp ld.Response) { got = append(got, resp) })

	require.NoError(t, ch.Submit(testCtx(t), ld.Init("foobar")))
	require.Len(t, got, 1)
	assert.True(t, got[0].Success)

	unsubscribe()
	unsubscribe()
	require.NoError(t, ch.Submit(testCtx(t), ld.Fetch()))
	assert.Len(t, got, 1, "unsubscribed handler is not called")
}

func TestInProcess_DrainTimeoutKeepsPass(t *testing.T) {
	manual := ingest.NewManual()
	ch := NewInProcess(manual)
	defer ch.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	initCmd := ld.Init("slow")
	err := ch.Submit(ctx, initCmd)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	imp := <-manual.Imports
	require.True(t, imp.Push(ingest.EndEvent()))

	resp, err := Await(testCtx(t), ch, ForCommand(initCmd), func() error {
		return ch.Submit(testCtx(t), ld.Fetch(ld.SelectTypes))
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, ld.MsgCompleted, resp.Message)
}

func TestSubmitAfterClose(t *testing.T) {
	ctx := testCtx(t)

	inproc := NewInProcess(parser)
	require.NoError(t, inproc.Close())
	require.NoError(t, inproc.Close())
	assert.True(t, errors.IsTransportClosed(inproc.Submit(ctx, ld.Fetch())))

	w := NewIsolated(ctx, parser)
	require.NoError(t, w.Close())
	assert.True(t, errors.IsTransportClosed(w.Submit(ctx, ld.Fetch())))
}

func TestWorker_ErrorHandler(t *testing.T) {
	ctx := testCtx(t)
	client, host := transport.NewPipe(4)
	errs := make(chan error, 4)
	w := NewWorker(client, WithErrorHandler(func(err error) { errs <- err }))
	defer w.Close()

	require.NoError(t, host.Send(ctx, []byte("not a frame")))
	require.NoError(t, host.Send(ctx, EncodeError("host exploded")))

	select {
	case err := <-errs:
		assert.True(t, errors.IsInvalidFrame(err), "got %v", err)
	case <-ctx.Done():
		t.Fatal("no error for invalid frame")
	}
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, errors.ErrRemote)
		assert.Contains(t, err.Error(), "host exploded")
	case <-ctx.Done():
		t.Fatal("no error for error frame")
	}

	require.NoError(t, host.Close())
	select {
	case err := <-errs:
		assert.True(t, errors.IsTransportClosed(err))
	case <-ctx.Done():
		t.Fatal("lost transport not reported")
	}
}

func TestServe_RejectsBadFrames(t *testing.T) {
	ctx := testCtx(t)
	client, host := transport.NewPipe(4)
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, host, parser) }()

	for _, bad := range [][]byte{
		[]byte("{"),
		EncodeError("clients do not send errors"),
	} {
		require.NoError(t, client.Send(ctx, bad))
		data, err := client.Receive(ctx)
		require.NoError(t, err)
		frame, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, FrameError, frame.Type)
		assert.NotEmpty(t, frame.Error)
	}

	// The host keeps serving after a rejected frame.
	cmd := ld.Fetch(ld.SelectTypes)
	data, err := EncodeCommand(cmd)
	require.NoError(t, err)
	require.NoError(t, client.Send(ctx, data))
	data, err = client.Receive(ctx)
	require.NoError(t, err)
	frame, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, FrameResponse, frame.Type)
	assert.True(t, frame.Response.Command.Same(cmd))
	assert.Empty(t, frame.Response.Result.Types)

	require.NoError(t, client.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("Serve did not return after transport closed")
	}
}

func TestWorker_FetchDuringLoading(t *testing.T) {
	ctx := testCtx(t)
	manual := ingest.NewManual()
	w := NewIsolated(ctx, manual)
	defer w.Close()

	initCmd := ld.Init("doc")
	require.NoError(t, w.Submit(ctx, initCmd))
	imp := <-manual.Imports
	require.True(t, imp.Push(quad("foo", ld.RDFType, "bar", ld.NamedNode)))

	// The FETCH may land before or after the quad is applied.
	resp, err := Request(ctx, w, ld.Fetch())
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.LessOrEqual(t, len(resp.Result.Resources), 1)

	resp, err = Await(ctx, w, ForCommand(initCmd), func() error {
		imp.Push(ingest.EndEvent())
		return nil
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	resp, err = Request(ctx, w, ld.Fetch("foo"))
	require.NoError(t, err)
	assert.Equal(t, "bar", resp.Result.Resource.Type)
}

func TestNew_Strategies(t *testing.T) {
	ctx := testCtx(t)

	ch, err := New(ctx, Config{}, parser)
	require.NoError(t, err)
	assert.IsType(t, &InProcess{}, ch)
	require.NoError(t, ch.Close())

	ch, err = New(ctx, Config{Strategy: StrategyWorker, IngestTimeout: time.Second}, parser)
	require.NoError(t, err)
	assert.IsType(t, &Worker{}, ch)
	resp, err := Request(ctx, ch, ld.Init("foobar"))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.NoError(t, ch.Close())

	_, err = New(ctx, Config{Strategy: "thread"}, parser)
	assert.ErrorIs(t, err, errors.ErrUnsupportedStrategy)
	assert.NotEmpty(t, errors.GetAllHints(err))

	_, err = New(ctx, Config{Strategy: StrategyWorker, Transport: "carrier-pigeon"}, parser)
	assert.ErrorIs(t, err, errors.ErrUnsupportedStrategy)
}

func TestNew_WebSocketTransport(t *testing.T) {
	ctx := testCtx(t)
	core, logs := observer.New(zap.DebugLevel)

	ch, err := New(ctx, Config{
		Strategy:  StrategyWorker,
		Transport: transport.KindWebSocket,
		URL:       newWebSocketHost(t),
	}, parser, WithLogger(zap.New(core).Sugar()), WithObserver(processor.NopObserver{}))
	require.NoError(t, err)
	defer ch.Close()
	assert.IsType(t, &Worker{}, ch)

	resp, err := Request(ctx, ch, ld.Init("foobar"))
	require.NoError(t, err)
	assert.True(t, resp.Success)

	resp, err = Request(ctx, ch, ld.Fetch("foo"))
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, "Foo Bar", resp.Result.Resource.Title)

	assert.Equal(t, 1, logs.FilterMessage("Observers run on the remote host and are not attached here").Len())
}

func TestNew_WebSocketUnreachable(t *testing.T) {
	_, err := New(testCtx(t), Config{
		Strategy:  StrategyWorker,
		Transport: transport.KindWebSocket,
		URL:       "ws://127.0.0.1:1/ws",
	}, parser)
	require.Error(t, err)
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestAwait_ContextEnds(t *testing.T) {
	ch := NewInProcess(parser)
	defer ch.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := Await(ctx, ch, func(ld.Response) bool { return false }, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
