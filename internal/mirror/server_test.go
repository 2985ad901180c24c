package mirror

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/nusig/internal/transcript"
)

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + Path
}

// collect runs Watch in the background and forwards its messages
func collect(ctx context.Context, url string) (<-chan Message, <-chan error) {
	msgs := make(chan Message, 16)
	errc := make(chan error, 1)
	go func() {
		errc <- Watch(ctx, url, func(m Message) { msgs <- m })
	}()
	return msgs, errc
}

func next(t *testing.T, msgs <-chan Message) Message {
	t.Helper()
	select {
	case m := <-msgs:
		return m
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a message")
		return Message{}
	}
}

func TestViewerGetsBacklogThenLiveLines(t *testing.T) {
	buf := transcript.NewBuffer()
	buf.Append(transcript.NewStatus("Connected"))
	buf.Append(transcript.NewInbound(0, "hello"))

	ts := httptest.NewServer(New(buf).Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	msgs, errc := collect(ctx, wsURL(ts.URL))

	m := next(t, msgs)
	if m.Kind != "status" || m.Line != "Connected" || m.Index != transcript.EchoIndex {
		t.Errorf("first message = %+v", m)
	}
	m = next(t, msgs)
	if m.Kind != "inbound" || m.Index != 0 || m.Text != "hello" || m.Line != "R0> hello" {
		t.Errorf("second message = %+v", m)
	}
	if m.At.IsZero() {
		t.Error("At not carried over")
	}

	buf.Append(transcript.NewOutbound("ping"))
	m = next(t, msgs)
	if m.Kind != "outbound" || m.Line != "Tx> ping" {
		t.Errorf("live message = %+v", m)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Watch() = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestServeClosesViewersOnShutdown(t *testing.T) {
	buf := transcript.NewBuffer()
	buf.Append(transcript.NewStatus("Connected"))
	s := New(buf)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	serveCtx, stopServe := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- s.Serve(serveCtx, ln) }()

	msgs, errc := collect(context.Background(), "ws://"+ln.Addr().String()+Path)
	next(t, msgs)

	if n := s.GetActiveConnections(); n != 1 {
		t.Errorf("GetActiveConnections() = %d, want 1", n)
	}

	stopServe()
	select {
	case err := <-served:
		if err != nil {
			t.Errorf("Serve() = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return")
	}

	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Watch() = %v, want nil on going-away close", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after server shutdown")
	}
	if n := s.GetActiveConnections(); n != 0 {
		t.Errorf("GetActiveConnections() = %d after shutdown, want 0", n)
	}
}

func TestViewerRefusedAfterShutdown(t *testing.T) {
	s := New(transcript.NewBuffer())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.shutdown(ctx, &http.Server{}); err != nil {
		t.Fatalf("shutdown() = %v", err)
	}

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts.URL), nil)
	if err == nil {
		conn.Close()
		t.Fatal("Dial() succeeded after shutdown")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("response = %v, want 503", resp)
	}
	if n := s.GetActiveConnections(); n != 0 {
		t.Errorf("GetActiveConnections() = %d, want 0", n)
	}

	// no viewer is left holding the wait group open
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("wait group still held after a refused viewer")
	}
}

func TestWatchDialError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	err = Watch(context.Background(), "ws://"+addr+Path, func(Message) {})
	if err == nil {
		t.Fatal("Watch() = nil, want dial error")
	}
}

func TestStartAndStop(t *testing.T) {
	buf := transcript.NewBuffer()
	buf.Append(transcript.NewInbound(1, "boot"))

	r, err := Start(context.Background(), buf, Config{Listen: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	msgs, errc := collect(context.Background(), r.URL())
	if m := next(t, msgs); m.Line != "R1> boot" {
		t.Errorf("first message = %+v", m)
	}

	r.Stop()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Watch() = %v after Stop", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Watch did not return after Stop")
	}
}

func TestStartListenError(t *testing.T) {
	if _, err := Start(context.Background(), transcript.NewBuffer(), Config{Listen: "127.0.0.1:-1"}); err == nil {
		t.Fatal("Start() error = nil, want listen error")
	}
}
