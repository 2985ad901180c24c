package console

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/nusig/internal/gatt"
	"github.com/muurk/nusig/internal/gatt/gatttest"
	"github.com/muurk/nusig/internal/link"
	"github.com/muurk/nusig/internal/transcript"
)

type chanInput chan string

func (c chanInput) Lines() <-chan string { return c }

type session struct {
	transport *gatttest.Transport
	p         *gatttest.Peripheral
	buf       *transcript.Buffer
	manager   *link.Manager
	input     chanInput
	done      chan error
}

func start(t *testing.T, p *gatttest.Peripheral, prepare func(*gatttest.Transport)) *session {
	t.Helper()
	tr := gatttest.NewTransport(p)
	if prepare != nil {
		prepare(tr)
	}
	buf := transcript.NewBuffer()
	m := link.NewManager(tr, p.Device, buf, link.Options{WritePacing: time.Millisecond})

	settings, err := gatt.NewSessionSettings(p.Device, p.Services,
		[]gatt.Characteristic{p.Char(gatttest.NUSNotifyID)},
		[]gatt.Characteristic{p.Char(gatttest.NUSWriteID)})
	require.NoError(t, err)

	s := &session{transport: tr, p: p, buf: buf, manager: m, input: make(chanInput), done: make(chan error, 1)}
	go func() { s.done <- New(m, settings, buf).Run(context.Background(), s.input) }()
	return s
}

func (s *session) quit(t *testing.T) {
	t.Helper()
	close(s.input)
	select {
	case err := <-s.done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("console did not exit")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNUSScenario(t *testing.T) {
	p := gatttest.NewNUS("NUS-A", "C8:00:00:00:00:01")
	s := start(t, p, nil)

	waitFor(t, func() bool { return p.Subscribed(gatttest.NUSNotifyID) })
	require.True(t, p.Notify(gatttest.NUSNotifyID, []byte("hello")))
	waitFor(t, func() bool { return s.buf.Len() == 2 })

	s.input <- "ping"
	waitFor(t, func() bool { return len(p.Writes()) == 1 })
	s.quit(t)

	lines := s.buf.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, transcript.Status, lines[0].Kind)
	assert.Equal(t, "R0> hello", lines[1].String())
	assert.Equal(t, "Tx> ping", lines[2].String())

	w := p.Writes()[0]
	assert.Equal(t, gatttest.NUSWriteID, w.CharID)
	assert.Equal(t, []byte("ping"), w.Data)

	assert.Equal(t, 1, s.transport.LastLink().Disconnects(), "quit tears the link down")
	assert.Equal(t, link.Disconnected, s.manager.State())
}

func TestSubscribeFailureConsoleStillStarts(t *testing.T) {
	p := gatttest.NewNUS("NUS-A", "C8:00:00:00:00:01")
	p.FailSubscribe(gatttest.NUSNotifyID, errors.New("org.bluez.Error.NotSupported"))
	s := start(t, p, nil)

	s.input <- "still here"
	waitFor(t, func() bool { return len(p.Writes()) == 1 })
	assert.False(t, p.Notify(gatttest.NUSNotifyID, []byte("dropped")))
	s.quit(t)

	var status []string
	for _, l := range s.buf.Lines() {
		assert.NotEqual(t, transcript.Inbound, l.Kind)
		if l.Kind == transcript.Status {
			status = append(status, l.Text)
		}
	}
	assert.Equal(t, []string{"Connection to Rx0 failed: org.bluez.Error.NotSupported"}, status)
}

func TestConnectFailureRetriedOnWrite(t *testing.T) {
	p := gatttest.NewNUS("NUS-A", "C8:00:00:00:00:01")
	s := start(t, p, func(tr *gatttest.Transport) {
		tr.FailConnect(errors.New("page timeout"))
	})

	waitFor(t, func() bool { return s.buf.Len() == 1 })
	assert.Equal(t, "Connection to device was lost and could not be reestablished: page timeout", s.buf.Lines()[0].Text)

	s.input <- ""
	waitFor(t, func() bool { return len(p.Writes()) == 1 })
	assert.True(t, p.Subscribed(gatttest.NUSNotifyID), "subscriptions restored by the lazy reconnect")
	assert.Empty(t, p.Writes()[0].Data, "empty submissions are still sent")
	s.quit(t)

	assert.Equal(t, 2, s.transport.Connects())
}

// recordingLink checks teardown order.
type recordingLink struct {
	mu      sync.Mutex
	events  []string
	inbound chan transcript.Line
	ctxs    []context.Context
}

func (r *recordingLink) record(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingLink) EnsureConnected(context.Context) error { r.record("ensure"); return nil }
func (r *recordingLink) InitializeSubscriptions(context.Context, []gatt.Characteristic) error {
	r.record("subscribe")
	return nil
}
func (r *recordingLink) Inbound() <-chan transcript.Line { return r.inbound }
func (r *recordingLink) Write(ctx context.Context, _ []gatt.Characteristic, text string) error {
	r.mu.Lock()
	r.ctxs = append(r.ctxs, ctx)
	r.mu.Unlock()
	r.record("write:" + text)
	return nil
}
func (r *recordingLink) Disconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ctx := range r.ctxs {
		if ctx.Err() == nil {
			r.events = append(r.events, "disconnect-before-cancel")
			return
		}
	}
	r.events = append(r.events, "disconnect")
}

func TestRunLifecycleOrder(t *testing.T) {
	rl := &recordingLink{inbound: make(chan transcript.Line)}
	buf := transcript.NewBuffer()
	in := make(chanInput, 1)
	in <- "a"
	close(in)

	err := New(rl, gatt.SessionSettings{}, buf).Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"ensure", "subscribe", "write:a", "disconnect"}, rl.events)
	assert.Equal(t, "Tx> a", buf.Text())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	rl := &recordingLink{inbound: make(chan transcript.Line)}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(rl, gatt.SessionSettings{}, transcript.NewBuffer()).Run(ctx, make(chanInput)) }()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
	assert.Equal(t, "disconnect", rl.events[len(rl.events)-1])
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "NUSig 1.0 - Connected to NUS-A", Title("1.0", gatt.Device{Address: "AA", Name: "NUS-A"}))
	assert.Equal(t, "NUSig 1.0 - Connected to AA", Title("1.0", gatt.Device{Address: "AA"}))
}
