package link

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/nusig/internal/gatt"
	"github.com/muurk/nusig/internal/gatt/gatttest"
	"github.com/muurk/nusig/internal/transcript"
)

func newNUS(t *testing.T) (*gatttest.Transport, *gatttest.Peripheral, *transcript.Buffer, *Manager) {
	t.Helper()
	p := gatttest.NewNUS("NUS-A", "C8:00:00:00:00:01")
	tr := gatttest.NewTransport(p)
	buf := transcript.NewBuffer()
	m := NewManager(tr, p.Device, buf, Options{WritePacing: time.Millisecond})
	return tr, p, buf, m
}

func statusLines(buf *transcript.Buffer) []string {
	var out []string
	for _, l := range buf.Lines() {
		if l.Kind == transcript.Status {
			out = append(out, l.Text)
		}
	}
	return out
}

func receive(t *testing.T, m *Manager) transcript.Line {
	t.Helper()
	select {
	case l := <-m.Inbound():
		return l
	case <-time.After(time.Second):
		t.Fatal("no inbound line")
		return transcript.Line{}
	}
}

func TestEnsureConnectedNoOpWhenConnected(t *testing.T) {
	tr, _, _, m := newNUS(t)
	ctx := context.Background()

	assert.Equal(t, Disconnected, m.State())
	require.NoError(t, m.EnsureConnected(ctx))
	assert.Equal(t, Ready, m.State())
	require.Equal(t, 1, tr.Connects())

	require.NoError(t, m.EnsureConnected(ctx))
	assert.Equal(t, 1, tr.Connects(), "no connect attempt while connected")
}

func TestEnsureConnectedFailureIsLinkLost(t *testing.T) {
	tr, _, _, m := newNUS(t)
	cause := errors.New("br-connection-page-timeout")
	tr.FailConnect(cause)

	err := m.EnsureConnected(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, gatt.ErrLinkLost)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, Disconnected, m.State())

	// Retried lazily on next use, not in a loop.
	assert.Equal(t, 1, tr.Connects())
	require.NoError(t, m.EnsureConnected(context.Background()))
	assert.Equal(t, 2, tr.Connects())
}

func TestStateReportsDrop(t *testing.T) {
	tr, _, _, m := newNUS(t)
	require.NoError(t, m.EnsureConnected(context.Background()))
	tr.LastLink().Drop()
	assert.Equal(t, Disconnected, m.State())
}

func TestInitializeSubscriptions(t *testing.T) {
	_, p, buf, m := newNUS(t)
	ctx := context.Background()
	p.SetValue(gatttest.NUSNotifyID, []byte("boot ok\n"))

	require.NoError(t, m.EnsureConnected(ctx))
	rx := []gatt.Characteristic{p.Char(gatttest.NUSNotifyID)}
	require.NoError(t, m.InitializeSubscriptions(ctx, rx))

	assert.Equal(t, Ready, m.State())
	assert.True(t, p.Subscribed(gatttest.NUSNotifyID))
	assert.Equal(t, []string{gatttest.NUSNotifyID}, p.Unsubscribes(), "stale subscription cancelled first")
	assert.Equal(t, []string{
		`R0: Connected to "Nordic UART TX" (uuid:6e400003-b5a3-f393-e0a9-e50e24dcca9e). Last Message: boot ok\n`,
	}, statusLines(buf))
}

func TestInitializeSubscriptionsReadFailureIgnored(t *testing.T) {
	_, p, buf, m := newNUS(t)
	ctx := context.Background()
	p.FailRead(gatttest.NUSNotifyID, errors.New("org.bluez.Error.NotPermitted"))

	require.NoError(t, m.EnsureConnected(ctx))
	require.NoError(t, m.InitializeSubscriptions(ctx, []gatt.Characteristic{p.Char(gatttest.NUSNotifyID)}))

	assert.Equal(t, []string{
		`R0: Connected to "Nordic UART TX" (uuid:6e400003-b5a3-f393-e0a9-e50e24dcca9e)`,
	}, statusLines(buf))
}

func TestSubscribeFailureOnOnlyRx(t *testing.T) {
	_, p, buf, m := newNUS(t)
	ctx := context.Background()
	p.FailSubscribe(gatttest.NUSNotifyID, errors.New("org.bluez.Error.Failed"))

	require.NoError(t, m.EnsureConnected(ctx))
	require.NoError(t, m.InitializeSubscriptions(ctx, []gatt.Characteristic{p.Char(gatttest.NUSNotifyID)}))

	assert.Equal(t, []string{"Connection to Rx0 failed: org.bluez.Error.Failed"}, statusLines(buf))
	assert.Equal(t, Degraded, m.State())
	assert.False(t, p.Notify(gatttest.NUSNotifyID, []byte("never")))

	select {
	case l := <-m.Inbound():
		t.Fatalf("unexpected inbound line %v", l)
	default:
	}
}

func TestInitializeSubscriptionsWhileDisconnected(t *testing.T) {
	tr, p, buf, m := newNUS(t)
	ctx := context.Background()
	rx := []gatt.Characteristic{p.Char(gatttest.NUSNotifyID)}

	err := m.InitializeSubscriptions(ctx, rx)
	assert.ErrorIs(t, err, gatt.ErrLinkLost)
	assert.Equal(t, 0, tr.Connects())
	assert.Empty(t, buf.Lines())

	// The next successful reconnect restores the subscription.
	require.NoError(t, m.EnsureConnected(ctx))
	assert.True(t, p.Subscribed(gatttest.NUSNotifyID))
	assert.Len(t, statusLines(buf), 1)
}

func TestNotificationRouting(t *testing.T) {
	_, p, _, m := newNUS(t)
	ctx := context.Background()
	require.NoError(t, m.EnsureConnected(ctx))
	require.NoError(t, m.InitializeSubscriptions(ctx, []gatt.Characteristic{p.Char(gatttest.NUSNotifyID)}))

	require.True(t, p.Notify(gatttest.NUSNotifyID, []byte("hello")))
	l := receive(t, m)
	assert.Equal(t, "R0> hello", l.String())

	require.True(t, p.Notify(gatttest.NUSNotifyID, []byte("line\r\n")))
	assert.Equal(t, `line\r\n`, receive(t, m).Text)

	require.True(t, p.Notify(gatttest.NUSNotifyID, []byte{'o', 'k', 0xff}))
	assert.Equal(t, "ok�", receive(t, m).Text)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    string
	}{
		{name: "plain", payload: []byte("hello"), want: "hello"},
		{name: "trailing CRLF kept escaped", payload: []byte("ok\r\n"), want: `ok\r\n`},
		{name: "embedded newline", payload: []byte("a\nb"), want: `a\nb`},
		{name: "leading space kept", payload: []byte("  x "), want: "  x "},
		{name: "invalid UTF-8", payload: []byte{'o', 'k', 0xff}, want: "ok\uFFFD"},
		{name: "empty", payload: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decode(tt.payload))
		})
	}
}

func TestMultiLineNotificationIsOneTranscriptRow(t *testing.T) {
	_, p, buf, m := newNUS(t)
	ctx := context.Background()
	require.NoError(t, m.EnsureConnected(ctx))
	require.NoError(t, m.InitializeSubscriptions(ctx, []gatt.Characteristic{p.Char(gatttest.NUSNotifyID)}))
	before := buf.Len()

	require.True(t, p.Notify(gatttest.NUSNotifyID, []byte("first\nsecond")))
	l := receive(t, m)
	buf.Append(l)

	assert.Equal(t, `R0> first\nsecond`, l.String())
	assert.Equal(t, before+1, buf.Len())
	assert.Equal(t, before, strings.Count(buf.Text(), "\n"), "one separator between rows, none inside")
}

func TestNotificationForUnknownCharacteristicDropped(t *testing.T) {
	_, _, _, m := newNUS(t)
	m.deliver("service0099/char0100", []byte("stray"))

	select {
	case l := <-m.Inbound():
		t.Fatalf("unexpected inbound line %v", l)
	default:
	}
}

func threeTargets() *gatttest.Peripheral {
	return gatttest.NewPeripheral(
		gatt.Device{Address: "C8:00:00:00:00:03", Name: "Triple"},
		gatt.Service{ID: "s", UUID: "0000ffe0-0000-1000-8000-00805f9b34fb", Characteristics: []gatt.Characteristic{
			{ID: "t0", UUID: "0000ffe1-0000-1000-8000-00805f9b34fb", Caps: gatt.CapWrite},
			{ID: "t1", UUID: "0000ffe2-0000-1000-8000-00805f9b34fb", Caps: gatt.CapWrite},
			{ID: "t2", UUID: "0000ffe3-0000-1000-8000-00805f9b34fb", Caps: gatt.CapWriteWithoutResponse},
		}},
	)
}

func TestWriteFanOutIndependence(t *testing.T) {
	p := threeTargets()
	tr := gatttest.NewTransport(p)
	buf := transcript.NewBuffer()
	m := NewManager(tr, p.Device, buf, Options{})

	var slept []time.Duration
	m.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	p.FailWrite("t1", errors.New("boom"))
	tx := p.Services[0].Characteristics

	err := m.Write(context.Background(), tx, "ping")
	require.Error(t, err)
	assert.ErrorIs(t, err, gatt.ErrWrite)

	writes := p.Writes()
	require.Len(t, writes, 2)
	assert.Equal(t, "t0", writes[0].CharID)
	assert.Equal(t, "t2", writes[1].CharID)
	assert.Equal(t, []byte("ping"), writes[0].Data)
	assert.True(t, writes[0].WithResponse)
	assert.False(t, writes[1].WithResponse, "write-without-response only target")

	assert.Equal(t, []string{"Send failed on Tx1: boom"}, statusLines(buf))
	assert.Equal(t, []time.Duration{DefaultWritePacing, DefaultWritePacing}, slept, "paced between targets only")
}

func TestWriteAbortedWhenReconnectFails(t *testing.T) {
	tr, p, buf, m := newNUS(t)
	ctx := context.Background()
	require.NoError(t, m.EnsureConnected(ctx))
	tr.LastLink().Drop()
	tr.FailConnect(errors.New("le-connection-abort-by-local"))

	err := m.Write(ctx, []gatt.Characteristic{p.Char(gatttest.NUSWriteID)}, "ping")
	assert.ErrorIs(t, err, gatt.ErrLinkLost)
	assert.Empty(t, p.Writes())

	lines := statusLines(buf)
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "Send aborted: connection to device was lost and could not be reestablished"))
	assert.True(t, strings.HasSuffix(lines[0], "le-connection-abort-by-local"))
}

func TestWriteReconnectsAndResubscribes(t *testing.T) {
	tr, p, buf, m := newNUS(t)
	ctx := context.Background()
	require.NoError(t, m.EnsureConnected(ctx))
	require.NoError(t, m.InitializeSubscriptions(ctx, []gatt.Characteristic{p.Char(gatttest.NUSNotifyID)}))

	tr.LastLink().Drop()
	assert.False(t, p.Subscribed(gatttest.NUSNotifyID))

	require.NoError(t, m.Write(ctx, []gatt.Characteristic{p.Char(gatttest.NUSWriteID)}, "ping"))
	assert.Equal(t, 2, tr.Connects())
	assert.True(t, p.Subscribed(gatttest.NUSNotifyID))
	assert.Len(t, p.Writes(), 1)
	assert.Len(t, statusLines(buf), 2)
}

func TestServicesConnectsFirst(t *testing.T) {
	tr, _, _, m := newNUS(t)
	services, err := m.Services(context.Background())
	require.NoError(t, err)
	assert.Len(t, services, 1)
	assert.Equal(t, 1, tr.Connects())
}

func TestDisconnect(t *testing.T) {
	tr, p, _, m := newNUS(t)
	ctx := context.Background()

	var states []State
	m.opts.OnState = func(s State) { states = append(states, s) }

	require.NoError(t, m.EnsureConnected(ctx))
	require.NoError(t, m.InitializeSubscriptions(ctx, []gatt.Characteristic{p.Char(gatttest.NUSNotifyID)}))
	link := tr.LastLink()

	m.Disconnect()
	m.Disconnect()
	assert.Equal(t, 1, link.Disconnects())
	assert.Equal(t, Disconnected, m.State())
	assert.Equal(t, []State{Connecting, Ready, Disconnected}, states)

	// Late notifications do not block once torn down.
	done := make(chan struct{})
	go func() {
		for i := 0; i < DefaultInboundBuffer*2; i++ {
			m.deliver(gatttest.NUSNotifyID, []byte("late"))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deliver blocked after Disconnect")
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "degraded", Degraded.String())
	assert.Equal(t, "State(7)", State(7).String())
}
