// Package link owns the single live connection to the selected device. It
// reconnects lazily, sets up notification subscriptions, routes inbound
// notifications to a channel and fans operator writes out to every Tx
// target. Every transport failure is turned into a transcript status line
// here; nothing below the session's quit path ends the program.
package link

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/nusig/internal/gatt"
	"github.com/muurk/nusig/internal/logging"
	"github.com/muurk/nusig/internal/transcript"
)

const (
	// DefaultWritePacing is the delay between successive Tx targets
	DefaultWritePacing = 100 * time.Millisecond

	// DefaultInboundBuffer is the capacity of the inbound notification channel
	DefaultInboundBuffer = 64
)

// Sink receives status lines. *transcript.Buffer satisfies it.
type Sink interface {
	Append(transcript.Line)
}

// Options tunes a Manager
type Options struct {
	// WritePacing is the delay between successive Tx writes (default 100ms,
	// negative disables pacing)
	WritePacing time.Duration

	// InboundBuffer is the inbound channel capacity (default 64)
	InboundBuffer int

	// ConnectTimeout bounds each connect attempt; zero means no timeout
	ConnectTimeout time.Duration

	// OnState, if set, is called after every state change
	OnState func(State)
}

// Manager owns the link to one device. Transport calls are serialised by
// an internal mutex; notification delivery runs on the transport's
// goroutine and only touches the routing table and the inbound channel.
type Manager struct {
	transport gatt.Transport
	device    gatt.Device
	sink      Sink
	opts      Options

	// mu serialises every call into the transport
	mu          sync.Mutex
	rx          []gatt.Characteristic
	initialized bool

	stateMu sync.RWMutex
	link    gatt.Link
	state   State

	routeMu sync.RWMutex
	routes  map[string]int

	inbound   chan transcript.Line
	done      chan struct{}
	closeOnce sync.Once

	sleep func(context.Context, time.Duration) error
}

// NewManager creates a manager for device. No connection is made until
// the first operation.
func NewManager(transport gatt.Transport, device gatt.Device, sink Sink, opts Options) *Manager {
	if opts.WritePacing < 0 {
		opts.WritePacing = 0
	} else if opts.WritePacing == 0 {
		opts.WritePacing = DefaultWritePacing
	}
	if opts.InboundBuffer <= 0 {
		opts.InboundBuffer = DefaultInboundBuffer
	}
	return &Manager{
		transport: transport,
		device:    device,
		sink:      sink,
		opts:      opts,
		routes:    make(map[string]int),
		inbound:   make(chan transcript.Line, opts.InboundBuffer),
		done:      make(chan struct{}),
		sleep:     sleep,
	}
}

// Device returns the device this manager serves
func (m *Manager) Device() gatt.Device {
	return m.device
}

// State returns the current link state. A link that dropped since the last
// operation reports Disconnected.
func (m *Manager) State() State {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	if (m.state == Ready || m.state == Degraded) && (m.link == nil || !m.link.IsConnected()) {
		return Disconnected
	}
	return m.state
}

// Inbound returns the channel of lines received on subscribed Rx
// characteristics. It is never closed.
func (m *Manager) Inbound() <-chan transcript.Line {
	return m.inbound
}

// EnsureConnected makes one connect attempt if the link is not up. It is a
// no-op when already connected. On failure it returns a *gatt.LinkError of
// kind gatt.ErrLinkLost carrying the cause. A successful reconnect restores
// the subscriptions set up by InitializeSubscriptions.
func (m *Manager) EnsureConnected(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureLocked(ctx, true)
}

func (m *Manager) ensureLocked(ctx context.Context, resubscribe bool) error {
	m.stateMu.RLock()
	link := m.link
	m.stateMu.RUnlock()

	if link != nil && link.IsConnected() {
		return nil
	}

	m.setState(Connecting)

	cctx := ctx
	if m.opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, m.opts.ConnectTimeout)
		defer cancel()
	}

	var err error
	if link == nil {
		logging.LogConnection(m.device.Address, "connecting")
		link, err = m.transport.Connect(cctx, m.device)
	} else {
		logging.LogConnection(m.device.Address, "reconnecting")
		err = link.Reconnect(cctx)
	}
	if err != nil {
		m.setState(Disconnected)
		logging.Warn("Connect failed",
			zap.String("addr", m.device.Address),
			zap.Error(err),
		)
		return gatt.NewLinkError(gatt.ErrLinkLost, gatt.NoSlot, err)
	}

	m.stateMu.Lock()
	m.link = link
	m.stateMu.Unlock()
	m.setState(Ready)
	logging.LogConnection(m.device.Address, "connected")

	if resubscribe && m.initialized {
		m.subscribeLocked(ctx, link)
	}
	return nil
}

// Services lists the device's services, connecting first if needed
func (m *Manager) Services(ctx context.Context) ([]gatt.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureLocked(ctx, true); err != nil {
		return nil, err
	}
	return m.currentLink().Services(ctx)
}

// InitializeSubscriptions subscribes to every Rx characteristic, reporting
// each outcome as a status line. A failed subscription is not fatal; the
// state becomes Degraded. If the link is down, the characteristics are
// remembered for the next successful reconnect and a gatt.ErrLinkLost
// error is returned without a connect attempt.
func (m *Manager) InitializeSubscriptions(ctx context.Context, rx []gatt.Characteristic) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rx = append([]gatt.Characteristic(nil), rx...)
	m.initialized = true

	link := m.currentLink()
	if link == nil || !link.IsConnected() {
		return gatt.NewLinkError(gatt.ErrLinkLost, gatt.NoSlot, errors.New("not connected"))
	}
	m.subscribeLocked(ctx, link)
	return nil
}

func (m *Manager) subscribeLocked(ctx context.Context, link gatt.Link) {
	m.routeMu.Lock()
	m.routes = make(map[string]int, len(m.rx))
	m.routeMu.Unlock()

	degraded := false
	for i, c := range m.rx {
		// A fresh session may inherit a stale notification session.
		if err := link.Unsubscribe(ctx, c); err != nil {
			logging.Debug("Unsubscribe before subscribe failed",
				zap.Int("rx", i),
				zap.String("uuid", c.UUID),
				zap.Error(err),
			)
		}

		id := c.ID
		if err := link.Subscribe(ctx, c, func(payload []byte) { m.deliver(id, payload) }); err != nil {
			degraded = true
			logging.Warn("Subscribe failed",
				zap.Int("rx", i),
				zap.String("uuid", c.UUID),
				zap.Error(err),
			)
			m.emit(transcript.NewStatusf("Connection to Rx%d failed: %v", i, err))
			continue
		}

		m.routeMu.Lock()
		m.routes[id] = i
		m.routeMu.Unlock()
		logging.Info("Subscribed", zap.Int("rx", i), zap.String("uuid", c.UUID))

		status := fmt.Sprintf("R%d: Connected to \"%s\" (uuid:%s)", i, c.DisplayName(), c.UUID)
		if value, err := link.Read(ctx, c); err != nil {
			logging.Debug("Initial read failed", zap.Int("rx", i), zap.Error(err))
		} else if text := decode(value); text != "" {
			status += ". Last Message: " + text
		}
		m.emit(transcript.NewStatus(status))
	}

	if degraded {
		m.setState(Degraded)
	} else {
		m.setState(Ready)
	}
}

// deliver routes a notification to the inbound channel. It runs on the
// transport's goroutine.
func (m *Manager) deliver(id string, payload []byte) {
	m.routeMu.RLock()
	i, ok := m.routes[id]
	m.routeMu.RUnlock()
	if !ok {
		logging.Debug("Notification for unknown characteristic dropped", zap.String("id", id))
		return
	}

	logging.LogRawBytes("Notification", payload)
	line := transcript.NewInbound(i, decode(payload))
	select {
	case m.inbound <- line:
	case <-m.done:
	}
}

// Write sends text to every Tx characteristic in order. The link is
// checked once up front: if it cannot be re-established the whole send is
// abandoned with one status line. Otherwise each target is written
// independently, a failure producing a "Send failed on Tx<i>" status line
// without stopping the others. Targets are paced by Options.WritePacing.
// The returned error joins every failure and is only informational.
func (m *Manager) Write(ctx context.Context, tx []gatt.Characteristic, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureLocked(ctx, true); err != nil {
		m.emit(transcript.NewStatusf("Send aborted: %v", err))
		return err
	}
	link := m.currentLink()
	data := []byte(text)

	var errs []error
	for i, c := range tx {
		if i > 0 && m.opts.WritePacing > 0 {
			if err := m.sleep(ctx, m.opts.WritePacing); err != nil {
				return errors.Join(append(errs, err)...)
			}
		}
		if err := m.writeTarget(ctx, link, i, c, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) writeTarget(ctx context.Context, link gatt.Link, i int, c gatt.Characteristic, data []byte) error {
	withResponse := c.Caps.Has(gatt.CapWrite)
	if err := link.Write(ctx, c, data, withResponse); err != nil {
		logging.Warn("Write failed",
			zap.Int("tx", i),
			zap.String("uuid", c.UUID),
			zap.Error(err),
		)
		m.emit(transcript.NewStatusf("Send failed on Tx%d: %v", i, err))
		return gatt.NewLinkError(gatt.ErrWrite, i, err)
	}
	logging.LogRawBytes("Write", data)
	return nil
}

// Disconnect tears the link down. Errors are logged and swallowed. Pending
// notification deliveries are released.
func (m *Manager) Disconnect() {
	m.closeOnce.Do(func() { close(m.done) })

	m.mu.Lock()
	defer m.mu.Unlock()

	m.routeMu.Lock()
	m.routes = make(map[string]int)
	m.routeMu.Unlock()

	m.stateMu.Lock()
	link := m.link
	m.link = nil
	m.stateMu.Unlock()

	if link != nil {
		if err := link.Disconnect(); err != nil {
			logging.Debug("Disconnect failed", zap.String("addr", m.device.Address), zap.Error(err))
		}
		logging.LogConnection(m.device.Address, "disconnected")
	}
	m.setState(Disconnected)
}

func (m *Manager) currentLink() gatt.Link {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.link
}

func (m *Manager) setState(s State) {
	m.stateMu.Lock()
	prev := m.state
	m.state = s
	m.stateMu.Unlock()

	if prev == s {
		return
	}
	logging.LogLinkState(m.device.Address, prev, s)
	if m.opts.OnState != nil {
		m.opts.OnState(s)
	}
}

func (m *Manager) emit(l transcript.Line) {
	if m.sink != nil {
		m.sink.Append(l)
	}
}

// lineBreaks escapes CR and LF so one notification stays one transcript row
var lineBreaks = strings.NewReplacer("\r", `\r`, "\n", `\n`)

// decode turns a payload into display text. Invalid UTF-8 is replaced and
// line breaks are shown escaped; nothing is trimmed.
func decode(payload []byte) string {
	return lineBreaks.Replace(strings.ToValidUTF8(string(payload), "\uFFFD"))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
