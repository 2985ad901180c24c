// Package gatttest provides an in-memory gatt.Transport for tests.
package gatttest

import (
	"context"
	"errors"
	"sync"

	"github.com/muurk/nusig/internal/gatt"
)

// ErrNotConnected is returned by link operations after Drop or Disconnect
var ErrNotConnected = errors.New("not connected")

// Write records one write delivered to a peripheral
type Write struct {
	CharID       string
	Data         []byte
	WithResponse bool
}

// Peripheral is a scripted remote device
type Peripheral struct {
	Device   gatt.Device
	Services []gatt.Service

	mu            sync.Mutex
	emptyServices int
	servicesCalls int
	subscribeErr  map[string]error
	readErr       map[string]error
	writeErr      map[string]error
	values        map[string][]byte
	subs          map[string]func([]byte)
	unsubscribes  []string
	writes        []Write
}

// NewPeripheral creates a peripheral. The services' DeviceAddress and the
// characteristics' ServiceID/ServiceUUID are filled in.
func NewPeripheral(d gatt.Device, services ...gatt.Service) *Peripheral {
	for i := range services {
		services[i].DeviceAddress = d.Address
		for j := range services[i].Characteristics {
			services[i].Characteristics[j].ServiceID = services[i].ID
			services[i].Characteristics[j].ServiceUUID = services[i].UUID
		}
	}
	return &Peripheral{
		Device:       d,
		Services:     services,
		subscribeErr: make(map[string]error),
		readErr:      make(map[string]error),
		writeErr:     make(map[string]error),
		values:       make(map[string][]byte),
		subs:         make(map[string]func([]byte)),
	}
}

// Char returns the characteristic with the given ID
func (p *Peripheral) Char(id string) gatt.Characteristic {
	for _, s := range p.Services {
		for _, c := range s.Characteristics {
			if c.ID == id {
				return c
			}
		}
	}
	return gatt.Characteristic{}
}

// EmptyServices makes the next n service enumerations return nothing
func (p *Peripheral) EmptyServices(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emptyServices = n
}

// ServicesCalls returns how many times services were enumerated
func (p *Peripheral) ServicesCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.servicesCalls
}

// FailSubscribe makes subscriptions to charID fail with err
func (p *Peripheral) FailSubscribe(charID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribeErr[charID] = err
}

// FailRead makes reads of charID fail with err
func (p *Peripheral) FailRead(charID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readErr[charID] = err
}

// FailWrite makes writes to charID fail with err
func (p *Peripheral) FailWrite(charID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr[charID] = err
}

// SetValue sets the value returned by reads of charID
func (p *Peripheral) SetValue(charID string, value []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[charID] = value
}

// Notify delivers a notification on charID. It reports false when nothing
// is subscribed.
func (p *Peripheral) Notify(charID string, data []byte) bool {
	p.mu.Lock()
	fn := p.subs[charID]
	p.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(data)
	return true
}

// Subscribed reports whether charID currently has a subscription
func (p *Peripheral) Subscribed(charID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subs[charID] != nil
}

// Unsubscribes returns the IDs passed to Unsubscribe, in order
func (p *Peripheral) Unsubscribes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.unsubscribes...)
}

// Writes returns every write received, in order
func (p *Peripheral) Writes() []Write {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Write(nil), p.writes...)
}

// Transport is an in-memory gatt.Transport
type Transport struct {
	mu          sync.Mutex
	peripherals []*Peripheral
	rounds      [][]gatt.Device
	discoverErr []error
	discovers   int
	connectErr  []error
	connects    int
	last        *Link
}

// NewTransport creates a transport serving the given peripherals
func NewTransport(peripherals ...*Peripheral) *Transport {
	return &Transport{peripherals: peripherals}
}

// ScriptDiscovery sets the results of successive Discover calls. The last
// round repeats.
func (t *Transport) ScriptDiscovery(rounds ...[]gatt.Device) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rounds = rounds
}

// FailDiscover makes the next Discover calls fail, one error per call
func (t *Transport) FailDiscover(errs ...error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.discoverErr = append(t.discoverErr, errs...)
}

// FailConnect makes the next connection attempts fail, one error per
// attempt. Reconnects consume the same queue.
func (t *Transport) FailConnect(errs ...error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connectErr = append(t.connectErr, errs...)
}

// Discovers returns the number of Discover calls
func (t *Transport) Discovers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.discovers
}

// Connects returns the number of connect and reconnect attempts
func (t *Transport) Connects() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connects
}

// LastLink returns the most recently opened link
func (t *Transport) LastLink() *Link {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Discover implements gatt.Transport
func (t *Transport) Discover(ctx context.Context) ([]gatt.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	call := t.discovers
	t.discovers++

	if len(t.discoverErr) > 0 {
		err := t.discoverErr[0]
		t.discoverErr = t.discoverErr[1:]
		return nil, err
	}

	if len(t.rounds) > 0 {
		if call >= len(t.rounds) {
			call = len(t.rounds) - 1
		}
		return append([]gatt.Device(nil), t.rounds[call]...), nil
	}

	devices := make([]gatt.Device, 0, len(t.peripherals))
	for _, p := range t.peripherals {
		devices = append(devices, p.Device)
	}
	return devices, nil
}

// Connect implements gatt.Transport
func (t *Transport) Connect(ctx context.Context, d gatt.Device) (gatt.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := t.attempt(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range t.peripherals {
		if p.Device.Address == d.Address {
			l := &Link{transport: t, p: p, connected: true}
			t.last = l
			return l, nil
		}
	}
	return nil, errors.New("device not found: " + d.Address)
}

func (t *Transport) attempt() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connects++
	if len(t.connectErr) > 0 {
		err := t.connectErr[0]
		t.connectErr = t.connectErr[1:]
		return err
	}
	return nil
}

// Link is an in-memory gatt.Link
type Link struct {
	transport *Transport
	p         *Peripheral

	mu          sync.Mutex
	connected   bool
	disconnects int
}

// Drop simulates the peripheral going out of range
func (l *Link) Drop() {
	l.mu.Lock()
	l.connected = false
	l.mu.Unlock()

	l.p.mu.Lock()
	l.p.subs = make(map[string]func([]byte))
	l.p.mu.Unlock()
}

// Disconnects returns the number of Disconnect calls
func (l *Link) Disconnects() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.disconnects
}

// IsConnected implements gatt.Link
func (l *Link) IsConnected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

// Reconnect implements gatt.Link
func (l *Link) Reconnect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.transport.attempt(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = true
	return nil
}

// Services implements gatt.Link
func (l *Link) Services(ctx context.Context) ([]gatt.Service, error) {
	if err := l.check(ctx); err != nil {
		return nil, err
	}
	l.p.mu.Lock()
	defer l.p.mu.Unlock()
	l.p.servicesCalls++
	if l.p.emptyServices > 0 {
		l.p.emptyServices--
		return nil, nil
	}
	return append([]gatt.Service(nil), l.p.Services...), nil
}

// Subscribe implements gatt.Link
func (l *Link) Subscribe(ctx context.Context, c gatt.Characteristic, fn func([]byte)) error {
	if err := l.check(ctx); err != nil {
		return err
	}
	l.p.mu.Lock()
	defer l.p.mu.Unlock()
	if err := l.p.subscribeErr[c.ID]; err != nil {
		return err
	}
	l.p.subs[c.ID] = fn
	return nil
}

// Unsubscribe implements gatt.Link
func (l *Link) Unsubscribe(ctx context.Context, c gatt.Characteristic) error {
	if err := l.check(ctx); err != nil {
		return err
	}
	l.p.mu.Lock()
	defer l.p.mu.Unlock()
	l.p.unsubscribes = append(l.p.unsubscribes, c.ID)
	if l.p.subs[c.ID] == nil {
		return errors.New("no notification session")
	}
	delete(l.p.subs, c.ID)
	return nil
}

// Read implements gatt.Link
func (l *Link) Read(ctx context.Context, c gatt.Characteristic) ([]byte, error) {
	if err := l.check(ctx); err != nil {
		return nil, err
	}
	l.p.mu.Lock()
	defer l.p.mu.Unlock()
	if err := l.p.readErr[c.ID]; err != nil {
		return nil, err
	}
	return append([]byte(nil), l.p.values[c.ID]...), nil
}

// Write implements gatt.Link
func (l *Link) Write(ctx context.Context, c gatt.Characteristic, data []byte, withResponse bool) error {
	if err := l.check(ctx); err != nil {
		return err
	}
	l.p.mu.Lock()
	defer l.p.mu.Unlock()
	if err := l.p.writeErr[c.ID]; err != nil {
		return err
	}
	l.p.writes = append(l.p.writes, Write{
		CharID:       c.ID,
		Data:         append([]byte(nil), data...),
		WithResponse: withResponse,
	})
	return nil
}

// Disconnect implements gatt.Link
func (l *Link) Disconnect() error {
	l.mu.Lock()
	l.disconnects++
	wasConnected := l.connected
	l.connected = false
	l.mu.Unlock()

	l.p.mu.Lock()
	l.p.subs = make(map[string]func([]byte))
	l.p.mu.Unlock()

	if !wasConnected {
		return ErrNotConnected
	}
	return nil
}

func (l *Link) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !l.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

var (
	_ gatt.Transport = (*Transport)(nil)
	_ gatt.Link      = (*Link)(nil)
)
