package ble

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/muurk/nusig/internal/gatt"
	"github.com/muurk/nusig/internal/logging"
)

// link is a gatt.Link to one BlueZ device object
type link struct {
	bluez   *BlueZ
	device  gatt.Device
	path    dbus.ObjectPath
	signals chan *dbus.Signal
	done    chan struct{}
	once    sync.Once

	objects func(dbus.ObjectPath) dbus.BusObject

	mu       sync.Mutex
	handlers map[dbus.ObjectPath]func([]byte)
}

func newLink(b *BlueZ, d gatt.Device) *link {
	l := &link{
		bluez:    b,
		device:   d,
		path:     devicePath(b.adapter, d.Address),
		signals:  make(chan *dbus.Signal, 64),
		done:     make(chan struct{}),
		handlers: make(map[dbus.ObjectPath]func([]byte)),
	}
	l.objects = func(path dbus.ObjectPath) dbus.BusObject {
		return b.conn.Object(bluezBus, path)
	}
	b.conn.Signal(l.signals)
	go l.dispatch()
	return l
}

func (l *link) object(path dbus.ObjectPath) dbus.BusObject {
	return l.objects(path)
}

// dispatch routes PropertiesChanged signals to the subscribed handlers
func (l *link) dispatch() {
	for {
		select {
		case <-l.done:
			return
		case sig, ok := <-l.signals:
			if !ok {
				return
			}
			value, ok := notificationValue(sig)
			if !ok {
				continue
			}
			l.mu.Lock()
			fn := l.handlers[sig.Path]
			l.mu.Unlock()
			if fn != nil {
				fn(value)
			}
		}
	}
}

func (l *link) stopDispatch() {
	l.once.Do(func() {
		close(l.done)
		l.bluez.conn.RemoveSignal(l.signals)
	})
}

func (l *link) boolProperty(name string) (bool, error) {
	v, err := l.object(l.path).GetProperty(deviceInterface + "." + name)
	if err != nil {
		return false, err
	}
	b, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("property %s is %T, not bool", name, v.Value())
	}
	return b, nil
}

// IsConnected implements gatt.Link
func (l *link) IsConnected() bool {
	connected, err := l.boolProperty("Connected")
	if err != nil {
		logging.Debug("Connected property unavailable", zap.String("device", l.device.Address), zap.Error(err))
		return false
	}
	return connected
}

// Reconnect implements gatt.Link. It returns once BlueZ reports the
// device connected with its services resolved.
func (l *link) Reconnect(ctx context.Context) error {
	timeout := l.bluez.ResolveTimeout
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logging.LogConnection(l.device.Address, "connecting")
	err := l.object(l.path).CallWithContext(ctx, deviceInterface+".Connect", 0).Err
	if err != nil && !isAlreadyConnected(err) {
		return fmt.Errorf("connect %s: %w", l.device.Address, err)
	}

	interval := l.bluez.PollInterval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		connected, _ := l.boolProperty("Connected")
		resolved, _ := l.boolProperty("ServicesResolved")
		if connected && resolved {
			logging.LogConnection(l.device.Address, "services resolved")
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("connect %s: waiting for services: %w", l.device.Address, ctx.Err())
		case <-ticker.C:
		}
	}
}

// isAlreadyConnected reports BlueZ errors that mean a connect is already
// done or underway
func isAlreadyConnected(err error) bool {
	var name string
	var byValue dbus.Error
	var byPtr *dbus.Error
	switch {
	case errors.As(err, &byValue):
		name = byValue.Name
	case errors.As(err, &byPtr):
		name = byPtr.Name
	}
	if name != "" {
		return name == "org.bluez.Error.AlreadyConnected" || name == "org.bluez.Error.InProgress"
	}
	msg := err.Error()
	return strings.Contains(msg, "AlreadyConnected") || strings.Contains(msg, "InProgress")
}

// Services implements gatt.Link
func (l *link) Services(ctx context.Context) ([]gatt.Service, error) {
	objects := make(managedObjects)
	if err := l.object("/").CallWithContext(ctx, objectManagerMethod, 0).Store(&objects); err != nil {
		return nil, fmt.Errorf("list GATT objects: %w", err)
	}
	return buildServices(objects, l.path, l.device.Address), nil
}

func matchOptions(path dbus.ObjectPath) []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(propertiesInterface),
		dbus.WithMatchMember(propertiesChanged),
	}
}

// Subscribe implements gatt.Link
func (l *link) Subscribe(ctx context.Context, c gatt.Characteristic, fn func([]byte)) error {
	path := dbus.ObjectPath(c.ID)
	if err := l.bluez.conn.AddMatchSignalContext(ctx, matchOptions(path)...); err != nil {
		return fmt.Errorf("watch %s: %w", c.UUID, err)
	}

	l.mu.Lock()
	l.handlers[path] = fn
	l.mu.Unlock()

	if err := l.object(path).CallWithContext(ctx, charInterface+".StartNotify", 0).Err; err != nil {
		l.forget(path)
		return fmt.Errorf("start notify on %s: %w", c.UUID, err)
	}
	return nil
}

func (l *link) forget(path dbus.ObjectPath) {
	l.mu.Lock()
	delete(l.handlers, path)
	l.mu.Unlock()
	if err := l.bluez.conn.RemoveMatchSignal(matchOptions(path)...); err != nil {
		logging.Debug("RemoveMatchSignal failed", zap.String("path", string(path)), zap.Error(err))
	}
}

// Unsubscribe implements gatt.Link. StopNotify failures are logged, not
// returned: the call is a best-effort cancel.
func (l *link) Unsubscribe(ctx context.Context, c gatt.Characteristic) error {
	path := dbus.ObjectPath(c.ID)
	l.mu.Lock()
	_, ok := l.handlers[path]
	l.mu.Unlock()
	if ok {
		l.forget(path)
	}

	// BlueZ may still hold a notify session opened by an earlier client,
	// so the call goes out even without a local handler.
	if err := l.object(path).CallWithContext(ctx, charInterface+".StopNotify", 0).Err; err != nil {
		logging.Debug("StopNotify failed",
			zap.String("uuid", c.UUID),
			zap.Bool("subscribed", ok),
			zap.Error(err),
		)
	}
	return nil
}

// Read implements gatt.Link
func (l *link) Read(ctx context.Context, c gatt.Characteristic) ([]byte, error) {
	var value []byte
	options := map[string]dbus.Variant{}
	if err := l.object(dbus.ObjectPath(c.ID)).CallWithContext(ctx, charInterface+".ReadValue", 0, options).Store(&value); err != nil {
		return nil, fmt.Errorf("read %s: %w", c.UUID, err)
	}
	return value, nil
}

// Write implements gatt.Link
func (l *link) Write(ctx context.Context, c gatt.Characteristic, data []byte, withResponse bool) error {
	writeType := "command"
	if withResponse {
		writeType = "request"
	}
	options := map[string]dbus.Variant{"type": dbus.MakeVariant(writeType)}
	if err := l.object(dbus.ObjectPath(c.ID)).CallWithContext(ctx, charInterface+".WriteValue", 0, data, options).Err; err != nil {
		return fmt.Errorf("write %s: %w", c.UUID, err)
	}
	logging.LogRawBytes("TX", data)
	return nil
}

// Disconnect implements gatt.Link. Notifications are stopped first; the
// device disconnect error, if any, is returned.
func (l *link) Disconnect() error {
	l.mu.Lock()
	paths := make([]dbus.ObjectPath, 0, len(l.handlers))
	for p := range l.handlers {
		paths = append(paths, p)
	}
	l.mu.Unlock()

	for _, p := range paths {
		l.forget(p)
		if err := l.object(p).Call(charInterface+".StopNotify", 0).Err; err != nil {
			logging.Debug("StopNotify failed", zap.String("path", string(p)), zap.Error(err))
		}
	}
	l.stopDispatch()

	logging.LogConnection(l.device.Address, "disconnecting")
	if err := l.object(l.path).Call(deviceInterface+".Disconnect", 0).Err; err != nil {
		return fmt.Errorf("disconnect %s: %w", l.device.Address, err)
	}
	return nil
}
