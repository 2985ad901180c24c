package ble

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/muurk/nusig/internal/gatt"
)

// BlueZ D-Bus names
const (
	bluezBus             = "org.bluez"
	deviceInterface      = "org.bluez.Device1"
	serviceInterface     = "org.bluez.GattService1"
	charInterface        = "org.bluez.GattCharacteristic1"
	propertiesInterface  = "org.freedesktop.DBus.Properties"
	objectManagerMethod  = "org.freedesktop.DBus.ObjectManager.GetManagedObjects"
	propertiesChanged    = "PropertiesChanged"
	propertiesChangedSig = propertiesInterface + "." + propertiesChanged
)

// DefaultAdapterName is the BlueZ controller used when none is configured
const DefaultAdapterName = "hci0"

// DefaultResolveTimeout bounds the wait for BlueZ to resolve services after
// a connect
const DefaultResolveTimeout = 20 * time.Second

// managedObjects is the GetManagedObjects reply
type managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// BlueZ opens links through the BlueZ daemon on the system bus
type BlueZ struct {
	conn    *dbus.Conn
	adapter string

	// ResolveTimeout bounds each connect; zero uses DefaultResolveTimeout
	ResolveTimeout time.Duration
	// PollInterval is the Connected/ServicesResolved polling cadence
	PollInterval time.Duration
}

// NewBlueZ connects to the system bus
func NewBlueZ(adapter string) (*BlueZ, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}
	if adapter == "" {
		adapter = DefaultAdapterName
	}
	return &BlueZ{
		conn:           conn,
		adapter:        adapter,
		ResolveTimeout: DefaultResolveTimeout,
		PollInterval:   200 * time.Millisecond,
	}, nil
}

// Connect opens a link to d and waits until its services are resolved
func (b *BlueZ) Connect(ctx context.Context, d gatt.Device) (gatt.Link, error) {
	l := newLink(b, d)
	if err := l.Reconnect(ctx); err != nil {
		l.stopDispatch()
		return nil, err
	}
	return l, nil
}

// devicePath maps an address to its BlueZ object path,
// e.g. /org/bluez/hci0/dev_C8_2E_18_00_11_22
func devicePath(adapter, address string) dbus.ObjectPath {
	return dbus.ObjectPath("/org/bluez/" + adapter + "/dev_" + strings.ReplaceAll(strings.ToUpper(address), ":", "_"))
}

// parseHandle reads the attribute handle BlueZ encodes in the last path
// element ("service000c", "char000d"); -1 when there is none
func parseHandle(path dbus.ObjectPath) int {
	s := string(path)
	last := s[strings.LastIndex(s, "/")+1:]
	for _, prefix := range []string{"service", "char", "desc"} {
		if strings.HasPrefix(last, prefix) {
			h, err := strconv.ParseUint(strings.TrimPrefix(last, prefix), 16, 16)
			if err != nil {
				return -1
			}
			return int(h)
		}
	}
	return -1
}

func stringProp(props map[string]dbus.Variant, name string) string {
	if v, ok := props[name]; ok {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	return ""
}

func normalizeOrRaw(u string) string {
	if n, err := gatt.NormalizeUUID(u); err == nil {
		return n
	}
	return strings.ToLower(u)
}

// buildServices assembles the GATT tree under devPath from a
// GetManagedObjects reply, ordered by handle
func buildServices(objects managedObjects, devPath dbus.ObjectPath, address string) []gatt.Service {
	prefix := string(devPath) + "/"
	byPath := make(map[dbus.ObjectPath]*gatt.Service)

	for path, ifaces := range objects {
		props, ok := ifaces[serviceInterface]
		if !ok || !strings.HasPrefix(string(path), prefix) {
			continue
		}
		u := normalizeOrRaw(stringProp(props, "UUID"))
		byPath[path] = &gatt.Service{
			ID:            string(path),
			Handle:        parseHandle(path),
			UUID:          u,
			Description:   gatt.KnownName(u),
			DeviceAddress: address,
		}
	}

	for path, ifaces := range objects {
		props, ok := ifaces[charInterface]
		if !ok || !strings.HasPrefix(string(path), prefix) {
			continue
		}
		var svcPath dbus.ObjectPath
		if v, ok := props["Service"]; ok {
			svcPath, _ = v.Value().(dbus.ObjectPath)
		}
		if svcPath == "" {
			svcPath = dbus.ObjectPath(string(path)[:strings.LastIndex(string(path), "/")])
		}
		svc, ok := byPath[svcPath]
		if !ok {
			continue
		}
		var flags []string
		if v, ok := props["Flags"]; ok {
			flags, _ = v.Value().([]string)
		}
		u := normalizeOrRaw(stringProp(props, "UUID"))
		svc.Characteristics = append(svc.Characteristics, gatt.Characteristic{
			ID:          string(path),
			Handle:      parseHandle(path),
			UUID:        u,
			Description: gatt.KnownName(u),
			ServiceID:   svc.ID,
			ServiceUUID: svc.UUID,
			Caps:        gatt.ParseCapabilities(flags),
		})
	}

	services := make([]gatt.Service, 0, len(byPath))
	for _, svc := range byPath {
		sort.Slice(svc.Characteristics, func(i, j int) bool {
			return svc.Characteristics[i].Handle < svc.Characteristics[j].Handle
		})
		services = append(services, *svc)
	}
	sort.Slice(services, func(i, j int) bool {
		if services[i].Handle != services[j].Handle {
			return services[i].Handle < services[j].Handle
		}
		return services[i].ID < services[j].ID
	})
	return services
}

// notificationValue extracts the new characteristic value from a
// PropertiesChanged signal
func notificationValue(sig *dbus.Signal) ([]byte, bool) {
	if sig == nil || sig.Name != propertiesChangedSig || len(sig.Body) < 2 {
		return nil, false
	}
	if iface, ok := sig.Body[0].(string); !ok || iface != charInterface {
		return nil, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return nil, false
	}
	v, ok := changed["Value"]
	if !ok {
		return nil, false
	}
	value, ok := v.Value().([]byte)
	return value, ok
}
