package gatt

import (
	"fmt"
	"strings"
)

// Device represents a discovered Bluetooth LE peripheral
type Device struct {
	// Address is the peripheral address (e.g., "C8:2E:18:00:11:22").
	// On macOS this is a CoreBluetooth UUID instead of a MAC.
	Address string

	// Name is the advertised local name, empty when none was seen
	Name string

	// RSSI is the signal strength of the last advertisement, 0 when unknown
	RSSI int
}

// Named reports whether the device advertised a local name
func (d Device) Named() bool {
	return strings.TrimSpace(d.Name) != ""
}

// Label returns the name if present, else the address
func (d Device) Label() string {
	if d.Named() {
		return d.Name
	}
	return d.Address
}

// String returns a human-readable string representation of the device
func (d Device) String() string {
	if d.Named() {
		return fmt.Sprintf("%s (%s)", d.Name, d.Address)
	}
	return d.Address
}

// Service is a GATT service exposed by exactly one device
type Service struct {
	// ID is the stable identity assigned by the transport (object path or handle)
	ID string

	// Handle is the attribute handle, -1 when the transport does not expose one
	Handle int

	// UUID is the normalised 128-bit service UUID
	UUID string

	// Description is the well-known name, empty when unknown
	Description string

	// DeviceAddress identifies the owning device
	DeviceAddress string

	// Characteristics are the service's characteristics in handle order
	Characteristics []Characteristic
}

// DisplayName returns the description, falling back to the well-known name
// table and finally to "Unknown".
func (s Service) DisplayName() string {
	return displayName(s.Description, s.UUID)
}

// Label renders the service as "<uuid> (Handle: N): <Description>"
func (s Service) Label() string {
	return label(s.UUID, s.Handle, s.DisplayName())
}

// Characteristic is a GATT characteristic belonging to exactly one service
type Characteristic struct {
	// ID is the stable identity used to route notifications
	ID string

	// Handle is the attribute handle, -1 when unknown
	Handle int

	// UUID is the normalised 128-bit characteristic UUID
	UUID string

	// Description is the well-known name, empty when unknown
	Description string

	// ServiceID identifies the owning service
	ServiceID string

	// ServiceUUID is the owning service's UUID
	ServiceUUID string

	// Caps is the set of GATT properties the characteristic supports
	Caps Capability
}

// DisplayName returns the description, falling back to the well-known name
// table and finally to "Unknown".
func (c Characteristic) DisplayName() string {
	return displayName(c.Description, c.UUID)
}

// Label renders the characteristic as "<uuid> (Handle: N): <Description>"
func (c Characteristic) Label() string {
	return label(c.UUID, c.Handle, c.DisplayName())
}

// IsRx reports whether the characteristic can deliver inbound data
func (c Characteristic) IsRx() bool {
	return c.Caps.Has(RxCaps)
}

// IsTx reports whether the characteristic accepts outbound data
func (c Characteristic) IsTx() bool {
	return c.Caps.Has(TxCaps)
}

func displayName(description, uuid string) string {
	if description != "" {
		return description
	}
	if name := KnownName(uuid); name != "" {
		return name
	}
	return "Unknown"
}

func label(uuid string, handle int, name string) string {
	if handle < 0 {
		return fmt.Sprintf("%s: %s", uuid, name)
	}
	return fmt.Sprintf("%s (Handle: %d): %s", uuid, handle, name)
}
