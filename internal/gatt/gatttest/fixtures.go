package gatttest

import "github.com/muurk/nusig/internal/gatt"

// Characteristic IDs used by NewNUS
const (
	NUSServiceID = "service000c"
	NUSNotifyID  = "service000c/char000d"
	NUSWriteID   = "service000c/char0010"
)

// NewNUS returns a peripheral exposing a Nordic UART Service with one
// notify characteristic (the peripheral's TX) and one write characteristic
// (the peripheral's RX).
func NewNUS(name, address string) *Peripheral {
	return NewPeripheral(
		gatt.Device{Address: address, Name: name},
		gatt.Service{
			ID:          NUSServiceID,
			Handle:      12,
			UUID:        gatt.NUSServiceUUID,
			Description: "Nordic UART Service",
			Characteristics: []gatt.Characteristic{
				{ID: NUSNotifyID, Handle: 13, UUID: gatt.NUSTXCharUUID, Description: "Nordic UART TX", Caps: gatt.CapNotify},
				{ID: NUSWriteID, Handle: 16, UUID: gatt.NUSRXCharUUID, Description: "Nordic UART RX", Caps: gatt.CapWrite | gatt.CapWriteWithoutResponse},
			},
		},
	)
}
