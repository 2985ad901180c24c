package gatt

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// baseUUIDSuffix completes 16- and 32-bit assigned numbers into the
// Bluetooth base UUID 0000xxxx-0000-1000-8000-00805f9b34fb.
const baseUUIDSuffix = "-0000-1000-8000-00805f9b34fb"

// Nordic UART Service UUIDs
const (
	NUSServiceUUID = "6e400001-b5a3-f393-e0a9-e50e24dcca9e"
	NUSRXCharUUID  = "6e400002-b5a3-f393-e0a9-e50e24dcca9e"
	NUSTXCharUUID  = "6e400003-b5a3-f393-e0a9-e50e24dcca9e"
)

// knownNames maps normalised UUIDs to well-known descriptions
var knownNames = map[string]string{
	NUSServiceUUID: "Nordic UART Service",
	NUSRXCharUUID:  "Nordic UART RX",
	NUSTXCharUUID:  "Nordic UART TX",

	"00001800" + baseUUIDSuffix: "Generic Access Profile",
	"00001801" + baseUUIDSuffix: "Generic Attribute Profile",
	"0000180a" + baseUUIDSuffix: "Device Information",
	"0000180f" + baseUUIDSuffix: "Battery Service",
	"00002a00" + baseUUIDSuffix: "Device Name",
	"00002a01" + baseUUIDSuffix: "Appearance",
	"00002a04" + baseUUIDSuffix: "Peripheral Preferred Connection Parameters",
	"00002a05" + baseUUIDSuffix: "Service Changed",
	"00002a19" + baseUUIDSuffix: "Battery Level",
	"00002a24" + baseUUIDSuffix: "Model Number String",
	"00002a25" + baseUUIDSuffix: "Serial Number String",
	"00002a26" + baseUUIDSuffix: "Firmware Revision String",
	"00002a27" + baseUUIDSuffix: "Hardware Revision String",
	"00002a28" + baseUUIDSuffix: "Software Revision String",
	"00002a29" + baseUUIDSuffix: "Manufacturer Name String",
}

// NormalizeUUID returns the canonical lower-case 128-bit form of s.
// Short 16-bit ("180f", "0x180F") and 32-bit forms are expanded onto the
// Bluetooth base UUID.
func NormalizeUUID(s string) (string, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	raw = strings.TrimPrefix(raw, "0x")

	switch len(raw) {
	case 4:
		raw = "0000" + raw + baseUUIDSuffix
	case 8:
		raw = raw + baseUUIDSuffix
	}

	u, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid UUID %q: %w", s, err)
	}
	return u.String(), nil
}

// SameUUID reports whether a and b denote the same UUID in any accepted form
func SameUUID(a, b string) bool {
	na, err := NormalizeUUID(a)
	if err != nil {
		return false
	}
	nb, err := NormalizeUUID(b)
	if err != nil {
		return false
	}
	return na == nb
}

// KnownName returns the well-known description for a UUID, or "" if none
func KnownName(u string) string {
	n, err := NormalizeUUID(u)
	if err != nil {
		return ""
	}
	return knownNames[n]
}
