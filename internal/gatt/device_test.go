package gatt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeviceLabel(t *testing.T) {
	tests := []struct {
		name   string
		device Device
		want   string
	}{
		{"named", Device{Address: "AA:BB:CC:DD:EE:FF", Name: "NUS-A"}, "NUS-A"},
		{"unnamed", Device{Address: "AA:BB:CC:DD:EE:FF"}, "AA:BB:CC:DD:EE:FF"},
		{"blank name", Device{Address: "AA:BB:CC:DD:EE:FF", Name: "  "}, "AA:BB:CC:DD:EE:FF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.device.Label())
		})
	}
}

func TestCharacteristicLabel(t *testing.T) {
	c := Characteristic{UUID: NUSTXCharUUID, Handle: 14}
	assert.Equal(t, NUSTXCharUUID+" (Handle: 14): Nordic UART TX", c.Label())
	assert.True(t, strings.HasSuffix(c.Label(), "Nordic UART TX"))

	c = Characteristic{UUID: "12345678-1234-1234-1234-123456789abc", Handle: 3}
	assert.Equal(t, "12345678-1234-1234-1234-123456789abc (Handle: 3): Unknown", c.Label())

	c.Description = "Custom"
	c.Handle = -1
	assert.Equal(t, "12345678-1234-1234-1234-123456789abc: Custom", c.Label())
}

func TestServiceLabel(t *testing.T) {
	s := Service{UUID: NUSServiceUUID, Handle: 11}
	assert.Equal(t, NUSServiceUUID+" (Handle: 11): Nordic UART Service", s.Label())
}
