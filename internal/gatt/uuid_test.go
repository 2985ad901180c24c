package gatt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUUID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"180f", "0000180f-0000-1000-8000-00805f9b34fb", false},
		{"0x2A19", "00002a19-0000-1000-8000-00805f9b34fb", false},
		{"0000180A", "0000180a-0000-1000-8000-00805f9b34fb", false},
		{"6E400001-B5A3-F393-E0A9-E50E24DCCA9E", NUSServiceUUID, false},
		{"6e400001b5a3f393e0a9e50e24dcca9e", NUSServiceUUID, false},
		{"not-a-uuid", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeUUID(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKnownName(t *testing.T) {
	assert.Equal(t, "Nordic UART Service", KnownName("6E400001-B5A3-F393-E0A9-E50E24DCCA9E"))
	assert.Equal(t, "Battery Level", KnownName("2a19"))
	assert.Equal(t, "", KnownName("ffff"))
	assert.Equal(t, "", KnownName("garbage"))
}

func TestSameUUID(t *testing.T) {
	assert.True(t, SameUUID("180f", "0000180F-0000-1000-8000-00805F9B34FB"))
	assert.False(t, SameUUID("180f", "180a"))
	assert.False(t, SameUUID("garbage", "garbage"))
}
