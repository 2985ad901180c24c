package ble

import (
	"context"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/muurk/nusig/internal/gatt"
)

// Transport combines the tinygo scanner with BlueZ links
type Transport struct {
	Scanner *Scanner
	BlueZ   *BlueZ
}

var _ gatt.Transport = (*Transport)(nil)

// Options configures Open
type Options struct {
	// Adapter is the BlueZ controller name, e.g. "hci0"
	Adapter string
	// ScanWindow is the length of one discovery pass
	ScanWindow time.Duration
	// ConnectTimeout bounds connect plus service resolution
	ConnectTimeout time.Duration
}

// Open returns a transport on the default Bluetooth adapter
func Open(opts Options) (*Transport, error) {
	bz, err := NewBlueZ(opts.Adapter)
	if err != nil {
		return nil, err
	}
	if opts.ConnectTimeout > 0 {
		bz.ResolveTimeout = opts.ConnectTimeout
	}

	sc := NewScanner(bluetooth.DefaultAdapter)
	if opts.ScanWindow > 0 {
		sc.Window = opts.ScanWindow
	}
	return &Transport{Scanner: sc, BlueZ: bz}, nil
}

// Discover implements gatt.Transport
func (t *Transport) Discover(ctx context.Context) ([]gatt.Device, error) {
	return t.Scanner.Discover(ctx)
}

// Connect implements gatt.Transport
func (t *Transport) Connect(ctx context.Context, d gatt.Device) (gatt.Link, error) {
	return t.BlueZ.Connect(ctx, d)
}
