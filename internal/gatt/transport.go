package gatt

import "context"

// Transport discovers peripherals and opens links to them
type Transport interface {
	// Discover returns the devices seen so far. An empty result is not an
	// error; callers retry.
	Discover(ctx context.Context) ([]Device, error)

	// Connect opens a link to the device
	Connect(ctx context.Context, d Device) (Link, error)
}

// Link is a live connection to one device
type Link interface {
	// IsConnected reports whether the underlying connection is up
	IsConnected() bool

	// Reconnect re-establishes a dropped connection to the same device
	Reconnect(ctx context.Context) error

	// Services enumerates the device's services and their characteristics
	Services(ctx context.Context) ([]Service, error)

	// Subscribe registers fn for notifications on c. fn is called from the
	// transport's own goroutine.
	Subscribe(ctx context.Context, c Characteristic, fn func([]byte)) error

	// Unsubscribe cancels notifications on c
	Unsubscribe(ctx context.Context, c Characteristic) error

	// Read returns the current value of c
	Read(ctx context.Context, c Characteristic) ([]byte, error)

	// Write sends data to c, waiting for the peripheral's acknowledgement
	// when withResponse is set
	Write(ctx context.Context, c Characteristic, data []byte, withResponse bool) error

	// Disconnect tears down the connection
	Disconnect() error
}
