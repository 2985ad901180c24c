package mirror

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Endpoint is a mirror found on the local network
type Endpoint struct {
	// Instance is the advertised mDNS instance name
	Instance string

	// Hostname is the mDNS hostname of the publishing machine
	Hostname string

	// IP is the address to dial, IPv4 when one was advertised
	IP string

	Port int

	// Metadata contains the TXT records: path, device, name
	Metadata map[string]string

	DiscoveredAt time.Time
}

// String returns a human-readable description of the endpoint
func (e *Endpoint) String() string {
	name := e.GetMetadata("name")
	if name == "" {
		name = e.GetMetadata("device")
	}
	if name == "" {
		return fmt.Sprintf("%s at %s", e.Instance, e.hostPort())
	}
	return fmt.Sprintf("%s (%s) at %s", e.Instance, name, e.hostPort())
}

// URL returns the WebSocket URL of the transcript
func (e *Endpoint) URL() string {
	path := e.GetMetadata("path")
	if path == "" {
		path = Path
	}
	return "ws://" + e.hostPort() + path
}

// GetMetadata retrieves a TXT value by key, or returns empty string if not found
func (e *Endpoint) GetMetadata(key string) string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata[key]
}

func (e *Endpoint) hostPort() string {
	return net.JoinHostPort(e.IP, strconv.Itoa(e.Port))
}
