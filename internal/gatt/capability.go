package gatt

import "strings"

// Capability is a bit set of GATT characteristic properties
type Capability uint16

const (
	CapBroadcast Capability = 1 << iota
	CapRead
	CapWriteWithoutResponse
	CapWrite
	CapNotify
	CapIndicate
	CapAuthenticatedSignedWrites
	CapExtendedProperties
)

const (
	// RxCaps are the properties that qualify a characteristic as an Rx
	// candidate. Indicate alone does not qualify.
	RxCaps = CapNotify | CapRead

	// TxCaps are the properties that qualify a characteristic as a Tx candidate
	TxCaps = CapWrite | CapWriteWithoutResponse
)

// capabilityNames maps BlueZ flag strings to capability bits, in bit order
var capabilityNames = []struct {
	name string
	cap  Capability
}{
	{"broadcast", CapBroadcast},
	{"read", CapRead},
	{"write-without-response", CapWriteWithoutResponse},
	{"write", CapWrite},
	{"notify", CapNotify},
	{"indicate", CapIndicate},
	{"authenticated-signed-writes", CapAuthenticatedSignedWrites},
	{"extended-properties", CapExtendedProperties},
}

// ParseCapabilities converts property names as reported by BlueZ
// ("read", "write-without-response", ...) into a Capability set.
// Unrecognised names (e.g. "reliable-write") are ignored.
func ParseCapabilities(flags []string) Capability {
	var c Capability
	for _, f := range flags {
		f = strings.ToLower(strings.TrimSpace(f))
		for _, n := range capabilityNames {
			if n.name == f {
				c |= n.cap
				break
			}
		}
	}
	return c
}

// Has reports whether c shares at least one bit with mask
func (c Capability) Has(mask Capability) bool {
	return c&mask != 0
}

// Names returns the property names set in c, in bit order
func (c Capability) Names() []string {
	names := make([]string, 0, len(capabilityNames))
	for _, n := range capabilityNames {
		if c&n.cap != 0 {
			names = append(names, n.name)
		}
	}
	return names
}

// String returns the comma separated property names
func (c Capability) String() string {
	return strings.Join(c.Names(), ",")
}
