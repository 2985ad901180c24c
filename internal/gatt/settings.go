package gatt

import (
	"errors"
	"fmt"
)

// SessionSettings is the frozen selection handed from the wizard to the
// console: one device, its selected services and the Rx/Tx characteristics
// drawn from those services. The zero value is empty and invalid.
type SessionSettings struct {
	device   Device
	services []Service
	rx       []Characteristic
	tx       []Characteristic
}

// NewSessionSettings builds validated settings. The slices are copied.
func NewSessionSettings(d Device, services []Service, rx, tx []Characteristic) (SessionSettings, error) {
	s := SessionSettings{
		device:   d,
		services: append([]Service(nil), services...),
		rx:       append([]Characteristic(nil), rx...),
		tx:       append([]Characteristic(nil), tx...),
	}
	if err := s.Validate(); err != nil {
		return SessionSettings{}, err
	}
	return s, nil
}

// Device returns the selected device
func (s SessionSettings) Device() Device { return s.device }

// Services returns a copy of the selected services
func (s SessionSettings) Services() []Service { return append([]Service(nil), s.services...) }

// Rx returns a copy of the selected Rx characteristics
func (s SessionSettings) Rx() []Characteristic { return append([]Characteristic(nil), s.rx...) }

// Tx returns a copy of the selected Tx characteristics
func (s SessionSettings) Tx() []Characteristic { return append([]Characteristic(nil), s.tx...) }

// Validate checks the ownership invariants: services belong to the device
// and Rx/Tx characteristics belong to the selected services. A
// characteristic appears at most once per slot.
func (s SessionSettings) Validate() error {
	if s.device.Address == "" {
		return errors.New("session settings: no device selected")
	}

	owned := make(map[string]map[string]bool, len(s.services))
	for _, svc := range s.services {
		if svc.DeviceAddress != s.device.Address {
			return fmt.Errorf("session settings: service %s belongs to %q, not %q",
				svc.UUID, svc.DeviceAddress, s.device.Address)
		}
		chars := make(map[string]bool, len(svc.Characteristics))
		for _, c := range svc.Characteristics {
			chars[c.ID] = true
		}
		owned[svc.ID] = chars
	}

	check := func(slot string, list []Characteristic) error {
		seen := make(map[string]bool, len(list))
		for i, c := range list {
			chars, ok := owned[c.ServiceID]
			if !ok || !chars[c.ID] {
				return fmt.Errorf("session settings: %s%d (%s) is not part of a selected service", slot, i, c.UUID)
			}
			if seen[c.ID] {
				return fmt.Errorf("session settings: %s%d (%s) is selected twice", slot, i, c.UUID)
			}
			seen[c.ID] = true
		}
		return nil
	}
	if err := check("Rx", s.rx); err != nil {
		return err
	}
	return check("Tx", s.tx)
}
