package catalog

import (
	"fmt"
	"strings"

	"github.com/muurk/nusig/internal/gatt"
)

// Resolve builds session settings without the wizard, for the console
// command. Characteristics are matched by UUID in any accepted form; an
// empty UUID list falls back to the stage's default suffix. A UUID given
// twice, in any form, selects its characteristic once. Only services
// owning a chosen characteristic are selected.
func Resolve(d gatt.Device, services []gatt.Service, rxUUIDs, txUUIDs []string, defaults Defaults) (gatt.SessionSettings, error) {
	rxAll, txAll := Classify(services)

	rx, err := pick("Rx", rxAll, rxUUIDs, defaults.Rx)
	if err != nil {
		return gatt.SessionSettings{}, err
	}
	tx, err := pick("Tx", txAll, txUUIDs, defaults.Tx)
	if err != nil {
		return gatt.SessionSettings{}, err
	}

	used := make(map[string]bool)
	for _, c := range append(append([]gatt.Characteristic(nil), rx...), tx...) {
		used[c.ServiceID] = true
	}
	var selected []gatt.Service
	for _, s := range services {
		if used[s.ID] {
			selected = append(selected, s)
		}
	}

	return gatt.NewSessionSettings(d, selected, rx, tx)
}

func pick(slot string, candidates []gatt.Characteristic, uuids []string, suffix string) ([]gatt.Characteristic, error) {
	if len(uuids) == 0 {
		var out []gatt.Characteristic
		for _, c := range candidates {
			if suffix != "" && strings.HasSuffix(c.Label(), suffix) {
				out = append(out, c)
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("no %s characteristic matches %q; pass UUIDs explicitly", slot, suffix)
		}
		return out, nil
	}

	out := make([]gatt.Characteristic, 0, len(uuids))
	seen := make(map[string]bool, len(uuids))
	for _, u := range uuids {
		found := false
		for _, c := range candidates {
			if gatt.SameUUID(c.UUID, u) {
				if !seen[c.ID] {
					seen[c.ID] = true
					out = append(out, c)
				}
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("no %s-capable characteristic with UUID %s", slot, u)
		}
	}
	return out, nil
}
