// Package layout describes how the slot registry is provisioned.  A layout
// is a list of groups, each expanding to a run of numbered slots on one
// floor for one vehicle type.
package layout

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
)

// Group expands to Count slots named <Prefix>-01, <Prefix>-02, ...
type Group struct {
	Prefix      string `toml:"prefix"`
	Floor       int    `toml:"floor"`
	VehicleType string `toml:"vehicle_type"`
	Count       int    `toml:"count"`
}

// Layout is the top level of the layout file.
type Layout struct {
	Groups []Group `toml:"group"`
}

// Default is the reference car park: two car floors, bikes and trucks on
// the ground floor.
func Default() Layout {
	return Layout{Groups: []Group{
		{Prefix: "C1", Floor: 1, VehicleType: "car", Count: 20},
		{Prefix: "C2", Floor: 2, VehicleType: "car", Count: 20},
		{Prefix: "B1", Floor: 1, VehicleType: "bike", Count: 30},
		{Prefix: "T1", Floor: 1, VehicleType: "truck", Count: 10},
	}}
}

// Load reads a TOML layout file.  A missing file yields the default layout.
func Load(path string) (Layout, error) {
	var l Layout
	_, err := toml.DecodeFile(path, &l)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Layout{}, fmt.Errorf("decode layout %s: %w", path, err)
	}
	return l, nil
}

// Slots validates the layout and expands it.  Slot codes must be unique
// across groups.
func (l Layout) Slots() ([]model.Slot, error) {
	if len(l.Groups) == 0 {
		return nil, errors.New("layout has no groups")
	}
	seen := make(map[string]bool)
	var out []model.Slot
	for i, g := range l.Groups {
		prefix := strings.TrimSpace(g.Prefix)
		if prefix == "" {
			return nil, fmt.Errorf("group %d: prefix is required", i)
		}
		vt, err := model.ParseVehicleType(g.VehicleType)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", prefix, err)
		}
		if g.Count < 1 || g.Count > 999 {
			return nil, fmt.Errorf("group %s: count must be between 1 and 999", prefix)
		}
		for n := 1; n <= g.Count; n++ {
			code := fmt.Sprintf("%s-%02d", prefix, n)
			if seen[code] {
				return nil, fmt.Errorf("duplicate slot code %s", code)
			}
			seen[code] = true
			out = append(out, model.Slot{Code: code, Floor: g.Floor, VehicleType: vt, IsAvailable: true})
		}
	}
	return out, nil
}
