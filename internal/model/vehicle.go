package model

import (
	"fmt"
	"strings"
)

// VehicleType is the closed set of vehicle classes a slot can accept.  The
// canonical form is lowercase; ParseVehicleType accepts any casing so that
// clients sending "Car" keep working.
type VehicleType string

const (
	VehicleCar   VehicleType = "car"
	VehicleBike  VehicleType = "bike"
	VehicleTruck VehicleType = "truck"
)

// VehicleTypes lists every supported type in display order.
var VehicleTypes = []VehicleType{VehicleCar, VehicleBike, VehicleTruck}

// ParseVehicleType normalizes raw input into a VehicleType.
func ParseVehicleType(raw string) (VehicleType, error) {
	switch vt := VehicleType(strings.ToLower(strings.TrimSpace(raw))); vt {
	case VehicleCar, VehicleBike, VehicleTruck:
		return vt, nil
	}
	return "", fmt.Errorf("unknown vehicle type %q", raw)
}

func (v VehicleType) Valid() bool {
	_, err := ParseVehicleType(string(v))
	return err == nil
}
