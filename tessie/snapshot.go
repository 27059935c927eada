package tessie

import (
	"math"

	"github.com/ezuidema/chargeplan-go/types"
)

// A delta of 0.001 degrees is roughly 100 meters.
const homeTolerance = 0.001

// Snapshot converts a raw API state into the planner's view of the
// vehicle, resolving "at home" against the configured home position.
func Snapshot(name string, s State, homeLat, homeLon float64) types.VehicleState {
	return types.VehicleState{
		Name:        firstNonEmpty(s.DisplayName, name),
		SoC:         s.ChargeState.BatteryLevel,
		ChargeLimit: s.ChargeState.ChargeLimitSoc,
		Home: math.Abs(s.DriveState.Latitude-homeLat) <= homeTolerance &&
			math.Abs(s.DriveState.Longitude-homeLon) <= homeTolerance,
		PluggedIn: s.ChargeState.ChargePort == "Engaged",
		Charging:  s.ChargeState.ChargeRate > 0,
		Latitude:  s.DriveState.Latitude,
		Longitude: s.DriveState.Longitude,
		LastSeen:  s.LastSeen(),
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
