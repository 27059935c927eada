package types

import (
	"context"
	"time"
)

// VehicleState is an immutable snapshot of the vehicle, fetched fresh
// every run. Only the remote vehicle API mutates the underlying state.
type VehicleState struct {
	Name        string
	SoC         int // Current battery level in percent
	ChargeLimit int // Currently configured charge limit in percent
	Home        bool
	PluggedIn   bool
	Charging    bool
	Latitude    float64
	Longitude   float64
	LastSeen    time.Time
}

// VehicleController is the write side of the vehicle API.
type VehicleController interface {
	SetChargeLimit(ctx context.Context, percent int) error
	StartCharging(ctx context.Context) error
	StopCharging(ctx context.Context) error
}

// DistanceLookup resolves the driving distance from an origin to a
// free-form destination string.
type DistanceLookup interface {
	// Distance returns the one-way driving distance in km and the travel
	// duration. An unresolvable destination yields an error.
	Distance(ctx context.Context, originLat, originLon float64, destination string) (km float64, travel time.Duration, err error)
}
