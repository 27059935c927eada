// Prints the charge obligations derived from the calendar for one
// configured vehicle, without touching the vehicle or the inverter.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"

	"github.com/ezuidema/chargeplan-go/config"
	"github.com/ezuidema/chargeplan-go/gcal"
	"github.com/ezuidema/chargeplan-go/gmaps"
	"github.com/ezuidema/chargeplan-go/trip"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to ini config file, default config.ini")
	vehicleName := pflag.StringP("vehicle", "v", "", "configured vehicle name, default the first one")
	pflag.Parse()

	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.RFC3339,
	}))
	slog.SetDefault(logger)

	cnfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	name := *vehicleName
	if name == "" {
		for n := range cnfg.Vehicles {
			name = n
			break
		}
	}
	vcnfg, ok := cnfg.Vehicles[name]
	if !ok {
		panic(fmt.Sprintf("vehicle %q is not configured", name))
	}

	ctx := context.Background()
	events, err := gcal.New(cnfg.Calendar.AccessToken).
		UpcomingEvents(ctx, cnfg.Calendar.Name, 48*time.Hour, 10)
	if err != nil {
		panic(err)
	}

	extractor := trip.NewExtractor(logger, gmaps.New(cnfg.Directions.MapsApiKey))
	obligations := extractor.Extract(ctx, events, trip.Spec{
		HomeLat:          vcnfg.HomeLat,
		HomeLon:          vcnfg.HomeLon,
		KwhPerKm:         vcnfg.KwhPerKm,
		BatteryCapacity:  vcnfg.BatteryCapacity,
		ReturningPercent: vcnfg.GetChargeReturning(),
		MinimumPercent:   vcnfg.GetChargeMinimum(),
	})

	for _, o := range obligations {
		fmt.Printf("%s  depart %s  return %s  %.0f km  charge to %d%%\n",
			o.Summary,
			o.Departure.Format(time.RFC3339),
			o.Return.Format(time.RFC3339),
			o.DistanceKm,
			o.RequiredSoC)
	}
}
