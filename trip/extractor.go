package trip

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ezuidema/chargeplan-go/convert"
	"github.com/ezuidema/chargeplan-go/gcal"
	"github.com/ezuidema/chargeplan-go/types"
)

// Energy spent on warming up the cabin and battery per trip, in kWh.
const warmupKWh = 4.0

// Travel times below this are "at home", no driving obligation.
const minTravel = 100 * time.Second

// Spec carries the per-vehicle parameters needed to turn a calendar
// trip into a required state of charge.
type Spec struct {
	HomeLat          float64
	HomeLon          float64
	KwhPerKm         float64 // Energy use per driven km
	BatteryCapacity  float64 // kWh
	ReturningPercent int     // Percent to always have left after the trip
	MinimumPercent   int     // Floor for any required charge
}

// Obligation is a future required state of charge tied to a departure.
// The away window (Departure..Return) is closed to charging since the
// vehicle is not at home.
type Obligation struct {
	Summary     string
	Departure   time.Time
	Return      time.Time
	RequiredSoC int
	DistanceKm  float64
}

// AwayDuring reports whether the vehicle is expected to be away from
// home for the whole or part of the given hour.
func (o Obligation) AwayDuring(hourStart time.Time) bool {
	hourEnd := hourStart.Add(time.Hour)
	return hourStart.Before(o.Return) && hourEnd.After(o.Departure)
}

type Extractor struct {
	logger *slog.Logger
	lookup types.DistanceLookup
}

func NewExtractor(logger *slog.Logger, lookup types.DistanceLookup) *Extractor {
	return &Extractor{logger: logger, lookup: lookup}
}

// Extract turns calendar events into charge obligations, ordered by
// departure time. Events without a usable location, all-day events and
// events at home are skipped. A failed distance lookup skips the event
// with a warning; it never fails the extraction.
func (e *Extractor) Extract(ctx context.Context, events []gcal.Event, spec Spec) []Obligation {
	now := time.Now().UTC()
	obligations := make([]Obligation, 0, len(events))

	for _, ev := range events {
		if ev.Location == "" || strings.Contains(ev.Location, "http") || ev.AllDay {
			e.logger.Debug("skipping event without usable time or location",
				slog.String("summary", ev.Summary),
				slog.Time("start", ev.Start))
			continue
		}
		if !ev.Start.After(now) {
			continue
		}

		km, travel, err := e.lookup.Distance(ctx, spec.HomeLat, spec.HomeLon, ev.Location)
		if err != nil {
			e.logger.Warn("cannot resolve event location, skipping",
				slog.String("summary", ev.Summary),
				slog.String("location", ev.Location),
				slog.Any("error", err))
			continue
		}
		if travel < minTravel {
			e.logger.Debug("event is at home, no driving obligation",
				slog.String("summary", ev.Summary),
				slog.String("location", ev.Location))
			continue
		}

		// Very long trips need en-route recharges, roughly one hour each.
		recharges := math.Floor(km * spec.KwhPerKm / spec.BatteryCapacity)
		if recharges > 0 {
			travel += time.Duration(recharges) * time.Hour
			e.logger.Debug("added en-route recharges to travel time",
				slog.String("summary", ev.Summary),
				slog.Int("recharges", int(recharges)))
		}

		kwhNeeded := (warmupKWh + km*spec.KwhPerKm) * 2 // there and back
		kwhNeeded = math.Min(kwhNeeded, spec.BatteryCapacity)

		pct := kwhNeeded/spec.BatteryCapacity*100 + float64(spec.ReturningPercent)
		required := int(math.Ceil(math.Min(pct, 100)))
		if required < spec.MinimumPercent {
			required = spec.MinimumPercent
		}

		o := Obligation{
			Summary:     ev.Summary,
			Departure:   ev.Start.Add(-travel),
			Return:      ev.End.Add(travel),
			RequiredSoC: required,
			DistanceKm:  km,
		}
		obligations = append(obligations, o)

		e.logger.Info("trip obligation",
			slog.String("summary", ev.Summary),
			slog.String("location", ev.Location),
			slog.Float64("km", convert.RoundFloat64(km, 1)),
			slog.Float64("kwh", convert.RoundFloat64(kwhNeeded, 1)),
			slog.Int("requiredSoC", required),
			slog.Time("departure", o.Departure),
			slog.Time("return", o.Return))
	}

	sort.SliceStable(obligations, func(i, j int) bool {
		return obligations[i].Departure.Before(obligations[j].Departure)
	})

	return obligations
}
