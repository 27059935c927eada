package planner

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/ezuidema/chargeplan-go/trip"
	"github.com/ezuidema/chargeplan-go/types"
)

type SlotMark int

const (
	MarkUndecided SlotMark = iota // No decision, tier rules apply
	MarkCharge                    // Selected as one of the cheapest hours
	MarkAway                      // Vehicle expected away, charging impossible
)

func (m SlotMark) String() string {
	switch m {
	case MarkCharge:
		return "charge"
	case MarkAway:
		return "away"
	default:
		return "undecided"
	}
}

// PlannedSlot is a price slot with its scheduling decision.
type PlannedSlot struct {
	types.PriceSlot
	Mark SlotMark
}

// Schedule is the projected per-hour plan over the price horizon.
type Schedule []PlannedSlot

// scheduleResult summarises obligation scheduling over the horizon.
type scheduleResult struct {
	HoursNeeded int  // Total charge hours selected for all obligations
	Target      int  // Cumulative required SoC in percent
	Shortfall   bool // Not enough eligible hours before departure
}

// buildSchedule marks the cheapest eligible hours for every obligation,
// chronologically earliest first on price ties. Hours during which the
// vehicle is away are closed to charging. Obligations are processed in
// departure order and consume the battery's remaining charge first, so
// chained trips share what is already in the pack.
func (p *Planner) buildSchedule(now time.Time, soc int, slots []types.PriceSlot, obligations []trip.Obligation) (Schedule, scheduleResult) {
	v := p.vehicle
	sched := make(Schedule, len(slots))
	for i, s := range slots {
		sched[i] = PlannedSlot{PriceSlot: s}
	}

	for i := range sched {
		hourStart := sched[i].Hour.Time()
		for _, o := range obligations {
			if o.AwayDuring(hourStart) {
				sched[i].Mark = MarkAway
				p.logger.Debug("marking slot as away, no charging possible",
					slog.String("hour", sched[i].Hour.String()),
					slog.String("summary", o.Summary))
				break
			}
		}
	}

	rateKw := v.ChargePowerKw()
	chargeLeftKWh := math.Max(float64(soc-v.GetChargeReturning())/100.0*v.BatteryCapacity, 0)
	totalNeedKWh := 0.0
	res := scheduleResult{}

	for _, o := range obligations {
		needKWh := math.Min(float64(o.RequiredSoC-v.GetChargeReturning())/100.0*v.BatteryCapacity, v.BatteryCapacity)
		hoursNeeded := int(math.Ceil(math.Max(needKWh-chargeLeftKWh, 0) / rateKw))

		// The current hour is always a candidate, even when departure is close.
		budget := int(math.Floor(o.Departure.Sub(now).Hours()))
		if budget < 1 {
			budget = 1
		}

		var eligible []int
		for i := range sched {
			if i >= budget {
				break
			}
			if sched[i].Mark == MarkUndecided {
				eligible = append(eligible, i)
			}
		}

		p.logger.Debug("scheduling obligation",
			slog.String("summary", o.Summary),
			slog.Int("hoursNeeded", hoursNeeded),
			slog.Int("hoursBudget", budget),
			slog.Int("eligibleSlots", len(eligible)))

		if hoursNeeded > len(eligible) {
			p.logger.Warn(fmt.Sprintf("obligation %q needs %d charge hour(s) but only %d are available before departure",
				o.Summary, hoursNeeded, len(eligible)))
			res.Shortfall = true
		}

		sort.SliceStable(eligible, func(a, b int) bool {
			pa, pb := sched[eligible[a]], sched[eligible[b]]
			if pa.Price != pb.Price {
				return pa.Price < pb.Price
			}
			return pa.Hour.Compare(pb.Hour) < 0
		})

		for n := 0; n < hoursNeeded && n < len(eligible); n++ {
			i := eligible[n]
			sched[i].Mark = MarkCharge
			res.HoursNeeded++
			p.logger.Debug("marking slot for charging",
				slog.String("hour", sched[i].Hour.String()),
				slog.Float64("price", sched[i].Price),
				slog.String("summary", o.Summary))
		}

		chargeLeftKWh = math.Max(chargeLeftKWh-needKWh, 0)
		totalNeedKWh += needKWh
	}

	target := int(math.Ceil(math.Min(totalNeedKWh/v.BatteryCapacity*100+float64(v.GetChargeReturning()), 100)))
	if target < v.GetChargeMinimum() {
		target = v.GetChargeMinimum()
	}
	res.Target = target

	return sched, res
}
