package planner

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ezuidema/chargeplan-go/config"
	"github.com/ezuidema/chargeplan-go/trip"
	"github.com/ezuidema/chargeplan-go/types"
)

// The planner never requests a limit more than this far below the
// current battery level, to avoid oscillating the limit downwards.
const socTolerance = 2

// Decision is the planner's output for the current hour.
type Decision struct {
	TargetLimit     int
	EnableCharging  bool
	HoldBatteryIdle bool
	Reason          string
	Schedule        Schedule // Projected plan for the horizon, for diagnostics
}

type Planner struct {
	logger         *slog.Logger
	vehicle        config.AppConfigVehicle
	lookAheadHours int
}

func New(logger *slog.Logger, vehicle config.AppConfigVehicle, lookAheadHours int) *Planner {
	return &Planner{logger: logger, vehicle: vehicle, lookAheadHours: lookAheadHours}
}

// Plan decides the charge limit and charging state for the hour
// containing now. It is a pure function of its inputs: identical state,
// prices and obligations always produce an identical decision.
func (p *Planner) Plan(now time.Time, state types.VehicleState, slots []types.PriceSlot, obligations []trip.Obligation) Decision {
	v := p.vehicle

	// Rule 1: only control the vehicle when it is home, plugged in and
	// not manually overridden by the user.
	if !state.Home {
		p.logger.Info("no action: cannot control charging as vehicle is not at home")
		return p.noop(state, "vehicle not at home")
	}
	if !state.PluggedIn {
		p.logger.Info("no action: no charging possible as cable is not connected")
		return p.noop(state, "cable not connected")
	}

	binding := bindingObligation(now, obligations)

	if !v.IsConfiguredTier(state.ChargeLimit) && (binding == nil || state.ChargeLimit != binding.RequiredSoC) {
		p.logger.Info(fmt.Sprintf("limit (%d%%) differs from every configured tier, assuming user override: no action",
			state.ChargeLimit))
		return p.noop(state, "user override")
	}
	p.logger.Info("controlling charge limit (no user override)")

	// Rule 2: safety floor, regardless of price.
	if state.SoC < v.GetChargeMinimum() {
		p.logger.Info(fmt.Sprintf("vehicle needs %d hour(s) to charge to minimum level",
			p.hoursToReach(state.SoC, v.GetChargeMinimum())))
		return Decision{
			TargetLimit:     v.GetChargeMinimum(),
			EnableCharging:  true,
			HoldBatteryIdle: true,
			Reason:          "below minimum level",
		}
	}

	// Rule 3: obligation-driven ideal charge plan.
	sched, res := p.buildSchedule(now, state.SoC, slots, obligations)
	for _, ps := range sched {
		p.logger.Debug("charging slot",
			slog.String("hour", ps.Hour.String()),
			slog.String("mark", ps.Mark.String()),
			slog.String("level", ps.Level.String()),
			slog.Float64("price", ps.Price))
	}

	if binding != nil && res.HoursNeeded > 0 {
		if res.Shortfall {
			p.logger.Warn("cannot fully meet obligation before departure, charging continuously")
			return Decision{
				TargetLimit:     p.clampTarget(res.Target, state),
				EnableCharging:  true,
				HoldBatteryIdle: true,
				Reason:          "obligation shortfall, best effort",
				Schedule:        sched,
			}
		}

		if cur, ok := currentSlot(now, sched); ok && cur.Mark == MarkCharge {
			p.logger.Info(fmt.Sprintf("charging this slot towards %d%% for upcoming trip(s)", res.Target))
			return Decision{
				TargetLimit:     p.clampTarget(res.Target, state),
				EnableCharging:  true,
				HoldBatteryIdle: true,
				Reason:          "cheapest slot before departure",
				Schedule:        sched,
			}
		}

		p.logger.Info("current slot not selected for charging, waiting for a cheaper hour")
		return Decision{
			TargetLimit:    state.ChargeLimit,
			EnableCharging: false,
			Reason:         "waiting for cheaper slot before departure",
			Schedule:       sched,
		}
	}

	// Rules 4 and 5: price-tier default with look-ahead.
	return p.tierDecision(now, state, slots, sched)
}

func (p *Planner) tierDecision(now time.Time, state types.VehicleState, slots []types.PriceSlot, sched Schedule) Decision {
	v := p.vehicle

	level := types.LevelNormal
	if cur, ok := currentPriceSlot(now, slots); ok {
		level = cur.Level
	} else {
		p.logger.Warn("no price data for the current hour, assuming NORMAL level")
	}

	var target int
	var reason string
	switch level {
	case types.LevelVeryCheap:
		target = v.ChargeVeryCheap
		reason = "very cheap energy"
	case types.LevelCheap:
		target = v.ChargeCheap
		reason = "cheap energy"
	default:
		target = v.ChargeDefault
		reason = "no charging window"
	}

	if state.SoC >= target {
		p.logger.Info(fmt.Sprintf("no charging: battery at %d%% of %s tier %d%%", state.SoC, level, target))
		return Decision{
			TargetLimit:    state.ChargeLimit,
			EnableCharging: false,
			Reason:         reason,
			Schedule:       sched,
		}
	}

	// Rule 5: a cheap window starting soon beats charging at a worse
	// price right now.
	if level >= types.LevelNormal {
		if ahead, ok := p.cheapWindowAhead(now, slots); ok {
			p.logger.Info(fmt.Sprintf("withholding charge: %s window starts at %s, within look-ahead of %d hour(s)",
				ahead.Level, ahead.Hour, p.lookAheadHours))
			return Decision{
				TargetLimit:    state.ChargeLimit,
				EnableCharging: false,
				Reason:         fmt.Sprintf("deferring to %s window at %s", ahead.Level, ahead.Hour),
				Schedule:       sched,
			}
		}
	}

	p.logger.Info(fmt.Sprintf("vehicle needs %d hour(s) to charge from %d%% to %d%% (%s)",
		p.hoursToReach(state.SoC, target), state.SoC, target, reason))
	return Decision{
		TargetLimit:     target,
		EnableCharging:  true,
		HoldBatteryIdle: true,
		Reason:          reason,
		Schedule:        sched,
	}
}

// cheapWindowAhead finds the next VERY_CHEAP (preferred) or CHEAP slot
// starting within the look-ahead window, excluding the current hour.
func (p *Planner) cheapWindowAhead(now time.Time, slots []types.PriceSlot) (types.PriceSlot, bool) {
	limit := now.Add(time.Duration(p.lookAheadHours) * time.Hour)

	var cheap *types.PriceSlot
	for i := range slots {
		s := slots[i]
		start := s.Hour.Time()
		if !start.After(now) || start.After(limit) {
			continue
		}
		switch s.Level {
		case types.LevelVeryCheap:
			return s, true
		case types.LevelCheap:
			if cheap == nil {
				cheap = &s
			}
		}
	}
	if cheap != nil {
		return *cheap, true
	}
	return types.PriceSlot{}, false
}

// noop preserves the vehicle's current state; the executor will not
// issue any remote call for it.
func (p *Planner) noop(state types.VehicleState, reason string) Decision {
	return Decision{
		TargetLimit:     state.ChargeLimit,
		EnableCharging:  state.Charging,
		HoldBatteryIdle: state.Charging && state.Home,
		Reason:          reason,
	}
}

// clampTarget keeps an obligation-derived target within the configured
// tier range and never below the current battery level.
func (p *Planner) clampTarget(target int, state types.VehicleState) int {
	v := p.vehicle
	if target < v.GetChargeMinimum() {
		target = v.GetChargeMinimum()
	}
	if target > v.ChargeVeryCheap {
		target = v.ChargeVeryCheap
	}
	if target < state.SoC-socTolerance {
		target = state.SoC
	}
	return target
}

func (p *Planner) hoursToReach(soc, target int) int {
	missingKWh := float64(target-soc) / 100.0 * p.vehicle.BatteryCapacity
	return int(math.Ceil(math.Max(missingKWh, 0) / p.vehicle.ChargePowerKw()))
}

// bindingObligation returns the nearest obligation with a departure
// after now, or nil.
func bindingObligation(now time.Time, obligations []trip.Obligation) *trip.Obligation {
	for i := range obligations {
		if obligations[i].Departure.After(now) {
			return &obligations[i]
		}
	}
	return nil
}

func currentSlot(now time.Time, sched Schedule) (PlannedSlot, bool) {
	for _, ps := range sched {
		if ps.Hour.Contains(now) {
			return ps, true
		}
	}
	return PlannedSlot{}, false
}

func currentPriceSlot(now time.Time, slots []types.PriceSlot) (types.PriceSlot, bool) {
	for _, s := range slots {
		if s.Hour.Contains(now) {
			return s, true
		}
	}
	return types.PriceSlot{}, false
}
