package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ezuidema/chargeplan-go/config"
	"github.com/ezuidema/chargeplan-go/executor"
	"github.com/ezuidema/chargeplan-go/gcal"
	"github.com/ezuidema/chargeplan-go/planner"
	"github.com/ezuidema/chargeplan-go/tessie"
	"github.com/ezuidema/chargeplan-go/trip"
	"github.com/ezuidema/chargeplan-go/types"
)

// EventSource yields the calendar events that may hold trips.
type EventSource interface {
	UpcomingEvents(ctx context.Context, calendarName string, window time.Duration, maxResults int) ([]gcal.Event, error)
}

// VehicleAPI is the per-vehicle slice of the remote vehicle service.
type VehicleAPI interface {
	Exists(ctx context.Context) (bool, error)
	State(ctx context.Context) (tessie.State, error)
	executor.VehicleHandle
}

const maxCalendarResults = 10

// NewVehicleTask builds the one-shot decision pass for a single
// vehicle: fetch state, plan, apply. The returned function reports
// whether the vehicle should keep the home battery idle. An error
// aborts only this vehicle's iteration, never the whole run.
func NewVehicleTask(
	logger *slog.Logger,
	name string,
	vcnfg config.AppConfigVehicle,
	cnfg *config.AppConfig,
	api VehicleAPI,
	prices types.PriceProvider,
	events EventSource,
	lookup types.DistanceLookup,
	exec *executor.Executor,
) func(ctx context.Context) (bool, error) {
	log := logger.With(slog.String("vehicle", name))
	plnr := planner.New(log.With(slog.String("module", "planner")), vcnfg, cnfg.Planner.GetLookAheadHours())
	extractor := trip.NewExtractor(log.With(slog.String("module", "trip")), lookup)

	return func(ctx context.Context) (bool, error) {
		log.Info("starting iteration")

		ok, err := api.Exists(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to verify vehicle: %w", err)
		}
		if !ok {
			return false, fmt.Errorf("could not find vehicle %s in the account", vcnfg.Vin)
		}

		raw, err := api.State(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to fetch vehicle state: %w", err)
		}
		state := tessie.Snapshot(name, raw, vcnfg.HomeLat, vcnfg.HomeLon)

		if state.Charging {
			log.Info(fmt.Sprintf("charging at %d%% of %d%%", state.SoC, state.ChargeLimit))
		} else {
			log.Info(fmt.Sprintf("not charging (battery level %d%% of %d%%)", state.SoC, state.ChargeLimit))
		}

		slots, err := prices.GetPriceSlots(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to fetch electricity prices: %w", err)
		}

		obligations := extractObligations(ctx, log, extractor, events, cnfg, vcnfg, len(slots))

		decision := plnr.Plan(time.Now().UTC(), state, slots, obligations)
		log.Info("charge decision",
			slog.Int("targetLimit", decision.TargetLimit),
			slog.Bool("charging", decision.EnableCharging),
			slog.String("reason", decision.Reason))

		if err := exec.Apply(ctx, decision, state, api); err != nil {
			return false, fmt.Errorf("failed to apply charge decision: %w", err)
		}

		return decision.HoldBatteryIdle, nil
	}
}

// extractObligations loads calendar trips. Calendar trouble degrades to
// planning without obligations rather than failing the vehicle.
func extractObligations(
	ctx context.Context,
	log *slog.Logger,
	extractor *trip.Extractor,
	events EventSource,
	cnfg *config.AppConfig,
	vcnfg config.AppConfigVehicle,
	horizonHours int,
) []trip.Obligation {
	calendarName := vcnfg.CalendarName(cnfg.Calendar.Name)
	if events == nil || calendarName == "" {
		log.Debug("no calendar configured, planning without trip obligations")
		return nil
	}

	// Look far enough ahead to cover the price horizon plus a worst-case
	// full charge and some driving before the event.
	maxChargeHours := vcnfg.BatteryCapacity / vcnfg.ChargePowerKw()
	window := time.Duration((float64(horizonHours) + maxChargeHours + 2) * float64(time.Hour))

	evs, err := events.UpcomingEvents(ctx, calendarName, window, maxCalendarResults)
	if err != nil {
		log.Warn("cannot load calendar events, planning without trip obligations",
			slog.Any("error", err))
		return nil
	}

	return extractor.Extract(ctx, evs, trip.Spec{
		HomeLat:          vcnfg.HomeLat,
		HomeLon:          vcnfg.HomeLon,
		KwhPerKm:         vcnfg.KwhPerKm,
		BatteryCapacity:  vcnfg.BatteryCapacity,
		ReturningPercent: vcnfg.GetChargeReturning(),
		MinimumPercent:   vcnfg.GetChargeMinimum(),
	})
}
