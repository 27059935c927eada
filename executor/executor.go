package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ezuidema/chargeplan-go/inverter"
	"github.com/ezuidema/chargeplan-go/planner"
	"github.com/ezuidema/chargeplan-go/types"
)

// VehicleHandle is what the executor needs from the vehicle API.
type VehicleHandle interface {
	types.VehicleController
	Status(ctx context.Context) (string, error)
	Wake(ctx context.Context) error
}

// InverterHandle is what the executor needs from the home battery.
type InverterHandle interface {
	SetMode(mode inverter.Mode) error
}

type Executor struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Executor {
	return &Executor{logger: logger}
}

// Apply brings the vehicle in line with the decision. Remote calls are
// only issued for actual state changes, so applying the same decision
// against the same state twice issues nothing the second time.
func (e *Executor) Apply(ctx context.Context, decision planner.Decision, state types.VehicleState, vehicle VehicleHandle) error {
	changeLimit := decision.TargetLimit != state.ChargeLimit
	startCharging := decision.EnableCharging && !state.Charging
	stopCharging := !decision.EnableCharging && state.Charging

	if !changeLimit && !startCharging && !stopCharging {
		e.logger.Debug("vehicle already in desired state, no remote calls")
		return nil
	}

	// Commands need the vehicle awake; reads never wake it up.
	if changeLimit || startCharging {
		status, err := vehicle.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get vehicle status: %w", err)
		}
		if status != "online" {
			e.logger.Info("vehicle is asleep, waking it up")
			if err := vehicle.Wake(ctx); err != nil {
				return fmt.Errorf("failed to wake vehicle: %w", err)
			}
		}
	}

	if changeLimit {
		e.logger.Info(fmt.Sprintf("changing charge limit from %d%% to %d%%", state.ChargeLimit, decision.TargetLimit))
		if err := vehicle.SetChargeLimit(ctx, decision.TargetLimit); err != nil {
			return err
		}
	}

	if startCharging {
		e.logger.Info("starting charge", slog.String("reason", decision.Reason))
		if err := vehicle.StartCharging(ctx); err != nil {
			return err
		}
	}
	if stopCharging {
		e.logger.Info("stopping charge", slog.String("reason", decision.Reason))
		if err := vehicle.StopCharging(ctx); err != nil {
			return err
		}
	}

	return nil
}

// ApplyInverter parks the home battery while any vehicle draws charge
// current at home, and restores it otherwise. The inverter is shared
// between vehicles, so this runs once per run, after all vehicles.
// A failed write degrades to normal inverter behaviour and is only a
// warning.
func (e *Executor) ApplyInverter(holdIdle bool, inv InverterHandle) {
	if inv == nil {
		return
	}

	mode := inverter.ModeAutomatic
	if holdIdle {
		mode = inverter.ModeIdle
	}

	if err := inv.SetMode(mode); err != nil {
		e.logger.Warn("failed to set inverter mode",
			slog.String("mode", mode.String()),
			slog.Any("error", err))
		return
	}
	e.logger.Info("inverter mode set", slog.String("mode", mode.String()))
}
