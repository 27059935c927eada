package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ezuidema/chargeplan-go/config"
	"github.com/ezuidema/chargeplan-go/executor"
	"github.com/ezuidema/chargeplan-go/gcal"
	"github.com/ezuidema/chargeplan-go/tessie"
	"github.com/ezuidema/chargeplan-go/types"
)

type fakeVehicleAPI struct {
	exists     bool
	existsErr  error
	stateCalls int
	commands   int
}

func (f *fakeVehicleAPI) Exists(ctx context.Context) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeVehicleAPI) State(ctx context.Context) (tessie.State, error) {
	f.stateCalls++
	return tessie.State{}, nil
}

func (f *fakeVehicleAPI) Status(ctx context.Context) (string, error) {
	return "online", nil
}

func (f *fakeVehicleAPI) Wake(ctx context.Context) error {
	f.commands++
	return nil
}

func (f *fakeVehicleAPI) SetChargeLimit(ctx context.Context, percent int) error {
	f.commands++
	return nil
}

func (f *fakeVehicleAPI) StartCharging(ctx context.Context) error {
	f.commands++
	return nil
}

func (f *fakeVehicleAPI) StopCharging(ctx context.Context) error {
	f.commands++
	return nil
}

type fakePrices struct{}

func (fakePrices) GetPriceSlots(ctx context.Context) ([]types.PriceSlot, error) {
	return nil, nil
}

type fakeEvents struct {
	calendars []string
}

func (f *fakeEvents) UpcomingEvents(ctx context.Context, calendarName string, window time.Duration, maxResults int) ([]gcal.Event, error) {
	f.calendars = append(f.calendars, calendarName)
	return nil, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func taskVehicle() config.AppConfigVehicle {
	return config.AppConfigVehicle{
		Vin:             "5YJ3E7EB4KF000000",
		HomeLat:         51.387,
		HomeLon:         5.578,
		KwhPerKm:        0.250,
		BatteryCapacity: 75,
		ChargeCheap:     49,
		ChargeDefault:   50,
		ChargeVeryCheap: 98,
		ChargePhases:    3,
		ChargeAmpsMax:   13,
	}
}

func newTask(api VehicleAPI, vcnfg config.AppConfigVehicle, cnfg *config.AppConfig, events EventSource) func(context.Context) (bool, error) {
	logger := discardLogger()
	return NewVehicleTask(logger, "tess", vcnfg, cnfg, api, fakePrices{}, events, nil, executor.New(logger))
}

func TestVehicleTaskAbortsOnUnknownVehicle(t *testing.T) {
	api := &fakeVehicleAPI{exists: false}
	run := newTask(api, taskVehicle(), &config.AppConfig{}, nil)

	_, err := run(context.Background())
	if err == nil {
		t.Fatal("expected an error for a VIN the account does not know")
	}
	if !strings.Contains(err.Error(), "could not find vehicle") {
		t.Errorf("unexpected error: %v", err)
	}
	if api.stateCalls != 0 || api.commands != 0 {
		t.Error("expected no further vehicle calls after a failed existence check")
	}
}

func TestVehicleTaskAbortsOnExistenceCheckFailure(t *testing.T) {
	api := &fakeVehicleAPI{existsErr: errors.New("timeout")}
	run := newTask(api, taskVehicle(), &config.AppConfig{}, nil)

	if _, err := run(context.Background()); err == nil {
		t.Fatal("expected the iteration to abort when the account cannot be queried")
	}
}

func TestVehicleTaskUsesVehicleCalendar(t *testing.T) {
	tests := []struct {
		name            string
		vehicleCalendar string
		want            string
	}{
		{"falls back to the global calendar", "", "family"},
		{"vehicle calendar wins", "commute", "commute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vcnfg := taskVehicle()
			vcnfg.Calendar = tt.vehicleCalendar
			cnfg := &config.AppConfig{Calendar: config.AppConfigCalendar{Name: "family"}}
			events := &fakeEvents{}
			api := &fakeVehicleAPI{exists: true}

			holdIdle, err := newTask(api, vcnfg, cnfg, events)(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if holdIdle {
				t.Error("an away vehicle must not hold the home battery idle")
			}
			if len(events.calendars) != 1 || events.calendars[0] != tt.want {
				t.Errorf("expected calendar %q to be queried, got %v", tt.want, events.calendars)
			}
		})
	}
}
