package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"

	"github.com/ezuidema/chargeplan-go/config"
	"github.com/ezuidema/chargeplan-go/database"
	"github.com/ezuidema/chargeplan-go/executor"
	"github.com/ezuidema/chargeplan-go/gcal"
	"github.com/ezuidema/chargeplan-go/gmaps"
	"github.com/ezuidema/chargeplan-go/inverter"
	"github.com/ezuidema/chargeplan-go/logging"
	"github.com/ezuidema/chargeplan-go/task"
	"github.com/ezuidema/chargeplan-go/tessie"
	"github.com/ezuidema/chargeplan-go/types"
)

var Version = "?.?.?"

func main() {
	logLevel := pflag.StringP("log-level", "l", "warning", "log level: debug, info, warning or error")
	configPath := pflag.StringP("config", "c", "", "path to ini config file, default config.ini")
	daemon := pflag.BoolP("daemon", "d", false, "keep running on the configured schedule instead of a single pass")
	pflag.Parse()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      logging.LevelFromString(*logLevel),
		TimeFormat: time.RFC3339,
	}))
	slog.SetDefault(logger)
	logger.Debug("chargeplan is starting...", slog.String("version", Version))

	cnfg, err := config.Load(*configPath)
	if err != nil {
		exitWithError(logger, fmt.Errorf("failed to load config: %w", err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := database.New(ctx, cnfg.Database.Dsn())
	if err != nil {
		exitWithError(logger, fmt.Errorf("failed to connect to price database: %w", err))
	}
	defer db.Close()
	db.SetLogger(logger.With(slog.String("module", "database")))

	tessieClient := tessie.New(cnfg.Tessie.AccessToken)
	if cnfg.Tessie.AccessToken == "" {
		logger.Warn("no vehicle api token provided, cannot control the vehicle(s)")
	}

	var events task.EventSource
	var lookup types.DistanceLookup
	if cnfg.Directions.MapsApiKey == "" {
		logger.Warn("no maps api key provided, cannot calculate trip distances")
	} else if cnfg.Calendar.AccessToken == "" {
		logger.Warn("no calendar access token provided, planning without trip obligations")
	} else {
		events = gcal.New(cnfg.Calendar.AccessToken)
		lookup = gmaps.New(cnfg.Directions.MapsApiKey)
	}

	var inv executor.InverterHandle
	if cnfg.Inverter.Enabled() {
		modbusInv := inverter.New(
			logger.With(slog.String("module", "inverter")),
			cnfg.Inverter.Host,
			cnfg.Inverter.GetPort(),
			cnfg.Inverter.GetUnitId())
		if err := modbusInv.CaptureBaseline(); err != nil {
			exitWithError(logger, fmt.Errorf("failed to connect to inverter: %w", err))
		}
		inv = modbusInv
	}

	exec := executor.New(logger.With(slog.String("module", "executor")))

	names := make([]string, 0, len(cnfg.Vehicles))
	for name := range cnfg.Vehicles {
		names = append(names, name)
	}
	slices.Sort(names)

	tasks := make(map[string]func(context.Context) (bool, error), len(names))
	for _, name := range names {
		vcnfg := cnfg.Vehicles[name]
		tasks[name] = task.NewVehicleTask(
			logger, name, vcnfg, cnfg,
			tessieClient.Vehicle(vcnfg.Vin),
			db, events, lookup, exec)
	}

	runAll := func() {
		holdIdle := false
		for _, name := range names {
			hold, err := tasks[name](ctx)
			if err != nil {
				logger.Error("vehicle iteration failed, continuing with next vehicle",
					slog.String("vehicle", name),
					slog.Any("error", err))
				continue
			}
			holdIdle = holdIdle || hold
		}
		exec.ApplyInverter(holdIdle, inv)
	}

	if *daemon {
		runAll()
		runner := task.NewRunner(cnfg.Scheduler.GetRunAt(), runAll)
		if err := runner.Start(); err != nil {
			exitWithError(logger, fmt.Errorf("failed to start scheduler: %w", err))
		}
		<-ctx.Done()
		logger.Info("received signal, shutting down...")
		<-runner.Stop().Done()
		return
	}

	runAll()
	logger.Info("all vehicle iterations completed")
}

func exitWithError(logger *slog.Logger, err error) {
	logger.Error("shutting down with error", slog.Any("error", err))
	os.Exit(1)
}
