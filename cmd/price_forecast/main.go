// Prints the upcoming electricity price slots from the price database.
// Handy for checking the catalog without touching any vehicle.
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
	"github.com/ezuidema/chargeplan-go/database"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to ini config file, default config.ini")
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

	db, err := database.New(context.Background(), cnfg.Database.Dsn())
	if err != nil {
		panic(err)
	}
	defer db.Close()
	db.SetLogger(logger)

	slots, err := db.GetPriceSlots(context.Background())
	if err != nil {
		panic(err)
	}

	for _, s := range slots {
		fmt.Printf("%s  %8.4f  %s\n", s.Hour, s.Price, s.Level)
	}
}
