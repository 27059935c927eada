package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ezuidema/chargeplan-go/convert"
	"github.com/ezuidema/chargeplan-go/hours"
	"github.com/ezuidema/chargeplan-go/types"
)

// GetPriceSlots returns the hourly price forecast from now until the end
// of the catalog, chronologically ordered. The sequence is validated to
// be gap free; on the first gap the remainder is dropped with a warning
// so the planner never sees a discontinuous horizon.
func (d *Database) GetPriceSlots(ctx context.Context) ([]types.PriceSlot, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT datetime_from, cost_kwh_level, cost_kwh_total
		FROM electricity_prices
		WHERE datetime_to > now()
		ORDER BY datetime_from ASC`)
	if err != nil {
		return nil, fmt.Errorf("error when fetching electricity prices: %w", err)
	}
	defer rows.Close()

	var slots []types.PriceSlot
	for rows.Next() {
		var (
			from  time.Time
			label string
			price float64
		)
		if err := rows.Scan(&from, &label, &price); err != nil {
			return nil, fmt.Errorf("error when scanning electricity price row: %w", err)
		}

		level, known := types.ParsePriceLevel(label)
		if !known {
			d.logger.Warn("unknown price level in catalog, treating as NORMAL",
				slog.String("level", label),
				slog.Time("from", from))
		}

		hour := hours.FromTime(from)
		if len(slots) > 0 {
			prev := slots[len(slots)-1].Hour
			if hour == prev {
				continue // duplicate hour, keep the first
			}
			if prev.Add(1) != hour {
				d.logger.Warn("gap in price catalog, truncating horizon",
					slog.String("lastHour", prev.String()),
					slog.String("nextHour", hour.String()))
				break
			}
		}

		slots = append(slots, types.PriceSlot{Hour: hour, Price: price, Level: level})
		d.logger.Debug("electricity price",
			slog.String("hour", hour.String()),
			slog.String("level", level.String()),
			slog.Float64("price", convert.RoundFloat64(price, 4)))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error when iterating electricity price rows: %w", err)
	}

	if len(slots) > 0 {
		d.logger.Info("current electricity price",
			slog.String("hour", slots[0].Hour.String()),
			slog.String("level", slots[0].Level.String()),
			slog.Float64("price", convert.TwoDecimals(slots[0].Price)))
	}

	return slots, nil
}
