package types

import (
	"context"

	"github.com/ezuidema/chargeplan-go/hours"
)

// PriceLevel is the externally supplied price classification for an hour.
// The catalog assigns the labels; they are never recomputed here.
type PriceLevel int

const (
	LevelVeryCheap PriceLevel = iota
	LevelCheap
	LevelNormal
	LevelExpensive
	LevelVeryExpensive
)

func (l PriceLevel) String() string {
	switch l {
	case LevelVeryCheap:
		return "VERY_CHEAP"
	case LevelCheap:
		return "CHEAP"
	case LevelNormal:
		return "NORMAL"
	case LevelExpensive:
		return "EXPENSIVE"
	case LevelVeryExpensive:
		return "VERY_EXPENSIVE"
	default:
		return "UNKNOWN"
	}
}

// ParsePriceLevel maps a catalog label to a PriceLevel. Unknown labels
// degrade to NORMAL so a misbehaving feed never blocks planning.
func ParsePriceLevel(label string) (PriceLevel, bool) {
	switch label {
	case "VERY_CHEAP":
		return LevelVeryCheap, true
	case "CHEAP":
		return LevelCheap, true
	case "NORMAL":
		return LevelNormal, true
	case "EXPENSIVE":
		return LevelExpensive, true
	case "VERY_EXPENSIVE":
		return LevelVeryExpensive, true
	default:
		return LevelNormal, false
	}
}

// PriceSlot is one hour of the electricity price forecast.
type PriceSlot struct {
	Hour  hours.DateHour
	Price float64 // Price per kWh, non-negative
	Level PriceLevel
}

type PriceProvider interface {
	GetPriceSlots(ctx context.Context) ([]PriceSlot, error)
}
