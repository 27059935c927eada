package planner

import (
	"testing"
	"time"

	"github.com/ezuidema/chargeplan-go/trip"
	"github.com/ezuidema/chargeplan-go/types"
)

func marksByHour(sched Schedule) map[uint8]SlotMark {
	marks := make(map[uint8]SlotMark, len(sched))
	for _, ps := range sched {
		marks[ps.Hour.Hour] = ps.Mark
	}
	return marks
}

func TestBuildScheduleMarksAwayHours(t *testing.T) {
	p := testPlanner()
	obligations := []trip.Obligation{{
		Summary:     "office",
		Departure:   testNow.Add(time.Hour), // 09:30
		Return:      testNow.Add(3*time.Hour + 45*time.Minute),
		RequiredSoC: 34,
	}}

	sched, _ := p.buildSchedule(testNow, 60, normalSlots(6), obligations)

	marks := marksByHour(sched)
	for _, h := range []uint8{9, 10, 11, 12} {
		if marks[h] != MarkAway {
			t.Errorf("hour %d: expected away, got %s", h, marks[h])
		}
	}
	for _, h := range []uint8{8, 13} {
		if marks[h] != MarkUndecided {
			t.Errorf("hour %d: expected undecided, got %s", h, marks[h])
		}
	}
}

func TestBuildScheduleSkipsAwayHoursWhenSelecting(t *testing.T) {
	p := testPlanner()
	// Away 10:00-11:00 for an earlier errand; the second trip needs
	// three charge hours and must pick around the blocked hour.
	obligations := []trip.Obligation{
		{
			Summary:     "errand",
			Departure:   testNow.Add(time.Hour + 45*time.Minute),
			Return:      testNow.Add(2*time.Hour + 30*time.Minute),
			RequiredSoC: 10,
		},
		{
			Summary:     "airport run",
			Departure:   testNow.Add(5*time.Hour + 30*time.Minute),
			Return:      testNow.Add(9 * time.Hour),
			RequiredSoC: 54,
		},
	}
	slots := makeSlots(
		slotSpec{3.0, types.LevelNormal},
		slotSpec{2.9, types.LevelNormal},
		slotSpec{0.5, types.LevelVeryCheap}, // away, must not be picked
		slotSpec{1.0, types.LevelCheap},
		slotSpec{2.0, types.LevelNormal},
		slotSpec{1.5, types.LevelCheap})

	sched, res := p.buildSchedule(testNow, 30, slots, obligations)

	marks := marksByHour(sched)
	if marks[10] != MarkAway {
		t.Fatalf("hour 10: expected away, got %s", marks[10])
	}
	if marks[11] != MarkCharge || marks[12] != MarkCharge {
		t.Errorf("expected hours 11 and 12 selected, got 11=%s 12=%s", marks[11], marks[12])
	}
	if res.Shortfall {
		t.Error("unexpected shortfall")
	}
}

func TestBuildScheduleChainedObligationsShareCharge(t *testing.T) {
	p := testPlanner()
	// 80% on board covers the first trip entirely and part of the
	// second: only the remainder needs scheduled hours.
	obligations := []trip.Obligation{
		{
			Summary:     "morning trip",
			Departure:   testNow.Add(2 * time.Hour),
			Return:      testNow.Add(3 * time.Hour),
			RequiredSoC: 50, // 30 kWh
		},
		{
			Summary:     "evening trip",
			Departure:   testNow.Add(8 * time.Hour),
			Return:      testNow.Add(10 * time.Hour),
			RequiredSoC: 60, // 37.5 kWh
		},
	}

	_, res := p.buildSchedule(testNow, 80, normalSlots(8), obligations)

	// Charge left is 52.5 kWh; the first trip consumes 30, leaving 22.5
	// towards the second trip's 37.5: a 15 kWh gap, two hours at 8.97 kW.
	if res.HoursNeeded != 2 {
		t.Errorf("expected 2 scheduled hours, got %d", res.HoursNeeded)
	}

	// Cumulative need 67.5 kWh of 75 plus the 10% returning floor.
	if res.Target != 100 {
		t.Errorf("expected cumulative target 100, got %d", res.Target)
	}
}

func TestBuildScheduleTargetNeverBelowMinimum(t *testing.T) {
	p := testPlanner()
	obligations := []trip.Obligation{{
		Summary:     "around the corner",
		Departure:   testNow.Add(2 * time.Hour),
		Return:      testNow.Add(3 * time.Hour),
		RequiredSoC: 12,
	}}

	_, res := p.buildSchedule(testNow, 60, normalSlots(4), obligations)

	if res.Target != 32 {
		t.Errorf("expected target floored at minimum 32, got %d", res.Target)
	}
}

func TestBuildScheduleShortfall(t *testing.T) {
	p := testPlanner()
	obligations := []trip.Obligation{{
		Summary:     "long haul",
		Departure:   testNow.Add(2 * time.Hour),
		Return:      testNow.Add(12 * time.Hour),
		RequiredSoC: 100,
	}}

	sched, res := p.buildSchedule(testNow, 15, normalSlots(12), obligations)

	if !res.Shortfall {
		t.Fatal("expected a shortfall")
	}

	// Every eligible hour before departure is still selected.
	marks := marksByHour(sched)
	for _, h := range []uint8{8, 9} {
		if marks[h] != MarkCharge {
			t.Errorf("hour %d: expected charge, got %s", h, marks[h])
		}
	}
}

func TestBuildScheduleNoObligations(t *testing.T) {
	p := testPlanner()

	sched, res := p.buildSchedule(testNow, 40, normalSlots(4), nil)

	if res.HoursNeeded != 0 || res.Shortfall {
		t.Errorf("expected an empty result, got %+v", res)
	}
	for _, ps := range sched {
		if ps.Mark != MarkUndecided {
			t.Errorf("hour %s: expected undecided, got %s", ps.Hour, ps.Mark)
		}
	}
}
