// Package planner implements the itinerary search core: a randomized
// anytime greedy construction over a budget- and time-window-constrained
// multi-day sightseeing problem.
package planner

import (
	"time"

	"tripnav/internal/model"
)

const (
	// The day's absolute cutoff is 23:20 and hotel check-in opens at 18:00,
	// both relative to a midnight-anchored clock. Changing these changes
	// every feasibility decision; they mirror the production data set.
	dayEndMinute      = 1400
	checkinOpenMinute = 1080

	minutesPerDay = 1440

	// unreachable is the sentinel travel time used when no hotel can be
	// reached; it exceeds any real day length.
	unreachable = 1_000_000
)

// Request carries the planning inputs for one search.
type Request struct {
	Area   string
	Budget int
	Days   int
	People int
	Start  time.Time // absolute departure instant; minute-of-day anchors the windows
}

// Options tune the search. The zero value is usable: a time-seeded RNG, the
// production deadline and exploration probabilities.
type Options struct {
	// Seed for the random source. 0 means time-seeded (non-reproducible,
	// the production default); tests pin it for deterministic replay.
	Seed int64
	// TimeBudget bounds the wall-clock search loop. Checked between full
	// construction passes, so actual usage can exceed it by one pass.
	TimeBudget time.Duration
	// ExploreSpot / ExploreHotel are the probabilities of accepting a newly
	// enumerated candidate outright instead of the deterministic tie-break.
	// nil means the production default; a pointer to 0 turns exploration
	// off entirely, leaving a pure greedy tie-break.
	ExploreSpot  *float64
	ExploreHotel *float64
	// OnImprove, when set, observes every new best candidate.
	OnImprove func(Progress)
}

const (
	defaultTimeBudget   = 1500 * time.Millisecond
	defaultExploreSpot  = 0.5
	defaultExploreHotel = 0.4
)

// Progress describes a new best candidate found by the driver.
type Progress struct {
	Iteration int
	Score     float64
	Stops     int
	TotalCost int
}

// Stop is one leg of a day plan. Offsets are minutes from the day start;
// TotalCost is already scaled by party size.
type Stop struct {
	DestinationID   int
	DepartureOffset int
	ArrivalOffset   int
	TravelFare      int
	VisitFare       int
	TravelTime      int
	StayTime        int
	TotalCost       int
	Method          string
}

// DayPlan is the ordered stop sequence of one calendar day.
type DayPlan []Stop

// Itinerary is the per-day plan sequence of one construction attempt.
type Itinerary []DayPlan

// Metrics summarizes one search run, returned beside the best result.
type Metrics struct {
	Iterations   int
	Valid        int
	Discarded    int
	Improvements int
	BestScore    float64
	Elapsed      time.Duration
}

// Model converts the metrics to their wire shape.
func (m Metrics) Model() model.PlanMetrics {
	return model.PlanMetrics{
		Iterations:   m.Iterations,
		Valid:        m.Valid,
		Discarded:    m.Discarded,
		Improvements: m.Improvements,
		BestScore:    m.BestScore,
		ElapsedMs:    m.Elapsed.Milliseconds(),
	}
}

// windows holds the per-request relative time bounds: sightseeing arrivals
// must precede sightseeingEnd, hotel arrivals fall in [sightseeingEnd,
// dayTotal].
type windows struct {
	dayTotal       int
	sightseeingEnd int
}

// windowsFor derives the day windows from the departure minute-of-day.
func windowsFor(start time.Time) windows {
	t := start.Hour()*60 + start.Minute()
	return windows{
		dayTotal:       dayEndMinute - t,
		sightseeingEnd: checkinOpenMinute - t,
	}
}
