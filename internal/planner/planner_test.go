package planner

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tripnav/internal/catalog"
	"tripnav/internal/model"
)

var nineAM = time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

func buildIndex(t *testing.T, dests []model.Destination, transport, depot []model.TransportRecord, symmetric bool) *catalog.Index {
	t.Helper()
	opts := catalog.Options{
		Depot:                model.Destination{Name: "Depot"},
		SymmetricDepotReturn: symmetric,
	}
	idx, err := catalog.Build("osaka", dests, transport, depot, opts)
	require.NoError(t, err)
	return idx
}

// smallIndex is the minimal one-spot one-hotel catalog: A reachable from
// the depot, hotel B reachable from A.
func smallIndex(t *testing.T, symmetric bool, extraDepot ...model.TransportRecord) *catalog.Index {
	dests := []model.Destination{
		{ID: 1, Name: "A", Fare: 1000, StayTime: 60},
		{ID: 2, Name: "B", IsHotel: true},
	}
	transport := []model.TransportRecord{
		{StartDestinationID: 1, EndDestinationID: 2, Fare: 100, TimeMinutes: 20, Method: "train"},
	}
	depot := []model.TransportRecord{
		{StartDestinationID: 0, EndDestinationID: 1, Fare: 200, TimeMinutes: 30, Method: "train"},
		{StartDestinationID: 0, EndDestinationID: 2, Fare: 500, TimeMinutes: 90, Method: "train"},
	}
	depot = append(depot, extraDepot...)
	return buildIndex(t, dests, transport, depot, symmetric)
}

func TestWindowsFor(t *testing.T) {
	w := windowsFor(nineAM)
	require.Equal(t, 860, w.dayTotal)
	require.Equal(t, 540, w.sightseeingEnd)
}

func TestSpotCandidatesWindowAndBudget(t *testing.T) {
	idx := smallIndex(t, false)
	w := windowsFor(nineAM)
	order := idx.Destinations()

	st := simState{current: catalog.DepotID, budget: 5000, visited: map[int]bool{}}
	cands := spotCandidates(idx, order, st, 1, w)
	require.Len(t, cands, 1)
	require.Equal(t, 1, cands[0].DestinationID)
	require.Equal(t, 30, cands[0].ArrivalOffset)
	require.Equal(t, 1200, cands[0].TotalCost)

	// Arrival on or past the sightseeing cutoff is rejected.
	st.clock = w.sightseeingEnd - 30
	require.Empty(t, spotCandidates(idx, order, st, 1, w))

	// A stop that cannot still reach an open hotel is rejected.
	st.clock = 0
	st.visited = map[int]bool{2: true}
	require.Empty(t, spotCandidates(idx, order, st, 1, w))

	// Party-scaled cost beyond the remaining budget is rejected.
	st.visited = map[int]bool{}
	st.budget = 2300
	require.Empty(t, spotCandidates(idx, order, st, 2, w))
}

func TestHotelCandidatesCheckinWindow(t *testing.T) {
	idx := smallIndex(t, false)
	w := windowsFor(nineAM)
	order := idx.Destinations()

	// Arriving before the check-in window opens is infeasible.
	st := simState{current: 1, clock: 100, budget: 5000, visited: map[int]bool{1: true}}
	require.Empty(t, hotelCandidates(idx, order, st, 1, w))

	st.clock = w.sightseeingEnd - 10
	cands := hotelCandidates(idx, order, st, 1, w)
	require.Len(t, cands, 1)
	require.Equal(t, 2, cands[0].DestinationID)
	require.Equal(t, w.sightseeingEnd+10, cands[0].ArrivalOffset)
	require.Zero(t, cands[0].StayTime)

	// Past the end of the day is infeasible too.
	st.clock = w.dayTotal
	require.Empty(t, hotelCandidates(idx, order, st, 1, w))
}

func TestReturnCandidate(t *testing.T) {
	withReturn := smallIndex(t, false, model.TransportRecord{
		StartDestinationID: 1, EndDestinationID: 0, Fare: 150, TimeMinutes: 25, Method: "train",
	})
	st := simState{current: 1, clock: 90, budget: 5000, visited: map[int]bool{1: true}}
	stop, ok := returnCandidate(withReturn, st, 1)
	require.True(t, ok)
	require.Equal(t, catalog.DepotID, stop.DestinationID)
	require.Equal(t, 115, stop.ArrivalOffset)
	require.Equal(t, 150, stop.TotalCost)

	// No depot-bound edge from the current position.
	noReturn := smallIndex(t, false)
	_, ok = returnCandidate(noReturn, st, 1)
	require.False(t, ok)

	// Return fare over budget.
	st.budget = 100
	_, ok = returnCandidate(withReturn, st, 1)
	require.False(t, ok)
}

func TestPickTieBreak(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	cands := []Stop{
		{DestinationID: 10, TravelFare: 200, VisitFare: 900},
		{DestinationID: 11, TravelFare: 100, VisitFare: 50},
		{DestinationID: 12, TravelFare: 100, VisitFare: 80},
	}

	// explore 0 is fully deterministic: lowest travel fare, visit fare
	// breaking the tie when enabled.
	got, ok := pick(cands, rng, 0, true)
	require.True(t, ok)
	require.Equal(t, 12, got.DestinationID)

	got, ok = pick(cands, rng, 0, false)
	require.True(t, ok)
	require.Equal(t, 11, got.DestinationID)

	// explore 1 always adopts the newest candidate.
	got, ok = pick(cands, rng, 1, true)
	require.True(t, ok)
	require.Equal(t, 12, got.DestinationID)

	_, ok = pick(nil, rng, 0, true)
	require.False(t, ok)
}

func TestConstructDeterministicReplay(t *testing.T) {
	idx := multiDayIndex(t)
	req := Request{Area: "osaka", Budget: 20000, Days: 2, People: 1, Start: nineAM}
	w := windowsFor(req.Start)
	order := idx.Destinations()

	a := construct(idx, order, req, w, rand.New(rand.NewSource(7)), 0.5, 0.4)
	b := construct(idx, order, req, w, rand.New(rand.NewSource(7)), 0.5, 0.4)
	require.Equal(t, a, b)
}

// multiDayIndex has three spots with long stays, one hotel and an explicit
// hotel-to-depot return edge, so two-day itineraries are feasible.
func multiDayIndex(t *testing.T) *catalog.Index {
	dests := []model.Destination{
		{ID: 1, Name: "Castle", Fare: 1000, StayTime: 300},
		{ID: 2, Name: "Aquarium", Fare: 500, StayTime: 300},
		{ID: 3, Name: "Hotel", Fare: 4000, IsHotel: true},
		{ID: 4, Name: "Tower", Fare: 800, StayTime: 60},
	}
	var transport []model.TransportRecord
	spots := []int{1, 2, 4}
	for _, a := range spots {
		for _, b := range spots {
			if a == b {
				continue
			}
			transport = append(transport, model.TransportRecord{
				StartDestinationID: a, EndDestinationID: b, Fare: 100, TimeMinutes: 20, Method: "train",
			})
		}
		transport = append(transport,
			model.TransportRecord{StartDestinationID: a, EndDestinationID: 3, Fare: 150, TimeMinutes: 30, Method: "train"},
			model.TransportRecord{StartDestinationID: 3, EndDestinationID: a, Fare: 150, TimeMinutes: 30, Method: "train"},
		)
	}
	depot := []model.TransportRecord{
		{StartDestinationID: 0, EndDestinationID: 1, Fare: 200, TimeMinutes: 30, Method: "train"},
		{StartDestinationID: 0, EndDestinationID: 2, Fare: 250, TimeMinutes: 40, Method: "train"},
		{StartDestinationID: 0, EndDestinationID: 4, Fare: 220, TimeMinutes: 35, Method: "train"},
		{StartDestinationID: 3, EndDestinationID: 0, Fare: 400, TimeMinutes: 60, Method: "train"},
	}
	return buildIndex(t, dests, transport, depot, true)
}

func TestPlanFinalDayRequiresDepotReturn(t *testing.T) {
	// No depot-bound edge from A and no symmetric derivation: every
	// candidate ends stranded at A and is discarded.
	idx := smallIndex(t, false)
	req := Request{Area: "osaka", Budget: 5000, Days: 1, People: 1, Start: nineAM}
	res, m := Plan(idx, req, Options{Seed: 42, TimeBudget: 50 * time.Millisecond})
	require.Empty(t, res.Route)
	require.Zero(t, m.Valid)
	require.Equal(t, m.Iterations, m.Discarded)

	// With an explicit return edge the same catalog plans A then depot.
	idx = smallIndex(t, false, model.TransportRecord{
		StartDestinationID: 1, EndDestinationID: 0, Fare: 150, TimeMinutes: 25, Method: "train",
	})
	res, m = Plan(idx, req, Options{Seed: 42, TimeBudget: 50 * time.Millisecond})
	require.Len(t, res.Route, 2)
	require.Equal(t, "A", res.Route[0].Name)
	require.Equal(t, "Depot", res.Route[1].Name)
	require.Equal(t, 1350, res.Route[0].TotalCost+res.Route[1].TotalCost)
	require.Positive(t, m.Valid)
	require.Equal(t, m.BestScore, scoreOf(2, 1350, req.Budget))
}

func TestPlanMultiDayInvariants(t *testing.T) {
	idx := multiDayIndex(t)
	req := Request{Area: "osaka", Budget: 20000, Days: 2, People: 1, Start: nineAM}

	var improvements []Progress
	res, m := Plan(idx, req, Options{
		Seed:       42,
		TimeBudget: 200 * time.Millisecond,
		OnImprove:  func(p Progress) { improvements = append(improvements, p) },
	})
	require.NotEmpty(t, res.Route)
	require.Positive(t, m.Valid)
	require.Len(t, improvements, m.Improvements)

	// Terminal invariant.
	require.Equal(t, "Depot", res.Route[len(res.Route)-1].Name)

	// Budget invariant.
	total := 0
	for _, s := range res.Route {
		total += s.TotalCost
	}
	require.LessOrEqual(t, total, req.Budget)

	// Visit-once invariant: no destination repeats.
	seen := map[string]bool{}
	for _, s := range res.Route[:len(res.Route)-1] {
		require.False(t, seen[s.Name], "destination %s visited twice", s.Name)
		seen[s.Name] = true
	}

	// The hotel night splits the days: its arrival is a later wall-clock
	// day than the first stop's.
	hotelAt := -1
	for i, s := range res.Route {
		if s.Name == "Hotel" {
			hotelAt = i
		}
	}
	require.GreaterOrEqual(t, hotelAt, 0)
	first, err := time.Parse(time.RFC3339, res.Route[0].ArrivalTime)
	require.NoError(t, err)
	last, err := time.Parse(time.RFC3339, res.Route[len(res.Route)-1].ArrivalTime)
	require.NoError(t, err)
	require.True(t, last.After(first.Add(20*time.Hour)), "final stop should land on the next day")
}

func TestPlanPartyScaling(t *testing.T) {
	idx := smallIndex(t, true)
	req := Request{Area: "osaka", Budget: 5000, Days: 1, People: 2, Start: nineAM}
	res, _ := Plan(idx, req, Options{Seed: 1, TimeBudget: 50 * time.Millisecond})
	require.Len(t, res.Route, 2)
	// (200+1000)*2 travel+visit for A, 200*2 symmetric return.
	require.Equal(t, 2400, res.Route[0].TotalCost)
	require.Equal(t, 400, res.Route[1].TotalCost)
}

func TestPlanEmptyResultIsWellFormed(t *testing.T) {
	idx := smallIndex(t, true)
	req := Request{Area: "osaka", Budget: 0, Days: 1, People: 1, Start: nineAM}
	res, m := Plan(idx, req, Options{Seed: 1, TimeBudget: 30 * time.Millisecond})
	require.NotNil(t, res.Route)
	require.Empty(t, res.Route)
	require.Zero(t, m.BestScore)
	require.Positive(t, m.Iterations)
}

func TestFormatRouteUsesLocalName(t *testing.T) {
	dests := []model.Destination{
		{ID: 1, Name: "Castle", LocalName: "大阪城", Fare: 1000, StayTime: 60},
		{ID: 2, Name: "B", IsHotel: true},
	}
	transport := []model.TransportRecord{
		{StartDestinationID: 1, EndDestinationID: 2, Fare: 100, TimeMinutes: 20, Method: "train"},
	}
	depot := []model.TransportRecord{
		{StartDestinationID: 0, EndDestinationID: 1, Fare: 200, TimeMinutes: 30, Method: "train"},
	}
	idx := buildIndex(t, dests, transport, depot, true)

	itin := Itinerary{DayPlan{
		{DestinationID: 1, DepartureOffset: 0, ArrivalOffset: 30, TravelFare: 200, VisitFare: 1000, TravelTime: 30, StayTime: 60, TotalCost: 1200, Method: "train"},
		{DestinationID: 0, DepartureOffset: 90, ArrivalOffset: 120, TravelFare: 200, TravelTime: 30, TotalCost: 200, Method: "train"},
	}}
	route := formatRoute(idx, itin, nineAM)
	require.Len(t, route, 2)
	require.Equal(t, "大阪城", route[0].Name)
	require.Equal(t, "Depot", route[1].Name)
	require.Equal(t, nineAM.Add(30*time.Minute).Format(time.RFC3339), route[0].ArrivalTime)
	require.Equal(t, 60, route[0].StayMinutes)
	require.False(t, strings.Contains(route[1].ArrivalTime, "unknown"))
}

func TestScoreRewardsBudgetUtilization(t *testing.T) {
	cheap := scoreOf(3, 1000, 10000)
	spendy := scoreOf(3, 9000, 10000)
	require.Greater(t, spendy, cheap)
	require.Equal(t, float64(30), scoreOf(3, 0, 0))
}

func TestPlanScoreMonotonicInTimeBudget(t *testing.T) {
	idx := multiDayIndex(t)
	req := Request{Area: "osaka", Budget: 20000, Days: 2, People: 1, Start: nineAM}

	scoreAt := func(d time.Duration) float64 {
		_, m := Plan(idx, req, Options{Seed: 11, TimeBudget: d})
		return m.BestScore
	}
	// A longer deadline replays the same seeded iteration sequence further,
	// so the best score never drops.
	require.LessOrEqual(t, scoreAt(40*time.Millisecond), scoreAt(250*time.Millisecond))
}

// Two spots with long stays so only one fits per day; the garden is cheap
// to reach, the shrine expensive but higher scoring through budget
// utilization.
func explorationIndex(t *testing.T) *catalog.Index {
	dests := []model.Destination{
		{ID: 1, Name: "Garden", StayTime: 400},
		{ID: 2, Name: "Shrine", StayTime: 400},
		{ID: 3, Name: "Hotel", IsHotel: true},
	}
	transport := []model.TransportRecord{
		{StartDestinationID: 1, EndDestinationID: 2, Fare: 100, TimeMinutes: 30, Method: "train"},
		{StartDestinationID: 2, EndDestinationID: 1, Fare: 100, TimeMinutes: 30, Method: "train"},
		{StartDestinationID: 1, EndDestinationID: 3, Fare: 0, TimeMinutes: 30, Method: "train"},
		{StartDestinationID: 2, EndDestinationID: 3, Fare: 0, TimeMinutes: 30, Method: "train"},
	}
	depot := []model.TransportRecord{
		{StartDestinationID: 0, EndDestinationID: 1, Fare: 100, TimeMinutes: 30, Method: "train"},
		{StartDestinationID: 0, EndDestinationID: 2, Fare: 900, TimeMinutes: 30, Method: "train"},
	}
	return buildIndex(t, dests, transport, depot, true)
}

func TestPlanExplorationDisabled(t *testing.T) {
	idx := explorationIndex(t)
	req := Request{Area: "osaka", Budget: 20000, Days: 1, People: 1, Start: nineAM}

	// With exploration pinned to zero every construction is the pure greedy
	// tie-break, which always reaches for the cheapest travel fare first.
	off := 0.0
	for seed := int64(1); seed <= 6; seed++ {
		res, _ := Plan(idx, req, Options{
			Seed:         seed,
			TimeBudget:   20 * time.Millisecond,
			ExploreSpot:  &off,
			ExploreHotel: &off,
		})
		require.NotEmpty(t, res.Route)
		require.Equal(t, "Garden", res.Route[0].Name, "seed %d", seed)
	}

	// Default exploration diversifies restarts and keeps the pricier,
	// higher-scoring shrine itinerary.
	res, _ := Plan(idx, req, Options{Seed: 1, TimeBudget: 50 * time.Millisecond})
	require.NotEmpty(t, res.Route)
	require.Equal(t, "Shrine", res.Route[0].Name)
}
