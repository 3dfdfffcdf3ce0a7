package planner

import (
	"math/rand"

	"tripnav/internal/catalog"
	"tripnav/internal/model"
)

// pick applies the randomized acceptance policy over candidates in
// enumeration order: with probability explore the newest candidate replaces
// the incumbent outright; otherwise the lower travel fare wins, ties going
// to the higher visit fare when byVisitFare is set. This is the stochastic
// move generator the outer driver resamples across restarts.
func pick(cands []Stop, rng *rand.Rand, explore float64, byVisitFare bool) (Stop, bool) {
	if len(cands) == 0 {
		return Stop{}, false
	}
	chosen := cands[0]
	for _, c := range cands[1:] {
		if rng.Float64() < explore {
			chosen = c
			continue
		}
		if c.TravelFare < chosen.TravelFare {
			chosen = c
		} else if byVisitFare && c.TravelFare == chosen.TravelFare && c.VisitFare > chosen.VisitFare {
			chosen = c
		}
	}
	return chosen, true
}

// construct builds one complete candidate itinerary. Position, budget and
// the visited set carry across days; each day only resets the clock.
func construct(idx *catalog.Index, order []model.Destination, req Request, w windows, rng *rand.Rand, exploreSpot, exploreHotel float64) Itinerary {
	nonHotels := 0
	for _, d := range order {
		if !d.IsHotel {
			nonHotels++
		}
	}

	st := simState{
		current: catalog.DepotID,
		budget:  req.Budget,
		visited: make(map[int]bool, len(order)),
	}
	visitedSpots := 0

	var itin Itinerary
	for day := 0; day < req.Days; day++ {
		st.clock = 0
		var plan DayPlan

		for {
			stop, ok := pick(spotCandidates(idx, order, st, req.People, w), rng, exploreSpot, true)
			if !ok {
				break
			}
			plan = append(plan, stop)
			st.visited[stop.DestinationID] = true
			visitedSpots++
			st.clock = stop.ArrivalOffset + stop.StayTime
			st.budget -= stop.TotalCost
			st.current = stop.DestinationID
		}

		if day == req.Days-1 {
			if stop, ok := returnCandidate(idx, st, req.People); ok {
				plan = append(plan, stop)
				st.clock = stop.ArrivalOffset
				st.budget -= stop.TotalCost
				st.current = catalog.DepotID
			}
		} else {
			if stop, ok := pick(hotelCandidates(idx, order, st, req.People, w), rng, exploreHotel, false); ok {
				plan = append(plan, stop)
				st.visited[stop.DestinationID] = true
				st.clock = stop.ArrivalOffset
				st.budget -= stop.TotalCost
				st.current = stop.DestinationID
			}
		}

		itin = append(itin, plan)
		if visitedSpots == nonHotels {
			break
		}
	}
	return itin
}
