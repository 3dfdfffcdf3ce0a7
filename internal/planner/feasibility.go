package planner

import (
	"tripnav/internal/catalog"
	"tripnav/internal/model"
)

// simState is a snapshot of one construction attempt: current position,
// elapsed minutes within the day, remaining (party-scaled) budget and the
// trip-global visited set. Hotels enter visited once slept in.
type simState struct {
	current int
	clock   int
	budget  int
	visited map[int]bool
}

// minHotelTravelTime returns the minimum area-internal travel time from a
// destination to any still-unvisited hotel, or the unreachable sentinel.
// It guarantees a sightseeing stop never strands the day without a hotel.
func minHotelTravelTime(idx *catalog.Index, from int, visited map[int]bool) int {
	min := unreachable
	for _, d := range idx.Destinations() {
		if !d.IsHotel || visited[d.ID] {
			continue
		}
		if e, ok := idx.InterEdge(from, d.ID); ok && e.TimeMinutes < min {
			min = e.TimeMinutes
		}
	}
	return min
}

// spotCandidates enumerates every feasible sightseeing move from the current
// state, in the order destinations appear in order. Pure: the state is not
// modified.
func spotCandidates(idx *catalog.Index, order []model.Destination, st simState, people int, w windows) []Stop {
	var out []Stop
	for _, d := range order {
		if d.IsHotel || st.visited[d.ID] {
			continue
		}
		e, ok := idx.Edge(st.current, d.ID)
		if !ok {
			continue
		}
		arrival := st.clock + e.TimeMinutes
		if arrival >= w.sightseeingEnd {
			continue
		}
		// The stay plus the cheapest hop to an open hotel must still fit the
		// day, otherwise the stop would strand the traveler.
		if st.clock+e.TimeMinutes+d.StayTime+minHotelTravelTime(idx, d.ID, st.visited) > w.dayTotal {
			continue
		}
		total := (e.Fare + d.Fare) * people
		if total > st.budget {
			continue
		}
		out = append(out, Stop{
			DestinationID:   d.ID,
			DepartureOffset: st.clock,
			ArrivalOffset:   arrival,
			TravelFare:      e.Fare,
			VisitFare:       d.Fare,
			TravelTime:      e.TimeMinutes,
			StayTime:        d.StayTime,
			TotalCost:       total,
			Method:          e.Method,
		})
	}
	return out
}

// hotelCandidates enumerates every unvisited hotel whose arrival falls in
// the check-in window and whose cost fits the remaining budget.
func hotelCandidates(idx *catalog.Index, order []model.Destination, st simState, people int, w windows) []Stop {
	var out []Stop
	for _, d := range order {
		if !d.IsHotel || st.visited[d.ID] {
			continue
		}
		e, ok := idx.Edge(st.current, d.ID)
		if !ok {
			continue
		}
		arrival := st.clock + e.TimeMinutes
		if arrival < w.sightseeingEnd || arrival > w.dayTotal {
			continue
		}
		total := (e.Fare + d.Fare) * people
		if total > st.budget {
			continue
		}
		out = append(out, Stop{
			DestinationID:   d.ID,
			DepartureOffset: st.clock,
			ArrivalOffset:   arrival,
			TravelFare:      e.Fare,
			VisitFare:       d.Fare,
			TravelTime:      e.TimeMinutes,
			StayTime:        0,
			TotalCost:       total,
			Method:          e.Method,
		})
	}
	return out
}

// returnCandidate is the single final-day move back to the depot. There is
// exactly one candidate per call; ok is false when no depot-bound edge
// exists or the fare breaks the budget.
func returnCandidate(idx *catalog.Index, st simState, people int) (Stop, bool) {
	e, ok := idx.ReturnEdge(st.current)
	if !ok {
		return Stop{}, false
	}
	total := e.Fare * people
	if total > st.budget {
		return Stop{}, false
	}
	return Stop{
		DestinationID:   catalog.DepotID,
		DepartureOffset: st.clock,
		ArrivalOffset:   st.clock + e.TimeMinutes,
		TravelFare:      e.Fare,
		VisitFare:       0,
		TravelTime:      e.TimeMinutes,
		StayTime:        0,
		TotalCost:       total,
		Method:          e.Method,
	}, true
}
