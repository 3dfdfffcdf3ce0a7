package planner

import (
	"math"
	"math/rand"
	"time"

	"tripnav/internal/catalog"
	"tripnav/internal/model"
)

// Plan runs the anytime search: shuffle the enumeration order, build one
// candidate, keep the best valid one, until the wall-clock budget runs out.
// Quality is monotonically non-decreasing in allotted time; an exhausted
// deadline with no valid candidate yields an empty route, never an error.
func Plan(idx *catalog.Index, req Request, opts Options) (model.PlanResult, Metrics) {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	timeBudget := opts.TimeBudget
	if timeBudget <= 0 {
		timeBudget = defaultTimeBudget
	}
	exploreSpot := defaultExploreSpot
	if opts.ExploreSpot != nil {
		exploreSpot = *opts.ExploreSpot
	}
	exploreHotel := defaultExploreHotel
	if opts.ExploreHotel != nil {
		exploreHotel = *opts.ExploreHotel
	}

	w := windowsFor(req.Start)
	order := idx.Destinations()

	var best Itinerary
	bestScore := math.Inf(-1)
	var m Metrics

	start := time.Now()
	deadline := start.Add(timeBudget)
	for time.Now().Before(deadline) {
		m.Iterations++
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		itin := construct(idx, order, req, w, rng, exploreSpot, exploreHotel)
		if !valid(idx, itin) {
			m.Discarded++
			continue
		}
		m.Valid++

		stops, totalCost := tally(itin)
		score := scoreOf(stops, totalCost, req.Budget)
		if best == nil || score > bestScore {
			best = itin
			bestScore = score
			m.Improvements++
			m.BestScore = score
			if opts.OnImprove != nil {
				opts.OnImprove(Progress{Iteration: m.Iterations, Score: score, Stops: stops, TotalCost: totalCost})
			}
		}
	}
	m.Elapsed = time.Since(start)

	if best == nil {
		return model.PlanResult{Route: []model.RouteStop{}}, m
	}
	return model.PlanResult{Route: formatRoute(idx, best, req.Start)}, m
}

// valid enforces the terminal invariant: every day but the last ends at a
// hotel, the last day ends at the depot. Anything else is discarded
// without scoring.
func valid(idx *catalog.Index, itin Itinerary) bool {
	if len(itin) == 0 {
		return false
	}
	for i, plan := range itin {
		if len(plan) == 0 {
			return false
		}
		last := plan[len(plan)-1]
		if i == len(itin)-1 {
			if last.DestinationID != catalog.DepotID {
				return false
			}
			continue
		}
		d, ok := idx.ByID(last.DestinationID)
		if !ok || !d.IsHotel {
			return false
		}
	}
	return true
}

func tally(itin Itinerary) (stops, totalCost int) {
	for _, plan := range itin {
		for _, s := range plan {
			stops++
			totalCost += s.TotalCost
		}
	}
	return stops, totalCost
}

// scoreOf rewards itinerary length and budget utilization: plans that spend
// close to the full budget beat cheap-but-short ones.
func scoreOf(stops, totalCost, budget int) float64 {
	score := float64(stops) * 10
	if budget > 0 {
		score += float64(totalCost) / float64(budget) * 100
	}
	return score
}
