// Package catalog builds the immutable lookup index the planner runs
// against: one area's destinations plus directed travel-cost/time edges.
package catalog

import (
	"errors"
	"fmt"

	"tripnav/internal/model"
)

// DepotID is the synthetic origin node. It is never part of a loaded
// catalog; the index synthesizes its record from Options.Depot.
const DepotID = 0

// ErrAreaNotFound is returned when the requested area key has no
// destinations.
var ErrAreaNotFound = errors.New("area not found")

// Edge is one directed travel move.
type Edge struct {
	Fare        int
	TimeMinutes int
	Method      string
}

// Options control index construction.
type Options struct {
	// Depot names the origin hub the itinerary starts from and returns to.
	// Its ID is forced to DepotID.
	Depot model.Destination
	// SymmetricDepotReturn derives (from, 0) return edges by key-swapping the
	// outbound origin table. Explicit records ending at the depot always win.
	SymmetricDepotReturn bool
}

// DefaultOptions matches the behavior of both planner variants of the
// original data set: return trips reuse the outbound origin edges.
func DefaultOptions() Options {
	return Options{
		Depot: model.Destination{
			Name:      "Osaka Station",
			LocalName: "大阪駅",
			Location:  model.GeoPoint{Lat: 34.702485, Lng: 135.495951},
		},
		SymmetricDepotReturn: true,
	}
}

// Index holds one area's catalog and edge tables. Read-only after Build.
type Index struct {
	area         string
	depot        model.Destination
	destinations []model.Destination
	byID         map[int]model.Destination
	edges        map[[2]int]Edge
	depotOut     map[int]Edge // depot -> destination
	depotReturn  map[int]Edge // destination -> depot
}

// Build filters the transport tables down to the requested area and
// assembles the id-keyed lookups. Malformed records (non-positive ids,
// endpoints outside the area, zero travel time on a non-walk edge left as-is)
// yield absent edges rather than errors.
func Build(area string, destinations []model.Destination, transport, depot []model.TransportRecord, opts Options) (*Index, error) {
	if len(destinations) == 0 {
		return nil, fmt.Errorf("catalog: %q: %w", area, ErrAreaNotFound)
	}

	idx := &Index{
		area:        area,
		depot:       opts.Depot,
		byID:        make(map[int]model.Destination, len(destinations)),
		edges:       map[[2]int]Edge{},
		depotOut:    map[int]Edge{},
		depotReturn: map[int]Edge{},
	}
	idx.depot.ID = DepotID

	for _, d := range destinations {
		if d.ID <= 0 {
			continue
		}
		if _, dup := idx.byID[d.ID]; dup {
			continue
		}
		idx.byID[d.ID] = d
		idx.destinations = append(idx.destinations, d)
	}
	if len(idx.destinations) == 0 {
		return nil, fmt.Errorf("catalog: %q has no valid destinations: %w", area, ErrAreaNotFound)
	}

	for _, r := range transport {
		if _, ok := idx.byID[r.StartDestinationID]; !ok {
			continue
		}
		if _, ok := idx.byID[r.EndDestinationID]; !ok {
			continue
		}
		idx.edges[[2]int{r.StartDestinationID, r.EndDestinationID}] = recordEdge(r)
	}

	for _, r := range depot {
		switch {
		case r.StartDestinationID == DepotID:
			if _, ok := idx.byID[r.EndDestinationID]; !ok {
				continue
			}
			idx.depotOut[r.EndDestinationID] = recordEdge(r)
			if opts.SymmetricDepotReturn {
				// The source table encodes only the outbound direction; the
				// return edge is the same record keyed (destination, 0).
				if _, explicit := idx.depotReturn[r.EndDestinationID]; !explicit {
					idx.depotReturn[r.EndDestinationID] = recordEdge(r)
				}
			}
		case r.EndDestinationID == DepotID:
			if _, ok := idx.byID[r.StartDestinationID]; !ok {
				continue
			}
			idx.depotReturn[r.StartDestinationID] = recordEdge(r)
		}
	}

	return idx, nil
}

func recordEdge(r model.TransportRecord) Edge {
	return Edge{Fare: r.Fare, TimeMinutes: r.TimeMinutes, Method: r.Method}
}

// Area returns the area key the index was built for.
func (x *Index) Area() string { return x.area }

// Depot returns the synthesized origin record (ID 0).
func (x *Index) Depot() model.Destination { return x.depot }

// Destinations returns a fresh copy of the area's destinations. Callers may
// reorder it freely; the index itself stays immutable.
func (x *Index) Destinations() []model.Destination {
	out := make([]model.Destination, len(x.destinations))
	copy(out, x.destinations)
	return out
}

// ByID looks up a destination, including the depot.
func (x *Index) ByID(id int) (model.Destination, bool) {
	if id == DepotID {
		return x.depot, true
	}
	d, ok := x.byID[id]
	return d, ok
}

// Edge returns the travel edge from one position to a destination,
// dispatching to the origin table when starting at the depot.
func (x *Index) Edge(from, to int) (Edge, bool) {
	if from == DepotID {
		e, ok := x.depotOut[to]
		return e, ok
	}
	e, ok := x.edges[[2]int{from, to}]
	return e, ok
}

// InterEdge looks up an area-internal edge only.
func (x *Index) InterEdge(from, to int) (Edge, bool) {
	e, ok := x.edges[[2]int{from, to}]
	return e, ok
}

// ReturnEdge returns the depot-bound edge from a destination, if any.
func (x *Index) ReturnEdge(from int) (Edge, bool) {
	e, ok := x.depotReturn[from]
	return e, ok
}

// Size reports catalog and edge-table cardinalities, for logging.
func (x *Index) Size() (destinations, edges, depotOut, depotReturn int) {
	return len(x.destinations), len(x.edges), len(x.depotOut), len(x.depotReturn)
}
